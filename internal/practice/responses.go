package practice

// LookupState distinguishes a question never checked against the store
// from one checked and found to have no response.
type LookupState int

const (
	NotChecked LookupState = iota
	CheckedNone
	CheckedFound
)

func (s LookupState) String() string {
	switch s {
	case CheckedNone:
		return "checked-none"
	case CheckedFound:
		return "checked-found"
	default:
		return "not-checked"
	}
}

// Entry is the tagged value held for a question in a ResponseMap.
// Response is non-nil only when State is CheckedFound.
type Entry struct {
	State    LookupState
	Response *Response
}

// ResponseMap associates question ids with what is known about the
// learner's response. A missing key means NotChecked.
type ResponseMap map[string]Entry

// Entry returns the entry for questionID.
func (m ResponseMap) Entry(questionID string) Entry {
	e, ok := m[questionID]
	if !ok {
		return Entry{State: NotChecked}
	}
	return e
}

// Checked reports whether the store was consulted for questionID.
func (m ResponseMap) Checked(questionID string) bool {
	_, ok := m[questionID]
	return ok
}

// Set records the result of a store lookup or write. A nil resp records
// CheckedNone.
func (m ResponseMap) Set(questionID string, resp *Response) {
	if resp == nil {
		m[questionID] = Entry{State: CheckedNone}
		return
	}
	r := *resp
	m[questionID] = Entry{State: CheckedFound, Response: &r}
}

// Responses returns the known responses in no particular order.
func (m ResponseMap) Responses() []Response {
	out := make([]Response, 0, len(m))
	for _, e := range m {
		if e.State == CheckedFound && e.Response != nil {
			out = append(out, *e.Response)
		}
	}
	return out
}

func (m ResponseMap) clone() ResponseMap {
	out := make(ResponseMap, len(m))
	for k, e := range m {
		if e.Response != nil {
			r := *e.Response
			e.Response = &r
		}
		out[k] = e
	}
	return out
}

// AnswerPhase is the per-question submission state.
type AnswerPhase int

const (
	PhaseUnanswered AnswerPhase = iota
	PhaseSubmitting
	PhaseAnswered
)

func (p AnswerPhase) String() string {
	switch p {
	case PhaseSubmitting:
		return "submitting"
	case PhaseAnswered:
		return "answered"
	default:
		return "unanswered"
	}
}

// AnswerState tracks the selected choice through a submission.
// Reverted is set when a failed submission rolled back to Unanswered.
type AnswerState struct {
	Phase    AnswerPhase
	ChoiceID string
	Reverted bool
}

// submitting moves any state into Submitting with the chosen choice.
func (s AnswerState) submitting(choiceID string) AnswerState {
	return AnswerState{Phase: PhaseSubmitting, ChoiceID: choiceID}
}

// answered completes a submission.
func (s AnswerState) answered() AnswerState {
	return AnswerState{Phase: PhaseAnswered, ChoiceID: s.ChoiceID}
}

// revert undoes a failed submission, restoring prev when it was already
// answered and Unanswered(reverted) otherwise.
func (s AnswerState) revert(prev AnswerState) AnswerState {
	if prev.Phase == PhaseAnswered {
		return prev
	}
	return AnswerState{Phase: PhaseUnanswered, Reverted: true}
}

// answerStateFrom derives the state of a question with no local transition
// from its stored response.
func answerStateFrom(e Entry) AnswerState {
	if e.State == CheckedFound && e.Response != nil && e.Response.ChoiceID != nil {
		return AnswerState{Phase: PhaseAnswered, ChoiceID: *e.Response.ChoiceID}
	}
	return AnswerState{Phase: PhaseUnanswered}
}
