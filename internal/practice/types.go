package practice

import "encoding/json"

// Choice is one answer option of a question.
type Choice struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	TextMD    string `json:"text_md"`
	IsCorrect bool   `json:"is_correct"`
}

// MediaBundle groups the optional media attached to a question.
type MediaBundle struct {
	ID         string  `json:"id"`
	MurmurURL  *string `json:"murmur_url"`
	CXRURL     *string `json:"cxr_url"`
	EKGURL     *string `json:"ekg_url"`
	DiagramURL *string `json:"diagram_url"`
	AltText    *string `json:"alt_text"`
}

// Context panel kinds.
const (
	PanelLabs    = "labs"
	PanelFormula = "formula"
)

// LabValue is a single row of a labs panel.
type LabValue struct {
	Label string  `json:"label"`
	Value string  `json:"value"`
	Unit  *string `json:"unit"`
}

// FormulaReference is a named expression shown in a formula panel.
type FormulaReference struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
}

// ContextPanel is supplementary content shown next to a stem. Labs is set
// for PanelLabs; Formulas and BodyMD for PanelFormula.
type ContextPanel struct {
	ID       string             `json:"id"`
	Kind     string             `json:"kind"`
	Title    *string            `json:"title"`
	Labs     []LabValue         `json:"labs,omitempty"`
	Formulas []FormulaReference `json:"formulas,omitempty"`
	BodyMD   *string            `json:"body_md,omitempty"`
}

// Question is the canonical in-memory question. Choices are sorted by label.
// Nil pointers and nil slices stand for values the store reported as null.
type Question struct {
	ID                 string
	Slug               string
	StemMD             string
	LeadIn             *string
	ExplanationBriefMD string
	ExplanationDeepMD  *string
	Topic              *string
	Subtopic           *string
	Lesion             *string
	Difficulty         *string
	Media              *MediaBundle
	ContextPanels      []ContextPanel
	Choices            []Choice
}

// CorrectChoice returns the choice marked correct, if any.
func (q Question) CorrectChoice() (Choice, bool) {
	for _, c := range q.Choices {
		if c.IsCorrect {
			return c, true
		}
	}
	return Choice{}, false
}

// Response is the single persisted outcome for a (user, question) pair.
// A nil ChoiceID means the question was flagged but not answered.
type Response struct {
	ID         string
	Flagged    bool
	ChoiceID   *string
	IsCorrect  bool
	MsToAnswer *int
}

// Answered reports whether the response carries a recorded answer.
func (r Response) Answered() bool {
	return r.ChoiceID != nil
}

// NewResponse is the row inserted on the first write for a question.
type NewResponse struct {
	UserID     string
	QuestionID string
	ChoiceID   *string
	IsCorrect  bool
	MsToAnswer *int
	Flagged    bool
}

// ResponsePatch is a partial update; nil fields are left untouched.
type ResponsePatch struct {
	ChoiceID   *string
	IsCorrect  *bool
	MsToAnswer *int
	Flagged    *bool
}

// PageQuery selects one page of published questions.
type PageQuery struct {
	Page     int
	PageSize int
	Filters  Filters
}

// QuestionPage is one page of raw rows as delivered by the store.
// Total is nil when the store did not report an exact count.
type QuestionPage struct {
	Rows  []json.RawMessage
	Total *int
}

// ScoreSourcePracticeResponse tags scoring calls triggered by a saved response.
const ScoreSourcePracticeResponse = "practice_response"

// ScoreEvent identifies the record that triggered a points increment.
type ScoreEvent struct {
	Source   string `json:"source"`
	SourceID string `json:"source_id"`
}
