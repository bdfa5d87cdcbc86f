package practice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
)

var errBoom = errors.New("boom")

type fakeAuth struct{ user string }

func (a fakeAuth) CurrentUser() (string, bool) { return a.user, a.user != "" }

// fakeBackend is an in-memory QuestionSource, ResponseStore and Scorer.
type fakeBackend struct {
	mu        sync.Mutex
	questions []json.RawMessage
	topics    map[string]string
	responses map[string]*Response // by user|question
	nextID    int

	// hold blocks FetchQuestions for a topic until the channel is closed;
	// entered receives the query once it is blocked.
	hold    map[string]chan struct{}
	entered chan PageQuery

	// insertHold blocks InsertResponse until closed; insertEntered is
	// signalled once the insert is blocked.
	insertHold    chan struct{}
	insertEntered chan struct{}

	fetchErr  error
	lookupErr error
	insertErr error
	updateErr error
	scoreErr  error

	fetchCalls  int
	lookupCalls int
	bulkCalls   int
	insertCalls int
	updateCalls int
	scoreEvents []ScoreEvent
	queries     []PageQuery
}

func newFakeBackend(n int) *fakeBackend {
	b := &fakeBackend{topics: map[string]string{}, responses: map[string]*Response{}, hold: map[string]chan struct{}{}}
	for i := range n {
		b.addQuestion(fmt.Sprintf("q%02d", i), "Valvular")
	}
	return b
}

func (b *fakeBackend) addQuestion(id, topic string) {
	raw := fmt.Sprintf(`{"id":%q,"slug":%q,"stem_md":"stem","topic":%q,"choices":[
		{"id":"%s-b","label":"B","text_md":"wrong","is_correct":false},
		{"id":"%s-a","label":"A","text_md":"right","is_correct":true}]}`, id, id, topic, id, id)
	b.questions = append(b.questions, json.RawMessage(raw))
	b.topics[id] = topic
}

func (b *fakeBackend) FetchQuestions(ctx context.Context, q PageQuery) (*QuestionPage, error) {
	b.mu.Lock()
	hold, entered := b.hold[q.Filters.Topic], b.entered
	b.mu.Unlock()
	if hold != nil {
		if entered != nil {
			entered <- q
		}
		<-hold
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetchCalls++
	b.queries = append(b.queries, q)
	if b.fetchErr != nil {
		return nil, b.fetchErr
	}
	var matched []json.RawMessage
	for _, raw := range b.questions {
		id := rowID(raw)
		if q.Filters.Topic != AllValue && b.topics[id] != q.Filters.Topic {
			continue
		}
		matched = append(matched, raw)
	}
	total := len(matched)
	from := min(q.Page*q.PageSize, total)
	to := min(from+q.PageSize, total)
	return &QuestionPage{Rows: slices.Clone(matched[from:to]), Total: &total}, nil
}

func key(user, question string) string { return user + "|" + question }

func (b *fakeBackend) LatestResponse(ctx context.Context, userID, questionID string) (*Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lookupCalls++
	if b.lookupErr != nil {
		return nil, b.lookupErr
	}
	r, ok := b.responses[key(userID, questionID)]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (b *fakeBackend) ResponsesFor(ctx context.Context, userID string, ids []string) (map[string]Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bulkCalls++
	if b.lookupErr != nil {
		return nil, b.lookupErr
	}
	out := map[string]Response{}
	for _, id := range ids {
		if r, ok := b.responses[key(userID, id)]; ok {
			out[id] = *r
		}
	}
	return out, nil
}

func (b *fakeBackend) InsertResponse(ctx context.Context, r NewResponse) (*Response, error) {
	b.mu.Lock()
	hold, entered := b.insertHold, b.insertEntered
	b.mu.Unlock()
	if hold != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		<-hold
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.insertCalls++
	if b.insertErr != nil {
		return nil, b.insertErr
	}
	k := key(r.UserID, r.QuestionID)
	if _, exists := b.responses[k]; exists {
		return nil, errors.New("duplicate response row")
	}
	b.nextID++
	row := &Response{
		ID:         fmt.Sprintf("r%d", b.nextID),
		Flagged:    r.Flagged,
		ChoiceID:   r.ChoiceID,
		IsCorrect:  r.IsCorrect,
		MsToAnswer: r.MsToAnswer,
	}
	b.responses[k] = row
	cp := *row
	return &cp, nil
}

func (b *fakeBackend) UpdateResponse(ctx context.Context, id string, p ResponsePatch) (*Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updateCalls++
	if b.updateErr != nil {
		return nil, b.updateErr
	}
	for _, row := range b.responses {
		if row.ID != id {
			continue
		}
		if p.ChoiceID != nil {
			row.ChoiceID = p.ChoiceID
		}
		if p.IsCorrect != nil {
			row.IsCorrect = *p.IsCorrect
		}
		if p.MsToAnswer != nil {
			row.MsToAnswer = p.MsToAnswer
		}
		if p.Flagged != nil {
			row.Flagged = *p.Flagged
		}
		cp := *row
		return &cp, nil
	}
	return nil, nil
}

func (b *fakeBackend) IncrementPoints(ctx context.Context, ev ScoreEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.scoreErr != nil {
		return b.scoreErr
	}
	b.scoreEvents = append(b.scoreEvents, ev)
	return nil
}

func (b *fakeBackend) rowCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.responses)
}

func (b *fakeBackend) set(fn func(b *fakeBackend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}
