package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chdqbank/qbank/internal/practice"
	"github.com/chdqbank/qbank/internal/store"
)

type mockAuth struct{ user string }

func (a mockAuth) CurrentUser() (string, bool) { return a.user, a.user != "" }

type mockRepo struct {
	items       []store.FlaggedItem
	err         error
	unflagCalls []string
}

func (m *mockRepo) FlaggedResponses(_ context.Context, _ string) ([]store.FlaggedItem, error) {
	return m.items, m.err
}

func (m *mockRepo) Unflag(_ context.Context, userID, responseID string) (bool, error) {
	m.unflagCalls = append(m.unflagCalls, userID+"/"+responseID)
	for _, it := range m.items {
		if it.ID == responseID {
			return true, nil
		}
	}
	return false, nil
}

func flagged(id, stem string, leadIn *string) store.FlaggedItem {
	return store.FlaggedItem{
		ResponseRecord: store.ResponseRecord{
			Response:   practice.Response{ID: id, Flagged: true},
			QuestionID: "q-" + id,
			CreatedAt:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		},
		Slug:   "slug-" + id,
		StemMD: stem,
		LeadIn: leadIn,
	}
}

func TestQueue(t *testing.T) {
	lead := "What is the next step?"
	repo := &mockRepo{items: []store.FlaggedItem{
		flagged("r1", "A  newborn\nwith cyanosis.", &lead),
		flagged("r2", "A child with a murmur.", nil),
	}}
	svc := NewService(repo, mockAuth{user: "u1"})

	items, err := svc.Queue(context.Background())
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].Prompt != "A newborn with cyanosis. What is the next step?" {
		t.Errorf("prompt = %q", items[0].Prompt)
	}
	if items[1].Prompt != "A child with a murmur." || items[1].Answered {
		t.Errorf("item = %+v", items[1])
	}
	if items[0].FlaggedAt != "2026-03-02" || items[0].QuestionID != "q-r1" {
		t.Errorf("item = %+v", items[0])
	}
}

func TestQueueRequiresSession(t *testing.T) {
	svc := NewService(&mockRepo{}, mockAuth{})
	if _, err := svc.Queue(context.Background()); !errors.Is(err, practice.ErrNoSession) {
		t.Fatalf("err = %v", err)
	}
	if err := svc.Unflag(context.Background(), "r1"); !errors.Is(err, practice.ErrNoSession) {
		t.Fatalf("err = %v", err)
	}
}

func TestQueueRepoError(t *testing.T) {
	svc := NewService(&mockRepo{err: errors.New("db locked")}, mockAuth{user: "u1"})
	if _, err := svc.Queue(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestUnflag(t *testing.T) {
	repo := &mockRepo{items: []store.FlaggedItem{flagged("r1", "stem", nil)}}
	svc := NewService(repo, mockAuth{user: "u1"})

	if err := svc.Unflag(context.Background(), "r1"); err != nil {
		t.Fatalf("Unflag: %v", err)
	}
	if err := svc.Unflag(context.Background(), "r9"); !errors.Is(err, ErrNotFlagged) {
		t.Fatalf("err = %v, want ErrNotFlagged", err)
	}
	if len(repo.unflagCalls) != 2 || repo.unflagCalls[0] != "u1/r1" {
		t.Errorf("calls = %v", repo.unflagCalls)
	}
}
