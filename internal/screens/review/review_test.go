package review

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/chdqbank/qbank/internal/review"
)

type mockQueue struct {
	items     []review.Item
	queueErr  error
	unflagErr error
	unflagged []string
}

func (m *mockQueue) Queue(context.Context) ([]review.Item, error) {
	return m.items, m.queueErr
}

func (m *mockQueue) Unflag(_ context.Context, id string) error {
	m.unflagged = append(m.unflagged, id)
	return m.unflagErr
}

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func loaded(t *testing.T, q *mockQueue) *ReviewScreen {
	t.Helper()
	s := New(q)
	s.Update(s.Init()())
	return s
}

func testItems() []review.Item {
	return []review.Item{
		{ResponseID: "r2", Slug: "as-murmur", Prompt: "Harsh systolic murmur. Most likely diagnosis?", Answered: true, IsCorrect: true, FlaggedAt: "2026-03-04"},
		{ResponseID: "r1", Slug: "mr-murmur", Prompt: "Holosystolic murmur at the apex.", FlaggedAt: "2026-03-01"},
	}
}

func TestReviewScreen_ListsQueue(t *testing.T) {
	s := loaded(t, &mockQueue{items: testItems()})

	view := s.View(100, 30)
	for _, want := range []string{"2 flagged", "Harsh systolic murmur", "answered correctly", "not answered"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestReviewScreen_Empty(t *testing.T) {
	s := loaded(t, &mockQueue{})
	if !strings.Contains(s.View(100, 30), "Nothing flagged") {
		t.Error("expected empty state")
	}
}

func TestReviewScreen_LoadError(t *testing.T) {
	s := loaded(t, &mockQueue{queueErr: errors.New("offline")})
	if !strings.Contains(s.View(100, 30), "couldn't load") {
		t.Error("expected load error banner")
	}
}

func TestReviewScreen_UnflagRemovesSelected(t *testing.T) {
	q := &mockQueue{items: testItems()}
	s := loaded(t, q)

	s.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	_, cmd := s.Update(keyPress('u'))
	if cmd == nil {
		t.Fatal("expected unflag command")
	}
	s.Update(cmd())

	if len(q.unflagged) != 1 || q.unflagged[0] != "r1" {
		t.Fatalf("expected r1 unflagged, got %v", q.unflagged)
	}
	if len(s.menu.Items) != 1 || s.menu.Items[0].Key != "r2" {
		t.Errorf("expected only r2 left, got %+v", s.menu.Items)
	}
	if s.menu.Selected != 0 {
		t.Errorf("expected cursor clamped to 0, got %d", s.menu.Selected)
	}
	if !strings.Contains(s.View(100, 30), review.MsgUnflagged) {
		t.Error("expected confirmation message")
	}
}

func TestReviewScreen_UnflagAlreadyCleared(t *testing.T) {
	q := &mockQueue{items: testItems(), unflagErr: review.ErrNotFlagged}
	s := loaded(t, q)

	_, cmd := s.Update(keyPress('u'))
	s.Update(cmd())

	if len(s.menu.Items) != 1 {
		t.Errorf("expected stale item dropped, got %d items", len(s.menu.Items))
	}
	if s.errMsg != "" {
		t.Errorf("expected no error, got %q", s.errMsg)
	}
}

func TestReviewScreen_UnflagFailureKeepsItem(t *testing.T) {
	q := &mockQueue{items: testItems(), unflagErr: errors.New("offline")}
	s := loaded(t, q)

	_, cmd := s.Update(keyPress('u'))
	s.Update(cmd())

	if len(s.menu.Items) != 2 {
		t.Errorf("expected item kept, got %d items", len(s.menu.Items))
	}
	if s.errMsg == "" {
		t.Error("expected error banner")
	}
}

func TestReviewScreen_IgnoresSecondUnflagWhilePending(t *testing.T) {
	s := loaded(t, &mockQueue{items: testItems()})

	_, first := s.Update(keyPress('u'))
	_, second := s.Update(keyPress('u'))

	if first == nil {
		t.Fatal("expected first unflag command")
	}
	if second != nil {
		t.Error("expected second unflag ignored while pending")
	}
}
