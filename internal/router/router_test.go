package router

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/chdqbank/qbank/internal/screen"
)

type stubScreen struct {
	title   string
	initRan bool
	closed  int
	updates int
}

func (s *stubScreen) Init() tea.Cmd {
	s.initRan = true
	return nil
}
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) {
	s.updates++
	return s, nil
}
func (s *stubScreen) View(int, int) string { return s.title }
func (s *stubScreen) Title() string        { return s.title }
func (s *stubScreen) Close()               { s.closed++ }

func TestPushRunsInit(t *testing.T) {
	r := New(&stubScreen{title: "practice"})

	review := &stubScreen{title: "review"}
	r.Push(review)

	if r.Depth() != 2 {
		t.Errorf("expected depth 2, got %d", r.Depth())
	}
	if r.Active().Title() != "review" {
		t.Errorf("expected active 'review', got %q", r.Active().Title())
	}
	if !review.initRan {
		t.Error("expected Init() to run on pushed screen")
	}
}

func TestPopClosesTop(t *testing.T) {
	base := &stubScreen{title: "practice"}
	r := New(base)

	summary := &stubScreen{title: "summary"}
	r.Push(summary)
	r.Pop()

	if r.Depth() != 1 {
		t.Errorf("expected depth 1, got %d", r.Depth())
	}
	if r.Active() != base {
		t.Errorf("expected base screen active, got %q", r.Active().Title())
	}
	if summary.closed != 1 {
		t.Errorf("expected popped screen closed once, got %d", summary.closed)
	}
	if base.closed != 0 {
		t.Error("base screen must stay open")
	}
}

type resumingScreen struct {
	stubScreen
	resumed int
}

type resumedMsg struct{}

func (s *resumingScreen) Resume() tea.Cmd {
	s.resumed++
	return func() tea.Msg { return resumedMsg{} }
}

func TestPopResumesScreenBelow(t *testing.T) {
	base := &resumingScreen{stubScreen: stubScreen{title: "practice"}}
	r := New(base)

	r.Push(&stubScreen{title: "sign in"})
	if base.resumed != 0 {
		t.Fatal("push must not resume the screen below")
	}

	cmd := r.Pop()
	if base.resumed != 1 {
		t.Errorf("expected one resume, got %d", base.resumed)
	}
	if cmd == nil {
		t.Fatal("expected the resume command")
	}
	if _, ok := cmd().(resumedMsg); !ok {
		t.Error("expected the command returned by Resume")
	}
}

func TestPopNoopAtBottom(t *testing.T) {
	base := &stubScreen{title: "practice"}
	r := New(base)

	r.Pop()

	if r.Depth() != 1 {
		t.Errorf("expected depth 1 after pop at bottom, got %d", r.Depth())
	}
	if base.closed != 0 {
		t.Error("bottom screen must not be closed by pop")
	}
}

func TestReplaceScreenMsg(t *testing.T) {
	signin := &stubScreen{title: "sign in"}
	r := New(signin)

	practice := &stubScreen{title: "practice"}
	r.Update(ReplaceScreenMsg{Screen: practice})

	if r.Depth() != 1 {
		t.Errorf("expected depth 1 after replace, got %d", r.Depth())
	}
	if r.Active().Title() != "practice" {
		t.Errorf("expected active 'practice', got %q", r.Active().Title())
	}
	if !practice.initRan {
		t.Error("expected Init() to run via ReplaceScreenMsg")
	}
	if signin.closed != 1 {
		t.Errorf("expected replaced screen closed, got %d", signin.closed)
	}
}

func TestUpdateForwardsToActive(t *testing.T) {
	base := &stubScreen{title: "practice"}
	top := &stubScreen{title: "review"}
	r := New(base)
	r.Push(top)

	r.Update(tea.KeyPressMsg{Code: 'x', Text: "x"})

	if top.updates != 1 || base.updates != 0 {
		t.Errorf("expected only the active screen updated, got top=%d base=%d", top.updates, base.updates)
	}
}

func TestCloseAll(t *testing.T) {
	a, b := &stubScreen{title: "a"}, &stubScreen{title: "b"}
	r := New(a)
	r.Push(b)

	r.CloseAll()

	if a.closed != 1 || b.closed != 1 {
		t.Errorf("expected every screen closed once, got a=%d b=%d", a.closed, b.closed)
	}
}
