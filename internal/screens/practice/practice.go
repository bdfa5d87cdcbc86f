package practice

import (
	"context"
	"slices"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/chdqbank/qbank/internal/auth"
	engine "github.com/chdqbank/qbank/internal/practice"
	"github.com/chdqbank/qbank/internal/router"
	"github.com/chdqbank/qbank/internal/screen"
	reviewscreen "github.com/chdqbank/qbank/internal/screens/review"
	"github.com/chdqbank/qbank/internal/screens/signin"
	"github.com/chdqbank/qbank/internal/screens/summary"
	"github.com/chdqbank/qbank/internal/store"
	"github.com/chdqbank/qbank/internal/ui/components"
	"github.com/chdqbank/qbank/internal/ui/layout"
)

// Account is the session provider behind sign-out and user changes.
type Account interface {
	signin.Authenticator
	SignOut()
	Subscribe(fn auth.Listener) (unsubscribe func())
}

// Options configures a PracticeScreen.
type Options struct {
	Session *engine.Session

	// Topics and Lesions are the values offered by filter cycling.
	Topics  []string
	Lesions []string

	// Review enables the flagged-question queue; nil hides it.
	Review reviewscreen.Queue

	// Account enables sign-out; the session forgets its responses whenever
	// the signed-in user changes. Nil hides sign-out.
	Account Account

	// Now defaults to time.Now.
	Now func() time.Time
}

// PracticeScreen drives a practice session. All decisions are made by the
// session; the screen only dispatches engine calls and renders snapshots.
type PracticeScreen struct {
	sess        *engine.Session
	review      reviewscreen.Queue
	account     Account
	unsubscribe func()
	now         func() time.Time
	topics      []string
	lesions     []string

	snap      engine.Snapshot
	choices   components.ChoiceList
	shownID   string
	shownAt   time.Time
	busy      bool
	started   bool
	completed bool
}

var _ screen.Screen = (*PracticeScreen)(nil)
var _ screen.KeyHintProvider = (*PracticeScreen)(nil)
var _ screen.TallyProvider = (*PracticeScreen)(nil)
var _ screen.Closer = (*PracticeScreen)(nil)
var _ screen.Resumer = (*PracticeScreen)(nil)

// New creates a PracticeScreen.
func New(opts Options) *PracticeScreen {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &PracticeScreen{
		sess:    opts.Session,
		review:  opts.Review,
		account: opts.Account,
		now:     now,
		topics:  opts.Topics,
		lesions: opts.Lesions,
	}
	if s.account != nil {
		sess := s.sess
		s.unsubscribe = s.account.Subscribe(func(*store.User) { sess.ResetResponses() })
	}
	return s
}

func (s *PracticeScreen) Init() tea.Cmd {
	if s.started {
		return nil
	}
	s.started = true
	s.snap.Loading = true
	sess := s.sess
	return func() tea.Msg {
		return loadedMsg{Count: sess.Start(context.Background())}
	}
}

func (s *PracticeScreen) Title() string {
	return "Practice"
}

// Close stops the session from applying results of calls still in flight.
func (s *PracticeScreen) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.sess.Close()
}

// Resume refreshes after a screen on top was popped; the user or the
// stored responses may have changed meanwhile.
func (s *PracticeScreen) Resume() tea.Cmd {
	return tea.Batch(s.refresh(), s.hydrate())
}

func (s *PracticeScreen) Tally() layout.Tally {
	st := s.snap.Stats
	return layout.Tally{Answered: st.TotalAnswered, Correct: st.TotalCorrect, Flagged: st.Flagged}
}

func (s *PracticeScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{
		{Key: "1-5", Description: "Answer"},
		{Key: "f", Description: "Flag"},
		{Key: "n", Description: "Next"},
		{Key: "t/l/d", Description: "Filter"},
	}
	if s.review != nil {
		hints = append(hints, layout.KeyHint{Key: "r", Description: "Review"})
	}
	if s.account != nil {
		hints = append(hints, layout.KeyHint{Key: "o", Description: "Sign out"})
	}
	if s.snap.Error != "" {
		hints = append(hints, layout.KeyHint{Key: "x", Description: "Dismiss"})
	}
	return append(hints, layout.KeyHint{Key: "Ctrl+C", Description: "Quit"})
}

func (s *PracticeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		cmd := s.refresh()
		if msg.Count > 0 {
			return s, tea.Batch(cmd, s.prefetch())
		}
		return s, cmd

	case navigatedMsg:
		cmd := s.refresh()
		if msg.Moved {
			return s, tea.Batch(cmd, s.prefetch())
		}
		return s, cmd

	case writeDoneMsg:
		s.busy = false
		return s, s.refresh()

	case signedOutMsg:
		s.busy = false
		next := signin.New(s.account, nil)
		return s, tea.Batch(s.refresh(), func() tea.Msg { return router.PushScreenMsg{Screen: next} })

	case components.ChoicePickedMsg:
		return s.answer(msg.Choice)

	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *PracticeScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "f":
		return s.toggleFlag()
	case "n", "right":
		return s, s.next()
	case "t":
		return s, s.cycleFilter(engine.FilterPatch{Topic: ptr(cycle(s.topics, s.snap.Filters.Topic))})
	case "l":
		return s, s.cycleFilter(engine.FilterPatch{Lesion: ptr(cycle(s.lesions, s.snap.Filters.Lesion))})
	case "d":
		return s, s.cycleFilter(engine.FilterPatch{Difficulty: ptr(cycle(engine.Difficulties, s.snap.Filters.Difficulty))})
	case "o":
		return s, s.signOut()
	case "x":
		s.sess.ClearError()
		return s, s.refresh()
	case "r":
		if s.review == nil {
			return s, nil
		}
		next := reviewscreen.New(s.review)
		return s, func() tea.Msg { return router.PushScreenMsg{Screen: next} }
	case "s":
		return s, s.showSummary()
	}

	var cmd tea.Cmd
	s.choices, cmd = s.choices.Update(msg)
	return s, cmd
}

// refresh copies the session state and resets the choice list when the
// current question changed. It returns a command opening the summary the
// first time the session completes.
func (s *PracticeScreen) refresh() tea.Cmd {
	s.snap = s.sess.Snapshot()

	if s.snap.Current == nil {
		s.shownID = ""
		s.choices = components.ChoiceList{}
	} else if s.snap.Current.ID != s.shownID {
		s.shownID = s.snap.Current.ID
		s.shownAt = s.now()
		s.choices = components.NewChoiceList(s.snap.Current.Choices)
	}

	ans := s.snap.CurrentAnswer
	s.choices.Chosen = ""
	if ans.Phase != engine.PhaseUnanswered {
		s.choices.Chosen = ans.ChoiceID
	}
	s.choices.Reveal = ans.Phase == engine.PhaseAnswered
	s.choices.Disabled = s.busy || s.snap.Submitting

	if s.snap.Complete && !s.completed {
		s.completed = true
		return s.showSummary()
	}
	return nil
}

func (s *PracticeScreen) answer(choice engine.Choice) (screen.Screen, tea.Cmd) {
	if s.busy || s.snap.Current == nil {
		return s, nil
	}
	s.busy = true
	s.choices.Chosen = choice.ID
	s.choices.Reveal = false
	s.choices.Disabled = true

	sess := s.sess
	elapsed := s.now().Sub(s.shownAt)
	flagged := s.currentFlagged()
	return s, func() tea.Msg {
		return writeDoneMsg{Err: sess.HandleAnswer(context.Background(), choice, elapsed, flagged)}
	}
}

func (s *PracticeScreen) toggleFlag() (screen.Screen, tea.Cmd) {
	if s.busy || s.snap.Current == nil {
		return s, nil
	}
	s.busy = true
	s.choices.Disabled = true

	sess := s.sess
	flagged := !s.currentFlagged()
	return s, func() tea.Msg {
		return writeDoneMsg{Err: sess.HandleFlagChange(context.Background(), flagged)}
	}
}

func (s *PracticeScreen) currentFlagged() bool {
	return s.snap.CurrentResponse != nil && s.snap.CurrentResponse.Flagged
}

func (s *PracticeScreen) next() tea.Cmd {
	sess := s.sess
	return func() tea.Msg {
		ctx := context.Background()
		moved := sess.Next(ctx)
		sess.HydrateCurrent(ctx)
		return navigatedMsg{Moved: moved}
	}
}

func (s *PracticeScreen) hydrate() tea.Cmd {
	sess := s.sess
	return func() tea.Msg {
		sess.HydrateCurrent(context.Background())
		return navigatedMsg{}
	}
}

func (s *PracticeScreen) signOut() tea.Cmd {
	if s.account == nil || s.busy {
		return nil
	}
	s.busy = true
	account := s.account
	return func() tea.Msg {
		account.SignOut()
		return signedOutMsg{}
	}
}

func (s *PracticeScreen) prefetch() tea.Cmd {
	sess := s.sess
	return func() tea.Msg {
		return loadedMsg{Count: sess.Prefetch(context.Background())}
	}
}

// cycleFilter does nothing while a write is pending.
func (s *PracticeScreen) cycleFilter(patch engine.FilterPatch) tea.Cmd {
	if s.busy {
		return nil
	}
	s.completed = false
	s.snap.Loading = true
	sess := s.sess
	return func() tea.Msg {
		sess.UpdateFilters(context.Background(), patch)
		return loadedMsg{}
	}
}

func (s *PracticeScreen) showSummary() tea.Cmd {
	next := summary.New(s.snap.Stats, s.snap.Filters)
	return func() tea.Msg { return router.PushScreenMsg{Screen: next} }
}

// cycle returns the option after current, wrapping through AllValue.
func cycle(options []string, current string) string {
	all := append([]string{engine.AllValue}, options...)
	i := slices.Index(all, current)
	return all[(i+1)%len(all)]
}

func ptr[T any](v T) *T { return &v }
