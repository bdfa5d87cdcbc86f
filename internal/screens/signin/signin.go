package signin

import (
	"context"
	"errors"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/chdqbank/qbank/internal/auth"
	"github.com/chdqbank/qbank/internal/router"
	"github.com/chdqbank/qbank/internal/screen"
	"github.com/chdqbank/qbank/internal/store"
	"github.com/chdqbank/qbank/internal/ui/components"
	"github.com/chdqbank/qbank/internal/ui/layout"
	"github.com/chdqbank/qbank/internal/ui/theme"
)

// Authenticator signs a learner in by email.
type Authenticator interface {
	SignIn(ctx context.Context, email string) (*store.User, error)
}

type signedInMsg struct {
	Err error
}

// SignInScreen asks for an email address and replaces itself with the
// screen built by next once the learner is signed in. With a nil next it
// pops back to the screen below instead.
type SignInScreen struct {
	auth    Authenticator
	next    func() screen.Screen
	input   components.TextInput
	pending bool
}

var _ screen.Screen = (*SignInScreen)(nil)
var _ screen.KeyHintProvider = (*SignInScreen)(nil)

// New creates a SignInScreen.
func New(a Authenticator, next func() screen.Screen) *SignInScreen {
	return &SignInScreen{
		auth:  a,
		next:  next,
		input: components.NewTextInput("you@example.com", 254),
	}
}

func (s *SignInScreen) Init() tea.Cmd {
	return s.input.Init()
}

func (s *SignInScreen) Title() string {
	return "Sign In"
}

func (s *SignInScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Sign in"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (s *SignInScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case signedInMsg:
		s.pending = false
		switch {
		case msg.Err == nil && s.next == nil:
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case msg.Err == nil:
			next := s.next()
			return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
		case errors.Is(msg.Err, auth.ErrInvalidEmail):
			s.input.SetProblem("That doesn't look like an email address.")
		default:
			s.input.SetProblem("We couldn't sign you in. Please try again.")
		}
		return s, nil

	case tea.KeyMsg:
		if msg.String() == "enter" {
			return s, s.submit()
		}
	}

	if s.pending {
		return s, nil
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *SignInScreen) submit() tea.Cmd {
	email := s.input.Value()
	if s.pending {
		return nil
	}
	if email == "" {
		s.input.SetProblem("Enter your email to save your progress.")
		return nil
	}
	s.pending = true
	a := s.auth
	return func() tea.Msg {
		_, err := a.SignIn(context.Background(), email)
		return signedInMsg{Err: err}
	}
}

func (s *SignInScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(theme.Title.Width(width).Align(lipgloss.Center).Render("Welcome to QBank"))
	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Width(width).Align(lipgloss.Center).Render("Sign in with your email to track answers and points."))
	b.WriteString("\n\n")

	box := theme.Card.Width(min(width-8, 50)).Render("Email\n" + s.input.View())
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, box))
	if s.pending {
		b.WriteString("\n\n")
		b.WriteString(theme.Hint.Width(width).Align(lipgloss.Center).Render("Signing in..."))
	}
	return b.String()
}
