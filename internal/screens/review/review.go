package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/chdqbank/qbank/internal/review"
	"github.com/chdqbank/qbank/internal/screen"
	"github.com/chdqbank/qbank/internal/ui/components"
	"github.com/chdqbank/qbank/internal/ui/layout"
	"github.com/chdqbank/qbank/internal/ui/theme"
)

// Queue is the part of the review service the screen needs.
type Queue interface {
	Queue(ctx context.Context) ([]review.Item, error)
	Unflag(ctx context.Context, responseID string) error
}

type queueLoadedMsg struct {
	Items []review.Item
	Err   error
}

type unflaggedMsg struct {
	ResponseID string
	Err        error
}

// ReviewScreen lists flagged questions and clears flags.
type ReviewScreen struct {
	queue   Queue
	menu    components.Menu
	loaded  bool
	pending bool
	status  string
	errMsg  string
}

var _ screen.Screen = (*ReviewScreen)(nil)
var _ screen.KeyHintProvider = (*ReviewScreen)(nil)

// New creates a ReviewScreen.
func New(queue Queue) *ReviewScreen {
	return &ReviewScreen{queue: queue}
}

func (s *ReviewScreen) Init() tea.Cmd {
	q := s.queue
	return func() tea.Msg {
		items, err := q.Queue(context.Background())
		return queueLoadedMsg{Items: items, Err: err}
	}
}

func (s *ReviewScreen) Title() string {
	return "Flagged for Review"
}

func (s *ReviewScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "u", Description: "Unflag"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *ReviewScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case queueLoadedMsg:
		s.loaded = true
		if msg.Err != nil {
			s.errMsg = "We couldn't load your flagged questions. Please try again."
			return s, nil
		}
		items := make([]components.MenuItem, 0, len(msg.Items))
		for _, it := range msg.Items {
			items = append(items, components.MenuItem{
				Key:    it.ResponseID,
				Label:  it.Prompt,
				Detail: detail(it),
			})
		}
		s.menu = components.NewMenu(items)
		return s, nil

	case unflaggedMsg:
		s.pending = false
		switch {
		case msg.Err == nil, errors.Is(msg.Err, review.ErrNotFlagged):
			s.menu = s.menu.Remove(msg.ResponseID)
			s.status = review.MsgUnflagged
			s.errMsg = ""
		default:
			s.errMsg = "We couldn't update the flag. Please try again."
		}
		return s, nil

	case tea.KeyMsg:
		if msg.String() == "u" {
			return s, s.unflag()
		}
		var cmd tea.Cmd
		s.menu, cmd = s.menu.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *ReviewScreen) unflag() tea.Cmd {
	item, ok := s.menu.Current()
	if !ok || s.pending {
		return nil
	}
	s.pending = true
	s.status = ""
	q := s.queue
	return func() tea.Msg {
		return unflaggedMsg{ResponseID: item.Key, Err: q.Unflag(context.Background(), item.Key)}
	}
}

func (s *ReviewScreen) View(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")
	if banner := layout.RenderBanner(s.errMsg, width); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n\n")
	}

	switch {
	case !s.loaded:
		b.WriteString(theme.Hint.Render("  Loading flagged questions..."))
		return b.String()
	case len(s.menu.Items) == 0:
		b.WriteString(theme.Subtitle.Render("  Nothing flagged. Press f on a question to save it here."))
	default:
		b.WriteString(theme.Subtitle.Render(fmt.Sprintf("  %d flagged", len(s.menu.Items))))
		b.WriteString("\n\n")
		b.WriteString(s.menu.View(width, max(height-6, 2)))
	}

	if s.status != "" {
		b.WriteString("\n")
		b.WriteString(theme.Correct.Render("  " + s.status))
	}
	return b.String()
}

func detail(it review.Item) string {
	outcome := "not answered"
	if it.Answered {
		outcome = "answered incorrectly"
		if it.IsCorrect {
			outcome = "answered correctly"
		}
	}
	return fmt.Sprintf("%s · flagged %s · %s", it.Slug, it.FlaggedAt, outcome)
}
