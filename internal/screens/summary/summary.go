package summary

import (
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/chdqbank/qbank/internal/practice"
	"github.com/chdqbank/qbank/internal/router"
	"github.com/chdqbank/qbank/internal/screen"
	"github.com/chdqbank/qbank/internal/ui/components"
	"github.com/chdqbank/qbank/internal/ui/layout"
	"github.com/chdqbank/qbank/internal/ui/theme"
)

// SummaryScreen displays the statistics of a practice session.
type SummaryScreen struct {
	stats   practice.Stats
	filters practice.Filters
}

var _ screen.Screen = (*SummaryScreen)(nil)
var _ screen.KeyHintProvider = (*SummaryScreen)(nil)

// New creates a new SummaryScreen.
func New(stats practice.Stats, filters practice.Filters) *SummaryScreen {
	return &SummaryScreen{stats: stats, filters: filters}
}

func (s *SummaryScreen) Init() tea.Cmd {
	return nil
}

func (s *SummaryScreen) Title() string {
	return "Session Summary"
}

func (s *SummaryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Back to questions"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (s *SummaryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "enter", "esc", "q":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
	}
	return s, nil
}

func (s *SummaryScreen) View(width, height int) string {
	st := s.stats
	center := func(style lipgloss.Style, text string) string {
		return style.Width(width).Align(lipgloss.Center).Render(text) + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(center(theme.Title, "Session complete!"))
	if !s.filters.IsAll() {
		b.WriteString(center(theme.Subtitle, fmt.Sprintf("%s · %s · %s",
			s.filters.Topic, s.filters.Lesion, s.filters.Difficulty)))
	}
	b.WriteString("\n")

	b.WriteString(center(theme.Body, fmt.Sprintf("Answered: %d        Correct: %d        Flagged: %d",
		st.TotalAnswered, st.TotalCorrect, st.Flagged)))
	b.WriteString("\n")

	bar := components.NewProgressBar("Accuracy", st.Accuracy, min(width-8, 60))
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, bar.View()))
	b.WriteString("\n\n")

	b.WriteString(center(theme.Subtitle, "Average time per answer: "+FormatAverage(st.AverageMs)))
	return b.String()
}

// FormatAverage renders an average answer time, or a dash when no answer
// carried a timing.
func FormatAverage(ms *int) string {
	if ms == nil {
		return "—"
	}
	d := time.Duration(*ms) * time.Millisecond
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
