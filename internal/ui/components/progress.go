package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/chdqbank/qbank/internal/ui/theme"
)

// ProgressBar displays a horizontal ratio bar. A nil Ratio renders an
// empty bar with a dash instead of a percentage.
type ProgressBar struct {
	Label string
	Ratio *float64
	Width int
}

// NewProgressBar creates a new progress bar.
func NewProgressBar(label string, ratio *float64, width int) ProgressBar {
	return ProgressBar{Label: label, Ratio: ratio, Width: width}
}

// View renders the progress bar.
func (p ProgressBar) View() string {
	var result string
	if p.Label != "" {
		result += lipgloss.NewStyle().Foreground(theme.Text).Render(p.Label) + "  "
	}

	const percentWidth = 6
	barWidth := max(p.Width-lipgloss.Width(result)-percentWidth, 4)

	filled := 0
	if p.Ratio != nil {
		filled = min(max(int(float64(barWidth)**p.Ratio), 0), barWidth)
	}

	result += theme.ProgressFilled.Render(strings.Repeat(" ", filled)) +
		theme.ProgressEmpty.Render(strings.Repeat(" ", barWidth-filled))

	return result + lipgloss.NewStyle().Foreground(theme.TextDim).Render(FormatPercent(p.Ratio))
}

// FormatPercent renders a ratio in [0, 1] as a whole percentage, or a
// dash when unknown.
func FormatPercent(ratio *float64) string {
	if ratio == nil {
		return "  —"
	}
	return fmt.Sprintf("  %d%%", int(*ratio*100+0.5))
}
