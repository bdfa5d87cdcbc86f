package practice

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	engine "github.com/chdqbank/qbank/internal/practice"
	"github.com/chdqbank/qbank/internal/ui/layout"
	"github.com/chdqbank/qbank/internal/ui/theme"
)

func (s *PracticeScreen) View(width, height int) string {
	var b strings.Builder

	b.WriteString(renderFilters(s.snap.Filters))
	b.WriteString("\n")
	if banner := layout.RenderBanner(s.snap.Error, width); banner != "" {
		b.WriteString(banner)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case s.snap.Current == nil && s.snap.Loading:
		b.WriteString(theme.Hint.Render("  Loading questions..."))
	case s.snap.Current == nil:
		b.WriteString(theme.Subtitle.Render("  No published questions match these filters."))
	default:
		b.WriteString(s.renderQuestion(width))
	}
	return b.String()
}

func renderFilters(f engine.Filters) string {
	chip := func(name, value string) string {
		style := theme.FilterChip
		if value != engine.AllValue && value != "" {
			style = theme.FilterChipActive
		}
		if value == "" {
			value = engine.AllValue
		}
		return style.Render(name + ": " + value)
	}
	return "  " + chip("Topic", f.Topic) + " " + chip("Lesion", f.Lesion) + " " + chip("Difficulty", f.Difficulty)
}

func (s *PracticeScreen) renderQuestion(width int) string {
	q := s.snap.Current
	inner := max(width-4, 20)
	wrap := lipgloss.NewStyle().Width(inner).Foreground(theme.Text)

	var b strings.Builder

	total := fmt.Sprintf("%d", len(s.snap.Questions))
	if s.snap.HasMore {
		total += "+"
	}
	info := theme.Subtitle.Render(fmt.Sprintf("  Question %d of %s", s.snap.Index+1, total))
	if q.Topic != nil {
		info += theme.Subtitle.Render("  ·  " + *q.Topic)
	}
	if q.Difficulty != nil {
		info += theme.Subtitle.Render("  ·  " + *q.Difficulty)
	}
	if s.currentFlagged() {
		info += "  " + theme.Flag.Render("⚑ flagged")
	}
	b.WriteString(info)
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render("  " + strings.Repeat("─", inner)))
	b.WriteString("\n\n")

	b.WriteString(indent(wrap.Render(q.StemMD)))
	b.WriteString("\n")
	if q.LeadIn != nil {
		b.WriteString("\n")
		b.WriteString(indent(wrap.Bold(true).Render(*q.LeadIn)))
		b.WriteString("\n")
	}
	if media := renderMedia(q.Media); media != "" {
		b.WriteString("\n")
		b.WriteString(indent(theme.Hint.Render(media)))
		b.WriteString("\n")
	}
	for _, p := range q.ContextPanels {
		b.WriteString("\n")
		b.WriteString(indent(renderPanel(p, inner)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(indent(s.choices.View(inner)))

	b.WriteString(s.renderOutcome(q, inner))
	return b.String()
}

func (s *PracticeScreen) renderOutcome(q *engine.Question, width int) string {
	ans := s.snap.CurrentAnswer
	switch ans.Phase {
	case engine.PhaseSubmitting:
		return "\n" + indent(theme.Hint.Render("Saving your answer..."))
	case engine.PhaseAnswered:
	default:
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	correct, _ := q.CorrectChoice()
	if ans.ChoiceID == correct.ID {
		b.WriteString(indent(theme.Correct.Render("Correct!")))
	} else {
		b.WriteString(indent(theme.Incorrect.Render(fmt.Sprintf("Not quite. The answer is %s.", correct.Label))))
	}
	b.WriteString("\n")
	if q.ExplanationBriefMD != "" {
		b.WriteString("\n")
		b.WriteString(indent(lipgloss.NewStyle().Width(width).Foreground(theme.TextDim).Render(q.ExplanationBriefMD)))
		b.WriteString("\n")
	}
	return b.String()
}

func renderMedia(m *engine.MediaBundle) string {
	if m == nil {
		return ""
	}
	var kinds []string
	for _, item := range []struct {
		name string
		url  *string
	}{
		{"murmur", m.MurmurURL},
		{"chest x-ray", m.CXRURL},
		{"EKG", m.EKGURL},
		{"diagram", m.DiagramURL},
	} {
		if item.url != nil && *item.url != "" {
			kinds = append(kinds, item.name)
		}
	}
	if len(kinds) == 0 {
		return ""
	}
	text := "[" + strings.Join(kinds, ", ") + "]"
	if m.AltText != nil && *m.AltText != "" {
		text += " " + *m.AltText
	}
	return text
}

func renderPanel(p engine.ContextPanel, width int) string {
	var lines []string
	title := p.Kind
	if p.Title != nil && *p.Title != "" {
		title = *p.Title
	}
	lines = append(lines, theme.Title.Render(title))

	switch p.Kind {
	case engine.PanelLabs:
		for _, lv := range p.Labs {
			line := lv.Label + ": " + lv.Value
			if lv.Unit != nil {
				line += " " + *lv.Unit
			}
			lines = append(lines, line)
		}
	case engine.PanelFormula:
		for _, f := range p.Formulas {
			lines = append(lines, f.Name+" = "+f.Expression)
		}
		if p.BodyMD != nil {
			lines = append(lines, *p.BodyMD)
		}
	}

	return theme.Card.Width(min(width, 60)).Render(strings.Join(lines, "\n"))
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n") + "\n"
}
