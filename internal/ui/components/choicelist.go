package components

import (
	"fmt"
	"strconv"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/chdqbank/qbank/internal/practice"
	"github.com/chdqbank/qbank/internal/ui/theme"
)

// ChoicePickedMsg is emitted when the learner commits to a choice.
type ChoicePickedMsg struct {
	Choice practice.Choice
}

// ChoiceList is the answer selector of a question. Choices are picked
// with the arrow keys and Enter, or directly by their 1-based position.
type ChoiceList struct {
	Choices  []practice.Choice
	Cursor   int
	Disabled bool

	// Chosen is the id of the saved or pending answer.
	Chosen string
	// Reveal colors the correct and the chosen option.
	Reveal bool
}

// NewChoiceList creates a selector over choices, sorted as given.
func NewChoiceList(choices []practice.Choice) ChoiceList {
	return ChoiceList{Choices: choices}
}

// Update moves the cursor and emits ChoicePickedMsg. A disabled list
// ignores every key.
func (c ChoiceList) Update(msg tea.Msg) (ChoiceList, tea.Cmd) {
	if c.Disabled || len(c.Choices) == 0 {
		return c, nil
	}

	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil
	}

	key := kmsg.String()
	switch key {
	case "up", "k":
		if c.Cursor > 0 {
			c.Cursor--
		}
		return c, nil
	case "down", "j":
		if c.Cursor < len(c.Choices)-1 {
			c.Cursor++
		}
		return c, nil
	case "enter":
		return c, pick(c.Choices[c.Cursor])
	}

	if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= len(c.Choices) {
		c.Cursor = n - 1
		return c, pick(c.Choices[n-1])
	}
	return c, nil
}

func pick(ch practice.Choice) tea.Cmd {
	return func() tea.Msg { return ChoicePickedMsg{Choice: ch} }
}

// View renders one line per choice.
func (c ChoiceList) View(width int) string {
	var b strings.Builder
	for i, ch := range c.Choices {
		prefix := "  "
		if i == c.Cursor && !c.Disabled {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%d. %s)  %s", prefix, i+1, ch.Label, ch.TextMD)
		if width > 0 {
			line = lipgloss.NewStyle().MaxWidth(width).Render(line)
		}
		b.WriteString(c.style(i, ch).Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func (c ChoiceList) style(i int, ch practice.Choice) lipgloss.Style {
	chosen := c.Chosen != "" && ch.ID == c.Chosen
	switch {
	case c.Reveal && c.Chosen != "" && ch.IsCorrect:
		return theme.Correct
	case c.Reveal && chosen:
		return theme.Incorrect
	case chosen:
		return theme.Selected
	case c.Disabled:
		return theme.Disabled
	case i == c.Cursor:
		return theme.Selected
	default:
		return theme.Unselected
	}
}
