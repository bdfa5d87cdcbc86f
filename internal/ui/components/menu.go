package components

import (
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/chdqbank/qbank/internal/ui/theme"
)

// MenuItem is one row of a Menu. Detail is rendered dimmed under Label.
type MenuItem struct {
	Key    string
	Label  string
	Detail string
}

// Menu is a vertical list with a cursor, scrolled to keep the cursor visible.
type Menu struct {
	Items    []MenuItem
	Selected int
}

// NewMenu creates a new menu with the given items.
func NewMenu(items []MenuItem) Menu {
	return Menu{Items: items}
}

// Update handles keyboard navigation.
func (m Menu) Update(msg tea.Msg) (Menu, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch kmsg.String() {
	case "up", "k":
		if m.Selected > 0 {
			m.Selected--
		}
	case "down", "j":
		if m.Selected < len(m.Items)-1 {
			m.Selected++
		}
	}
	return m, nil
}

// Current returns the item under the cursor.
func (m Menu) Current() (MenuItem, bool) {
	if m.Selected < 0 || m.Selected >= len(m.Items) {
		return MenuItem{}, false
	}
	return m.Items[m.Selected], true
}

// Remove drops the item with key and keeps the cursor in range.
func (m Menu) Remove(key string) Menu {
	items := make([]MenuItem, 0, len(m.Items))
	for _, it := range m.Items {
		if it.Key != key {
			items = append(items, it)
		}
	}
	m.Items = items
	if m.Selected >= len(items) {
		m.Selected = max(len(items)-1, 0)
	}
	return m
}

// View renders at most height lines of the menu.
func (m Menu) View(width, height int) string {
	const rowHeight = 2
	visible := max(height/rowHeight, 1)
	start := 0
	if m.Selected >= visible {
		start = m.Selected - visible + 1
	}
	end := min(start+visible, len(m.Items))

	clip := lipgloss.NewStyle().MaxWidth(max(width-4, 10))
	var s string
	for i := start; i < end; i++ {
		item := m.Items[i]
		if i == m.Selected {
			s += theme.Selected.Render(clip.Render("  ▸ "+item.Label)) + "\n"
		} else {
			s += theme.Unselected.Render(clip.Render("    "+item.Label)) + "\n"
		}
		s += theme.Hint.Render(clip.Render("      "+item.Detail)) + "\n"
	}
	return s
}
