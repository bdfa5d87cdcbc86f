package app

import (
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/chdqbank/qbank/internal/practice"
	"github.com/chdqbank/qbank/internal/router"
	"github.com/chdqbank/qbank/internal/screen"
	practicescreen "github.com/chdqbank/qbank/internal/screens/practice"
	reviewscreen "github.com/chdqbank/qbank/internal/screens/review"
	"github.com/chdqbank/qbank/internal/screens/signin"
	"github.com/chdqbank/qbank/internal/ui/layout"
)

// Auth is the session provider the app signs in and out through.
type Auth interface {
	practice.Auth
	practicescreen.Account
}

// Options holds the dependencies of the terminal UI.
type Options struct {
	Session *practice.Session
	Auth    Auth
	Review  reviewscreen.Queue
	Topics  []string
	Lesions []string
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router *router.Router
	width  int
	height int
}

// newAppModel starts on the practice screen, behind the sign-in screen
// when nobody is signed in yet.
func newAppModel(opts Options) AppModel {
	practiceScreen := practicescreen.New(practicescreen.Options{
		Session: opts.Session,
		Topics:  opts.Topics,
		Lesions: opts.Lesions,
		Review:  opts.Review,
		Account: opts.Auth,
	})

	var root screen.Screen = practiceScreen
	if _, ok := opts.Auth.CurrentUser(); !ok {
		root = signin.New(opts.Auth, func() screen.Screen { return practiceScreen })
	}
	return AppModel{router: router.New(root)}
}

func (m AppModel) Init() tea.Cmd {
	return m.router.Active().Init()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.router.CloseAll()
			return m, tea.Quit
		case "esc":
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title := ""
	var tally *layout.Tally
	var footerHints []layout.KeyHint
	if active != nil {
		title = active.Title()
		if tp, ok := active.(screen.TallyProvider); ok {
			t := tp.Tally()
			tally = &t
		}
		if hp, ok := active.(screen.KeyHintProvider); ok {
			footerHints = hp.KeyHints()
		}
	}
	if footerHints == nil {
		footerHints = []layout.KeyHint{{Key: "Ctrl+C", Description: "Quit"}}
		if m.router.Depth() > 1 {
			footerHints = append([]layout.KeyHint{{Key: "Esc", Description: "Back"}}, footerHints...)
		}
	}

	header := layout.RenderHeader(title, tally, m.width)
	footer := layout.RenderFooter(footerHints, m.width)

	contentHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	content := m.router.View(m.width, contentHeight)

	v.SetContent(layout.RenderFrame(header, content, footer, m.width, m.height))
	return v
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(opts Options) error {
	p := tea.NewProgram(newAppModel(opts))
	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
