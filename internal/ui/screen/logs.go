// internal/ui/screen/logs.go
package screen

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/sui-lending/internal/ui"
	"github.com/rovshanmuradov/sui-lending/internal/ui/component"
	"github.com/rovshanmuradov/sui-lending/internal/ui/router"
	"github.com/rovshanmuradov/sui-lending/internal/ui/style"
)

// LogsScreen shows the in-memory log buffer full screen
type LogsScreen struct {
	width  int
	height int
	keyMap ui.KeyMap

	pane    *component.LogPane
	helpBar *component.HelpBar

	statusStyle lipgloss.Style
}

// NewLogsScreen creates a new logs screen
func NewLogsScreen(svc *ui.Services) *LogsScreen {
	keyMap := ui.DefaultKeyMap()

	pane := component.NewLogPane(svc.Logs, 1000).
		SetTitle("Logs").
		SetShowFields(true)

	s := &LogsScreen{
		keyMap:      keyMap,
		pane:        pane,
		helpBar:     component.NewHelpBar(),
		statusStyle: style.MutedStyle.Padding(0, 1),
	}
	s.helpBar.SetKeyBindings(keyMap.ContextualHelp(ui.RouteLogs))
	return s
}

// Init initializes the logs screen
func (s *LogsScreen) Init() tea.Cmd {
	s.pane.Refresh()
	return nil
}

// Update handles messages for the logs screen
func (s *LogsScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.SetSize(msg.Width, msg.Height)

	case ui.LogMsg:
		s.pane.Refresh()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, s.keyMap.Quit):
			return s, tea.Quit
		case key.Matches(msg, s.keyMap.FilterError):
			s.pane.ToggleLevel("error")
		case key.Matches(msg, s.keyMap.FilterWarn):
			s.pane.ToggleLevel("warn")
		case key.Matches(msg, s.keyMap.FilterInfo):
			s.pane.ToggleLevel("info")
		case key.Matches(msg, s.keyMap.FilterDebug):
			s.pane.ToggleLevel("debug")
		default:
			return s, s.pane.Update(msg)
		}
	}
	return s, nil
}

// Pane exposes the log pane
func (s *LogsScreen) Pane() *component.LogPane {
	return s.pane
}

// SetSize updates the screen dimensions
func (s *LogsScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.pane.SetSize(width, max(height-3, 5))
	s.helpBar.SetWidth(width)
}

// View renders the logs screen
func (s *LogsScreen) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		s.pane.View(),
		s.statusStyle.Render(s.pane.FilterStatus()),
		s.helpBar.View(),
	)
}
