package main

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rovshanmuradov/sui-lending/internal/ui"
	"github.com/rovshanmuradov/sui-lending/internal/ui/router"
	"github.com/rovshanmuradov/sui-lending/internal/ui/screen"
)

// AppModel represents the main TUI application model
type AppModel struct {
	router  *router.Router
	updates <-chan tea.Msg
	width   int
	height  int
}

// NewAppModel creates the dashboard with history and logs screens on demand
func NewAppModel(svc *ui.Services, updates <-chan tea.Msg) *AppModel {
	r := router.New(ui.RouteDashboard, screen.NewDashboardScreen(svc)).
		Register(ui.RouteHistory, func() router.Screen { return screen.NewHistoryScreen(svc) }).
		Register(ui.RouteLogs, func() router.Screen { return screen.NewLogsScreen(svc) })

	return &AppModel{router: r, updates: updates}
}

// Init initializes the application
func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(
		m.router.Init(),
		ui.ListenChannel(m.updates),
	)
}

// Update handles application-level updates
func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case ui.BusMsg:
		// слушатель канала перезапускается только после доставленного сообщения
		var cmd tea.Cmd
		m.router, cmd = m.router.Update(msg.Msg)
		return m, tea.Batch(cmd, ui.ListenChannel(m.updates))
	}

	var cmd tea.Cmd
	m.router, cmd = m.router.Update(msg)
	return m, cmd
}

// View renders the application
func (m *AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	return m.router.View()
}
