// internal/ui/router/router.go
package router

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rovshanmuradov/sui-lending/internal/ui"
)

// Screen represents a screen that can be navigated to
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)
	View() string
	SetSize(width, height int)
}

// Factory builds a screen for a route on demand
type Factory func() Screen

// Router manages navigation between screens using a stack-based approach.
// The root screen is never popped and keeps receiving background messages
// while other screens are on top.
type Router struct {
	stack     []Screen
	routes    []ui.Route
	factories map[ui.Route]Factory
	width     int
	height    int
}

// New creates a new router with the root screen
func New(root ui.Route, screen Screen) *Router {
	return &Router{
		stack:     []Screen{screen},
		routes:    []ui.Route{root},
		factories: make(map[ui.Route]Factory),
	}
}

// Register adds a factory for a route
func (r *Router) Register(route ui.Route, f Factory) *Router {
	r.factories[route] = f
	return r
}

// Init initializes the router
func (r *Router) Init() tea.Cmd {
	return r.Current().Init()
}

// Update processes messages and updates the current screen
func (r *Router) Update(msg tea.Msg) (*Router, tea.Cmd) {
	switch msg := msg.(type) {
	case ui.RouterMsg:
		return r, r.Navigate(msg.To)

	case tea.WindowSizeMsg:
		r.SetSize(msg.Width, msg.Height)
		return r, nil

	case tea.KeyMsg:
		if msg.String() == "esc" && len(r.stack) > 1 {
			return r, r.Pop()
		}
		return r, r.updateTop(msg)
	}

	// фоновые обновления получает и корень, и верхний экран
	var cmds []tea.Cmd
	if len(r.stack) > 1 {
		root, cmd := r.stack[0].Update(msg)
		r.stack[0] = root
		cmds = append(cmds, cmd)
	}
	cmds = append(cmds, r.updateTop(msg))
	return r, tea.Batch(cmds...)
}

func (r *Router) updateTop(msg tea.Msg) tea.Cmd {
	top := len(r.stack) - 1
	updated, cmd := r.stack[top].Update(msg)
	r.stack[top] = updated
	return cmd
}

// View renders the current screen
func (r *Router) View() string {
	return r.Current().View()
}

// SetSize sets the size for the router and every stacked screen
func (r *Router) SetSize(width, height int) {
	r.width = width
	r.height = height
	for _, s := range r.stack {
		s.SetSize(width, height)
	}
}

// Navigate switches to route: the root route unwinds the stack, a route
// already on the stack is brought back, anything else is pushed.
func (r *Router) Navigate(route ui.Route) tea.Cmd {
	for i, existing := range r.routes {
		if existing == route {
			r.stack = r.stack[:i+1]
			r.routes = r.routes[:i+1]
			r.Current().SetSize(r.width, r.height)
			return nil
		}
	}

	f, ok := r.factories[route]
	if !ok {
		return nil
	}
	return r.Push(route, f())
}

// Push adds a new screen to the navigation stack
func (r *Router) Push(route ui.Route, screen Screen) tea.Cmd {
	screen.SetSize(r.width, r.height)
	r.stack = append(r.stack, screen)
	r.routes = append(r.routes, route)
	return screen.Init()
}

// Pop removes the current screen from the stack
func (r *Router) Pop() tea.Cmd {
	if len(r.stack) <= 1 {
		return nil
	}
	r.stack = r.stack[:len(r.stack)-1]
	r.routes = r.routes[:len(r.routes)-1]

	current := r.Current()
	current.SetSize(r.width, r.height)
	return nil
}

// Current returns the current screen
func (r *Router) Current() Screen {
	return r.stack[len(r.stack)-1]
}

// CurrentRoute returns the route of the current screen
func (r *Router) CurrentRoute() ui.Route {
	return r.routes[len(r.routes)-1]
}

// Depth returns the current navigation depth
func (r *Router) Depth() int {
	return len(r.stack)
}

// CanGoBack returns true if there are screens to go back to
func (r *Router) CanGoBack() bool {
	return len(r.stack) > 1
}
