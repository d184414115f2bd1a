// internal/ui/component/helpbar.go
package component

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/sui-lending/internal/ui/style"
)

// HelpBar shows the key bindings of the current context on top of
// bubbles/help; '?' toggles the full listing
type HelpBar struct {
	model       help.Model
	keyBindings []key.Binding
	full        [][]key.Binding
	container   lipgloss.Style
}

// NewHelpBar creates a new help bar component
func NewHelpBar() *HelpBar {
	palette := style.DefaultPalette()

	m := help.New()
	m.Styles.ShortKey = lipgloss.NewStyle().Foreground(palette.Primary).Bold(true)
	m.Styles.ShortDesc = lipgloss.NewStyle().Foreground(palette.TextMuted)
	m.Styles.ShortSeparator = lipgloss.NewStyle().Foreground(palette.TextMuted)
	m.Styles.FullKey = m.Styles.ShortKey
	m.Styles.FullDesc = m.Styles.ShortDesc
	m.Styles.FullSeparator = m.Styles.ShortSeparator
	m.ShortSeparator = " • "

	return &HelpBar{
		model:     m,
		container: lipgloss.NewStyle().Padding(0, 1),
	}
}

// SetKeyBindings sets the key bindings to display
func (h *HelpBar) SetKeyBindings(bindings []key.Binding) *HelpBar {
	h.keyBindings = bindings
	return h
}

// SetFullHelp sets the grouped bindings shown when expanded
func (h *HelpBar) SetFullHelp(groups [][]key.Binding) *HelpBar {
	h.full = groups
	return h
}

// SetWidth sets the help bar width
func (h *HelpBar) SetWidth(width int) *HelpBar {
	h.model.Width = width
	return h
}

// ToggleFull switches between short and full help
func (h *HelpBar) ToggleFull() {
	h.model.ShowAll = !h.model.ShowAll
}

// ShortHelp implements help.KeyMap
func (h *HelpBar) ShortHelp() []key.Binding {
	return h.keyBindings
}

// FullHelp implements help.KeyMap
func (h *HelpBar) FullHelp() [][]key.Binding {
	if len(h.full) == 0 {
		return [][]key.Binding{h.keyBindings}
	}
	return h.full
}

// View renders the help bar
func (h *HelpBar) View() string {
	if len(h.keyBindings) == 0 && len(h.full) == 0 {
		return ""
	}
	return h.container.Render(h.model.View(h))
}

// ViewContextual renders help for specific key bindings without changing state
func (h *HelpBar) ViewContextual(bindings []key.Binding) string {
	return h.container.Render(h.model.ShortHelpView(bindings))
}
