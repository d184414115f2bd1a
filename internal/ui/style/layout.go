// internal/ui/style/layout.go
package style

import (
	"github.com/charmbracelet/lipgloss"
)

var palette = DefaultPalette()

// Header styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true).
			Margin(0, 0, 1, 0)

	SubHeaderStyle = lipgloss.NewStyle().
			Foreground(palette.Secondary).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(palette.TextSecondary)

	ValueStyle = lipgloss.NewStyle().
			Foreground(palette.Text).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(palette.TextMuted)
)

// Layout styles
var (
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.TextMuted).
			Padding(0, 2)

	ActivePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(palette.Primary).
				Padding(0, 2)
)

// Tab styles
var (
	TabStyle = lipgloss.NewStyle().
			Foreground(palette.TextMuted).
			Padding(0, 2)

	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(palette.Background).
			Background(palette.Primary).
			Bold(true).
			Padding(0, 2)

	DisabledTabStyle = lipgloss.NewStyle().
				Foreground(palette.BackgroundAlt).
				Strikethrough(true).
				Padding(0, 2)
)

// Form styles
var (
	FormInputStyle = lipgloss.NewStyle().
			Foreground(palette.Text).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.TextMuted)

	FormInputFocusedStyle = lipgloss.NewStyle().
				Foreground(palette.Text).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(palette.Primary)

	FormInputInvalidStyle = lipgloss.NewStyle().
				Foreground(palette.Text).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(palette.Error)
)

// Status styles
var (
	SuccessStyle = lipgloss.NewStyle().
			Foreground(palette.Success).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(palette.Error).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(palette.Warning).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(palette.Info)
)

// Confirmation box
var (
	ConfirmStyle = lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(palette.Secondary).
		Padding(0, 2)
)

// AdaptiveJoinHorizontal stacks blocks vertically on narrow screens
func AdaptiveJoinHorizontal(width int, blocks ...string) string {
	if width < 100 {
		return lipgloss.JoinVertical(lipgloss.Left, blocks...)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, blocks...)
}

// AdaptiveWidth returns percentage of width, or nearly all of it when narrow
func AdaptiveWidth(width, percentage int) int {
	if width < 100 {
		return width - 4
	}
	return (width * percentage) / 100
}
