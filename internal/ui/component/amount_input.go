// internal/ui/component/amount_input.go
package component

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/sui-lending/internal/amount"
	"github.com/rovshanmuradov/sui-lending/internal/ui/style"
)

// AmountInput is a numeric text field validated on every keystroke
type AmountInput struct {
	input    textinput.Model
	validate func(string) amount.Outcome
	outcome  amount.Outcome
	symbol   string
	width    int

	labelStyle   lipgloss.Style
	errorStyle   lipgloss.Style
	okStyle      lipgloss.Style
	symbolStyle  lipgloss.Style
	disabledText string
}

// NewAmountInput creates an input for the token symbol
func NewAmountInput(symbol string) *AmountInput {
	palette := style.DefaultPalette()

	ti := textinput.New()
	ti.Placeholder = "0.0"
	ti.Prompt = ""
	ti.CharLimit = 40
	ti.Width = 24

	a := &AmountInput{
		input:  ti,
		symbol: symbol,

		labelStyle:  lipgloss.NewStyle().Foreground(palette.TextSecondary),
		errorStyle:  lipgloss.NewStyle().Foreground(palette.Error),
		okStyle:     lipgloss.NewStyle().Foreground(palette.Success),
		symbolStyle: lipgloss.NewStyle().Foreground(palette.TextMuted).Bold(true),
	}
	a.Focus()
	return a
}

// SetValidator sets the per-keystroke validation and re-runs it
func (a *AmountInput) SetValidator(fn func(string) amount.Outcome) *AmountInput {
	a.validate = fn
	a.revalidate()
	return a
}

// SetDisabled shows reason instead of the input; empty reason enables it
func (a *AmountInput) SetDisabled(reason string) *AmountInput {
	a.disabledText = reason
	return a
}

// Disabled reports whether the input is disabled
func (a *AmountInput) Disabled() bool {
	return a.disabledText != ""
}

// SetWidth sets the input width
func (a *AmountInput) SetWidth(width int) *AmountInput {
	a.width = width
	a.input.Width = max(width-len(a.symbol)-6, 8)
	return a
}

// Focus focuses the text field
func (a *AmountInput) Focus() tea.Cmd {
	return a.input.Focus()
}

// Value returns the raw text
func (a *AmountInput) Value() string {
	return a.input.Value()
}

// SetValue replaces the text and re-validates
func (a *AmountInput) SetValue(v string) {
	a.input.SetValue(v)
	a.input.CursorEnd()
	a.revalidate()
}

// Reset clears the text
func (a *AmountInput) Reset() {
	a.input.Reset()
	a.revalidate()
}

// Outcome returns the validation result of the current text
func (a *AmountInput) Outcome() amount.Outcome {
	return a.outcome
}

// Valid reports whether the current text passed validation
func (a *AmountInput) Valid() bool {
	return a.validate != nil && a.outcome.Valid()
}

// Update handles key input
func (a *AmountInput) Update(msg tea.Msg) tea.Cmd {
	if a.Disabled() {
		return nil
	}
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyRunes && !AmountRunes(key.Runes) {
		return nil
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	a.revalidate()
	return cmd
}

// AmountRunes reports whether every rune may appear in an amount
func AmountRunes(runes []rune) bool {
	for _, r := range runes {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return len(runes) > 0
}

func (a *AmountInput) revalidate() {
	if a.validate == nil {
		a.outcome = amount.Outcome{}
		return
	}
	a.outcome = a.validate(a.input.Value())
}

// View renders the field with its validation feedback below
func (a *AmountInput) View() string {
	if a.Disabled() {
		return style.FormInputStyle.Render(a.labelStyle.Render(a.disabledText))
	}

	box := style.FormInputFocusedStyle
	feedback := ""
	if strings.TrimSpace(a.input.Value()) != "" {
		if a.outcome.Valid() {
			feedback = a.okStyle.Render("✓ " + a.outcome.Amount.String() + " " + a.symbol)
		} else {
			box = style.FormInputInvalidStyle
			feedback = a.errorStyle.Render("✗ " + a.outcome.Reason)
		}
	}

	field := box.Render(a.input.View() + " " + a.symbolStyle.Render(a.symbol))
	if feedback == "" {
		return field
	}
	return lipgloss.JoinVertical(lipgloss.Left, field, feedback)
}
