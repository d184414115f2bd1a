// internal/ui/component/header.go
package component

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/sui-lending/internal/lending"
	"github.com/rovshanmuradov/sui-lending/internal/risk"
	"github.com/rovshanmuradov/sui-lending/internal/ui/style"
)

// Header shows wallet, price and position health on one bordered line
type Header struct {
	wallet   string
	price    lending.Price
	hasPrice bool
	snapshot *lending.Snapshot
	trend    *Sparkline
	width    int
	style    HeaderStyle
}

// HeaderStyle contains all styling for the header
type HeaderStyle struct {
	container lipgloss.Style
	title     lipgloss.Style
	wallet    lipgloss.Style
	label     lipgloss.Style
	value     lipgloss.Style
	stale     lipgloss.Style
}

// NewHeader creates a new header component
func NewHeader(wallet string) *Header {
	palette := style.DefaultPalette()

	return &Header{
		wallet: ShortAddress(wallet),
		trend:  NewSparkline(20),
		style: HeaderStyle{
			container: lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(palette.Primary).
				Padding(0, 1),

			title: lipgloss.NewStyle().
				Foreground(palette.Primary).
				Bold(true),

			wallet: lipgloss.NewStyle().
				Foreground(palette.TextSecondary),

			label: lipgloss.NewStyle().
				Foreground(palette.TextMuted),

			value: lipgloss.NewStyle().
				Foreground(palette.Text).
				Bold(true),

			stale: lipgloss.NewStyle().
				Foreground(palette.Warning).
				Bold(true),
		},
	}
}

// ShortAddress shortens 0x addresses for display
func ShortAddress(addr string) string {
	if addr == "" {
		return "read-only"
	}
	if len(addr) > 12 {
		return addr[:6] + "…" + addr[len(addr)-4:]
	}
	return addr
}

// SetPrice updates the displayed price
func (h *Header) SetPrice(p lending.Price) {
	h.price = p
	h.hasPrice = true
}

// SetPriceHistory feeds the trend sparkline
func (h *Header) SetPriceHistory(history []float64) {
	h.trend.SetData(history)
}

// SetSnapshot updates position metrics; nil hides them
func (h *Header) SetSnapshot(snap *lending.Snapshot) {
	h.snapshot = snap
	if snap != nil {
		h.SetPrice(snap.Price)
	}
}

// SetWidth sets the component width for responsive layout
func (h *Header) SetWidth(width int) {
	h.width = width
	if width > 4 {
		h.style.container = h.style.container.Width(width - 2)
	}
}

// View renders the header
func (h *Header) View() string {
	top := []string{
		h.style.title.Render("SUI Lending"),
		h.style.wallet.Render(h.wallet),
		h.renderPrice(),
	}
	lines := []string{strings.Join(top, "  │  ")}
	if pos := h.renderPosition(); pos != "" {
		lines = append(lines, pos)
	}
	return h.style.container.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (h *Header) renderPrice() string {
	if !h.hasPrice {
		return h.style.label.Render("SUI: loading…")
	}
	text := h.style.label.Render("SUI ") + h.style.value.Render("$"+h.price.Value.StringFixed(4))
	if h.price.Stale {
		text += " " + h.style.stale.Render("(fallback)")
	} else if len(h.trend.data) > 1 {
		text += " " + h.trend.View()
	}
	return text
}

func (h *Header) renderPosition() string {
	if h.snapshot == nil {
		return ""
	}
	m := h.snapshot.Metrics
	pos := h.snapshot.Position
	healthStyle := lipgloss.NewStyle().Bold(true).Foreground(style.DefaultPalette().StatusColor(m.Status))

	parts := []string{
		h.field("Collateral", pos.Collateral.Format(4)+" SUI"),
		h.field("Debt", pos.Debt.Format(2)+" SUSD"),
		h.field("LTV", m.LTV.StringFixed(2)+"%"),
		h.style.label.Render("Health ") + healthStyle.Render(fmt.Sprintf("%s %s", m.Health, statusBadge(m.Status))),
	}
	if m.LiquidationPrice.IsPositive() {
		parts = append(parts, h.field("Liq. price", "$"+m.LiquidationPrice.StringFixed(4)))
	}
	return strings.Join(parts, "  ")
}

func (h *Header) field(label, value string) string {
	return h.style.label.Render(label+" ") + h.style.value.Render(value)
}

func statusBadge(s risk.Status) string {
	switch s {
	case risk.StatusLiquidatable:
		return "● LIQUIDATABLE"
	case risk.StatusWarning:
		return "● at risk"
	default:
		return "●"
	}
}

// GetHeight returns the component height for layout calculations
func (h *Header) GetHeight() int {
	if h.snapshot == nil {
		return 3
	}
	return 4
}
