// internal/ui/component/gauge.go
package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/sui-lending/internal/risk"
	"github.com/rovshanmuradov/sui-lending/internal/ui/style"
)

// LTVGauge draws current LTV on a scale ending at the liquidation threshold,
// with a tick at max LTV
type LTVGauge struct {
	ltv    decimal.Decimal // percent
	status risk.Status
	params risk.Params
	width  int
}

// NewLTVGauge creates a gauge for the given risk params
func NewLTVGauge(params risk.Params, width int) *LTVGauge {
	return &LTVGauge{params: params, width: width}
}

// SetMetrics updates the gauge from evaluated metrics
func (g *LTVGauge) SetMetrics(m risk.Metrics) *LTVGauge {
	g.ltv = m.LTV
	g.status = m.Status
	return g
}

// SetWidth sets the bar width in cells
func (g *LTVGauge) SetWidth(width int) *LTVGauge {
	g.width = width
	return g
}

// View renders bar and value
func (g *LTVGauge) View() string {
	palette := style.DefaultPalette()
	color := palette.StatusColor(g.status)

	bar := lipgloss.NewStyle().Foreground(color).Render(g.Bar())
	value := lipgloss.NewStyle().Foreground(color).Bold(true).Render(g.ltv.StringFixed(2) + "%")
	limits := lipgloss.NewStyle().Foreground(palette.TextMuted).Render(
		" max " + percent(g.params.MaxLTV) + " · liq " + percent(g.params.LiquidationThreshold))
	return bar + " " + value + limits
}

// Bar renders the unstyled gauge: '█' filled, '░' empty, '│' at max LTV
func (g *LTVGauge) Bar() string {
	if g.width <= 0 {
		return ""
	}
	scale := g.params.LiquidationThreshold.Mul(decimal.NewFromInt(100))
	if !scale.IsPositive() {
		return strings.Repeat("░", g.width)
	}

	filled := g.cells(g.ltv, scale)
	tick := g.cells(g.params.MaxLTV.Mul(decimal.NewFromInt(100)), scale)

	cells := make([]rune, g.width)
	for i := range cells {
		switch {
		case i < filled:
			cells[i] = '█'
		case i == tick && tick < g.width:
			cells[i] = '│'
		default:
			cells[i] = '░'
		}
	}
	return string(cells)
}

// cells converts a percent on scale into a clamped cell count
func (g *LTVGauge) cells(v, scale decimal.Decimal) int {
	n := v.Mul(decimal.NewFromInt(int64(g.width))).Div(scale).IntPart()
	if n < 0 {
		return 0
	}
	if n > int64(g.width) {
		return g.width
	}
	return int(n)
}

func percent(fraction decimal.Decimal) string {
	return fraction.Mul(decimal.NewFromInt(100)).String() + "%"
}
