// internal/ui/component/sparkline.go
package component

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/sui-lending/internal/ui/style"
)

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline is a one-line price trend
type Sparkline struct {
	data  []float64
	width int
	color lipgloss.Color
}

// NewSparkline creates a new sparkline component
func NewSparkline(width int) *Sparkline {
	return &Sparkline{
		width: width,
		color: style.DefaultPalette().Primary,
	}
}

// SetData replaces the data points, keeping the newest width of them
func (s *Sparkline) SetData(data []float64) *Sparkline {
	if len(data) > s.width {
		data = data[len(data)-s.width:]
	}
	s.data = append(s.data[:0], data...)
	return s
}

// AddDataPoint adds a new data point to the sparkline
func (s *Sparkline) AddDataPoint(value float64) *Sparkline {
	s.data = append(s.data, value)
	if len(s.data) > s.width {
		s.data = s.data[len(s.data)-s.width:]
	}
	return s
}

// View renders the sparkline with a trend arrow
func (s *Sparkline) View() string {
	blocks := lipgloss.NewStyle().Foreground(s.color).Render(s.blocks())
	if len(s.data) < 2 {
		return blocks
	}

	palette := style.DefaultPalette()
	trend := s.Trend()
	color := palette.TextMuted
	switch trend {
	case "↗":
		color = palette.Success
	case "↘":
		color = palette.Error
	}
	return blocks + " " + lipgloss.NewStyle().Foreground(color).Render(trend)
}

// blocks maps each point onto one of eight bar heights
func (s *Sparkline) blocks() string {
	if len(s.data) == 0 {
		return strings.Repeat(string(sparkChars[0]), s.width)
	}

	lo, hi := s.bounds()
	if lo == hi {
		return strings.Repeat(string(sparkChars[3]), len(s.data))
	}

	var b strings.Builder
	for _, v := range s.data {
		idx := int((v - lo) / (hi - lo) * float64(len(sparkChars)-1))
		if idx < 0 {
			idx = 0
		} else if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteRune(sparkChars[idx])
	}
	return b.String()
}

func (s *Sparkline) bounds() (float64, float64) {
	lo, hi := s.data[0], s.data[0]
	for _, v := range s.data[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// Trend returns an arrow for the first-to-last change; moves under 0.1% are flat
func (s *Sparkline) Trend() string {
	change := s.ChangePercent()
	switch {
	case math.Abs(change) < 0.1:
		return "→"
	case change > 0:
		return "↗"
	default:
		return "↘"
	}
}

// ChangePercent returns the percentage change from first to last data point
func (s *Sparkline) ChangePercent() float64 {
	if len(s.data) < 2 || s.data[0] == 0 {
		return 0
	}
	first, last := s.data[0], s.data[len(s.data)-1]
	return (last - first) / first * 100
}
