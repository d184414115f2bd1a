// internal/ui/component/logpane.go
package component

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/sui-lending/internal/logger"
	"github.com/rovshanmuradov/sui-lending/internal/ui/style"
)

// LogFilter defines what log levels to show
type LogFilter struct {
	ShowError   bool
	ShowWarning bool
	ShowInfo    bool
	ShowDebug   bool
}

// DefaultLogFilter hides debug entries
func DefaultLogFilter() LogFilter {
	return LogFilter{ShowError: true, ShowWarning: true, ShowInfo: true}
}

// LogPane renders the tail of the log buffer in a scrollable viewport
type LogPane struct {
	buffer     *logger.LogBuffer
	viewport   viewport.Model
	filter     LogFilter
	limit      int
	showFields bool
	visible    bool
	follow     bool
	title      string
	style      LogPaneStyle
}

// LogPaneStyle contains all styling for the log pane
type LogPaneStyle struct {
	container lipgloss.Style
	title     lipgloss.Style
	timestamp lipgloss.Style
	fields    lipgloss.Style
	error     lipgloss.Style
	warning   lipgloss.Style
	info      lipgloss.Style
	debug     lipgloss.Style
}

// NewLogPane creates a log pane over buf showing up to limit entries
func NewLogPane(buf *logger.LogBuffer, limit int) *LogPane {
	palette := style.DefaultPalette()

	return &LogPane{
		buffer:  buf,
		limit:   limit,
		visible: true,
		follow:  true,
		title:   "Activity",
		filter:  DefaultLogFilter(),
		style: LogPaneStyle{
			container: lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(palette.Info).
				Padding(0, 1),

			title: lipgloss.NewStyle().
				Foreground(palette.Info).
				Bold(true),

			timestamp: lipgloss.NewStyle().
				Foreground(palette.TextMuted),

			fields: lipgloss.NewStyle().
				Foreground(palette.TextMuted).
				Italic(true),

			error: lipgloss.NewStyle().
				Foreground(palette.Error).
				Bold(true),

			warning: lipgloss.NewStyle().
				Foreground(palette.Warning),

			info: lipgloss.NewStyle().
				Foreground(palette.Text),

			debug: lipgloss.NewStyle().
				Foreground(palette.TextMuted),
		},
		viewport: viewport.New(60, 4),
	}
}

// SetTitle sets the pane title
func (lp *LogPane) SetTitle(title string) *LogPane {
	lp.title = title
	return lp
}

// SetShowFields toggles rendering of structured fields
func (lp *LogPane) SetShowFields(show bool) *LogPane {
	lp.showFields = show
	return lp
}

// SetSize sets the component dimensions, borders included
func (lp *LogPane) SetSize(width, height int) {
	lp.viewport.Width = max(width-4, 10)
	lp.viewport.Height = max(height-3, 2)
	lp.Refresh()
}

// SetVisible toggles the visibility of the pane
func (lp *LogPane) SetVisible(visible bool) {
	lp.visible = visible
}

// IsVisible returns whether the pane is visible
func (lp *LogPane) IsVisible() bool {
	return lp.visible
}

// Filter returns the active filter
func (lp *LogPane) Filter() LogFilter {
	return lp.filter
}

// ToggleLevel toggles a specific log level
func (lp *LogPane) ToggleLevel(level string) {
	switch level {
	case "error":
		lp.filter.ShowError = !lp.filter.ShowError
	case "warn":
		lp.filter.ShowWarning = !lp.filter.ShowWarning
	case "info":
		lp.filter.ShowInfo = !lp.filter.ShowInfo
	case "debug":
		lp.filter.ShowDebug = !lp.filter.ShowDebug
	}
	lp.Refresh()
}

// Update forwards scroll keys to the viewport; scrolling up stops following
func (lp *LogPane) Update(msg tea.Msg) tea.Cmd {
	if !lp.visible {
		return nil
	}
	var cmd tea.Cmd
	lp.viewport, cmd = lp.viewport.Update(msg)
	lp.follow = lp.viewport.AtBottom()
	return cmd
}

// View renders the pane
func (lp *LogPane) View() string {
	if !lp.visible {
		return ""
	}
	content := lipgloss.JoinVertical(
		lipgloss.Left,
		lp.style.title.Render(lp.title),
		lp.viewport.View(),
	)
	return lp.style.container.Render(content)
}

// Refresh reloads entries from the buffer
func (lp *LogPane) Refresh() {
	lines := lp.Lines()
	if len(lines) == 0 {
		lp.viewport.SetContent(lp.style.timestamp.Render("No log entries"))
		return
	}
	lp.viewport.SetContent(strings.Join(lines, "\n"))
	if lp.follow {
		lp.viewport.GotoBottom()
	}
}

// Lines returns formatted entries passing the filter, oldest first
func (lp *LogPane) Lines() []string {
	if lp.buffer == nil {
		return nil
	}
	entries := lp.buffer.GetRecentLogs(lp.limit)
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		if lp.shows(entry.Level) {
			lines = append(lines, lp.format(entry))
		}
	}
	return lines
}

func (lp *LogPane) shows(level string) bool {
	switch strings.ToLower(level) {
	case "error", "dpanic", "panic", "fatal":
		return lp.filter.ShowError
	case "warn", "warning":
		return lp.filter.ShowWarning
	case "debug":
		return lp.filter.ShowDebug
	default:
		return lp.filter.ShowInfo
	}
}

func (lp *LogPane) format(entry logger.LogEntry) string {
	var msg lipgloss.Style
	switch strings.ToLower(entry.Level) {
	case "error", "dpanic", "panic", "fatal":
		msg = lp.style.error
	case "warn", "warning":
		msg = lp.style.warning
	case "debug":
		msg = lp.style.debug
	default:
		msg = lp.style.info
	}

	line := fmt.Sprintf("%s %s",
		lp.style.timestamp.Render(entry.Timestamp.Format("15:04:05")),
		msg.Render(entry.Message))
	if lp.showFields && len(entry.Fields) > 0 {
		line += " " + lp.style.fields.Render(formatFields(entry.Fields))
	}
	return line
}

// formatFields renders key=value pairs in key order
func formatFields(fields map[string]interface{}) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, fields[k])
	}
	return strings.Join(parts, " ")
}

// FilterStatus returns current filter status as string
func (lp *LogPane) FilterStatus() string {
	var active []string
	if lp.filter.ShowError {
		active = append(active, "error")
	}
	if lp.filter.ShowWarning {
		active = append(active, "warn")
	}
	if lp.filter.ShowInfo {
		active = append(active, "info")
	}
	if lp.filter.ShowDebug {
		active = append(active, "debug")
	}
	if len(active) == 0 {
		return "all levels hidden"
	}
	return "showing: " + strings.Join(active, ", ")
}
