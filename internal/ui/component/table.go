// internal/ui/component/table.go
package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/sui-lending/internal/ui/style"
)

// TableColumn represents a column configuration
type TableColumn struct {
	Header string
	Width  int
	Align  lipgloss.Position
}

// TableRow is one row; Style overrides the default row style when set
type TableRow struct {
	Data  []string
	Style *lipgloss.Style
}

// Table is a selectable table that scrolls to keep the selection visible
type Table struct {
	columns  []TableColumn
	rows     []TableRow
	height   int // visible rows, 0 = all
	selected int
	offset   int

	headerStyle   lipgloss.Style
	rowStyle      lipgloss.Style
	selectedStyle lipgloss.Style
	borderStyle   lipgloss.Style
	emptyText     string
}

// NewTable creates a new table component
func NewTable() *Table {
	palette := style.DefaultPalette()

	return &Table{
		headerStyle: lipgloss.NewStyle().
			Foreground(palette.Secondary).
			Bold(true).
			Padding(0, 1),

		rowStyle: lipgloss.NewStyle().
			Foreground(palette.Text).
			Padding(0, 1),

		selectedStyle: lipgloss.NewStyle().
			Foreground(palette.Background).
			Background(palette.Primary).
			Padding(0, 1),

		borderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.TextMuted),

		emptyText: "No rows",
	}
}

// AddColumn adds a column to the table
func (t *Table) AddColumn(header string, width int, align lipgloss.Position) *Table {
	t.columns = append(t.columns, TableColumn{Header: header, Width: width, Align: align})
	return t
}

// SetEmptyText sets the text shown without rows
func (t *Table) SetEmptyText(text string) *Table {
	t.emptyText = text
	return t
}

// SetRows replaces all rows and clamps the selection
func (t *Table) SetRows(rows []TableRow) *Table {
	t.rows = rows
	t.SetSelectedRow(t.selected)
	return t
}

// SetHeight sets how many rows are visible at once
func (t *Table) SetHeight(height int) *Table {
	t.height = height
	t.scroll()
	return t
}

// SetSelectedRow sets the currently selected row, clamped to the row range
func (t *Table) SetSelectedRow(index int) *Table {
	switch {
	case len(t.rows) == 0:
		index = 0
	case index >= len(t.rows):
		index = len(t.rows) - 1
	case index < 0:
		index = 0
	}
	t.selected = index
	t.scroll()
	return t
}

// SelectedRow returns the currently selected row index
func (t *Table) SelectedRow() int {
	return t.selected
}

// SelectedData returns the data of the selected row, nil without rows
func (t *Table) SelectedData() []string {
	if t.selected < len(t.rows) {
		return t.rows[t.selected].Data
	}
	return nil
}

// MoveUp moves selection up
func (t *Table) MoveUp() *Table {
	return t.SetSelectedRow(t.selected - 1)
}

// MoveDown moves selection down
func (t *Table) MoveDown() *Table {
	return t.SetSelectedRow(t.selected + 1)
}

// RowCount returns the number of rows
func (t *Table) RowCount() int {
	return len(t.rows)
}

// scroll keeps the selected row inside the visible window
func (t *Table) scroll() {
	if t.height <= 0 {
		t.offset = 0
		return
	}
	if t.selected < t.offset {
		t.offset = t.selected
	}
	if t.selected >= t.offset+t.height {
		t.offset = t.selected - t.height + 1
	}
}

// visible returns the index range currently on screen
func (t *Table) visible() (int, int) {
	if t.height <= 0 || len(t.rows) <= t.height {
		return 0, len(t.rows)
	}
	end := t.offset + t.height
	if end > len(t.rows) {
		end = len(t.rows)
	}
	return t.offset, end
}

// View renders the table
func (t *Table) View() string {
	var lines []string

	header := make([]string, len(t.columns))
	sep := make([]string, len(t.columns))
	for i, col := range t.columns {
		header[i] = renderCell(col.Header, col, t.headerStyle)
		sep[i] = strings.Repeat("─", lipgloss.Width(header[i]))
	}
	lines = append(lines, strings.Join(header, "│"), strings.Join(sep, "┼"))

	if len(t.rows) == 0 {
		lines = append(lines, t.rowStyle.Render(t.emptyText))
	}

	start, end := t.visible()
	for i := start; i < end; i++ {
		row := t.rows[i]
		rowStyle := t.rowStyle
		if row.Style != nil {
			rowStyle = *row.Style
		}
		if i == t.selected {
			rowStyle = t.selectedStyle
		}

		cells := make([]string, len(t.columns))
		for c, col := range t.columns {
			value := ""
			if c < len(row.Data) {
				value = row.Data[c]
			}
			cells[c] = renderCell(value, col, rowStyle)
		}
		lines = append(lines, strings.Join(cells, "│"))
	}

	return t.borderStyle.Render(strings.Join(lines, "\n"))
}

// renderCell truncates by runes and aligns content within the column
func renderCell(content string, col TableColumn, s lipgloss.Style) string {
	runes := []rune(content)
	if col.Width > 0 && len(runes) > col.Width {
		if col.Width > 1 {
			content = string(runes[:col.Width-1]) + "…"
		} else {
			content = string(runes[:col.Width])
		}
	}
	return s.Width(col.Width + 2).Align(col.Align).Render(content)
}
