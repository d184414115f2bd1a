// internal/ui/screen/history.go
package screen

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/sui-lending/internal/amount"
	"github.com/rovshanmuradov/sui-lending/internal/storage/models"
	"github.com/rovshanmuradov/sui-lending/internal/ui"
	"github.com/rovshanmuradov/sui-lending/internal/ui/component"
	"github.com/rovshanmuradov/sui-lending/internal/ui/router"
	"github.com/rovshanmuradov/sui-lending/internal/ui/style"
)

// HistoryPageSize is the number of transactions per page
const HistoryPageSize = 20

// HistoryScreen lists stored transactions of the wallet, newest first
type HistoryScreen struct {
	width  int
	height int
	keyMap ui.KeyMap
	svc    *ui.Services

	table   *component.Table
	helpBar *component.HelpBar

	transactions []*models.Transaction
	offset       int
	loading      bool
	err          error

	pendingStyle lipgloss.Style
	failedStyle  lipgloss.Style
}

// NewHistoryScreen creates the history screen
func NewHistoryScreen(svc *ui.Services) *HistoryScreen {
	keyMap := ui.DefaultKeyMap()
	palette := style.DefaultPalette()

	table := component.NewTable().
		AddColumn("Time", 19, lipgloss.Left).
		AddColumn("Action", 8, lipgloss.Left).
		AddColumn("Amount", 16, lipgloss.Right).
		AddColumn("Status", 9, lipgloss.Left).
		AddColumn("Gas (SUI)", 11, lipgloss.Right).
		AddColumn("Digest", 14, lipgloss.Left).
		SetEmptyText("No transactions yet")

	s := &HistoryScreen{
		keyMap:  keyMap,
		svc:     svc,
		table:   table,
		helpBar: component.NewHelpBar(),

		pendingStyle: lipgloss.NewStyle().Foreground(palette.Warning).Padding(0, 1),
		failedStyle:  lipgloss.NewStyle().Foreground(palette.Error).Padding(0, 1),
	}
	s.helpBar.SetKeyBindings(keyMap.ContextualHelp(ui.RouteHistory))
	return s
}

// Init loads the first page
func (s *HistoryScreen) Init() tea.Cmd {
	return s.load(0)
}

func (s *HistoryScreen) load(offset int) tea.Cmd {
	if s.svc.History == nil || s.svc.Wallet == "" {
		s.err = fmt.Errorf("history is unavailable without a wallet and storage")
		return nil
	}
	s.loading = true
	svc := s.svc

	return func() tea.Msg {
		txs, err := svc.History.ListTransactions(svc.Context(), svc.Wallet, HistoryPageSize, offset)
		return ui.HistoryMsg{Transactions: txs, Offset: offset, Err: err}
	}
}

// Update handles messages for the history screen
func (s *HistoryScreen) Update(msg tea.Msg) (router.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.SetSize(msg.Width, msg.Height)

	case ui.HistoryMsg:
		s.loading = false
		s.err = msg.Err
		if msg.Err != nil {
			return s, nil
		}
		// пустая следующая страница: остаёмся на текущей
		if len(msg.Transactions) == 0 && msg.Offset > 0 {
			return s, nil
		}
		s.offset = msg.Offset
		s.transactions = msg.Transactions
		s.table.SetRows(s.rows()).SetSelectedRow(0)

	case tea.KeyMsg:
		if s.loading {
			return s, nil
		}
		switch {
		case key.Matches(msg, s.keyMap.Quit):
			return s, tea.Quit
		case key.Matches(msg, s.keyMap.Up):
			s.table.MoveUp()
		case key.Matches(msg, s.keyMap.Down):
			s.table.MoveDown()
		case key.Matches(msg, s.keyMap.NextPage):
			if len(s.transactions) == HistoryPageSize {
				return s, s.load(s.offset + HistoryPageSize)
			}
		case key.Matches(msg, s.keyMap.PrevPage):
			if s.offset > 0 {
				return s, s.load(max(s.offset-HistoryPageSize, 0))
			}
		case key.Matches(msg, s.keyMap.Refresh):
			return s, s.load(s.offset)
		}
	}
	return s, nil
}

func (s *HistoryScreen) rows() []component.TableRow {
	rows := make([]component.TableRow, len(s.transactions))
	for i, tx := range s.transactions {
		row := component.TableRow{Data: []string{
			tx.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			tx.Action,
			tx.Amount + " " + tx.Token,
			tx.Status,
			gasOf(tx),
			tx.Digest,
		}}
		switch tx.Status {
		case models.StatusPending:
			row.Style = &s.pendingStyle
		case models.StatusFailed:
			row.Style = &s.failedStyle
		}
		rows[i] = row
	}
	return rows
}

// gasOf formats the stored raw gas in SUI; empty when unknown
func gasOf(tx *models.Transaction) string {
	if tx.GasUsedRaw == "" {
		return ""
	}
	gas, err := amount.SUI.FromRaw(tx.GasUsedRaw)
	if err != nil {
		return "?"
	}
	return gas.Format(6)
}

// Selected returns the highlighted transaction, nil without rows
func (s *HistoryScreen) Selected() *models.Transaction {
	i := s.table.SelectedRow()
	if i < len(s.transactions) {
		return s.transactions[i]
	}
	return nil
}

// SetSize updates the screen dimensions
func (s *HistoryScreen) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.table.SetHeight(max(height-10, 3))
	s.helpBar.SetWidth(width)
}

// View renders the history screen
func (s *HistoryScreen) View() string {
	page := s.offset/HistoryPageSize + 1
	parts := []string{
		style.TitleStyle.Render(fmt.Sprintf("Transaction history · page %d", page)),
		style.MutedStyle.Render(component.ShortAddress(s.svc.Wallet)),
	}

	switch {
	case s.err != nil:
		parts = append(parts, style.ErrorStyle.Render("✗ "+s.err.Error()))
	case s.loading:
		parts = append(parts, style.MutedStyle.Render("loading…"))
	}

	parts = append(parts, s.table.View())

	if tx := s.Selected(); tx != nil && tx.ErrorMessage != "" {
		parts = append(parts, style.ErrorStyle.Render(tx.ErrorMessage))
	}

	parts = append(parts, s.helpBar.View())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
