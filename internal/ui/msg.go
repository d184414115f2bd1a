// internal/ui/msg.go

// Package ui holds the messages, key bindings and service wiring shared by
// the dashboard screens.
package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rovshanmuradov/sui-lending/internal/amount"
	"github.com/rovshanmuradov/sui-lending/internal/lending"
	"github.com/rovshanmuradov/sui-lending/internal/logger"
	"github.com/rovshanmuradov/sui-lending/internal/risk"
	"github.com/rovshanmuradov/sui-lending/internal/storage/models"
)

// RouterMsg represents navigation between screens
type RouterMsg struct {
	To Route
}

// LogMsg carries one entry captured by the log buffer
type LogMsg struct {
	Entry logger.LogEntry
}

// PreviewMsg is the result of preparing an action for confirmation.
type PreviewMsg struct {
	Action  risk.Action
	Input   string
	Amount  amount.TokenAmount
	Metrics risk.Metrics
	Gas     amount.TokenAmount
	Err     error
}

// ActionResultMsg is the outcome of a submitted action.
type ActionResultMsg struct {
	Action  risk.Action
	Receipt *lending.Receipt
	Err     error
}

// HistoryMsg carries a page of stored transactions.
type HistoryMsg struct {
	Transactions []*models.Transaction
	Offset       int
	Err          error
}

// ErrorMsg represents error conditions
type ErrorMsg struct {
	Error error
	Title string
}

// BusMsg wraps a message read from the UI channel so the owner knows when
// to re-arm ListenChannel.
type BusMsg struct {
	Msg tea.Msg
}

// ListenChannel returns a tea.Cmd that waits for the next message on ch.
// The caller re-arms it after every delivered BusMsg.
func ListenChannel(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return BusMsg{Msg: msg}
	}
}

// Route represents different screens in the application
type Route int

const (
	RouteDashboard Route = iota
	RouteHistory
	RouteLogs
)

// String returns the string representation of the route
func (r Route) String() string {
	switch r {
	case RouteDashboard:
		return "dashboard"
	case RouteHistory:
		return "history"
	case RouteLogs:
		return "logs"
	default:
		return "unknown"
	}
}

// Navigate returns a command that requests a route change
func Navigate(route Route) tea.Cmd {
	return func() tea.Msg {
		return RouterMsg{To: route}
	}
}
