// internal/ui/screen/dashboard_handlers.go
package screen

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/sui-lending/internal/lending"
	"github.com/rovshanmuradov/sui-lending/internal/monitor"
	"github.com/rovshanmuradov/sui-lending/internal/risk"
	"github.com/rovshanmuradov/sui-lending/internal/ui"
)

// pollSources in display order
var pollSources = []string{monitor.KindSnapshot, monitor.KindPrice, monitor.KindBalances, monitor.KindStats}

// handleMonitorMsg applies a monitor update; reports whether it was one
func (s *DashboardScreen) handleMonitorMsg(msg tea.Msg) bool {
	switch msg := msg.(type) {
	case monitor.SnapshotMsg:
		s.cache.ApplySnapshot(msg.Snapshot)

	case monitor.PriceMsg:
		s.cache.ApplyPrice(msg.Price)

	case monitor.BalancesMsg:
		s.cache.ApplyBalances(msg.Balances)

	case monitor.StatsMsg:
		s.cache.ApplyStats(msg.Stats)

	case monitor.FetchErrorMsg:
		s.cache.RecordError(msg.Source, msg.Err)

	case monitor.AlertMsg:
		s.cache.AddAlert(msg.Alert)

	default:
		return false
	}

	s.syncComponents()
	return true
}

// syncComponents pushes cached state into the header and gauge
func (s *DashboardScreen) syncComponents() {
	if price, ok := s.cache.Price(); ok {
		s.header.SetPrice(price)
	}
	s.header.SetPriceHistory(s.cache.PriceHistory())

	if snap := s.cache.Current(); snap != nil {
		s.header.SetSnapshot(snap)
		s.gauge.SetMetrics(snap.Metrics)
	}
}

// preview validates the input and prepares the confirmation asynchronously
func (s *DashboardScreen) preview() tea.Cmd {
	if s.input.Disabled() {
		return nil
	}
	outcome := s.input.Outcome()
	if !s.input.Valid() {
		if outcome.Reason != "" {
			s.notice = notice{text: outcome.Reason, isErr: true}
		}
		return nil
	}
	snap := s.cache.Current()
	if snap == nil {
		return nil
	}

	action := s.Action()
	input := s.input.Value()
	amt := outcome.Amount
	svc := s.svc
	pos, price := snap.Position, snap.Price.Value

	s.mode = modePreviewing
	s.notice = notice{}

	return func() tea.Msg {
		msg := ui.PreviewMsg{Action: action, Input: input, Amount: amt, Gas: svc.Policy.DefaultGas}

		metrics, err := risk.Preview(pos, price, svc.Policy.Risk, action, amt)
		if err != nil {
			msg.Err = err
			return msg
		}
		msg.Metrics = metrics

		if svc.Actions == nil {
			return msg
		}
		plan, err := svc.Actions.PlanFor(svc.Context(), action, amt)
		if err != nil {
			// без плана остаётся газ по умолчанию
			svc.Log("dashboard").Debug("Plan for preview failed", zap.String("action", string(action)), zap.Error(err))
			return msg
		}
		msg.Gas = svc.Actions.EstimateGas(svc.Context(), plan)
		return msg
	}
}

func (s *DashboardScreen) handlePreview(msg ui.PreviewMsg) {
	if s.mode != modePreviewing || msg.Action != s.Action() {
		return
	}
	if msg.Err != nil {
		s.mode = modeInput
		s.notice = notice{text: describeError(msg.Err), isErr: true}
		return
	}
	s.pending = &msg
	s.mode = modeConfirm
}

// submit sends the confirmed action; the service re-validates the raw input
// against a fresh snapshot
func (s *DashboardScreen) submit() tea.Cmd {
	if s.pending == nil {
		s.mode = modeInput
		return nil
	}
	p := *s.pending
	svc := s.svc
	s.mode = modeSubmitting

	s.logger.Info("Submitting action",
		zap.String("action", string(p.Action)),
		zap.String("amount", p.Amount.String()))

	return func() tea.Msg {
		receipt, err := svc.Run(svc.Context(), p.Action, p.Input)
		return ui.ActionResultMsg{Action: p.Action, Receipt: receipt, Err: err}
	}
}

func (s *DashboardScreen) handleResult(msg ui.ActionResultMsg) {
	if s.mode != modeSubmitting {
		return
	}
	s.mode = modeInput
	s.pending = nil

	if msg.Err != nil {
		s.notice = notice{text: describeError(msg.Err), isErr: true}
		s.logger.Warn("Action failed", zap.String("action", string(msg.Action)), zap.Error(msg.Err))
	} else {
		r := msg.Receipt
		s.notice = notice{text: fmt.Sprintf("✓ %s %s %s confirmed · %s",
			r.Action, r.Amount.String(), r.Action.Token().Symbol, shortDigest(r.Digest))}
		s.input.Reset()
	}

	// состояние могло измениться даже при ошибке подтверждения
	if s.svc.Monitor != nil {
		s.svc.Monitor.Refresh()
	}
}

// describeError renders an action error for the status line
func describeError(err error) string {
	var verr *lending.ValidationError
	var aerr *lending.ActionError

	switch {
	case errors.Is(err, lending.ErrWalletNotConnected):
		return "✗ wallet not connected"
	case errors.As(err, &verr):
		return "✗ rejected: " + verr.Outcome.Reason
	case errors.As(err, &aerr):
		text := fmt.Sprintf("✗ %s failed at %s: %v", aerr.Action, aerr.Stage, aerr.Err)
		if aerr.Digest != "" {
			text += " (" + shortDigest(aerr.Digest) + ")"
		}
		return text
	default:
		return "✗ " + err.Error()
	}
}

func shortDigest(d string) string {
	if len(d) <= 12 {
		return d
	}
	return d[:6] + "…" + d[len(d)-4:]
}
