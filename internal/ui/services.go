// internal/ui/services.go
package ui

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/sui-lending/internal/amount"
	"github.com/rovshanmuradov/sui-lending/internal/config"
	"github.com/rovshanmuradov/sui-lending/internal/lending"
	"github.com/rovshanmuradov/sui-lending/internal/logger"
	"github.com/rovshanmuradov/sui-lending/internal/risk"
	"github.com/rovshanmuradov/sui-lending/internal/storage/models"
	"github.com/rovshanmuradov/sui-lending/internal/sui/txplan"
)

var errUnknownAction = errors.New("unknown action")

// Actions executes lending operations; *lending.Service implements it.
type Actions interface {
	Deposit(ctx context.Context, input string) (*lending.Receipt, error)
	Borrow(ctx context.Context, input string) (*lending.Receipt, error)
	Repay(ctx context.Context, input string) (*lending.Receipt, error)
	Withdraw(ctx context.Context, input string) (*lending.Receipt, error)
	PlanFor(ctx context.Context, action risk.Action, amt amount.TokenAmount) (*txplan.Plan, error)
	EstimateGas(ctx context.Context, plan *txplan.Plan) amount.TokenAmount
	Address() string
}

// Refresher forces an out-of-band poll; *monitor.Service implements it.
type Refresher interface {
	Refresh()
}

// HistorySource lists stored transactions; storage.Storage implements it.
type HistorySource interface {
	ListTransactions(ctx context.Context, wallet string, limit, offset int) ([]*models.Transaction, error)
}

// Services is everything the screens reach outside the UI.
// Actions, Monitor, History and Logs may be nil.
type Services struct {
	Ctx     context.Context
	Actions Actions
	Monitor Refresher
	History HistorySource
	Logs    *logger.LogBuffer
	Policy  config.Policy
	Wallet  string
	Logger  *zap.Logger
}

// Context returns the services context, falling back to Background.
func (s *Services) Context() context.Context {
	if s.Ctx == nil {
		return context.Background()
	}
	return s.Ctx
}

// Run executes an action by name through Actions.
func (s *Services) Run(ctx context.Context, action risk.Action, input string) (*lending.Receipt, error) {
	if s.Actions == nil {
		return nil, lending.ErrWalletNotConnected
	}
	switch action {
	case risk.ActionDeposit:
		return s.Actions.Deposit(ctx, input)
	case risk.ActionBorrow:
		return s.Actions.Borrow(ctx, input)
	case risk.ActionRepay:
		return s.Actions.Repay(ctx, input)
	case risk.ActionWithdraw:
		return s.Actions.Withdraw(ctx, input)
	default:
		return nil, &lending.ActionError{Action: action, Stage: lending.StageValidate, Err: errUnknownAction}
	}
}

// ReadOnly reports whether actions can be submitted.
func (s *Services) ReadOnly() bool {
	return s.Actions == nil || s.Wallet == ""
}

// Log returns a named logger; never nil.
func (s *Services) Log(name string) *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger.Named(name)
}
