// internal/risk/preview.go
package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/sui-lending/internal/amount"
)

// Action is a user operation against the lending pool.
type Action string

const (
	ActionDeposit  Action = "deposit"
	ActionBorrow   Action = "borrow"
	ActionRepay    Action = "repay"
	ActionWithdraw Action = "withdraw"
)

// Actions lists the dashboard actions in display order.
var Actions = []Action{ActionDeposit, ActionBorrow, ActionRepay, ActionWithdraw}

// Token returns the token the action amount is denominated in.
func (a Action) Token() amount.Token {
	switch a {
	case ActionBorrow, ActionRepay:
		return amount.SUSD
	default:
		return amount.SUI
	}
}

// Apply returns the position after the action succeeds.
func Apply(pos Position, action Action, amt amount.TokenAmount) (Position, error) {
	var err error
	next := pos
	switch action {
	case ActionDeposit:
		next.Collateral, err = pos.Collateral.Add(amt)
	case ActionWithdraw:
		next.Collateral, err = pos.Collateral.Sub(amt)
	case ActionBorrow:
		next.Debt, err = pos.Debt.Add(amt)
	case ActionRepay:
		next.Debt, err = pos.Debt.Sub(amt)
	default:
		return Position{}, fmt.Errorf("unknown action %q", action)
	}
	if err != nil {
		return Position{}, fmt.Errorf("%s %s: %w", action, amt, err)
	}
	return next, nil
}

// Preview evaluates the position as it would be after the action.
func Preview(pos Position, price decimal.Decimal, p Params, action Action, amt amount.TokenAmount) (Metrics, error) {
	next, err := Apply(pos, action, amt)
	if err != nil {
		return Metrics{}, err
	}
	return Evaluate(next, price, p), nil
}
