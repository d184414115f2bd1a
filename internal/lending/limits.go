// internal/lending/limits.go
package lending

import (
	"github.com/rovshanmuradov/sui-lending/internal/amount"
	"github.com/rovshanmuradov/sui-lending/internal/config"
	"github.com/rovshanmuradov/sui-lending/internal/risk"
)

// Limit is the accepted amount range of one action. Max below Min means the
// action is unavailable.
type Limit struct {
	Token amount.Token
	Min   amount.TokenAmount
	Max   amount.TokenAmount

	// MaxReason replaces the generic above-maximum message.
	MaxReason string
	// Unavailable blocks the action regardless of the amount.
	Unavailable error
}

// Enabled reports whether any amount can pass validation.
func (l Limit) Enabled() bool {
	if l.Unavailable != nil || l.Max.IsZero() {
		return false
	}
	c, err := l.Max.Cmp(l.Min)
	return err == nil && c >= 0
}

// Validate checks input against the limit.
func (l Limit) Validate(input string) amount.Outcome {
	if l.Unavailable != nil {
		return amount.Outcome{Code: amount.CodeUnavailable, Reason: l.Unavailable.Error()}
	}
	outcome := l.Token.Validate(input, l.Min, &l.Max)
	if outcome.Code == amount.CodeAboveMaximum && l.MaxReason != "" {
		outcome.Reason = l.MaxReason
	}
	return outcome
}

// Limits derives per-action bounds from a snapshot:
//   - deposit: SUI balance minus the gas reserve
//   - borrow: remaining capacity at max LTV
//   - repay: min(debt, SUSD balance)
//   - withdraw: collateral that keeps LTV within max LTV
//
// Borrow and withdraw are blocked while the price is a config fallback.
func Limits(snap *Snapshot, policy config.Policy) map[risk.Action]Limit {
	deposit, err := amount.MaxSpendableWithReserve(snap.Balances.SUI, policy.GasReserve)
	if err != nil {
		deposit = amount.SUI.Zero()
	}

	debt := snap.Position.Debt
	repay, err := risk.MaxRepay(debt, snap.Balances.SUSD)
	if err != nil {
		repay = amount.SUSD.Zero()
	}
	// остаток долга меньше минимума можно погасить целиком
	minRepay := policy.MinRepay
	if c, err := debt.Cmp(minRepay); err == nil && c < 0 && !debt.IsZero() {
		minRepay = debt
	}
	repayReason := "Insufficient SUSD balance"
	if c, err := debt.Cmp(snap.Balances.SUSD); err == nil && c <= 0 {
		repayReason = "Amount exceeds current debt"
	}

	borrow := Limit{Token: amount.SUSD, Min: policy.MinBorrow, Max: snap.Metrics.MaxBorrow}
	withdraw := Limit{Token: amount.SUI, Min: policy.MinWithdraw, Max: snap.Metrics.MaxWithdraw}
	if snap.Price.Stale {
		borrow.Max, borrow.Unavailable = amount.SUSD.Zero(), ErrStalePrice
		withdraw.Max, withdraw.Unavailable = amount.SUI.Zero(), ErrStalePrice
	}

	return map[risk.Action]Limit{
		risk.ActionDeposit:  {Token: amount.SUI, Min: policy.MinDeposit, Max: deposit},
		risk.ActionBorrow:   borrow,
		risk.ActionRepay:    {Token: amount.SUSD, Min: minRepay, Max: repay, MaxReason: repayReason},
		risk.ActionWithdraw: withdraw,
	}
}
