// internal/risk/risk.go

// Package risk computes loan-to-value, health factor and per-action limits
// for a collateralised stablecoin position. All money math uses
// shopspring/decimal; results meant for transactions are truncated back into
// amount.TokenAmount.
package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/sui-lending/internal/amount"
)

const divPrecision int32 = 18

var (
	hundred = decimal.NewFromInt(100)

	// DefaultWarningHealth marks positions close to liquidation.
	DefaultWarningHealth = decimal.RequireFromString("1.1")
)

// Status classifies position health.
type Status string

const (
	StatusHealthy      Status = "healthy"
	StatusWarning      Status = "warning"
	StatusLiquidatable Status = "liquidatable"
)

// Params holds protocol risk settings as fractions (0.5 == 50%).
type Params struct {
	MaxLTV               decimal.Decimal
	LiquidationThreshold decimal.Decimal
	WarningHealth        decimal.Decimal
}

// ParamsFromPercent builds Params from whole-number percentages.
func ParamsFromPercent(maxLTV, liquidationThreshold int64) Params {
	return Params{
		MaxLTV:               decimal.NewFromInt(maxLTV).Div(hundred),
		LiquidationThreshold: decimal.NewFromInt(liquidationThreshold).Div(hundred),
		WarningHealth:        DefaultWarningHealth,
	}
}

// Validate checks that 0 < MaxLTV <= LiquidationThreshold <= 1.
func (p Params) Validate() error {
	if !p.MaxLTV.IsPositive() {
		return fmt.Errorf("max LTV must be positive, got %s", p.MaxLTV)
	}
	if p.MaxLTV.GreaterThan(p.LiquidationThreshold) {
		return fmt.Errorf("max LTV %s exceeds liquidation threshold %s", p.MaxLTV, p.LiquidationThreshold)
	}
	if p.LiquidationThreshold.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("liquidation threshold %s exceeds 100%%", p.LiquidationThreshold)
	}
	return nil
}

// Position is a borrower's collateral (base token) and debt (stablecoin).
type Position struct {
	Collateral amount.TokenAmount
	Debt       amount.TokenAmount
}

// Health is the health factor; Infinite is set when there is no debt.
type Health struct {
	Factor   decimal.Decimal
	Infinite bool
}

func (h Health) String() string {
	if h.Infinite {
		return "∞"
	}
	return h.Factor.StringFixed(2)
}

// Less reports whether h is strictly below v. An infinite health is never less.
func (h Health) Less(v decimal.Decimal) bool {
	return !h.Infinite && h.Factor.LessThan(v)
}

// Metrics is the evaluated state of a position at a given price.
type Metrics struct {
	CollateralValue  decimal.Decimal // USD
	DebtValue        decimal.Decimal // USD, stablecoin assumed at par
	LTV              decimal.Decimal // percent
	Health           Health
	Status           Status
	MaxBorrow        amount.TokenAmount
	MaxWithdraw      amount.TokenAmount
	LiquidationPrice decimal.Decimal // zero when not applicable
}

// ToDecimal converts a token amount into a decimal of display units.
func ToDecimal(a amount.TokenAmount) decimal.Decimal {
	return decimal.NewFromBigInt(a.RawUnits(), -int32(a.Decimals()))
}

// FromDecimal truncates d to the token precision; negatives clamp to zero.
func FromDecimal(d decimal.Decimal, token amount.Token) amount.TokenAmount {
	if !d.IsPositive() {
		return token.Zero()
	}
	raw := d.Shift(int32(token.Decimals)).Truncate(0).BigInt()
	a, err := amount.FromRawUnits(raw, token.Decimals)
	if err != nil {
		return token.Zero()
	}
	return a
}

// CollateralValue returns collateral × price in USD.
func CollateralValue(collateral amount.TokenAmount, price decimal.Decimal) decimal.Decimal {
	return ToDecimal(collateral).Mul(price)
}

// LTV returns debt / collateralValue as a percentage, zero without collateral.
func LTV(collateralValue, debt decimal.Decimal) decimal.Decimal {
	if !collateralValue.IsPositive() {
		return decimal.Zero
	}
	return debt.DivRound(collateralValue, divPrecision).Mul(hundred)
}

// HealthFactor returns collateralValue × liquidationThreshold / debt.
func HealthFactor(collateralValue, debt, liquidationThreshold decimal.Decimal) Health {
	if !debt.IsPositive() {
		return Health{Infinite: true}
	}
	return Health{Factor: collateralValue.Mul(liquidationThreshold).DivRound(debt, divPrecision)}
}

// Classify maps a health factor onto a Status.
func Classify(h Health, p Params) Status {
	switch {
	case h.Less(decimal.NewFromInt(1)):
		return StatusLiquidatable
	case h.Less(p.WarningHealth):
		return StatusWarning
	default:
		return StatusHealthy
	}
}

// MaxBorrow returns max(0, collateralValue × maxLTV − debt) in stablecoin.
func MaxBorrow(collateralValue, debt decimal.Decimal, p Params) amount.TokenAmount {
	return FromDecimal(collateralValue.Mul(p.MaxLTV).Sub(debt), amount.SUSD)
}

// MaxWithdraw returns the collateral that can leave while keeping LTV at or
// below maxLTV. Without debt all collateral is withdrawable.
func MaxWithdraw(pos Position, price decimal.Decimal, p Params) amount.TokenAmount {
	if pos.Debt.IsZero() {
		return pos.Collateral
	}
	if !price.IsPositive() || !p.MaxLTV.IsPositive() {
		return amount.Zero(pos.Collateral.Decimals())
	}
	required := ToDecimal(pos.Debt).DivRound(price.Mul(p.MaxLTV), divPrecision)
	return FromDecimal(ToDecimal(pos.Collateral).Sub(required), tokenOf(pos.Collateral))
}

// MaxRepay returns min(debt, balance).
func MaxRepay(debt, balance amount.TokenAmount) (amount.TokenAmount, error) {
	return amount.Min(debt, balance)
}

// LiquidationPrice returns the collateral price at which health reaches 1.
func LiquidationPrice(pos Position, p Params) decimal.Decimal {
	collateral := ToDecimal(pos.Collateral)
	if pos.Debt.IsZero() || !collateral.IsPositive() || !p.LiquidationThreshold.IsPositive() {
		return decimal.Zero
	}
	return ToDecimal(pos.Debt).DivRound(collateral.Mul(p.LiquidationThreshold), divPrecision)
}

// Evaluate computes every metric of a position at price.
func Evaluate(pos Position, price decimal.Decimal, p Params) Metrics {
	value := CollateralValue(pos.Collateral, price)
	debt := ToDecimal(pos.Debt)
	health := HealthFactor(value, debt, p.LiquidationThreshold)

	return Metrics{
		CollateralValue:  value,
		DebtValue:        debt,
		LTV:              LTV(value, debt),
		Health:           health,
		Status:           Classify(health, p),
		MaxBorrow:        MaxBorrow(value, debt, p),
		MaxWithdraw:      MaxWithdraw(pos, price, p),
		LiquidationPrice: LiquidationPrice(pos, p),
	}
}

func tokenOf(a amount.TokenAmount) amount.Token {
	return amount.Token{Decimals: a.Decimals()}
}
