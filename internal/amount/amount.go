// internal/amount/amount.go

// Package amount implements exact fixed-point token quantities backed by
// arbitrary-precision integers in the token's smallest unit.
package amount

import (
	"fmt"
	"math/big"
	"strings"
)

// TokenAmount is a non-negative token quantity at a fixed decimal precision.
// Values are immutable: every operation returns a new TokenAmount.
type TokenAmount struct {
	raw      *big.Int
	decimals uint8
}

type parseFailure int

const (
	parseOK parseFailure = iota
	parseNotANumber
	parseNegative
	parseTooPrecise
)

// FromDecimalString parses a human-readable decimal such as "100.5" into
// smallest units. Signs, exponents and more than decimals fractional digits
// are rejected with ErrInvalidAmount.
func FromDecimalString(value string, decimals uint8) (TokenAmount, error) {
	raw, failure := parseDecimal(value, decimals)
	switch failure {
	case parseOK:
		return TokenAmount{raw: raw, decimals: decimals}, nil
	case parseNegative:
		return TokenAmount{}, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, value)
	case parseTooPrecise:
		return TokenAmount{}, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, value, decimals)
	default:
		return TokenAmount{}, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, value)
	}
}

// FromRawUnits wraps an already scaled integer. The integer is copied.
func FromRawUnits(raw *big.Int, decimals uint8) (TokenAmount, error) {
	if raw == nil {
		return TokenAmount{}, fmt.Errorf("%w: nil raw value", ErrInvalidAmount)
	}
	if raw.Sign() < 0 {
		return TokenAmount{}, fmt.Errorf("%w: raw value %s is negative", ErrInvalidAmount, raw)
	}
	return TokenAmount{raw: new(big.Int).Set(raw), decimals: decimals}, nil
}

// FromRawString parses a base-10 integer in smallest units, the format ledger
// nodes use for balances ("1500000000").
func FromRawString(raw string, decimals uint8) (TokenAmount, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !isDigits(trimmed) {
		return TokenAmount{}, fmt.Errorf("%w: raw value %q is not an unsigned integer", ErrInvalidAmount, raw)
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return TokenAmount{}, fmt.Errorf("%w: raw value %q is not an unsigned integer", ErrInvalidAmount, raw)
	}
	return TokenAmount{raw: value, decimals: decimals}, nil
}

// FromUint64 wraps a u64 smallest-unit value.
func FromUint64(raw uint64, decimals uint8) TokenAmount {
	return TokenAmount{raw: new(big.Int).SetUint64(raw), decimals: decimals}
}

// Zero returns a zero amount at the given precision.
func Zero(decimals uint8) TokenAmount {
	return TokenAmount{raw: new(big.Int), decimals: decimals}
}

func (a TokenAmount) value() *big.Int {
	if a.raw == nil {
		return new(big.Int)
	}
	return a.raw
}

// Decimals returns the number of fractional places of the token.
func (a TokenAmount) Decimals() uint8 {
	return a.decimals
}

// RawUnits returns a copy of the smallest-unit integer.
func (a TokenAmount) RawUnits() *big.Int {
	return new(big.Int).Set(a.value())
}

// Uint64 returns the smallest-unit value as a Move u64 argument.
func (a TokenAmount) Uint64() (uint64, error) {
	v := a.value()
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: %s", ErrOverflow, v)
	}
	return v.Uint64(), nil
}

// String returns the canonical decimal form: no trailing fractional zeros,
// no trailing dot.
func (a TokenAmount) String() string {
	intPart, fracPart := a.split()
	fracPart = strings.TrimRight(fracPart, "0")
	if fracPart == "" {
		return intPart
	}
	return intPart + "." + fracPart
}

// DecimalString is the exact inverse of FromDecimalString.
func (a TokenAmount) DecimalString() string {
	return a.String()
}

// Format renders exactly places fractional digits, truncating extra digits.
func (a TokenAmount) Format(places int) string {
	intPart, fracPart := a.split()
	if places <= 0 {
		return intPart
	}
	if places <= len(fracPart) {
		return intPart + "." + fracPart[:places]
	}
	return intPart + "." + fracPart + strings.Repeat("0", places-len(fracPart))
}

func (a TokenAmount) split() (string, string) {
	digits := a.value().String()
	d := int(a.decimals)
	if d == 0 {
		return digits, ""
	}
	if len(digits) <= d {
		digits = strings.Repeat("0", d-len(digits)+1) + digits
	}
	return digits[:len(digits)-d], digits[len(digits)-d:]
}

// IsZero reports whether the amount is zero.
func (a TokenAmount) IsZero() bool {
	return a.value().Sign() == 0
}

// Cmp compares two amounts of the same precision.
func (a TokenAmount) Cmp(other TokenAmount) (int, error) {
	if err := a.sameDecimals(other); err != nil {
		return 0, err
	}
	return a.value().Cmp(other.value()), nil
}

// Add returns a + other.
func (a TokenAmount) Add(other TokenAmount) (TokenAmount, error) {
	if err := a.sameDecimals(other); err != nil {
		return TokenAmount{}, err
	}
	return TokenAmount{raw: new(big.Int).Add(a.value(), other.value()), decimals: a.decimals}, nil
}

// Sub returns a - other, failing with ErrUnderflow when other > a.
func (a TokenAmount) Sub(other TokenAmount) (TokenAmount, error) {
	if err := a.sameDecimals(other); err != nil {
		return TokenAmount{}, err
	}
	diff := new(big.Int).Sub(a.value(), other.value())
	if diff.Sign() < 0 {
		return TokenAmount{}, fmt.Errorf("%w: %s - %s", ErrUnderflow, a, other)
	}
	return TokenAmount{raw: diff, decimals: a.decimals}, nil
}

// MulInt multiplies by a non-negative integer scalar.
func (a TokenAmount) MulInt(scalar int64) (TokenAmount, error) {
	if scalar < 0 {
		return TokenAmount{}, fmt.Errorf("%w: negative multiplier %d", ErrInvalidAmount, scalar)
	}
	return TokenAmount{raw: new(big.Int).Mul(a.value(), big.NewInt(scalar)), decimals: a.decimals}, nil
}

// DivInt divides by a positive integer scalar. The remainder is discarded
// (truncation toward zero).
func (a TokenAmount) DivInt(scalar int64) (TokenAmount, error) {
	if scalar == 0 {
		return TokenAmount{}, ErrDivisionByZero
	}
	if scalar < 0 {
		return TokenAmount{}, fmt.Errorf("%w: negative divisor %d", ErrInvalidAmount, scalar)
	}
	return TokenAmount{raw: new(big.Int).Quo(a.value(), big.NewInt(scalar)), decimals: a.decimals}, nil
}

// Min returns the smaller of two amounts of the same precision.
func Min(a, b TokenAmount) (TokenAmount, error) {
	c, err := a.Cmp(b)
	if err != nil {
		return TokenAmount{}, err
	}
	if c <= 0 {
		return a, nil
	}
	return b, nil
}

func (a TokenAmount) sameDecimals(other TokenAmount) error {
	if a.decimals != other.decimals {
		return fmt.Errorf("%w: %d vs %d", ErrDecimalsMismatch, a.decimals, other.decimals)
	}
	return nil
}

// parseDecimal accepts "1", "1.5", ".5" and "1." with at most decimals
// fractional digits.
func parseDecimal(value string, decimals uint8) (*big.Int, parseFailure) {
	s := strings.TrimSpace(value)
	if s == "" {
		return nil, parseNotANumber
	}

	negative := false
	if s[0] == '-' {
		negative = true
		s = s[1:]
	}

	intPart, fracPart := s, ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart, fracPart = s[:dot], s[dot+1:]
	}
	if intPart == "" && fracPart == "" {
		return nil, parseNotANumber
	}
	if !isDigits(intPart) || !isDigits(fracPart) {
		return nil, parseNotANumber
	}
	if negative {
		return nil, parseNegative
	}
	if len(fracPart) > int(decimals) {
		return nil, parseTooPrecise
	}

	digits := intPart + fracPart + strings.Repeat("0", int(decimals)-len(fracPart))
	raw, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, parseNotANumber
	}
	return raw, parseOK
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
