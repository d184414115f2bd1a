// internal/amount/validate.go
package amount

import "fmt"

// Code classifies the result of ValidateAmount.
type Code string

const (
	CodeValid           Code = "valid"
	CodeNotANumber      Code = "not-a-number"
	CodeNegative        Code = "negative"
	CodeTooManyDecimals Code = "too-many-decimals"
	CodeNonPositive     Code = "non-positive"
	CodeBelowMinimum    Code = "below-minimum"
	CodeAboveMaximum    Code = "above-maximum"
	CodeBadBounds       Code = "bad-bounds"
	CodeUnavailable     Code = "unavailable"
)

// Outcome is the non-throwing result of validating user input.
type Outcome struct {
	Code   Code
	Reason string
	// Amount is set only when Code is CodeValid.
	Amount TokenAmount
}

// Valid reports whether the input passed every check.
func (o Outcome) Valid() bool {
	return o.Code == CodeValid
}

// Err converts an invalid outcome into an error wrapping ErrInvalidAmount.
func (o Outcome) Err() error {
	if o.Valid() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidAmount, o.Reason)
}

func invalid(code Code, format string, args ...interface{}) Outcome {
	return Outcome{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// ValidateAmount checks keystroke-level input against the token precision and
// the caller's minimum and optional maximum. It never panics and never
// returns an error; bounds with a different precision are reported as an
// invalid outcome.
func ValidateAmount(input string, decimals uint8, minimum TokenAmount, maximum *TokenAmount) Outcome {
	raw, failure := parseDecimal(input, decimals)
	switch failure {
	case parseNotANumber:
		return invalid(CodeNotANumber, "Please enter a valid number")
	case parseNegative:
		return invalid(CodeNegative, "Amount cannot be negative")
	case parseTooPrecise:
		return invalid(CodeTooManyDecimals, "Maximum %d decimal places allowed", decimals)
	}

	value := TokenAmount{raw: raw, decimals: decimals}
	if value.IsZero() {
		return invalid(CodeNonPositive, "Amount must be greater than 0")
	}

	belowMin, err := value.Cmp(minimum)
	if err != nil {
		return invalid(CodeBadBounds, "Minimum has %d decimals, expected %d", minimum.decimals, decimals)
	}
	if belowMin < 0 {
		return invalid(CodeBelowMinimum, "Minimum amount is %s", minimum)
	}

	if maximum != nil {
		aboveMax, err := value.Cmp(*maximum)
		if err != nil {
			return invalid(CodeBadBounds, "Maximum has %d decimals, expected %d", maximum.decimals, decimals)
		}
		if aboveMax > 0 {
			return invalid(CodeAboveMaximum, "Maximum amount is %s", *maximum)
		}
	}

	return Outcome{Code: CodeValid, Amount: value}
}

// MaxSpendableWithReserve returns max(0, balance - reserve). A balance at or
// below the reserve yields zero, which callers treat as a disabled action.
func MaxSpendableWithReserve(balance, reserve TokenAmount) (TokenAmount, error) {
	c, err := balance.Cmp(reserve)
	if err != nil {
		return TokenAmount{}, err
	}
	if c <= 0 {
		return Zero(balance.decimals), nil
	}
	return balance.Sub(reserve)
}
