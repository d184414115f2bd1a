// internal/lending/errors.go
package lending

import (
	"errors"
	"fmt"

	"github.com/rovshanmuradov/sui-lending/internal/amount"
	"github.com/rovshanmuradov/sui-lending/internal/risk"
)

var (
	// ErrWalletNotConnected возникает при попытке действия без кошелька
	ErrWalletNotConnected = errors.New("wallet not connected")

	// ErrInsufficientBalance возникает, когда монет не хватает на платеж
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNotLiquidatable возникает при ликвидации здоровой позиции
	ErrNotLiquidatable = errors.New("position is not liquidatable")

	// ErrContractNotConfigured возникает, если адрес объекта протокола пуст
	ErrContractNotConfigured = errors.New("contract address not configured")

	// ErrStalePrice возникает, когда оракул недоступен и цена взята из конфига
	ErrStalePrice = errors.New("oracle price unavailable")

	// ErrUnknownAction возникает для действия без плана транзакции
	ErrUnknownAction = errors.New("unknown action")
)

// ValidationError carries the outcome of a rejected amount.
type ValidationError struct {
	Action  risk.Action
	Outcome amount.Outcome
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Action, e.Outcome.Reason)
}

// Unwrap exposes amount.ErrInvalidAmount.
func (e *ValidationError) Unwrap() error {
	return amount.ErrInvalidAmount
}

// Stage marks where an action failed.
type Stage string

const (
	StageValidate Stage = "validate"
	StagePrepare  Stage = "prepare"
	StageSubmit   Stage = "submit"
	StageConfirm  Stage = "confirm"
)

// ActionError wraps any failure of a lending action.
type ActionError struct {
	Action risk.Action
	Stage  Stage
	Digest string
	Err    error
}

func (e *ActionError) Error() string {
	if e.Digest != "" {
		return fmt.Sprintf("%s failed at %s (tx %s): %v", e.Action, e.Stage, e.Digest, e.Err)
	}
	return fmt.Sprintf("%s failed at %s: %v", e.Action, e.Stage, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
