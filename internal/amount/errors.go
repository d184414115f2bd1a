// internal/amount/errors.go
package amount

import "errors"

var (
	// ErrInvalidAmount возникает при некорректной, отрицательной или слишком точной строке
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrUnderflow возникает, когда вычитание дало бы отрицательный результат
	ErrUnderflow = errors.New("amount underflow")

	// ErrDecimalsMismatch возникает при сложении сумм с разной точностью
	ErrDecimalsMismatch = errors.New("decimals mismatch")

	// ErrDivisionByZero возникает при делении на ноль
	ErrDivisionByZero = errors.New("division by zero")

	// ErrOverflow возникает, когда сумма не помещается в u64 аргумент транзакции
	ErrOverflow = errors.New("amount overflows u64")
)
