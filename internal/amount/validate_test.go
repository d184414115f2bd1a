package amount

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAmount(t *testing.T) {
	minimum := SUI.MustParse("0.001")
	maximum := SUI.MustParse("50")

	tests := []struct {
		name  string
		input string
		max   *TokenAmount
		want  Code
	}{
		{name: "valid", input: "1.5", max: &maximum, want: CodeValid},
		{name: "exact minimum", input: "0.001", want: CodeValid},
		{name: "exact maximum", input: "50", max: &maximum, want: CodeValid},
		{name: "below minimum", input: "0.0001", want: CodeBelowMinimum},
		{name: "above maximum", input: "100", max: &maximum, want: CodeAboveMaximum},
		{name: "no maximum", input: "100000", want: CodeValid},
		{name: "not a number", input: "abc", want: CodeNotANumber},
		{name: "empty", input: "", want: CodeNotANumber},
		{name: "zero", input: "0", want: CodeNonPositive},
		{name: "zero fraction", input: "0.000", want: CodeNonPositive},
		{name: "negative", input: "-5", want: CodeNegative},
		{name: "too many decimals", input: "100.1234567890", want: CodeTooManyDecimals},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateAmount(tt.input, 9, minimum, tt.max)
			assert.Equal(t, tt.want, got.Code)
			if tt.want == CodeValid {
				assert.True(t, got.Valid())
				assert.NoError(t, got.Err())
				assert.Empty(t, got.Reason)
			} else {
				assert.False(t, got.Valid())
				assert.NotEmpty(t, got.Reason)
				assert.ErrorIs(t, got.Err(), ErrInvalidAmount)
			}
		})
	}
}

func TestValidateAmountCarriesParsedValue(t *testing.T) {
	got := SUSD.Validate("12.5", SUSD.MustParse("1"), nil)
	require.True(t, got.Valid())
	assert.Equal(t, "12.5", got.Amount.String())
}

func TestValidateAmountMismatchedBounds(t *testing.T) {
	minimum, err := FromDecimalString("1", 6)
	require.NoError(t, err)

	got := ValidateAmount("5", 9, minimum, nil)
	assert.Equal(t, CodeBadBounds, got.Code)
	assert.Equal(t, "Minimum has 6 decimals, expected 9", got.Reason)
	assert.ErrorIs(t, got.Err(), ErrInvalidAmount)

	maximum, err := FromDecimalString("10", 6)
	require.NoError(t, err)
	got = ValidateAmount("5", 9, SUI.MustParse("0.001"), &maximum)
	assert.Equal(t, CodeBadBounds, got.Code)
	assert.Equal(t, "Maximum has 6 decimals, expected 9", got.Reason)
}

func TestMaxSpendableWithReserve(t *testing.T) {
	reserve := SUI.MustParse("0.01")

	tests := []struct {
		balance string
		want    string
	}{
		{"1", "0.99"},
		{"0.005", "0"},
		{"0.01", "0"},
		{"0.5", "0.49"},
		{"100", "99.99"},
	}

	for _, tt := range tests {
		got, err := MaxSpendableWithReserve(SUI.MustParse(tt.balance), reserve)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.String(), "balance %s", tt.balance)
	}

	other, err := FromDecimalString("1", 6)
	require.NoError(t, err)
	_, err = MaxSpendableWithReserve(other, reserve)
	assert.ErrorIs(t, err, ErrDecimalsMismatch)
}

func TestValidateConcurrent(t *testing.T) {
	minimum := SUI.MustParse("0.001")
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, CodeValid, ValidateAmount("2.5", 9, minimum, nil).Code)
			}
		}()
	}
	wg.Wait()
}
