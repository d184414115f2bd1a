// internal/amount/token.go
package amount

// Token describes a fungible token and its fixed precision.
type Token struct {
	Symbol   string
	Decimals uint8
	// Unit is the name of the smallest unit, e.g. MIST for SUI.
	Unit string
}

var (
	// SUI is the base token (1 SUI = 10^9 MIST).
	SUI = Token{Symbol: "SUI", Decimals: 9, Unit: "MIST"}

	// SUSD is the protocol stablecoin.
	SUSD = Token{Symbol: "SUSD", Decimals: 9, Unit: "smallest"}
)

// Parse converts a human-readable amount of the token.
func (t Token) Parse(value string) (TokenAmount, error) {
	return FromDecimalString(value, t.Decimals)
}

// MustParse is Parse for constants known to be valid; it panics otherwise.
func (t Token) MustParse(value string) TokenAmount {
	a, err := t.Parse(value)
	if err != nil {
		panic(err)
	}
	return a
}

// FromRaw converts a smallest-unit integer string as returned by the ledger.
func (t Token) FromRaw(raw string) (TokenAmount, error) {
	return FromRawString(raw, t.Decimals)
}

// Zero returns zero of the token.
func (t Token) Zero() TokenAmount {
	return Zero(t.Decimals)
}

// Validate runs ValidateAmount with the token precision.
func (t Token) Validate(input string, minimum TokenAmount, maximum *TokenAmount) Outcome {
	return ValidateAmount(input, t.Decimals, minimum, maximum)
}
