package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// All monetary amounts in the system are integer centavos. Percentage math
// goes through decimal so plan profit rates like 0.5% never accumulate
// float drift.

// Percent returns rate% of amountCents, rounded half-up to a whole centavo.
func Percent(amountCents int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amountCents).
		Mul(rate).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

// FromReais converts a decimal currency amount to centavos.
func FromReais(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// ToReais converts centavos to a decimal currency amount.
func ToReais(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
}

// Format renders centavos as a BRL display string.
func Format(cents int64) string {
	return fmt.Sprintf("R$%s", ToReais(cents).StringFixed(2))
}
