package types

import "github.com/shopspring/decimal"

// Monetary values persist as integer paise; the pricing engine computes
// with decimals and rounds half-up to 2 places at every boundary.

// RoundHalfUp rounds half-up to 2 decimal places (0.005 -> 0.01).
func RoundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// PaiseFromDecimal converts a rupee amount to integer paise, rounding half-up.
func PaiseFromDecimal(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// DecimalFromPaise converts integer paise back to a rupee decimal.
func DecimalFromPaise(paise int64) decimal.Decimal {
	return decimal.NewFromInt(paise).Div(decimal.NewFromInt(100))
}
