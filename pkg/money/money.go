// Package money centralizes the decimal arithmetic used for prices and totals.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits kept for reported amounts.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Zero is the additive identity, exported for readability at call sites.
var Zero = decimal.Zero

// FromCents converts an integer number of cents into a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Shift(-Places)
}

// ToCents rounds the amount to cents and returns it as an integer.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Round(Places).Shift(Places).IntPart()
}

// Parse reads a decimal string such as "25.00".
func Parse(value string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return amount, nil
}

// MustParse is Parse for static tables; it panics on malformed input.
func MustParse(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

// Round rounds half away from zero to cents.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(Places)
}

// Percent returns amount * pct / 100 without rounding.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

// Clamp bounds amount to [lo, hi].
func Clamp(amount, lo, hi decimal.Decimal) decimal.Decimal {
	if amount.LessThan(lo) {
		return lo
	}
	if amount.GreaterThan(hi) {
		return hi
	}
	return amount
}

// NonNegative returns amount, or zero when amount is negative.
func NonNegative(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// Format renders the amount with two fixed decimals.
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(Places)
}
