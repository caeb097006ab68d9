// Package price implements the arithmetic behind the paired price and
// inverse-price inputs of the trade form.
package price

import (
	"strings"

	"github.com/shopspring/decimal"
)

// InversionPrecision is the number of fractional digits kept when computing
// 1/price. Terminating inverses such as 1/8 are exact; repeating ones are
// rounded half-up at this digit.
const InversionPrecision int32 = 20

// MaxExponent bounds the base-10 exponent of user-entered numbers. Text such
// as "1e-5000000" is short but expands to millions of digits once divided or
// formatted.
const MaxExponent int32 = 1000

var one = decimal.NewFromInt(1)

// Parse reads a user-entered price. Empty, non-numeric, negative and
// out-of-range input report ok=false.
func Parse(text string) (decimal.Decimal, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, false
	}
	p, err := decimal.NewFromString(text)
	if err != nil || p.IsNegative() || !InRange(p) {
		return decimal.Zero, false
	}
	return p, true
}

// InRange reports whether d's exponent lies within ±MaxExponent.
func InRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	return exp >= -MaxExponent && exp <= MaxExponent
}

// Invert returns the multiplicative inverse of priceText as a base-10 string.
//
// Unparseable input yields "" (no price). A zero price, whose inverse is not
// finite, yields "0" so the paired field shows a sane value instead of
// Infinity.
func Invert(priceText string) string {
	p, ok := Parse(priceText)
	if !ok {
		return ""
	}
	if p.IsZero() {
		return "0"
	}
	inv := one.DivRound(p, InversionPrecision)
	if inv.IsZero() {
		return "0"
	}
	return inv.String()
}

// InversionPair is the result of editing one side of the price inputs.
type InversionPair struct {
	Price   string `json:"price"`
	Inverse string `json:"inverse"`
}

// Pair bundles priceText with its inverse.
func Pair(priceText string) InversionPair {
	return InversionPair{Price: priceText, Inverse: Invert(priceText)}
}
