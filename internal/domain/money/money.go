// Package money represents currency amounts in integer minor units (cents).
//
// All pricing arithmetic in this repository happens on Cents values, so sums
// and comparisons are exact. Conversion to shopspring/decimal happens only at
// the edges: NUMERIC column scanning and 2-decimal presentation.
package money

import (
	"github.com/shopspring/decimal"
)

// Cents is a currency amount in minor units (1/100 of the display unit).
type Cents int64

var centFactor = decimal.NewFromInt(100)

// FromDecimal converts a decimal currency amount (e.g. 32.90) to Cents,
// rounding to the nearest cent.
func FromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Mul(centFactor).Round(0).IntPart())
}

// Decimal converts the amount back to a decimal with 2 fractional digits.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// Float64 returns the amount as a float for JSON responses. Precision loss is
// acceptable at the presentation boundary only.
func (c Cents) Float64() float64 {
	return c.Decimal().InexactFloat64()
}

// String formats the amount with exactly two fractional digits, e.g. "66.80".
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// Min returns the smaller of a and b.
func Min(a, b Cents) Cents {
	if a < b {
		return a
	}
	return b
}

// FloorZero clamps negative amounts to zero.
func FloorZero(c Cents) Cents {
	if c < 0 {
		return 0
	}
	return c
}
