// Package types provides the exact-decimal value types used across the
// valuation core. Quantities are stored with 3 fractional digits and
// monetary values (costs, amounts) with 2; every drift comparison in the
// reprocessing engine must normalize to these precisions first, otherwise
// the convergence loop would chase sub-cent noise forever.
package types

import (
	"github.com/shopspring/decimal"
)

// Storage precision, in fractional digits.
const (
	QuantityPrecision int32 = 3
	MoneyPrecision    int32 = 2
)

// Money represents a monetary value (cost, amount) with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// Quantity represents a stock quantity with full precision.
type Quantity = decimal.Decimal

// NormalizeQuantity rounds a quantity to storage precision (3 digits).
func NormalizeQuantity(q Quantity) Quantity {
	return q.Round(QuantityPrecision)
}

// NormalizeMoney rounds a monetary value to storage precision (2 digits).
func NormalizeMoney(m Money) Money {
	return m.Round(MoneyPrecision)
}

// DecimalFromString parses a decimal value from its string form.
func DecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// MustDecimal parses a decimal value, panicking on error.
// Use only for constants and tests.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DecimalFromInt builds a decimal from an integer.
func DecimalFromInt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// Zero returns the zero decimal value.
func Zero() decimal.Decimal {
	return decimal.Zero
}
