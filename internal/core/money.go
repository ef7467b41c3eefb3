// Package core holds the domain types and the money helpers shared by every layer.
//
// Amounts are shopspring decimals rounded to cents at the edges; sums are exact.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// maxAmountExponent bounds the exponent accepted in scientific notation.
const maxAmountExponent = 15

// ParseAmount converts a user supplied amount to a decimal rounded to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators as well as
// exponent notation (1e2), and performs half-up rounding on the third decimal
// place. Zero and negative values are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,345") -> 12.35, nil
//	ParseAmount("1.5e2")  -> 150.00, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
//	ParseAmount("abc")    -> 0, ErrAmountFormat
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") {
		return decimal.Zero, ErrAmountFormat
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrAmountFormat
	}
	if exp := d.Exponent(); exp > maxAmountExponent || exp < -maxAmountExponent {
		return decimal.Zero, ErrAmountFormat
	}
	d = d.Round(2)
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount rejects zero and negative amounts.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// FormatAmount renders d with exactly two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// SumAmounts adds amounts exactly; order does not matter.
func SumAmounts(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
