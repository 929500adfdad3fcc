// Package core defines the budget domain model and the redistribution and
// summary engine shared by every storage backend.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-supplied monetary string to a fixed-precision
// decimal rounded to two places.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Negative
// values are rejected; zero is allowed since planned amounts may legitimately
// be zero. Transaction amounts additionally require positivity, enforced by
// Transaction.Validate.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// ParseProportion converts a user-supplied proportion string to a decimal
// weight in (0, 1], rounded to four places to match the stored precision.
func ParseProportion(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidProportion
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidProportion
	}
	d = d.Round(4)
	if !d.IsPositive() || d.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, ErrInvalidProportion
	}
	return d, nil
}

// clampZero returns d, or zero when d is negative.
func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
