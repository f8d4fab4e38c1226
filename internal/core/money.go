// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and display representations.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// maxCents bounds every parsed amount so it survives int64 and float64 round trips.
var maxCents = decimal.NewFromInt(1 << 53)

// ParseAmount converts a decimal string to Money with half-up rounding to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Returns a ValidationError for invalid formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234 cents
//	ParseAmount("12,345") -> 1235 cents
//	ParseAmount("0.004")  -> error (rounds to zero)
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, NewValidationError("amount", "amount is required")
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, NewValidationError("amount", "amount must be a positive number")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, NewValidationError("amount", "amount must be a positive number")
	}
	cents := d.Mul(hundred).Round(0)
	if !cents.IsPositive() || cents.GreaterThan(maxCents) {
		return Money{}, NewValidationError("amount", "amount must be a positive number")
	}
	return Money{Cents: cents.IntPart()}, nil
}

// ParseOptionalAmount parses a filter bound. Blank input yields nil. Zero is allowed.
func ParseOptionalAmount(s string) (*Money, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return nil, NewValidationError("amount", "amount filter must be a non-negative number")
	}
	cents := d.Mul(hundred).Round(0)
	if cents.GreaterThan(maxCents) {
		return nil, NewValidationError("amount", "amount filter is too large")
	}
	return &Money{Cents: cents.IntPart()}, nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with two decimals and thousands separators, e.g. "1,234.50".
func (m Money) String() string {
	neg := m.Cents < 0
	s := m.Decimal().Abs().StringFixed(2)
	intPart, frac := s[:len(s)-3], s[len(s)-2:]

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}

// Percent returns part/whole*100 rounded to one decimal, or zero when whole is not positive.
func Percent(part, whole Money) float64 {
	if whole.Cents <= 0 {
		return 0
	}
	p, _ := decimal.NewFromInt(part.Cents).
		Mul(hundred).
		Div(decimal.NewFromInt(whole.Cents)).
		Round(1).
		Float64()
	return p
}
