// Package core holds the domain model: currencies, accounts, categories,
// transactions and the monetary rules shared by every service.
//
// This file contains the monetary normalization rules. All money arithmetic
// uses arbitrary-precision decimals; rounding happens only at well-defined
// boundaries (2 places for amounts, 4 for exchange rates).
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the scale every persisted or returned amount carries.
const AmountScale int32 = 2

// RateScale is the scale exchange rates are materialized at.
const RateScale int32 = 4

// Normalize rounds d to the given number of decimal places using half-up
// rounding (ties away from zero). The zero value of decimal.Decimal is 0, so
// an absent amount normalizes to zero. Normalizing an already-normalized
// value at the same scale is a no-op.
func Normalize(d decimal.Decimal, scale int32) decimal.Decimal {
	return d.Round(scale)
}

// NormalizeAmount rounds a monetary amount to 2 decimal places.
func NormalizeAmount(d decimal.Decimal) decimal.Decimal {
	return Normalize(d, AmountScale)
}

// NormalizeRate rounds an exchange rate to 4 decimal places.
func NormalizeRate(d decimal.Decimal) decimal.Decimal {
	return Normalize(d, RateScale)
}

// ParseAmount parses a decimal amount string. Both dot (12.34) and comma
// (12,34) separators are accepted.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("-3.5")   -> -3.5, nil
//	ParseAmount("")       -> 0, ErrInvalidAmount
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
	return d, nil
}

// FormatAmount renders an amount at the canonical 2-decimal-place scale,
// e.g. "0.00", "600.00", "-42.50".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}

// FormatRate renders an exchange rate at the canonical 4-decimal-place
// scale, e.g. "4.2100".
func FormatRate(d decimal.Decimal) string {
	return d.StringFixed(RateScale)
}
