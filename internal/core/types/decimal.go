// Package types provides the numeric types used at every API boundary of the ledger.
//
// All quantities, prices and money amounts are shopspring decimals. Inputs are
// converted once, at the boundary, through the helpers below; the calculation
// packages never see float64.
package types

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
)

// Money represents a monetary value with full precision.
type Money = decimal.Decimal

// Quantity is a unit-less amount bound to the item's unit of measure.
type Quantity = decimal.Decimal

// Decimal places of the published numeric formats.
const (
	MoneyPlaces   int32 = 2
	CostPlaces    int32 = 4
	PercentPlaces int32 = 2
)

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// RoundMoney rounds to 2 decimal places, half away from zero.
func RoundMoney(d decimal.Decimal) Money {
	return d.Round(MoneyPlaces)
}

// RoundCost rounds a unit cost (WAC, variance per unit) to 4 decimal places.
func RoundCost(d decimal.Decimal) decimal.Decimal {
	return d.Round(CostPlaces)
}

// RoundPercent rounds a percentage to 2 decimal places.
func RoundPercent(d decimal.Decimal) decimal.Decimal {
	return d.Round(PercentPlaces)
}

// FromFloat converts a float at the boundary, rejecting NaN and infinities.
func FromFloat(field string, f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, apperror.NewFieldValidation(field, "must be a finite number")
	}
	return decimal.NewFromFloat(f), nil
}

// Parse converts a string at the boundary. Empty input is a validation error.
func Parse(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, apperror.NewFieldValidation(field, "is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperror.NewFieldValidation(field, "must be a decimal number").WithCause(err)
	}
	return d, nil
}

// MustParse panics on malformed input. Tests and constants only.
func MustParse(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// RequireNonNegative returns a field-named validation error when d < 0.
func RequireNonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return apperror.NewFieldValidation(field, "must not be negative").WithDetail("value", d.String())
	}
	return nil
}

// RequirePositive returns a field-named validation error when d <= 0.
func RequirePositive(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return apperror.NewFieldValidation(field, "must be greater than zero").WithDetail("value", d.String())
	}
	return nil
}
