// Package dto provides Data Transfer Objects for API requests/responses.
//
// Money, quantities and prices cross the wire as decimal strings ("12.50");
// shopspring/decimal also accepts JSON numbers on input. Dates are YYYY-MM-DD.
package dto

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// IDResponse is returned when only the identifier matters.
type IDResponse struct {
	ID string `json:"id"`
}

// ErrorResponse documents the shape written by the error middleware.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// NewListResponse never renders a null items array.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Total: len(items)}
}

// ParseDate parses a YYYY-MM-DD field. Full RFC 3339 timestamps are accepted too.
func ParseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperror.NewFieldValidation(field, "is required")
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, apperror.NewFieldValidation(field, "must be a date (YYYY-MM-DD)").WithCause(err)
	}
	return t.UTC(), nil
}

// ParseOptionalDate returns now when s is empty.
func ParseOptionalDate(field, s string, now time.Time) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return now.UTC(), nil
	}
	return ParseDate(field, s)
}

// ParseID parses a required identifier field.
func ParseID(field, s string) (id.ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return id.ID{}, apperror.NewFieldValidation(field, "is required")
	}
	v, err := id.Parse(s)
	if err != nil {
		return id.ID{}, apperror.NewFieldValidation(field, "must be a UUID").WithCause(err)
	}
	return v, nil
}

// ParseOptionalID returns nil for an empty string.
func ParseOptionalID(field, s string) (*id.ID, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	v, err := ParseID(field, s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ParseIDs parses a list of identifiers, naming the offending index on failure.
func ParseIDs(field string, ss []string) ([]id.ID, error) {
	out := make([]id.ID, 0, len(ss))
	for i, s := range ss {
		v, err := ParseID(field, s)
		if err != nil {
			return nil, err.(*apperror.AppError).WithDetail("index", i)
		}
		out = append(out, v)
	}
	return out, nil
}

// Required dereferences a required decimal field.
func Required(field string, d *decimal.Decimal) (decimal.Decimal, error) {
	if d == nil {
		return decimal.Zero, apperror.NewFieldValidation(field, "is required")
	}
	return *d, nil
}

// OrZero dereferences an optional decimal field.
func OrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return types.Zero()
	}
	return *d
}
