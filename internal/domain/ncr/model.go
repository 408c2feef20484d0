// Package ncr tracks non-conformance reports and classifies their financial impact.
package ncr

import (
	"context"
	"strings"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Status is the NCR lifecycle state.
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusSent     Status = "SENT"
	StatusCredited Status = "CREDITED"
	StatusRejected Status = "REJECTED"
	StatusResolved Status = "RESOLVED"
)

// IsValid reports whether s is part of the status vocabulary.
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusSent, StatusCredited, StatusRejected, StatusResolved:
		return true
	}
	return false
}

// Type distinguishes auto-generated price variances from manually raised reports.
type Type string

const (
	TypePriceVariance Type = "PRICE_VARIANCE"
	TypeManual        Type = "MANUAL"
)

// FinancialImpact records how a RESOLVED NCR affected cost.
type FinancialImpact string

const (
	ImpactNone   FinancialImpact = "NONE"
	ImpactCredit FinancialImpact = "CREDIT"
	ImpactLoss   FinancialImpact = "LOSS"
)

// IsValid reports whether f is part of the financial impact vocabulary.
func (f FinancialImpact) IsValid() bool {
	switch f {
	case ImpactNone, ImpactCredit, ImpactLoss:
		return true
	}
	return false
}

// NCR is a non-conformance report.
type NCR struct {
	entity.BaseEntity

	Number        string `db:"ncr_no" json:"ncrNo"`
	Type          Type   `db:"type" json:"type"`
	AutoGenerated bool   `db:"auto_generated" json:"autoGenerated"`

	LocationID     id.ID  `db:"location_id" json:"locationId"`
	DeliveryID     *id.ID `db:"delivery_id" json:"deliveryId,omitempty"`
	DeliveryLineID *id.ID `db:"delivery_line_id" json:"deliveryLineId,omitempty"`
	ItemID         *id.ID `db:"item_id" json:"itemId,omitempty"`

	Reason string `db:"reason" json:"reason"`

	// Value is always stored non-negative.
	Value types.Money `db:"value" json:"value"`

	Status          Status           `db:"status" json:"status"`
	ResolutionType  *string          `db:"resolution_type" json:"resolutionType,omitempty"`
	FinancialImpact *FinancialImpact `db:"financial_impact" json:"financialImpact,omitempty"`
	ResolvedAt      *time.Time       `db:"resolved_at" json:"resolvedAt,omitempty"`
}

// Validate checks the NCR invariants.
func (n *NCR) Validate(ctx context.Context) error {
	if n.Type != TypePriceVariance && n.Type != TypeManual {
		return apperror.NewFieldValidation("type", "must be PRICE_VARIANCE or MANUAL")
	}
	if id.IsNil(n.LocationID) {
		return apperror.NewFieldValidation("locationId", "is required")
	}
	if strings.TrimSpace(n.Reason) == "" {
		return apperror.NewFieldValidation("reason", "is required")
	}
	if err := types.RequireNonNegative("value", n.Value); err != nil {
		return err
	}
	if !n.Status.IsValid() {
		return apperror.NewFieldValidation("status", "is not a known NCR status")
	}
	if n.Type == TypePriceVariance && n.DeliveryID == nil {
		return apperror.NewFieldValidation("deliveryId", "is required for price variance NCRs")
	}

	resolved := n.Status == StatusResolved
	hasResolution := n.ResolutionType != nil || n.FinancialImpact != nil
	if resolved && (n.ResolutionType == nil || n.FinancialImpact == nil) {
		return apperror.NewValidation("resolved NCR requires resolutionType and financialImpact")
	}
	if !resolved && hasResolution {
		return apperror.NewValidation("resolutionType and financialImpact are only allowed on RESOLVED NCRs")
	}
	return nil
}

// Impact returns the financial impact, or "" when unresolved.
func (n *NCR) Impact() FinancialImpact {
	if n.FinancialImpact == nil {
		return ""
	}
	return *n.FinancialImpact
}
