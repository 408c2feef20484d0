package dto

import (
	"github.com/shopspring/decimal"

	"stockledger/internal/domain/ncr"
)

// CreateNCRRequest raises a MANUAL NCR.
type CreateNCRRequest struct {
	LocationID     string           `json:"locationId" binding:"required"`
	Value          *decimal.Decimal `json:"value" binding:"required"`
	Reason         string           `json:"reason" binding:"required"`
	DeliveryID     string           `json:"deliveryId"`
	DeliveryLineID string           `json:"deliveryLineId"`
	ItemID         string           `json:"itemId"`
}

// ToInput converts the request to the service input.
func (r CreateNCRRequest) ToInput() (ncr.ManualInput, error) {
	var in ncr.ManualInput
	var err error
	if in.LocationID, err = ParseID("locationId", r.LocationID); err != nil {
		return in, err
	}
	if in.Value, err = Required("value", r.Value); err != nil {
		return in, err
	}
	if in.DeliveryID, err = ParseOptionalID("deliveryId", r.DeliveryID); err != nil {
		return in, err
	}
	if in.DeliveryLineID, err = ParseOptionalID("deliveryLineId", r.DeliveryLineID); err != nil {
		return in, err
	}
	if in.ItemID, err = ParseOptionalID("itemId", r.ItemID); err != nil {
		return in, err
	}
	in.Reason = r.Reason
	return in, nil
}

// UpdateNCRStatusRequest moves an NCR to another status.
// ResolutionType and FinancialImpact are required for RESOLVED only.
type UpdateNCRStatusRequest struct {
	Status          string `json:"status" binding:"required"`
	ResolutionType  string `json:"resolutionType"`
	FinancialImpact string `json:"financialImpact"`
}

// ToChange converts the request to a status change.
func (r UpdateNCRStatusRequest) ToChange() ncr.StatusChange {
	return ncr.StatusChange{
		To:              ncr.Status(r.Status),
		ResolutionType:  r.ResolutionType,
		FinancialImpact: ncr.FinancialImpact(r.FinancialImpact),
	}
}
