package entity

import (
	"context"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
)

// Document is the base type for stock movements (deliveries, issues, transfers).
// A document belongs to exactly one period and one location.
type Document struct {
	BaseEntity

	// Number is the document number (auto-generated, unique within type+year)
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// PeriodID is the accounting period the document is posted into
	PeriodID id.ID `db:"period_id" json:"periodId"`

	// LocationID is the location whose stock the document changes
	LocationID id.ID `db:"location_id" json:"locationId"`

	// Posted indicates the ledger has been updated from this document
	Posted bool `db:"posted" json:"posted"`

	// Comment is an optional user comment
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new Document with generated ID.
func NewDocument(now time.Time, periodID, locationID id.ID) Document {
	return Document{
		BaseEntity: NewBaseEntity(now),
		Date:       now.UTC(),
		PeriodID:   periodID,
		LocationID: locationID,
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if id.IsNil(d.PeriodID) {
		return apperror.NewFieldValidation("periodId", "is required")
	}
	if id.IsNil(d.LocationID) {
		return apperror.NewFieldValidation("locationId", "is required")
	}
	if d.Date.IsZero() {
		return apperror.NewFieldValidation("date", "is required")
	}
	return nil
}

// CanPost rejects documents that already moved stock.
func (d *Document) CanPost() error {
	if d.Posted {
		return apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"Document is already posted",
		).WithDetail("document_id", d.ID.String())
	}
	return nil
}

// MarkPosted sets the posted flag.
func (d *Document) MarkPosted(now time.Time) {
	d.Posted = true
	d.Touch(now)
}
