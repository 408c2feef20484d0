package ncr

import (
	"context"

	"stockledger/internal/core/id"
)

// Repository persists NCRs.
type Repository interface {
	Create(ctx context.Context, n *NCR) error

	// GetByID returns apperror NotFound when missing.
	GetByID(ctx context.Context, ncrID id.ID) (*NCR, error)

	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, ncrID id.ID) (*NCR, error)

	// Update saves status fields; it fails with Conflict when n.Version-1 is stale.
	Update(ctx context.Context, n *NCR) error

	// ListLinked returns the NCRs of the location (all locations when locationID is nil)
	// that may count towards the period: those linked to one of its deliveries,
	// whenever they were raised, and unlinked ones created on or before the period
	// end (UTC). Each comes with the period of its delivery.
	ListLinked(ctx context.Context, periodID id.ID, locationID *id.ID) ([]Linked, error)

	// Windows returns the date ranges of all periods.
	Windows(ctx context.Context) ([]Window, error)
}
