package reconciliation

import (
	"context"

	"stockledger/internal/core/id"
)

// Repository persists reconciliations, one row per (period, location).
type Repository interface {
	// Upsert inserts or replaces the row of r.PeriodID and r.LocationID.
	Upsert(ctx context.Context, r *Reconciliation) error
	Get(ctx context.Context, periodID, locationID id.ID) (*Reconciliation, error)
	ListByPeriod(ctx context.Context, periodID id.ID) ([]Reconciliation, error)
}

// MovementSource sums posted stock documents.
type MovementSource interface {
	PeriodTotals(ctx context.Context, periodID, locationID id.ID) (Totals, error)
}
