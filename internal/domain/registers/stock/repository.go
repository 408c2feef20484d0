// Package stock provides the per-location stock ledger with weighted average cost.
package stock

import (
	"context"

	"stockledger/internal/core/id"
)

// Repository defines operations for the stock ledger.
type Repository interface {
	// GetBalance returns the balance, or a zero balance when the item never had stock there.
	GetBalance(ctx context.Context, locationID, itemID id.ID) (Balance, error)

	// GetBalanceForUpdate returns the balance with a row lock held until the transaction ends.
	// A missing row is created first so that first receipts serialize too.
	GetBalanceForUpdate(ctx context.Context, locationID, itemID id.ID) (Balance, error)

	// SaveBalance writes on_hand and wac.
	SaveBalance(ctx context.Context, b Balance) error

	// GetBalancesByLocation returns the balances of a location.
	GetBalancesByLocation(ctx context.Context, locationID id.ID, excludeZero bool) ([]Balance, error)

	// CreateMovements batch inserts journal lines.
	CreateMovements(ctx context.Context, movements []Movement) error

	// GetMovementsByRecorder returns the journal lines of a document.
	GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]Movement, error)
}
