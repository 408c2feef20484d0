package transfer

import (
	"context"

	"stockledger/internal/core/id"
)

// Repository defines operations for transfer documents.
type Repository interface {
	Create(ctx context.Context, doc *Transfer) error
	GetByID(ctx context.Context, docID id.ID) (*Transfer, error)
	// GetForUpdate locks the header row for the approval decision.
	GetForUpdate(ctx context.Context, docID id.ID) (*Transfer, error)
	Update(ctx context.Context, doc *Transfer) error

	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error
}
