package delivery

import (
	"context"

	"stockledger/internal/core/id"
)

// Repository defines operations for delivery documents.
type Repository interface {
	Create(ctx context.Context, doc *Delivery) error
	GetByID(ctx context.Context, docID id.ID) (*Delivery, error)
	GetByNumber(ctx context.Context, number string) (*Delivery, error)

	// Line operations
	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error
}
