package issue

import (
	"context"

	"stockledger/internal/core/id"
)

// Repository defines operations for issue documents.
type Repository interface {
	Create(ctx context.Context, doc *Issue) error
	GetByID(ctx context.Context, docID id.ID) (*Issue, error)

	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error
}
