package document_repo

import (
	"context"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/documents/delivery"
	"stockledger/internal/infrastructure/storage/postgres"
)

// DeliveryRepo implements delivery.Repository.
type DeliveryRepo struct {
	*BaseDocumentRepo[*delivery.Delivery]
	lines lineTable[delivery.Line]
}

var _ delivery.Repository = (*DeliveryRepo)(nil)

// NewDeliveryRepo creates a new delivery repository.
func NewDeliveryRepo(txManager *postgres.TxManager) *DeliveryRepo {
	return &DeliveryRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(txManager, "Delivery", "deliveries",
			postgres.ExtractDBColumns[delivery.Delivery](),
			func() *delivery.Delivery { return &delivery.Delivery{} }),
		lines: newLineTable[delivery.Line]("delivery_lines"),
	}
}

// GetLines retrieves the lines of a delivery.
func (r *DeliveryRepo) GetLines(ctx context.Context, docID id.ID) ([]delivery.Line, error) {
	return r.lines.get(ctx, r.querier(ctx), docID)
}

// SaveLines replaces the lines of a delivery.
func (r *DeliveryRepo) SaveLines(ctx context.Context, docID id.ID, lines []delivery.Line) error {
	return r.lines.save(ctx, r.querier(ctx), docID, lines)
}
