package document_repo

import (
	"context"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/documents/transfer"
	"stockledger/internal/infrastructure/storage/postgres"
)

// TransferRepo implements transfer.Repository.
type TransferRepo struct {
	*BaseDocumentRepo[*transfer.Transfer]
	lines lineTable[transfer.Line]
}

var _ transfer.Repository = (*TransferRepo)(nil)

// NewTransferRepo creates a new transfer repository.
func NewTransferRepo(txManager *postgres.TxManager) *TransferRepo {
	return &TransferRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(txManager, "Transfer", "transfers",
			postgres.ExtractDBColumns[transfer.Transfer](),
			func() *transfer.Transfer { return &transfer.Transfer{} }),
		lines: newLineTable[transfer.Line]("transfer_lines"),
	}
}

func (r *TransferRepo) GetLines(ctx context.Context, docID id.ID) ([]transfer.Line, error) {
	return r.lines.get(ctx, r.querier(ctx), docID)
}

func (r *TransferRepo) SaveLines(ctx context.Context, docID id.ID, lines []transfer.Line) error {
	return r.lines.save(ctx, r.querier(ctx), docID, lines)
}
