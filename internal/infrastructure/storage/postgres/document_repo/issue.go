package document_repo

import (
	"context"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/documents/issue"
	"stockledger/internal/infrastructure/storage/postgres"
)

// IssueRepo implements issue.Repository.
type IssueRepo struct {
	*BaseDocumentRepo[*issue.Issue]
	lines lineTable[issue.Line]
}

var _ issue.Repository = (*IssueRepo)(nil)

// NewIssueRepo creates a new issue repository.
func NewIssueRepo(txManager *postgres.TxManager) *IssueRepo {
	return &IssueRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(txManager, "Issue", "issues",
			postgres.ExtractDBColumns[issue.Issue](),
			func() *issue.Issue { return &issue.Issue{} }),
		lines: newLineTable[issue.Line]("issue_lines"),
	}
}

func (r *IssueRepo) GetLines(ctx context.Context, docID id.ID) ([]issue.Line, error) {
	return r.lines.get(ctx, r.querier(ctx), docID)
}

func (r *IssueRepo) SaveLines(ctx context.Context, docID id.ID, lines []issue.Line) error {
	return r.lines.save(ctx, r.querier(ctx), docID, lines)
}
