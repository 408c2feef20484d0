// Package reconciliation_repo provides the PostgreSQL reconciliation repository.
package reconciliation_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/reconciliation"
	"stockledger/internal/infrastructure/storage/postgres"
)

const reconciliationsTable = "reconciliations"

var reconciliationColumns = postgres.ExtractDBColumns[reconciliation.Reconciliation]()

// ReconciliationRepo implements reconciliation.Repository.
type ReconciliationRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ reconciliation.Repository = (*ReconciliationRepo)(nil)

// NewReconciliationRepo creates a new reconciliation repository.
func NewReconciliationRepo(txManager *postgres.TxManager) *ReconciliationRepo {
	return &ReconciliationRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// upsertSuffix overwrites every computed column but keeps id, created_at and created_by.
func upsertSuffix() string {
	sets := make([]string, 0, len(reconciliationColumns))
	for _, c := range reconciliationColumns {
		switch c {
		case "id", "created_at", "created_by", "period_id", "location_id":
			continue
		}
		sets = append(sets, c+" = EXCLUDED."+c)
	}
	return "ON CONFLICT (period_id, location_id) DO UPDATE SET " + strings.Join(sets, ", ")
}

func (r *ReconciliationRepo) upsertQuery(rec *reconciliation.Reconciliation) squirrel.InsertBuilder {
	data := postgres.StructToMap(rec)
	values := make([]any, len(reconciliationColumns))
	for i, c := range reconciliationColumns {
		values[i] = data[c]
	}
	return r.builder.Insert(reconciliationsTable).
		Columns(reconciliationColumns...).
		Values(values...).
		Suffix(upsertSuffix())
}

// Upsert inserts or replaces the row of (period, location).
func (r *ReconciliationRepo) Upsert(ctx context.Context, rec *reconciliation.Reconciliation) error {
	sql, args, err := r.upsertQuery(rec).ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("upsert reconciliation: %w", err))
	}
	return nil
}

func (r *ReconciliationRepo) Get(ctx context.Context, periodID, locationID id.ID) (*reconciliation.Reconciliation, error) {
	sql, args, err := r.builder.Select(reconciliationColumns...).
		From(reconciliationsTable).
		Where(squirrel.Eq{"period_id": periodID, "location_id": locationID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rec reconciliation.Reconciliation
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("Reconciliation", locationID.String()).
				WithDetail("period_id", periodID.String())
		}
		return nil, fmt.Errorf("get reconciliation: %w", err)
	}
	return &rec, nil
}

func (r *ReconciliationRepo) ListByPeriod(ctx context.Context, periodID id.ID) ([]reconciliation.Reconciliation, error) {
	sql, args, err := r.builder.Select(reconciliationColumns...).
		From(reconciliationsTable).
		Where(squirrel.Eq{"period_id": periodID}).
		OrderBy("location_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []reconciliation.Reconciliation
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list reconciliations: %w", err)
	}
	return out, nil
}
