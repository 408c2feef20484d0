// Package ncr_repo provides the PostgreSQL NCR repository.
package ncr_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/ncr"
	"stockledger/internal/infrastructure/storage/postgres"
)

const ncrTable = "ncrs"

var ncrColumns = postgres.ExtractDBColumns[ncr.NCR]()

// NCRRepo implements ncr.Repository.
type NCRRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ ncr.Repository = (*NCRRepo)(nil)

// NewNCRRepo creates a new NCR repository.
func NewNCRRepo(txManager *postgres.TxManager) *NCRRepo {
	return &NCRRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *NCRRepo) Create(ctx context.Context, n *ncr.NCR) error {
	sql, args, err := r.builder.Insert(ncrTable).SetMap(postgres.StructToMap(n)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert ncr: %w", err))
	}
	return nil
}

func (r *NCRRepo) get(ctx context.Context, ncrID id.ID, suffix string) (*ncr.NCR, error) {
	q := r.builder.Select(ncrColumns...).From(ncrTable).Where(squirrel.Eq{"id": ncrID})
	if suffix != "" {
		q = q.Suffix(suffix)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var n ncr.NCR
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &n, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("NCR", ncrID.String())
		}
		return nil, fmt.Errorf("get ncr: %w", err)
	}
	return &n, nil
}

func (r *NCRRepo) GetByID(ctx context.Context, ncrID id.ID) (*ncr.NCR, error) {
	return r.get(ctx, ncrID, "")
}

func (r *NCRRepo) GetForUpdate(ctx context.Context, ncrID id.ID) (*ncr.NCR, error) {
	return r.get(ctx, ncrID, "FOR UPDATE")
}

// Update writes the status fields guarded by the previous version.
func (r *NCRRepo) Update(ctx context.Context, n *ncr.NCR) error {
	sql, args, err := r.updateQuery(n).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(fmt.Errorf("update ncr: %w", err))
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConflictWith("NCR was modified concurrently", "NCR", n.ID.String())
	}
	return nil
}

func (r *NCRRepo) updateQuery(n *ncr.NCR) squirrel.UpdateBuilder {
	return r.builder.Update(ncrTable).
		Set("status", n.Status).
		Set("resolution_type", n.ResolutionType).
		Set("financial_impact", n.FinancialImpact).
		Set("resolved_at", n.ResolvedAt).
		Set("version", n.Version).
		Set("updated_at", n.UpdatedAt).
		Where(squirrel.Eq{"id": n.ID, "version": n.Version - 1})
}

type linkedRow struct {
	ncr.NCR
	DeliveryPeriodID *id.ID `db:"delivery_period_id"`
}

func (r *NCRRepo) linkedQuery(periodID id.ID, locationID *id.ID) squirrel.SelectBuilder {
	cols := make([]string, 0, len(ncrColumns)+1)
	for _, c := range ncrColumns {
		cols = append(cols, "n."+c)
	}
	cols = append(cols, "d.period_id AS delivery_period_id")

	q := r.builder.Select(cols...).
		From(ncrTable+" n").
		LeftJoin("deliveries d ON d.id = n.delivery_id").
		Where("(d.period_id = ? OR (n.delivery_id IS NULL AND "+
			"n.created_at < ((SELECT end_date + 1 FROM periods WHERE id = ?)::timestamp AT TIME ZONE 'UTC')))",
			periodID, periodID).
		OrderBy("n.created_at", "n.id")
	if locationID != nil {
		q = q.Where(squirrel.Eq{"n.location_id": *locationID})
	}
	return q
}

// ListLinked returns the NCRs of the period's deliveries plus the unlinked NCRs
// created up to the end of the period (UTC), with the period of their delivery.
func (r *NCRRepo) ListLinked(ctx context.Context, periodID id.ID, locationID *id.ID) ([]ncr.Linked, error) {
	sql, args, err := r.linkedQuery(periodID, locationID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []linkedRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list ncrs: %w", err)
	}
	out := make([]ncr.Linked, len(rows))
	for i, row := range rows {
		out[i] = ncr.Linked{NCR: row.NCR, DeliveryPeriodID: row.DeliveryPeriodID}
	}
	return out, nil
}

// Windows returns the date ranges of every period.
func (r *NCRRepo) Windows(ctx context.Context) ([]ncr.Window, error) {
	sql, args, err := r.builder.Select("id AS period_id", "start_date", "end_date").
		From("periods").
		OrderBy("start_date").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var windows []ncr.Window
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &windows, sql, args...); err != nil {
		return nil, fmt.Errorf("list period windows: %w", err)
	}
	return windows, nil
}
