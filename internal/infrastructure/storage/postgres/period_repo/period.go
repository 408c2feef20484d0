// Package period_repo provides PostgreSQL repositories for periods, prices and approvals.
package period_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/period"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	periodsTable         = "periods"
	periodLocationsTable = "period_locations"
	pricesTable          = "period_item_prices"
	approvalsTable       = "approvals"
)

var (
	periodColumns   = postgres.ExtractDBColumns[period.Period]()
	locationColumns = postgres.ExtractDBColumns[period.Location]()
	priceColumns    = postgres.ExtractDBColumns[period.ItemPrice]()
	approvalColumns = postgres.ExtractDBColumns[period.Approval]()
)

// PeriodRepo implements period.Repository, period.PriceRepository and
// period.ApprovalRepository over one connection pool.
type PeriodRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var (
	_ period.Repository         = (*PeriodRepo)(nil)
	_ period.PriceRepository    = (*PeriodRepo)(nil)
	_ period.ApprovalRepository = (*PeriodRepo)(nil)
)

// NewPeriodRepo creates a new period repository.
func NewPeriodRepo(txManager *postgres.TxManager) *PeriodRepo {
	return &PeriodRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *PeriodRepo) exec(ctx context.Context, q squirrel.Sqlizer, op string) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s: %w", op, err)
	}
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, postgres.MapError(fmt.Errorf("%s: %w", op, err))
	}
	return tag.RowsAffected(), nil
}

// getOne scans one row into dst. It reports false when there is no row.
func (r *PeriodRepo) getOne(ctx context.Context, dst any, q squirrel.SelectBuilder) (bool, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), dst, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// --- Periods ---

func (r *PeriodRepo) Create(ctx context.Context, p *period.Period) error {
	_, err := r.exec(ctx, r.builder.Insert(periodsTable).SetMap(postgres.StructToMap(p)), "insert period")
	return err
}

func (r *PeriodRepo) periodQuery() squirrel.SelectBuilder {
	return r.builder.Select(periodColumns...).From(periodsTable)
}

func (r *PeriodRepo) getPeriod(ctx context.Context, periodID id.ID, suffix string) (*period.Period, error) {
	q := r.periodQuery().Where(squirrel.Eq{"id": periodID})
	if suffix != "" {
		q = q.Suffix(suffix)
	}
	var p period.Period
	found, err := r.getOne(ctx, &p, q)
	if err != nil {
		return nil, fmt.Errorf("get period: %w", err)
	}
	if !found {
		return nil, apperror.NewNotFound("Period", periodID.String())
	}
	return &p, nil
}

func (r *PeriodRepo) GetByID(ctx context.Context, periodID id.ID) (*period.Period, error) {
	return r.getPeriod(ctx, periodID, "")
}

func (r *PeriodRepo) GetForUpdate(ctx context.Context, periodID id.ID) (*period.Period, error) {
	return r.getPeriod(ctx, periodID, "FOR UPDATE")
}

func (r *PeriodRepo) updateQuery(p *period.Period) squirrel.UpdateBuilder {
	return r.builder.Update(periodsTable).
		Set("name", p.Name).
		Set("start_date", p.StartDate).
		Set("end_date", p.EndDate).
		Set("status", p.Status).
		Set("opened_at", p.OpenedAt).
		Set("closed_at", p.ClosedAt).
		Set("version", p.Version).
		Set("updated_at", p.UpdatedAt).
		Where(squirrel.Eq{"id": p.ID, "version": p.Version - 1})
}

// Update saves a period whose version was bumped by Touch.
func (r *PeriodRepo) Update(ctx context.Context, p *period.Period) error {
	n, err := r.exec(ctx, r.updateQuery(p), "update period")
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NewConflictWith("Period was modified concurrently", "Period", p.ID.String())
	}
	return nil
}

func (r *PeriodRepo) FindOpen(ctx context.Context) (*period.Period, error) {
	var p period.Period
	found, err := r.getOne(ctx, &p, r.periodQuery().Where(squirrel.Eq{"status": period.StatusOpen}).Limit(1))
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

func (r *PeriodRepo) overlapQuery(start, end time.Time) squirrel.SelectBuilder {
	return r.periodQuery().
		Where("daterange(start_date, end_date, '[]') && daterange(?::date, ?::date, '[]')",
			period.Day(start), period.Day(end)).
		OrderBy("start_date").
		Limit(1)
}

func (r *PeriodRepo) FindOverlapping(ctx context.Context, start, end time.Time) (*period.Period, error) {
	var p period.Period
	found, err := r.getOne(ctx, &p, r.overlapQuery(start, end))
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

// --- Period locations ---

func (r *PeriodRepo) AddLocations(ctx context.Context, locations []period.Location) error {
	if len(locations) == 0 {
		return nil
	}
	q := r.builder.Insert(periodLocationsTable).Columns(locationColumns...)
	for _, row := range postgres.RowsOf(locations, locationColumns) {
		q = q.Values(row...)
	}
	_, err := r.exec(ctx, q, "insert period locations")
	return err
}

func (r *PeriodRepo) GetLocations(ctx context.Context, periodID id.ID) ([]period.Location, error) {
	sql, args, err := r.builder.Select(locationColumns...).
		From(periodLocationsTable).
		Where(squirrel.Eq{"period_id": periodID}).
		OrderBy("location_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var out []period.Location
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("get period locations: %w", err)
	}
	return out, nil
}

func (r *PeriodRepo) getLocation(ctx context.Context, periodID, locationID id.ID, suffix string) (*period.Location, error) {
	q := r.builder.Select(locationColumns...).
		From(periodLocationsTable).
		Where(squirrel.Eq{"period_id": periodID, "location_id": locationID})
	if suffix != "" {
		q = q.Suffix(suffix)
	}
	var l period.Location
	found, err := r.getOne(ctx, &l, q)
	if err != nil {
		return nil, fmt.Errorf("get period location: %w", err)
	}
	if !found {
		return nil, apperror.NewNotFound("PeriodLocation", locationID.String()).
			WithDetail("period_id", periodID.String())
	}
	return &l, nil
}

func (r *PeriodRepo) GetLocation(ctx context.Context, periodID, locationID id.ID) (*period.Location, error) {
	return r.getLocation(ctx, periodID, locationID, "")
}

func (r *PeriodRepo) GetLocationForUpdate(ctx context.Context, periodID, locationID id.ID) (*period.Location, error) {
	return r.getLocation(ctx, periodID, locationID, "FOR UPDATE")
}

func (r *PeriodRepo) UpdateLocation(ctx context.Context, l *period.Location) error {
	n, err := r.exec(ctx, r.builder.Update(periodLocationsTable).
		Set("status", l.Status).
		Set("opening_value", l.OpeningValue).
		Set("closing_value", l.ClosingValue).
		Set("ready_at", l.ReadyAt).
		Set("ready_by", l.ReadyBy).
		Where(squirrel.Eq{"period_id": l.PeriodID, "location_id": l.LocationID}), "update period location")
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NewNotFound("PeriodLocation", l.LocationID.String())
	}
	return nil
}

// --- Prices ---

func (r *PeriodRepo) UpsertPrice(ctx context.Context, price *period.ItemPrice) error {
	q := r.builder.Insert(pricesTable).
		Columns("period_id", "item_id", "price", "currency", "locked").
		Values(price.PeriodID, price.ItemID, price.Price, price.Currency, price.Locked).
		Suffix("ON CONFLICT (period_id, item_id) DO UPDATE SET price = EXCLUDED.price, currency = EXCLUDED.currency " +
			"WHERE " + pricesTable + ".locked = FALSE")
	n, err := r.exec(ctx, q, "upsert price")
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule, "Period prices are locked").
			WithDetail("period_id", price.PeriodID.String())
	}
	return nil
}

func (r *PeriodRepo) GetPrice(ctx context.Context, periodID, itemID id.ID) (*period.ItemPrice, error) {
	var p period.ItemPrice
	found, err := r.getOne(ctx, &p, r.builder.Select(priceColumns...).
		From(pricesTable).
		Where(squirrel.Eq{"period_id": periodID, "item_id": itemID}))
	if err != nil {
		return nil, fmt.Errorf("get price: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &p, nil
}

func (r *PeriodRepo) GetPrices(ctx context.Context, periodID id.ID) ([]period.ItemPrice, error) {
	sql, args, err := r.builder.Select(priceColumns...).
		From(pricesTable).
		Where(squirrel.Eq{"period_id": periodID}).
		OrderBy("item_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var out []period.ItemPrice
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("get prices: %w", err)
	}
	return out, nil
}

func (r *PeriodRepo) LockPrices(ctx context.Context, periodID id.ID) (int64, error) {
	return r.exec(ctx, r.builder.Update(pricesTable).
		Set("locked", true).
		Where(squirrel.Eq{"period_id": periodID, "locked": false}), "lock prices")
}

func (r *PeriodRepo) copyPricesQuery(fromPeriodID, toPeriodID id.ID) squirrel.InsertBuilder {
	return r.builder.Insert(pricesTable).
		Columns("period_id", "item_id", "price", "currency", "locked").
		Select(squirrel.Select().
			Column("?::uuid", toPeriodID).
			Columns("item_id", "price", "currency", "FALSE").
			From(pricesTable).
			Where(squirrel.Eq{"period_id": fromPeriodID})).
		Suffix("ON CONFLICT (period_id, item_id) DO NOTHING")
}

func (r *PeriodRepo) CopyPrices(ctx context.Context, fromPeriodID, toPeriodID id.ID) (int64, error) {
	return r.exec(ctx, r.copyPricesQuery(fromPeriodID, toPeriodID), "copy prices")
}

// --- Approvals ---

func (r *PeriodRepo) CreateApproval(ctx context.Context, a *period.Approval) error {
	_, err := r.exec(ctx, r.builder.Insert(approvalsTable).SetMap(postgres.StructToMap(a)), "insert approval")
	return err
}

func (r *PeriodRepo) GetApprovalForUpdate(ctx context.Context, approvalID id.ID) (*period.Approval, error) {
	var a period.Approval
	found, err := r.getOne(ctx, &a, r.builder.Select(approvalColumns...).
		From(approvalsTable).
		Where(squirrel.Eq{"id": approvalID}).
		Suffix("FOR UPDATE"))
	if err != nil {
		return nil, fmt.Errorf("get approval: %w", err)
	}
	if !found {
		return nil, apperror.NewNotFound("Approval", approvalID.String())
	}
	return &a, nil
}

func (r *PeriodRepo) FindPendingApproval(ctx context.Context, entityType string, entityID id.ID) (*period.Approval, error) {
	var a period.Approval
	found, err := r.getOne(ctx, &a, r.builder.Select(approvalColumns...).
		From(approvalsTable).
		Where(squirrel.Eq{"entity_type": entityType, "entity_id": entityID, "status": period.ApprovalPending}))
	if err != nil {
		return nil, fmt.Errorf("find pending approval: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &a, nil
}

func (r *PeriodRepo) UpdateApproval(ctx context.Context, a *period.Approval) error {
	n, err := r.exec(ctx, r.builder.Update(approvalsTable).
		Set("status", a.Status).
		Set("resolved_by", a.ResolvedBy).
		Set("resolved_at", a.ResolvedAt).
		Set("comment", a.Comment).
		Where(squirrel.Eq{"id": a.ID}), "update approval")
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NewNotFound("Approval", a.ID.String())
	}
	return nil
}
