// Package catalog_repo provides the PostgreSQL catalog repository.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/catalog"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	itemsTable     = "catalog_items"
	locationsTable = "catalog_locations"
)

var (
	itemColumns     = postgres.ExtractDBColumns[catalog.Item]()
	locationColumns = postgres.ExtractDBColumns[catalog.Location]()
)

// CatalogRepo implements catalog.Repository.
type CatalogRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ catalog.Repository = (*CatalogRepo)(nil)

// NewCatalogRepo creates a new catalog repository.
func NewCatalogRepo(txManager *postgres.TxManager) *CatalogRepo {
	return &CatalogRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// selectByIDs lists rows of table whose id is in ids. An empty ids list matches nothing.
func (r *CatalogRepo) selectByIDs(table string, columns []string, ids []id.ID) squirrel.SelectBuilder {
	return r.builder.Select(columns...).
		From(table).
		Where(squirrel.Eq{"id": ids}).
		OrderBy("code")
}

func (r *CatalogRepo) GetItem(ctx context.Context, itemID id.ID) (*catalog.Item, error) {
	items, err := r.GetItems(ctx, []id.ID{itemID})
	if err != nil {
		return nil, err
	}
	return items[itemID], nil
}

// GetItems resolves every id or fails with NotFound naming the first missing one.
func (r *CatalogRepo) GetItems(ctx context.Context, itemIDs []id.ID) (map[id.ID]*catalog.Item, error) {
	sql, args, err := r.selectByIDs(itemsTable, itemColumns, itemIDs).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []*catalog.Item
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}

	out := make(map[id.ID]*catalog.Item, len(rows))
	for _, it := range rows {
		out[it.ID] = it
	}
	for _, itemID := range itemIDs {
		if _, ok := out[itemID]; !ok {
			return nil, apperror.NewNotFound("Item", itemID)
		}
	}
	return out, nil
}

func (r *CatalogRepo) GetLocation(ctx context.Context, locationID id.ID) (*catalog.Location, error) {
	locations, err := r.GetLocations(ctx, []id.ID{locationID})
	if err != nil {
		return nil, err
	}
	return locations[locationID], nil
}

func (r *CatalogRepo) GetLocations(ctx context.Context, locationIDs []id.ID) (map[id.ID]*catalog.Location, error) {
	sql, args, err := r.selectByIDs(locationsTable, locationColumns, locationIDs).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []*catalog.Location
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("get locations: %w", err)
	}

	out := make(map[id.ID]*catalog.Location, len(rows))
	for _, loc := range rows {
		out[loc.ID] = loc
	}
	for _, locationID := range locationIDs {
		if _, ok := out[locationID]; !ok {
			return nil, apperror.NewNotFound("Location", locationID)
		}
	}
	return out, nil
}

// ListItems returns every item ordered by code.
func (r *CatalogRepo) ListItems(ctx context.Context, activeOnly bool) ([]catalog.Item, error) {
	q := r.builder.Select(itemColumns...).From(itemsTable).OrderBy("code")
	if activeOnly {
		q = q.Where(squirrel.Eq{"active": true})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var items []catalog.Item
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// ListLocations returns every location ordered by code.
func (r *CatalogRepo) ListLocations(ctx context.Context) ([]catalog.Location, error) {
	sql, args, err := r.builder.Select(locationColumns...).From(locationsTable).OrderBy("code").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var locations []catalog.Location
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &locations, sql, args...); err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return locations, nil
}

// UpsertItem inserts the item or refreshes the row with the same code.
// It returns the id stored for that code.
func (r *CatalogRepo) UpsertItem(ctx context.Context, it *catalog.Item) (id.ID, error) {
	return r.upsert(ctx, r.upsertItemQuery(it), "item")
}

func (r *CatalogRepo) upsertItemQuery(it *catalog.Item) squirrel.InsertBuilder {
	return r.builder.Insert(itemsTable).
		SetMap(postgres.StructToMap(it)).
		Suffix("ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, " +
			"unit_of_measure = EXCLUDED.unit_of_measure, category = EXCLUDED.category, " +
			"active = EXCLUDED.active RETURNING id")
}

// UpsertLocation inserts the location or refreshes the row with the same code.
func (r *CatalogRepo) UpsertLocation(ctx context.Context, loc *catalog.Location) (id.ID, error) {
	q := r.builder.Insert(locationsTable).
		SetMap(postgres.StructToMap(loc)).
		Suffix("ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, type = EXCLUDED.type RETURNING id")
	return r.upsert(ctx, q, "location")
}

func (r *CatalogRepo) upsert(ctx context.Context, q squirrel.InsertBuilder, what string) (id.ID, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return id.ID{}, fmt.Errorf("build upsert: %w", err)
	}
	var stored id.ID
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&stored); err != nil {
		return id.ID{}, postgres.MapError(fmt.Errorf("upsert %s: %w", what, err))
	}
	return stored, nil
}
