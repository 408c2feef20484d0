// Package register_repo provides PostgreSQL implementations for register repositories.
package register_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/registers/stock"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	stockMovementsTable = "stock_movements"
	stockBalancesTable  = "stock_balances"
)

var (
	balanceColumns  = postgres.ExtractDBColumns[stock.Balance]()
	movementColumns = postgres.ExtractDBColumns[stock.Movement]()
)

// StockRepo implements stock.Repository.
type StockRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
	now       func() time.Time
}

var _ stock.Repository = (*StockRepo)(nil)

// NewStockRepo creates a new stock ledger repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:       time.Now,
	}
}

func zeroBalance(locationID, itemID id.ID) stock.Balance {
	return stock.Balance{LocationID: locationID, ItemID: itemID, OnHand: types.Zero(), WAC: types.Zero()}
}

func (r *StockRepo) balanceQuery(locationID, itemID id.ID) squirrel.SelectBuilder {
	return r.builder.Select(balanceColumns...).
		From(stockBalancesTable).
		Where(squirrel.Eq{"location_id": locationID, "item_id": itemID})
}

// GetBalance returns the balance without locking.
func (r *StockRepo) GetBalance(ctx context.Context, locationID, itemID id.ID) (stock.Balance, error) {
	sql, args, err := r.balanceQuery(locationID, itemID).ToSql()
	if err != nil {
		return stock.Balance{}, fmt.Errorf("build query: %w", err)
	}

	var b stock.Balance
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return zeroBalance(locationID, itemID), nil
		}
		return stock.Balance{}, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// GetBalanceForUpdate creates the row if needed and locks it.
func (r *StockRepo) GetBalanceForUpdate(ctx context.Context, locationID, itemID id.ID) (stock.Balance, error) {
	if r.txManager.GetTx(ctx) == nil {
		return stock.Balance{}, fmt.Errorf("balance lock requires transaction context")
	}
	q := r.txManager.GetQuerier(ctx)

	ensure, args, err := r.builder.Insert(stockBalancesTable).
		Columns("location_id", "item_id", "on_hand", "wac", "updated_at").
		Values(locationID, itemID, types.Zero(), types.Zero(), r.now()).
		Suffix("ON CONFLICT (location_id, item_id) DO NOTHING").
		ToSql()
	if err != nil {
		return stock.Balance{}, fmt.Errorf("build insert: %w", err)
	}
	if _, err := q.Exec(ctx, ensure, args...); err != nil {
		return stock.Balance{}, postgres.MapError(fmt.Errorf("ensure balance row: %w", err))
	}

	sql, args, err := r.balanceQuery(locationID, itemID).Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return stock.Balance{}, fmt.Errorf("build query: %w", err)
	}
	var b stock.Balance
	if err := pgxscan.Get(ctx, q, &b, sql, args...); err != nil {
		return stock.Balance{}, fmt.Errorf("lock balance: %w", err)
	}
	return b, nil
}

// SaveBalance writes on_hand and wac.
func (r *StockRepo) SaveBalance(ctx context.Context, b stock.Balance) error {
	sql, args, err := r.builder.Insert(stockBalancesTable).
		Columns("location_id", "item_id", "on_hand", "wac", "updated_at").
		Values(b.LocationID, b.ItemID, b.OnHand, b.WAC, r.now()).
		Suffix(`ON CONFLICT (location_id, item_id) DO UPDATE SET
			on_hand = EXCLUDED.on_hand,
			wac = EXCLUDED.wac,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("save balance: %w", err))
	}
	return nil
}

// GetBalancesByLocation lists the balances of a location ordered by item.
func (r *StockRepo) GetBalancesByLocation(ctx context.Context, locationID id.ID, excludeZero bool) ([]stock.Balance, error) {
	q := r.builder.Select(balanceColumns...).
		From(stockBalancesTable).
		Where(squirrel.Eq{"location_id": locationID}).
		OrderBy("item_id")
	if excludeZero {
		q = q.Where(squirrel.NotEq{"on_hand": 0})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []stock.Balance
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("get balances: %w", err)
	}
	return balances, nil
}

// CreateMovements copies journal lines in bulk.
func (r *StockRepo) CreateMovements(ctx context.Context, movements []stock.Movement) error {
	if len(movements) == 0 {
		return nil
	}
	if _, err := r.txManager.CopyRows(ctx, stockMovementsTable, movementColumns,
		postgres.RowsOf(movements, movementColumns)); err != nil {
		return postgres.MapError(err)
	}
	return nil
}

// GetMovementsByRecorder returns the journal lines written by a document.
func (r *StockRepo) GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]stock.Movement, error) {
	sql, args, err := r.builder.Select(movementColumns...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"recorder_id": recorderID}).
		OrderBy("recorded_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []stock.Movement
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("get movements: %w", err)
	}
	return movements, nil
}
