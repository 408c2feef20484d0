// Package document_repo provides PostgreSQL implementations for document repositories.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/infrastructure/storage/postgres"
)

// builder is the squirrel builder with PostgreSQL placeholders.
var builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// BaseDocumentRepo provides header operations shared by document tables.
type BaseDocumentRepo[T any] struct {
	txManager  *postgres.TxManager
	entityName string
	tableName  string
	selectCols []string
	newFn      func() T
}

// NewBaseDocumentRepo creates a new base document repository.
func NewBaseDocumentRepo[T any](
	txManager *postgres.TxManager,
	entityName, tableName string,
	selectCols []string,
	newFn func() T,
) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{
		txManager:  txManager,
		entityName: entityName,
		tableName:  tableName,
		selectCols: selectCols,
		newFn:      newFn,
	}
}

func (r *BaseDocumentRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// Create inserts a document header.
func (r *BaseDocumentRepo[T]) Create(ctx context.Context, entity T) error {
	sql, args, err := r.insertQuery(entity).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert %s: %w", r.tableName, err))
	}
	return nil
}

func (r *BaseDocumentRepo[T]) insertQuery(entity T) squirrel.InsertBuilder {
	data := postgres.StructToMap(entity)
	filtered := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}
	return builder.Insert(r.tableName).SetMap(filtered)
}

// Update writes a header whose version was already bumped by Touch.
// The row must still carry the previous version.
func (r *BaseDocumentRepo[T]) Update(ctx context.Context, entity T) error {
	q, entityID, err := r.updateQuery(entity)
	if err != nil {
		return err
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(fmt.Errorf("update %s: %w", r.tableName, err))
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConflictWith(r.entityName+" was modified concurrently", r.entityName, entityID)
	}
	return nil
}

func (r *BaseDocumentRepo[T]) updateQuery(entity T) (squirrel.UpdateBuilder, any, error) {
	data := postgres.StructToMap(entity)
	entityID, ok := data["id"]
	if !ok {
		return squirrel.UpdateBuilder{}, nil, fmt.Errorf("%s has no id column", r.tableName)
	}
	version, ok := data["version"].(int)
	if !ok {
		return squirrel.UpdateBuilder{}, nil, fmt.Errorf("%s has no int version column", r.tableName)
	}

	filtered := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		switch col {
		case "id", "created_at", "created_by":
			continue
		}
		if val, ok := data[col]; ok {
			filtered[col] = val
		}
	}

	q := builder.Update(r.tableName).
		SetMap(filtered).
		Where(squirrel.Eq{"id": entityID, "version": version - 1})
	return q, entityID, nil
}

func (r *BaseDocumentRepo[T]) get(ctx context.Context, where squirrel.Eq, suffix string, key any) (T, error) {
	entity := r.newFn()
	q := builder.Select(r.selectCols...).From(r.tableName).Where(where)
	if suffix != "" {
		q = q.Suffix(suffix)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Get(ctx, r.querier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity, apperror.NewNotFound(r.entityName, key)
		}
		return entity, fmt.Errorf("get %s: %w", r.tableName, err)
	}
	return entity, nil
}

// GetByID retrieves a document header by ID.
func (r *BaseDocumentRepo[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	return r.get(ctx, squirrel.Eq{"id": entityID}, "", entityID.String())
}

// GetByNumber retrieves a document header by number.
func (r *BaseDocumentRepo[T]) GetByNumber(ctx context.Context, number string) (T, error) {
	return r.get(ctx, squirrel.Eq{"number": number}, "", number)
}

// GetForUpdate retrieves a document header with a row lock.
func (r *BaseDocumentRepo[T]) GetForUpdate(ctx context.Context, entityID id.ID) (T, error) {
	return r.get(ctx, squirrel.Eq{"id": entityID}, "FOR UPDATE", entityID.String())
}

// lineTable reads and replaces the lines of a document.
type lineTable[L any] struct {
	name    string
	columns []string
}

func newLineTable[L any](name string) lineTable[L] {
	return lineTable[L]{name: name, columns: postgres.ExtractDBColumns[L]()}
}

func (t lineTable[L]) selectQuery(docID id.ID) squirrel.SelectBuilder {
	return builder.Select(t.columns...).
		From(t.name).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no")
}

func (t lineTable[L]) get(ctx context.Context, q postgres.Querier, docID id.ID) ([]L, error) {
	sql, args, err := t.selectQuery(docID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var lines []L
	if err := pgxscan.Select(ctx, q, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get %s: %w", t.name, err)
	}
	return lines, nil
}

func (t lineTable[L]) insertQuery(docID id.ID, lines []L) squirrel.InsertBuilder {
	q := builder.Insert(t.name).Columns(append([]string{"document_id"}, t.columns...)...)
	for _, row := range postgres.RowsOf(lines, t.columns) {
		q = q.Values(append([]any{docID}, row...)...)
	}
	return q
}

// save replaces every line of the document.
func (t lineTable[L]) save(ctx context.Context, q postgres.Querier, docID id.ID, lines []L) error {
	if _, err := q.Exec(ctx, "DELETE FROM "+t.name+" WHERE document_id = $1", docID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}
	if len(lines) == 0 {
		return nil
	}
	sql, args, err := t.insertQuery(docID, lines).ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert %s: %w", t.name, err))
	}
	return nil
}
