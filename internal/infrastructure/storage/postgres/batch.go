package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CopyRows bulk inserts rows with the COPY protocol inside the current transaction.
// Each row holds the values of columns in order.
func (m *TxManager) CopyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	t := m.GetTx(ctx)
	if t == nil {
		return 0, fmt.Errorf("copy into %s requires transaction context", table)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := t.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}
	return n, nil
}

// RowsOf projects each item through StructToMap and orders the values by columns.
func RowsOf[T any](items []T, columns []string) [][]any {
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		m := StructToMap(it)
		row := make([]any, len(columns))
		for i, c := range columns {
			row[i] = m[c]
		}
		rows = append(rows, row)
	}
	return rows
}
