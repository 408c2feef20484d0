package register_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/id"
)

func TestStockRepo_Columns(t *testing.T) {
	assert.Equal(t, []string{"location_id", "item_id", "on_hand", "wac", "updated_at"}, balanceColumns)
	assert.Equal(t, []string{
		"id", "recorder_id", "recorder_type", "line_id", "location_id", "item_id", "record_type",
		"quantity", "unit_cost", "value", "on_hand_after", "wac_after", "recorded_at",
	}, movementColumns)
}

func TestStockRepo_BalanceQuery(t *testing.T) {
	r := NewStockRepo(nil)
	loc, item := id.New(), id.New()

	sql, args, err := r.balanceQuery(loc, item).Suffix("FOR UPDATE").ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT location_id, item_id, on_hand, wac, updated_at FROM stock_balances "+
			"WHERE item_id = $1 AND location_id = $2 FOR UPDATE",
		sql)
	assert.Equal(t, []any{item, loc}, args)
}
