package reconciliation_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/reconciliation"
)

func TestReconciliationRepo_ColumnsFlattenEmbeddedGroups(t *testing.T) {
	assert.Contains(t, reconciliationColumns, "opening_stock")
	assert.Contains(t, reconciliationColumns, "ncr_losses")
	assert.Contains(t, reconciliationColumns, "manday_cost")
	assert.Len(t, reconciliationColumns, 23)
}

func TestReconciliationRepo_UpsertKeepsIdentity(t *testing.T) {
	suffix := upsertSuffix()

	assert.Contains(t, suffix, "ON CONFLICT (period_id, location_id) DO UPDATE SET")
	assert.Contains(t, suffix, "consumption = EXCLUDED.consumption")
	assert.Contains(t, suffix, "version = EXCLUDED.version")
	assert.NotContains(t, suffix, "id = EXCLUDED.id")
	assert.NotContains(t, suffix, "created_at = EXCLUDED.created_at")
	assert.NotContains(t, suffix, "created_by")
}

func TestReconciliationRepo_UpsertQuery(t *testing.T) {
	r := NewReconciliationRepo(nil)
	rec := &reconciliation.Reconciliation{
		BaseEntity: entity.NewBaseEntity(time.Now()),
		PeriodID:   id.New(),
		LocationID: id.New(),
	}
	rec.Consumption = types.MustParse("1250.5")

	sql, args, err := r.upsertQuery(rec).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "INSERT INTO reconciliations")
	assert.Len(t, args, len(reconciliationColumns))
	for i, c := range reconciliationColumns {
		if c == "consumption" {
			assert.Equal(t, "1250.5", args[i].(types.Money).String())
		}
	}
}
