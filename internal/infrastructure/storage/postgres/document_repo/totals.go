package document_repo

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/reconciliation"
	"stockledger/internal/infrastructure/storage/postgres"
)

// Only posted deliveries and issues and COMPLETED transfers carry stock value.
const periodTotalsSQL = `
SELECT
	(SELECT COALESCE(SUM(total_value), 0) FROM deliveries
		WHERE period_id = $1 AND location_id = $2 AND posted) AS receipts,
	(SELECT COALESCE(SUM(total_value), 0) FROM transfers
		WHERE period_id = $1 AND to_location_id = $2 AND status = 'COMPLETED') AS transfers_in,
	(SELECT COALESCE(SUM(total_value), 0) FROM transfers
		WHERE period_id = $1 AND location_id = $2 AND status = 'COMPLETED') AS transfers_out,
	(SELECT COALESCE(SUM(total_value), 0) FROM issues
		WHERE period_id = $1 AND location_id = $2 AND posted) AS issues`

// TotalsRepo implements reconciliation.MovementSource.
type TotalsRepo struct {
	txManager *postgres.TxManager
}

var _ reconciliation.MovementSource = (*TotalsRepo)(nil)

// NewTotalsRepo creates a new period totals reader.
func NewTotalsRepo(txManager *postgres.TxManager) *TotalsRepo {
	return &TotalsRepo{txManager: txManager}
}

// PeriodTotals sums the posted document values of a (period, location).
func (r *TotalsRepo) PeriodTotals(ctx context.Context, periodID, locationID id.ID) (reconciliation.Totals, error) {
	var t reconciliation.Totals
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &t, periodTotalsSQL, periodID, locationID); err != nil {
		return reconciliation.Totals{}, fmt.Errorf("sum period totals: %w", err)
	}
	return t, nil
}
