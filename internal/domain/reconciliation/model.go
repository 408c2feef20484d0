package reconciliation

import (
	"github.com/shopspring/decimal"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Reconciliation is the stored consumption summary of one (period, location).
// NCRCredits and NCRLosses are always recomputed from NCRs and never taken from input.
type Reconciliation struct {
	entity.BaseEntity

	PeriodID   id.ID `db:"period_id" json:"periodId"`
	LocationID id.ID `db:"location_id" json:"locationId"`

	Movements
	Adjustments

	TotalAdjustments types.Money         `db:"total_adjustments" json:"totalAdjustments"`
	Consumption      types.Money         `db:"consumption" json:"consumption"`
	TotalMandays     decimal.NullDecimal `db:"total_mandays" json:"totalMandays"`
	MandayCost       decimal.NullDecimal `db:"manday_cost" json:"mandayCost"`
}

// IssuesDifference is consumption minus the value of issues.
func (r *Reconciliation) IssuesDifference() types.Money {
	return types.RoundMoney(r.Consumption.Sub(r.Issues))
}

// ManualAdjustments are the user-entered reconciliation fields.
type ManualAdjustments struct {
	BackCharges      types.Money
	Credits          types.Money
	Condemnations    types.Money
	OtherAdjustments types.Money
	TotalMandays     *decimal.Decimal
}

func (m ManualAdjustments) validate() error {
	for _, f := range []struct {
		name  string
		value types.Money
	}{
		{"backCharges", m.BackCharges},
		{"credits", m.Credits},
		{"condemnations", m.Condemnations},
	} {
		if err := types.RequireNonNegative(f.name, f.value); err != nil {
			return err
		}
	}
	if m.TotalMandays != nil {
		return types.RequirePositive("totalMandays", *m.TotalMandays)
	}
	return nil
}

// Totals are the posted document values of a (period, location).
type Totals struct {
	Receipts     types.Money `db:"receipts"`
	TransfersIn  types.Money `db:"transfers_in"`
	TransfersOut types.Money `db:"transfers_out"`
	Issues       types.Money `db:"issues"`
}
