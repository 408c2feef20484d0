// Package reconciliation computes period consumption per location.
package reconciliation

import (
	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/types"
)

// Movements are the stock values moved through a location during a period.
type Movements struct {
	OpeningStock types.Money `db:"opening_stock" json:"openingStock"`
	Receipts     types.Money `db:"receipts" json:"receipts"`
	TransfersIn  types.Money `db:"transfers_in" json:"transfersIn"`
	TransfersOut types.Money `db:"transfers_out" json:"transfersOut"`
	// Issues is a cross-check only; it is not a term of the consumption formula.
	Issues       types.Money `db:"issues" json:"issues"`
	ClosingStock types.Money `db:"closing_stock" json:"closingStock"`
}

func (m Movements) validate() error {
	fields := []struct {
		name  string
		value types.Money
	}{
		{"openingStock", m.OpeningStock},
		{"receipts", m.Receipts},
		{"transfersIn", m.TransfersIn},
		{"transfersOut", m.TransfersOut},
		{"issues", m.Issues},
		{"closingStock", m.ClosingStock},
	}
	for _, f := range fields {
		if err := types.RequireNonNegative(f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

// Adjustments are the manual and NCR-derived corrections.
// OtherAdjustments is signed.
type Adjustments struct {
	BackCharges      types.Money `db:"back_charges" json:"backCharges"`
	Credits          types.Money `db:"credits" json:"credits"`
	Condemnations    types.Money `db:"condemnations" json:"condemnations"`
	OtherAdjustments types.Money `db:"other_adjustments" json:"otherAdjustments"`
	NCRCredits       types.Money `db:"ncr_credits" json:"ncrCredits"`
	NCRLosses        types.Money `db:"ncr_losses" json:"ncrLosses"`
}

// Total is backCharges - credits - condemnations + other + ncrLosses - ncrCredits.
func (a Adjustments) Total() types.Money {
	return types.RoundMoney(a.BackCharges.
		Sub(a.Credits).
		Sub(a.Condemnations).
		Add(a.OtherAdjustments).
		Add(a.NCRLosses).
		Sub(a.NCRCredits))
}

// Breakdown shows every term that produced a consumption figure.
type Breakdown struct {
	Movements
	Adjustments

	// NetStockMovement is opening + receipts + transfersIn - transfersOut - closing.
	NetStockMovement types.Money `json:"netStockMovement"`
	// IssuesDifference is consumption - issues.
	IssuesDifference types.Money `json:"issuesDifference"`
}

// Result is the output of CalculateConsumption.
type Result struct {
	Consumption      types.Money `json:"consumption"`
	TotalAdjustments types.Money `json:"totalAdjustments"`
	Breakdown        Breakdown   `json:"breakdown"`
}

// CalculateConsumption applies the balance equation
//
//	consumption = opening + receipts + transfersIn - transfersOut - closing + totalAdjustments
//
// Negative consumption is valid and means stock built up.
func CalculateConsumption(m Movements, a Adjustments) (Result, error) {
	if err := m.validate(); err != nil {
		return Result{}, err
	}

	m = Movements{
		OpeningStock: types.RoundMoney(m.OpeningStock),
		Receipts:     types.RoundMoney(m.Receipts),
		TransfersIn:  types.RoundMoney(m.TransfersIn),
		TransfersOut: types.RoundMoney(m.TransfersOut),
		Issues:       types.RoundMoney(m.Issues),
		ClosingStock: types.RoundMoney(m.ClosingStock),
	}
	a = Adjustments{
		BackCharges:      types.RoundMoney(a.BackCharges),
		Credits:          types.RoundMoney(a.Credits),
		Condemnations:    types.RoundMoney(a.Condemnations),
		OtherAdjustments: types.RoundMoney(a.OtherAdjustments),
		NCRCredits:       types.RoundMoney(a.NCRCredits),
		NCRLosses:        types.RoundMoney(a.NCRLosses),
	}

	net := m.OpeningStock.
		Add(m.Receipts).
		Add(m.TransfersIn).
		Sub(m.TransfersOut).
		Sub(m.ClosingStock)
	total := a.Total()
	consumption := types.RoundMoney(net.Add(total))

	return Result{
		Consumption:      consumption,
		TotalAdjustments: total,
		Breakdown: Breakdown{
			Movements:        m,
			Adjustments:      a,
			NetStockMovement: types.RoundMoney(net),
			IssuesDifference: types.RoundMoney(consumption.Sub(m.Issues)),
		},
	}, nil
}

// CalculateMandayCost returns consumption per manday, rounded to 2 places.
func CalculateMandayCost(consumption types.Money, totalMandays decimal.Decimal) (types.Money, error) {
	if !totalMandays.IsPositive() {
		return types.Zero(), apperror.NewFieldValidation("totalMandays", "must be greater than zero").
			WithDetail("value", totalMandays.String())
	}
	return types.RoundMoney(consumption.DivRound(totalMandays, types.MoneyPlaces+4)), nil
}
