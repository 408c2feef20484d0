// Package costing implements weighted average cost (WAC) valuation of received stock.
package costing

import (
	"github.com/shopspring/decimal"

	"stockledger/internal/core/types"
)

// Receipt is the outcome of receiving stock into a ledger row.
type Receipt struct {
	NewWAC       decimal.Decimal `json:"newWac"`      // 4 dp
	NewQuantity  types.Quantity  `json:"newQuantity"` // exact
	NewValue     types.Money     `json:"newValue"`    // 2 dp
	CurrentValue types.Money     `json:"currentValue"`
	ReceiptValue types.Money     `json:"receiptValue"`
}

// CalculateWAC recomputes the weighted average cost after receiving receivedQty
// units at receiptPrice into a row holding currentQty units at currentWAC.
//
//	newValue    = currentQty*currentWAC + receivedQty*receiptPrice
//	newQuantity = currentQty + receivedQty
//	newWAC      = newValue / newQuantity
//
// On the first receipt (currentQty = 0) the new WAC is the receipt price.
// The function is pure; callers persist the result against the locked ledger row.
func CalculateWAC(currentQty types.Quantity, currentWAC decimal.Decimal, receivedQty types.Quantity, receiptPrice decimal.Decimal) (Receipt, error) {
	if err := types.RequireNonNegative("currentQty", currentQty); err != nil {
		return Receipt{}, err
	}
	if err := types.RequireNonNegative("currentWac", currentWAC); err != nil {
		return Receipt{}, err
	}
	if err := types.RequirePositive("receivedQty", receivedQty); err != nil {
		return Receipt{}, err
	}
	if err := types.RequireNonNegative("receiptPrice", receiptPrice); err != nil {
		return Receipt{}, err
	}

	currentValue := currentQty.Mul(currentWAC)
	receiptValue := receivedQty.Mul(receiptPrice)
	newValue := currentValue.Add(receiptValue)
	newQty := currentQty.Add(receivedQty)

	var newWAC decimal.Decimal
	if currentQty.IsZero() {
		newWAC = receiptPrice
	} else {
		newWAC = newValue.Div(newQty)
	}

	return Receipt{
		NewWAC:       types.RoundCost(newWAC),
		NewQuantity:  newQty,
		NewValue:     types.RoundMoney(newValue),
		CurrentValue: types.RoundMoney(currentValue),
		ReceiptValue: types.RoundMoney(receiptValue),
	}, nil
}

// LineValue is the money value of qty units at unitCost, rounded to 2 dp.
// Issues and transfers use it with the WAC snapshot taken at posting time.
func LineValue(qty types.Quantity, unitCost decimal.Decimal) types.Money {
	return types.RoundMoney(qty.Mul(unitCost))
}
