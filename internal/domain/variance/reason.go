package variance

import (
	"fmt"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/types"
)

// LineContext names what was delivered so the NCR reason reads without lookups.
type LineContext struct {
	ItemCode      string
	ItemName      string
	UnitOfMeasure string
	Quantity      types.Quantity
	PeriodPrice   decimal.Decimal
	UnitPrice     decimal.Decimal
}

// Reason renders the human-readable NCR reason for an auto-generated price variance.
func Reason(line LineContext, res Result) string {
	direction := "above"
	if res.Variance.IsNegative() {
		direction = "below"
	}
	return fmt.Sprintf(
		"Price variance on %s (%s): %s %s delivered at %s per unit, %s the period price of %s by %s (%s%%), total %s",
		line.ItemName, line.ItemCode,
		line.Quantity.String(), line.UnitOfMeasure,
		line.UnitPrice.StringFixed(types.CostPlaces),
		direction,
		line.PeriodPrice.StringFixed(types.CostPlaces),
		res.Variance.Abs().StringFixed(types.CostPlaces),
		res.VariancePercent.StringFixed(types.PercentPlaces),
		res.VarianceAmount.StringFixed(types.MoneyPlaces),
	)
}
