// Package variance detects deliveries priced away from the period's locked price.
package variance

import (
	"github.com/shopspring/decimal"

	"stockledger/internal/core/types"
)

var hundred = decimal.NewFromInt(100)

// Config holds the optional NCR trigger thresholds.
// With no threshold and no rule configured, any non-zero variance triggers an NCR.
type Config struct {
	// ThresholdPercent triggers when |variancePercent| exceeds it.
	ThresholdPercent *decimal.Decimal
	// ThresholdAmount triggers when |varianceAmount| exceeds it.
	ThresholdAmount *decimal.Decimal
	// Rule, when set, replaces the threshold comparison.
	Rule *Rule
}

// configured reports whether any policy beyond the default is set.
func (c *Config) configured() bool {
	return c != nil && (c.ThresholdPercent != nil || c.ThresholdAmount != nil || c.Rule != nil)
}

// Result describes the price deviation of one delivery line.
type Result struct {
	HasVariance      bool            `json:"hasVariance"`
	Variance         decimal.Decimal `json:"variance"`        // per unit, 4 dp
	VariancePercent  decimal.Decimal `json:"variancePercent"` // 2 dp
	VarianceAmount   types.Money     `json:"varianceAmount"`  // 2 dp
	ExceedsThreshold bool            `json:"exceedsThreshold"`
}

// Input is the raw data a check is computed from. Rules see it alongside Result.
type Input struct {
	UnitPrice   decimal.Decimal
	PeriodPrice decimal.Decimal
	Quantity    types.Quantity
}

// CheckPriceVariance compares the actual unit price of a delivery line with the
// locked period price.
//
// A zero period price has no meaningful ratio: any positive actual price is
// reported as a 100% variance and a zero actual price as 0%.
func CheckPriceVariance(unitPrice, periodPrice decimal.Decimal, quantity types.Quantity, cfg *Config) (Result, error) {
	if err := types.RequireNonNegative("unitPrice", unitPrice); err != nil {
		return Result{}, err
	}
	if err := types.RequireNonNegative("periodPrice", periodPrice); err != nil {
		return Result{}, err
	}
	if err := types.RequirePositive("quantity", quantity); err != nil {
		return Result{}, err
	}

	raw := unitPrice.Sub(periodPrice)

	var percent decimal.Decimal
	switch {
	case !periodPrice.IsZero():
		percent = raw.Div(periodPrice).Mul(hundred)
	case unitPrice.IsPositive():
		percent = hundred
	default:
		percent = decimal.Zero
	}

	res := Result{
		HasVariance:     !raw.IsZero(),
		Variance:        types.RoundCost(raw),
		VariancePercent: types.RoundPercent(percent),
		VarianceAmount:  types.RoundMoney(raw.Mul(quantity)),
	}

	if !res.HasVariance {
		return res, nil
	}

	exceeds, err := exceeds(res, Input{UnitPrice: unitPrice, PeriodPrice: periodPrice, Quantity: quantity}, cfg)
	if err != nil {
		return Result{}, err
	}
	res.ExceedsThreshold = exceeds
	return res, nil
}

func exceeds(res Result, in Input, cfg *Config) (bool, error) {
	if !cfg.configured() {
		return true, nil
	}
	if cfg.Rule != nil {
		return cfg.Rule.Evaluate(res, in)
	}
	if cfg.ThresholdPercent != nil && res.VariancePercent.Abs().GreaterThan(*cfg.ThresholdPercent) {
		return true, nil
	}
	if cfg.ThresholdAmount != nil && res.VarianceAmount.Abs().GreaterThan(*cfg.ThresholdAmount) {
		return true, nil
	}
	return false, nil
}
