package dto

import (
	"github.com/shopspring/decimal"

	"stockledger/internal/core/types"
	"stockledger/internal/domain/reconciliation"
)

// WACRequest previews a receipt into a ledger row.
type WACRequest struct {
	CurrentQty   *decimal.Decimal `json:"currentQty"`
	CurrentWAC   *decimal.Decimal `json:"currentWac"`
	ReceivedQty  *decimal.Decimal `json:"receivedQty" binding:"required"`
	ReceiptPrice *decimal.Decimal `json:"receiptPrice" binding:"required"`
}

// VarianceRequest previews the variance check of one delivery line.
// Without thresholds the server's configured policy applies.
type VarianceRequest struct {
	UnitPrice        *decimal.Decimal `json:"unitPrice" binding:"required"`
	PeriodPrice      *decimal.Decimal `json:"periodPrice" binding:"required"`
	Quantity         *decimal.Decimal `json:"quantity" binding:"required"`
	ThresholdPercent *decimal.Decimal `json:"thresholdPercent"`
	ThresholdAmount  *decimal.Decimal `json:"thresholdAmount"`
}

// HasThresholds reports whether the request overrides the configured policy.
func (r VarianceRequest) HasThresholds() bool {
	return r.ThresholdPercent != nil || r.ThresholdAmount != nil
}

// ConsumptionRequest previews the consumption formula.
type ConsumptionRequest struct {
	OpeningStock     *decimal.Decimal `json:"openingStock"`
	Receipts         *decimal.Decimal `json:"receipts"`
	TransfersIn      *decimal.Decimal `json:"transfersIn"`
	TransfersOut     *decimal.Decimal `json:"transfersOut"`
	Issues           *decimal.Decimal `json:"issues"`
	ClosingStock     *decimal.Decimal `json:"closingStock"`
	BackCharges      *decimal.Decimal `json:"backCharges"`
	Credits          *decimal.Decimal `json:"credits"`
	Condemnations    *decimal.Decimal `json:"condemnations"`
	OtherAdjustments *decimal.Decimal `json:"otherAdjustments"`
	NCRCredits       *decimal.Decimal `json:"ncrCredits"`
	NCRLosses        *decimal.Decimal `json:"ncrLosses"`
	TotalMandays     *decimal.Decimal `json:"totalMandays"`
}

// Split separates movements from adjustments; missing amounts are zero.
func (r ConsumptionRequest) Split() (reconciliation.Movements, reconciliation.Adjustments) {
	return reconciliation.Movements{
			OpeningStock: OrZero(r.OpeningStock),
			Receipts:     OrZero(r.Receipts),
			TransfersIn:  OrZero(r.TransfersIn),
			TransfersOut: OrZero(r.TransfersOut),
			Issues:       OrZero(r.Issues),
			ClosingStock: OrZero(r.ClosingStock),
		}, reconciliation.Adjustments{
			BackCharges:      OrZero(r.BackCharges),
			Credits:          OrZero(r.Credits),
			Condemnations:    OrZero(r.Condemnations),
			OtherAdjustments: OrZero(r.OtherAdjustments),
			NCRCredits:       OrZero(r.NCRCredits),
			NCRLosses:        OrZero(r.NCRLosses),
		}
}

// ConsumptionResponse is the consumption breakdown with the optional manday cost.
type ConsumptionResponse struct {
	reconciliation.Result
	MandayCost *types.Money `json:"mandayCost,omitempty"`
}
