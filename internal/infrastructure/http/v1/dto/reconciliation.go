package dto

import (
	"github.com/shopspring/decimal"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ncr"
	"stockledger/internal/domain/reconciliation"
)

// CalculateReconciliationRequest carries the manual reconciliation fields.
// Every amount is optional and defaults to zero.
type CalculateReconciliationRequest struct {
	BackCharges      *decimal.Decimal `json:"backCharges"`
	Credits          *decimal.Decimal `json:"credits"`
	Condemnations    *decimal.Decimal `json:"condemnations"`
	OtherAdjustments *decimal.Decimal `json:"otherAdjustments"`
	TotalMandays     *decimal.Decimal `json:"totalMandays"`
}

// ToInput converts the request to the service input.
func (r CalculateReconciliationRequest) ToInput(periodID, locationID id.ID) reconciliation.CalculateInput {
	return reconciliation.CalculateInput{
		PeriodID:   periodID,
		LocationID: locationID,
		Manual: reconciliation.ManualAdjustments{
			BackCharges:      OrZero(r.BackCharges),
			Credits:          OrZero(r.Credits),
			Condemnations:    OrZero(r.Condemnations),
			OtherAdjustments: OrZero(r.OtherAdjustments),
			TotalMandays:     r.TotalMandays,
		},
	}
}

// ReconciliationResponse is a stored reconciliation with its derived figures.
type ReconciliationResponse struct {
	*reconciliation.Reconciliation
	IssuesDifference types.Money  `json:"issuesDifference"`
	NetStockMovement *types.Money `json:"netStockMovement,omitempty"`
	NCRs             *ncr.Summary `json:"ncrs,omitempty"`
}

// FromReconciliation renders a stored record.
func FromReconciliation(r *reconciliation.Reconciliation) ReconciliationResponse {
	return ReconciliationResponse{Reconciliation: r, IssuesDifference: r.IssuesDifference()}
}

// FromOutcome renders a freshly calculated record.
func FromOutcome(o *reconciliation.Outcome) ReconciliationResponse {
	resp := FromReconciliation(o.Reconciliation)
	net := o.Result.Breakdown.NetStockMovement
	resp.NetStockMovement = &net
	resp.NCRs = &o.NCRs
	return resp
}
