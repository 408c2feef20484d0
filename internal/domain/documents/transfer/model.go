// Package transfer provides the Transfer document: stock moved between two locations.
package transfer

import (
	"context"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/registers/stock"
)

// Status is the approval state of a transfer.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusRejected  Status = "REJECTED"
)

// Transfer moves stock from Document.LocationID to ToLocationID.
// Stock moves only on approval.
type Transfer struct {
	entity.Document

	ToLocationID id.ID  `db:"to_location_id" json:"toLocationId"`
	Status       Status `db:"status" json:"status"`

	ApprovedBy *string    `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt *time.Time `db:"approved_at" json:"approvedAt,omitempty"`

	// TotalValue is Σ line value at the source WAC. Known after approval.
	TotalValue types.Money `db:"total_value" json:"totalValue"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one transferred item. WACAtTransfer is the source WAC at approval.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ItemID        id.ID          `db:"item_id" json:"itemId"`
	Quantity      types.Quantity `db:"quantity" json:"quantity"`
	WACAtTransfer types.Money    `db:"wac_at_transfer" json:"wacAtTransfer"`
	Value         types.Money    `db:"value" json:"value"`
}

// NewTransfer creates a pending transfer.
func NewTransfer(now time.Time, periodID, fromLocationID, toLocationID id.ID) *Transfer {
	return &Transfer{
		Document:     entity.NewDocument(now, periodID, fromLocationID),
		ToLocationID: toLocationID,
		Status:       StatusPending,
		Lines:        make([]Line, 0),
	}
}

// FromLocationID is the source location.
func (t *Transfer) FromLocationID() id.ID { return t.LocationID }

// AddLine appends a line.
func (t *Transfer) AddLine(itemID id.ID, quantity types.Quantity) {
	t.Lines = append(t.Lines, Line{LineID: id.New(), ItemID: itemID, Quantity: quantity})
	t.numberLines()
}

func (t *Transfer) numberLines() {
	for i := range t.Lines {
		if id.IsNil(t.Lines[i].LineID) {
			t.Lines[i].LineID = id.New()
		}
		t.Lines[i].LineNo = i + 1
	}
}

// Validate implements entity.Validatable.
func (t *Transfer) Validate(ctx context.Context) error {
	if err := t.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(t.ToLocationID) {
		return apperror.NewFieldValidation("toLocationId", "is required")
	}
	if t.ToLocationID == t.LocationID {
		return apperror.NewFieldValidation("toLocationId", "must differ from the source location")
	}
	if len(t.Lines) == 0 {
		return apperror.NewFieldValidation("lines", "must contain at least one line")
	}
	for i, line := range t.Lines {
		if id.IsNil(line.ItemID) {
			return apperror.NewFieldValidation("lines.itemId", "is required").
				WithDetail("lineNo", i+1)
		}
		if err := types.RequirePositive("lines.quantity", line.Quantity); err != nil {
			return err.(*apperror.AppError).WithDetail("lineNo", i+1)
		}
	}
	return nil
}

// requirePending rejects decisions on a transfer that was already decided.
func (t *Transfer) requirePending(to Status) error {
	if t.Status != StatusPending {
		return apperror.NewInvalidTransition("Transfer", string(t.Status), string(to), "transfer is already decided")
	}
	return nil
}

// Requirements lists the stock the transfer takes from the source.
func (t *Transfer) Requirements() []stock.Requirement {
	reqs := make([]stock.Requirement, 0, len(t.Lines))
	for _, l := range t.Lines {
		reqs = append(reqs, stock.Requirement{ItemID: l.ItemID, Quantity: l.Quantity})
	}
	return reqs
}

// ItemIDs returns the distinct items in line order.
func (t *Transfer) ItemIDs() []id.ID {
	seen := make(map[id.ID]bool, len(t.Lines))
	out := make([]id.ID, 0, len(t.Lines))
	for _, l := range t.Lines {
		if !seen[l.ItemID] {
			seen[l.ItemID] = true
			out = append(out, l.ItemID)
		}
	}
	return out
}
