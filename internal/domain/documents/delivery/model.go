// Package delivery provides the Delivery document: stock received from a supplier.
package delivery

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/costing"
)

// Delivery records goods received into a location.
type Delivery struct {
	entity.Document

	// Supplier's document reference
	SupplierName      string `db:"supplier_name" json:"supplierName,omitempty"`
	SupplierDocNumber string `db:"supplier_doc_number" json:"supplierDocNumber,omitempty"`

	// TotalValue is Σ line value at the actual unit prices.
	TotalValue types.Money `db:"total_value" json:"totalValue"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one received item.
// UnitPrice and PeriodPrice are both retained for audit and later variance recomputation.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ItemID    id.ID          `db:"item_id" json:"itemId"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice types.Money    `db:"unit_price" json:"unitPrice"`

	// PeriodPrice is the locked price at posting time; null when the period had none.
	PeriodPrice decimal.NullDecimal `db:"period_price" json:"periodPrice"`

	Value    types.Money `db:"value" json:"value"`
	WACAfter types.Money `db:"wac_after" json:"wacAfter"`
}

// NewDelivery creates an unposted delivery.
func NewDelivery(now time.Time, periodID, locationID id.ID) *Delivery {
	return &Delivery{
		Document: entity.NewDocument(now, periodID, locationID),
		Lines:    make([]Line, 0),
	}
}

// AddLine appends a line and recalculates the total.
func (d *Delivery) AddLine(itemID id.ID, quantity types.Quantity, unitPrice types.Money) {
	d.Lines = append(d.Lines, Line{
		LineID:    id.New(),
		ItemID:    itemID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	})
	d.recalculateTotals()
}

// recalculateTotals numbers the lines and refreshes line values and the total.
func (d *Delivery) recalculateTotals() {
	total := types.Zero()
	for i := range d.Lines {
		l := &d.Lines[i]
		if id.IsNil(l.LineID) {
			l.LineID = id.New()
		}
		l.LineNo = i + 1
		l.Value = costing.LineValue(l.Quantity, l.UnitPrice)
		total = total.Add(l.Value)
	}
	d.TotalValue = types.RoundMoney(total)
}

// Validate implements entity.Validatable.
func (d *Delivery) Validate(ctx context.Context) error {
	if err := d.Document.Validate(ctx); err != nil {
		return err
	}

	if len(d.Lines) == 0 {
		return apperror.NewFieldValidation("lines", "must contain at least one line")
	}

	for i, line := range d.Lines {
		if id.IsNil(line.ItemID) {
			return apperror.NewFieldValidation("lines.itemId", "is required").
				WithDetail("lineNo", i+1)
		}
		if err := types.RequirePositive("lines.quantity", line.Quantity); err != nil {
			return err.(*apperror.AppError).WithDetail("lineNo", i+1)
		}
		if err := types.RequireNonNegative("lines.unitPrice", line.UnitPrice); err != nil {
			return err.(*apperror.AppError).WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// ItemIDs returns the distinct items of the delivery in line order.
func (d *Delivery) ItemIDs() []id.ID {
	seen := make(map[id.ID]bool, len(d.Lines))
	out := make([]id.ID, 0, len(d.Lines))
	for _, l := range d.Lines {
		if !seen[l.ItemID] {
			seen[l.ItemID] = true
			out = append(out, l.ItemID)
		}
	}
	return out
}
