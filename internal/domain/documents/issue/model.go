// Package issue provides the Issue document: stock consumed by a location.
package issue

import (
	"context"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/registers/stock"
)

// Issue removes stock from a location at its weighted average cost.
type Issue struct {
	entity.Document

	// Purpose is a free-text destination ("lunch service", "staff canteen").
	Purpose string `db:"purpose" json:"purpose,omitempty"`

	// TotalValue is Σ line value at the WAC snapshots. Known after posting.
	TotalValue types.Money `db:"total_value" json:"totalValue"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one issued item. WACAtIssue is captured at posting and never recomputed.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ItemID     id.ID          `db:"item_id" json:"itemId"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	WACAtIssue types.Money    `db:"wac_at_issue" json:"wacAtIssue"`
	Value      types.Money    `db:"value" json:"value"`
}

// NewIssue creates an unposted issue.
func NewIssue(now time.Time, periodID, locationID id.ID) *Issue {
	return &Issue{
		Document: entity.NewDocument(now, periodID, locationID),
		Lines:    make([]Line, 0),
	}
}

// AddLine appends a line.
func (d *Issue) AddLine(itemID id.ID, quantity types.Quantity) {
	d.Lines = append(d.Lines, Line{LineID: id.New(), ItemID: itemID, Quantity: quantity})
	d.numberLines()
}

func (d *Issue) numberLines() {
	for i := range d.Lines {
		if id.IsNil(d.Lines[i].LineID) {
			d.Lines[i].LineID = id.New()
		}
		d.Lines[i].LineNo = i + 1
	}
}

// Validate implements entity.Validatable.
func (d *Issue) Validate(ctx context.Context) error {
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
	}
	return nil
}

// Requirements lists the stock the issue needs, one entry per line.
func (d *Issue) Requirements() []stock.Requirement {
	reqs := make([]stock.Requirement, 0, len(d.Lines))
	for _, l := range d.Lines {
		reqs = append(reqs, stock.Requirement{ItemID: l.ItemID, Quantity: l.Quantity})
	}
	return reqs
}

// ItemIDs returns the distinct items of the issue in line order.
func (d *Issue) ItemIDs() []id.ID {
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
