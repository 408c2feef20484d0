package stock

import (
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Balance is the ledger row of one (location, item).
// OnHand is never negative; WAC keeps its last value when stock runs out.
type Balance struct {
	LocationID id.ID          `db:"location_id" json:"locationId"`
	ItemID     id.ID          `db:"item_id" json:"itemId"`
	OnHand     types.Quantity `db:"on_hand" json:"onHand"`
	WAC        types.Money    `db:"wac" json:"wac"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updatedAt"`
}

// Value is on_hand × wac, rounded to money.
func (b Balance) Value() types.Money {
	return types.RoundMoney(b.OnHand.Mul(b.WAC))
}

// RecordType is the direction of a movement.
type RecordType string

const (
	RecordTypeReceipt RecordType = "receipt"
	RecordTypeExpense RecordType = "expense"
)

// Movement is one journal line of the ledger, written alongside every balance change.
type Movement struct {
	ID           id.ID          `db:"id" json:"id"`
	RecorderID   id.ID          `db:"recorder_id" json:"recorderId"`
	RecorderType string         `db:"recorder_type" json:"recorderType"`
	LineID       id.ID          `db:"line_id" json:"lineId"`
	LocationID   id.ID          `db:"location_id" json:"locationId"`
	ItemID       id.ID          `db:"item_id" json:"itemId"`
	RecordType   RecordType     `db:"record_type" json:"recordType"`
	Quantity     types.Quantity `db:"quantity" json:"quantity"`
	UnitCost     types.Money    `db:"unit_cost" json:"unitCost"`
	Value        types.Money    `db:"value" json:"value"`
	OnHandAfter  types.Quantity `db:"on_hand_after" json:"onHandAfter"`
	WACAfter     types.Money    `db:"wac_after" json:"wacAfter"`
	RecordedAt   time.Time      `db:"recorded_at" json:"recordedAt"`
}

// Source identifies the document line that moves stock.
type Source struct {
	RecorderID   id.ID
	RecorderType string
	LineID       id.ID
}

// Requirement is a quantity that must be available before deducting.
type Requirement struct {
	ItemID   id.ID
	Quantity types.Quantity
}
