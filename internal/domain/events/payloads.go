package events

import (
	"time"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/id"
)

// NCRNotification is the payload of ncr.created and ncr.status_changed.
type NCRNotification struct {
	NCRNumber       string          `json:"ncrNo"`
	Type            string          `json:"type"`
	Status          string          `json:"status"`
	PreviousStatus  string          `json:"previousStatus,omitempty"`
	FinancialImpact string          `json:"financialImpact,omitempty"`
	Value           decimal.Decimal `json:"value"`
	LocationID      id.ID           `json:"locationId"`
	LocationName    string          `json:"locationName,omitempty"`
	ItemID          *id.ID          `json:"itemId,omitempty"`
	ItemName        string          `json:"itemName,omitempty"`
	DeliveryID      *id.ID          `json:"deliveryId,omitempty"`
	DeliveryNumber  string          `json:"deliveryNo,omitempty"`
	Reason          string          `json:"reason"`
	OccurredAt      time.Time       `json:"occurredAt"`
}

// DeliveryPosted is the payload of delivery.posted.
type DeliveryPosted struct {
	DeliveryID     id.ID           `json:"deliveryId"`
	DeliveryNumber string          `json:"deliveryNo"`
	PeriodID       id.ID           `json:"periodId"`
	LocationID     id.ID           `json:"locationId"`
	TotalValue     decimal.Decimal `json:"totalValue"`
	LineCount      int             `json:"lineCount"`
	NCRNumbers     []string        `json:"ncrNumbers,omitempty"`
}

// PeriodTransition is the payload of period.transition.
type PeriodTransition struct {
	PeriodID id.ID     `json:"periodId"`
	Name     string    `json:"name"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	At       time.Time `json:"at"`
}
