package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/documents/delivery"
	"stockledger/internal/domain/documents/issue"
	"stockledger/internal/domain/documents/transfer"
)

// DocumentHeader is shared by every stock document request.
type DocumentHeader struct {
	PeriodID   string `json:"periodId" binding:"required"`
	LocationID string `json:"locationId" binding:"required"`
	// Date defaults to today.
	Date    string `json:"date"`
	Comment string `json:"comment"`
}

// --- Delivery ---

// DeliveryLineRequest is one received item.
type DeliveryLineRequest struct {
	ItemID    string           `json:"itemId" binding:"required"`
	Quantity  *decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice *decimal.Decimal `json:"unitPrice" binding:"required"`
}

// PostDeliveryRequest creates and posts a delivery in one call.
type PostDeliveryRequest struct {
	DocumentHeader
	SupplierName      string                `json:"supplierName"`
	SupplierDocNumber string                `json:"supplierDocNumber"`
	Lines             []DeliveryLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToEntity converts the request to an unposted delivery.
func (r PostDeliveryRequest) ToEntity(now time.Time) (*delivery.Delivery, error) {
	periodID, err := ParseID("periodId", r.PeriodID)
	if err != nil {
		return nil, err
	}
	locationID, err := ParseID("locationId", r.LocationID)
	if err != nil {
		return nil, err
	}
	date, err := ParseOptionalDate("date", r.Date, now)
	if err != nil {
		return nil, err
	}

	doc := delivery.NewDelivery(now, periodID, locationID)
	doc.Date = date
	doc.Comment = r.Comment
	doc.SupplierName = r.SupplierName
	doc.SupplierDocNumber = r.SupplierDocNumber
	for i, l := range r.Lines {
		itemID, err := ParseID("lines.itemId", l.ItemID)
		if err != nil {
			return nil, err.(*apperror.AppError).WithDetail("lineNo", i+1)
		}
		qty, err := Required("lines.quantity", l.Quantity)
		if err != nil {
			return nil, err.(*apperror.AppError).WithDetail("lineNo", i+1)
		}
		price, err := Required("lines.unitPrice", l.UnitPrice)
		if err != nil {
			return nil, err.(*apperror.AppError).WithDetail("lineNo", i+1)
		}
		doc.AddLine(itemID, qty, price)
	}
	return doc, nil
}

// --- Issue and Transfer ---

// QuantityLineRequest is one item moved at the current WAC.
type QuantityLineRequest struct {
	ItemID   string           `json:"itemId" binding:"required"`
	Quantity *decimal.Decimal `json:"quantity" binding:"required"`
}

type quantityLine struct {
	itemID   id.ID
	quantity decimal.Decimal
}

func parseQuantityLines(lines []QuantityLineRequest) ([]quantityLine, error) {
	out := make([]quantityLine, 0, len(lines))
	for i, l := range lines {
		itemID, err := ParseID("lines.itemId", l.ItemID)
		if err != nil {
			return nil, err.(*apperror.AppError).WithDetail("lineNo", i+1)
		}
		qty, err := Required("lines.quantity", l.Quantity)
		if err != nil {
			return nil, err.(*apperror.AppError).WithDetail("lineNo", i+1)
		}
		out = append(out, quantityLine{itemID: itemID, quantity: qty})
	}
	return out, nil
}

// PostIssueRequest creates and posts an issue in one call.
type PostIssueRequest struct {
	DocumentHeader
	Purpose string                `json:"purpose"`
	Lines   []QuantityLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToEntity converts the request to an unposted issue.
func (r PostIssueRequest) ToEntity(now time.Time) (*issue.Issue, error) {
	periodID, err := ParseID("periodId", r.PeriodID)
	if err != nil {
		return nil, err
	}
	locationID, err := ParseID("locationId", r.LocationID)
	if err != nil {
		return nil, err
	}
	date, err := ParseOptionalDate("date", r.Date, now)
	if err != nil {
		return nil, err
	}
	lines, err := parseQuantityLines(r.Lines)
	if err != nil {
		return nil, err
	}

	doc := issue.NewIssue(now, periodID, locationID)
	doc.Date = date
	doc.Comment = r.Comment
	doc.Purpose = r.Purpose
	for _, l := range lines {
		doc.AddLine(l.itemID, l.quantity)
	}
	return doc, nil
}

// CreateTransferRequest creates a PENDING transfer. LocationID is the source.
type CreateTransferRequest struct {
	DocumentHeader
	ToLocationID string                `json:"toLocationId" binding:"required"`
	Lines        []QuantityLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToEntity converts the request to a pending transfer.
func (r CreateTransferRequest) ToEntity(now time.Time) (*transfer.Transfer, error) {
	periodID, err := ParseID("periodId", r.PeriodID)
	if err != nil {
		return nil, err
	}
	from, err := ParseID("locationId", r.LocationID)
	if err != nil {
		return nil, err
	}
	to, err := ParseID("toLocationId", r.ToLocationID)
	if err != nil {
		return nil, err
	}
	date, err := ParseOptionalDate("date", r.Date, now)
	if err != nil {
		return nil, err
	}
	lines, err := parseQuantityLines(r.Lines)
	if err != nil {
		return nil, err
	}

	doc := transfer.NewTransfer(now, periodID, from, to)
	doc.Date = date
	doc.Comment = r.Comment
	for _, l := range lines {
		doc.AddLine(l.itemID, l.quantity)
	}
	return doc, nil
}
