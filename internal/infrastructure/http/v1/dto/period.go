package dto

import (
	"github.com/shopspring/decimal"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/period"
)

// CreatePeriodRequest creates a DRAFT period.
type CreatePeriodRequest struct {
	Name        string   `json:"name" binding:"required"`
	StartDate   string   `json:"startDate" binding:"required"`
	EndDate     string   `json:"endDate" binding:"required"`
	LocationIDs []string `json:"locationIds"`
}

// ToInput converts the request to the service input.
func (r CreatePeriodRequest) ToInput() (period.CreateInput, error) {
	start, err := ParseDate("startDate", r.StartDate)
	if err != nil {
		return period.CreateInput{}, err
	}
	end, err := ParseDate("endDate", r.EndDate)
	if err != nil {
		return period.CreateInput{}, err
	}
	locations, err := ParseIDs("locationIds", r.LocationIDs)
	if err != nil {
		return period.CreateInput{}, err
	}
	return period.CreateInput{Name: r.Name, StartDate: start, EndDate: end, LocationIDs: locations}, nil
}

// AddLocationsRequest attaches locations to a DRAFT period.
type AddLocationsRequest struct {
	LocationIDs []string `json:"locationIds" binding:"required,min=1"`
}

// SetPriceRequest records an expected item price.
type SetPriceRequest struct {
	ItemID   string           `json:"itemId" binding:"required"`
	Price    *decimal.Decimal `json:"price" binding:"required"`
	Currency string           `json:"currency"`
}

// ToInput converts the request to the service input.
func (r SetPriceRequest) ToInput() (period.PriceInput, error) {
	itemID, err := ParseID("itemId", r.ItemID)
	if err != nil {
		return period.PriceInput{}, err
	}
	price, err := Required("price", r.Price)
	if err != nil {
		return period.PriceInput{}, err
	}
	return period.PriceInput{ItemID: itemID, Price: price, Currency: r.Currency}, nil
}

// ResolveApprovalRequest approves or rejects a close request.
type ResolveApprovalRequest struct {
	Approved *bool  `json:"approved" binding:"required"`
	Comment  string `json:"comment"`
}

// RollForwardRequest creates the period that follows a CLOSED one.
type RollForwardRequest struct {
	Name       string `json:"name"`
	EndDate    string `json:"endDate"`
	CopyPrices bool   `json:"copyPrices"`
}

// ToOptions converts the request to roll-forward options.
func (r RollForwardRequest) ToOptions() (period.RollForwardOptions, error) {
	opts := period.RollForwardOptions{Name: r.Name, CopyPrices: r.CopyPrices}
	if r.EndDate != "" {
		end, err := ParseDate("endDate", r.EndDate)
		if err != nil {
			return opts, err
		}
		opts.EndDate = &end
	}
	return opts, nil
}

// PriceImportResponse reports a spreadsheet price import.
type PriceImportResponse struct {
	PeriodID id.ID              `json:"periodId"`
	Imported int                `json:"imported"`
	Prices   []period.ItemPrice `json:"prices"`
}
