package period

import (
	"context"
	"time"

	"stockledger/internal/core/id"
)

// Repository persists periods and their locations.
type Repository interface {
	Create(ctx context.Context, p *Period) error
	GetByID(ctx context.Context, periodID id.ID) (*Period, error)
	GetForUpdate(ctx context.Context, periodID id.ID) (*Period, error)
	Update(ctx context.Context, p *Period) error

	// FindOpen returns the OPEN period, or nil when there is none.
	FindOpen(ctx context.Context) (*Period, error)

	// FindOverlapping returns any period intersecting [start, end], or nil.
	FindOverlapping(ctx context.Context, start, end time.Time) (*Period, error)

	AddLocations(ctx context.Context, locations []Location) error
	GetLocations(ctx context.Context, periodID id.ID) ([]Location, error)
	GetLocation(ctx context.Context, periodID, locationID id.ID) (*Location, error)
	GetLocationForUpdate(ctx context.Context, periodID, locationID id.ID) (*Location, error)
	UpdateLocation(ctx context.Context, l *Location) error
}

// PriceRepository persists expected item prices.
type PriceRepository interface {
	UpsertPrice(ctx context.Context, price *ItemPrice) error

	// GetPrice returns nil when no price was entered for the item.
	GetPrice(ctx context.Context, periodID, itemID id.ID) (*ItemPrice, error)
	GetPrices(ctx context.Context, periodID id.ID) ([]ItemPrice, error)

	// LockPrices marks every price of the period immutable.
	LockPrices(ctx context.Context, periodID id.ID) (int64, error)

	// CopyPrices duplicates prices into another period, unlocked.
	CopyPrices(ctx context.Context, fromPeriodID, toPeriodID id.ID) (int64, error)
}

// ApprovalRepository persists approval requests.
type ApprovalRepository interface {
	CreateApproval(ctx context.Context, a *Approval) error
	GetApprovalForUpdate(ctx context.Context, approvalID id.ID) (*Approval, error)

	// FindPendingApproval returns nil when the entity has no PENDING approval.
	FindPendingApproval(ctx context.Context, entityType string, entityID id.ID) (*Approval, error)
	UpdateApproval(ctx context.Context, a *Approval) error
}
