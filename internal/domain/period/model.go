// Package period implements the accounting period lifecycle.
//
// A period moves DRAFT → OPEN → PENDING_CLOSE → CLOSED. Prices are editable
// only while DRAFT, stock documents are accepted only while OPEN, and a CLOSED
// period can be rolled forward into the next DRAFT.
package period

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Status is the period lifecycle state.
type Status string

const (
	StatusDraft        Status = "DRAFT"
	StatusOpen         Status = "OPEN"
	StatusPendingClose Status = "PENDING_CLOSE"
	StatusClosed       Status = "CLOSED"
)

// Period is an accounting window. Both dates are inclusive calendar days (UTC).
type Period struct {
	entity.BaseEntity

	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"startDate"`
	EndDate   time.Time `db:"end_date" json:"endDate"`
	Status    Status    `db:"status" json:"status"`

	OpenedAt     *time.Time `db:"opened_at" json:"openedAt,omitempty"`
	ClosedAt     *time.Time `db:"closed_at" json:"closedAt,omitempty"`
	RolledFromID *id.ID     `db:"rolled_from_id" json:"rolledFromId,omitempty"`
}

// Validate checks the period invariants.
func (p *Period) Validate(ctx context.Context) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperror.NewFieldValidation("name", "is required")
	}
	if p.StartDate.IsZero() {
		return apperror.NewFieldValidation("startDate", "is required")
	}
	if p.EndDate.IsZero() {
		return apperror.NewFieldValidation("endDate", "is required")
	}
	if Day(p.EndDate).Before(Day(p.StartDate)) {
		return apperror.NewFieldValidation("endDate", "must not be before startDate")
	}
	return nil
}

// Contains reports whether the calendar day of t lies within the period.
func (p *Period) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(Day(p.StartDate)) && !d.After(Day(p.EndDate))
}

// Overlaps reports whether [start, end] intersects the period.
func (p *Period) Overlaps(start, end time.Time) bool {
	return !Day(start).After(Day(p.EndDate)) && !Day(end).Before(Day(p.StartDate))
}

// RequireStatus rejects op unless the period is in one of allowed.
func (p *Period) RequireStatus(op string, allowed ...Status) error {
	for _, s := range allowed {
		if p.Status == s {
			return nil
		}
	}
	names := make([]string, len(allowed))
	for i, s := range allowed {
		names[i] = string(s)
	}
	return apperror.NewInvalidTransition("Period", string(p.Status), op,
		"period must be "+strings.Join(names, " or ")).
		WithDetail("period_id", p.ID.String())
}

// RequireOpenOn rejects stock documents outside an OPEN period or its date range.
func (p *Period) RequireOpenOn(date time.Time) error {
	if err := p.RequireStatus("POST", StatusOpen); err != nil {
		return err
	}
	if !p.Contains(date) {
		return apperror.NewFieldValidation("date", "is outside the period").
			WithDetail("startDate", Day(p.StartDate).Format(time.DateOnly)).
			WithDetail("endDate", Day(p.EndDate).Format(time.DateOnly))
	}
	return nil
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// LocationStatus is the per-location readiness within a period.
type LocationStatus string

const (
	LocationOpen  LocationStatus = "OPEN"
	LocationReady LocationStatus = "READY"
)

// Location joins a period with a location and carries the roll-forward snapshots.
type Location struct {
	PeriodID     id.ID               `db:"period_id" json:"periodId"`
	LocationID   id.ID               `db:"location_id" json:"locationId"`
	Status       LocationStatus      `db:"status" json:"status"`
	OpeningValue types.Money         `db:"opening_value" json:"openingValue"`
	ClosingValue decimal.NullDecimal `db:"closing_value" json:"closingValue"`
	ReadyAt      *time.Time          `db:"ready_at" json:"readyAt,omitempty"`
	ReadyBy      *string             `db:"ready_by" json:"readyBy,omitempty"`
}

// ItemPrice is the expected unit price of an item within a period.
type ItemPrice struct {
	PeriodID id.ID       `db:"period_id" json:"periodId"`
	ItemID   id.ID       `db:"item_id" json:"itemId"`
	Price    types.Money `db:"price" json:"price"`
	Currency string      `db:"currency" json:"currency"`
	Locked   bool        `db:"locked" json:"locked"`
}

// Approval entity types.
const EntityPeriodClose = "PERIOD_CLOSE"

// ApprovalStatus is the state of an approval request.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// Approval is a request handed to the approval workflow.
type Approval struct {
	ID          id.ID          `db:"id" json:"id"`
	EntityType  string         `db:"entity_type" json:"entityType"`
	EntityID    id.ID          `db:"entity_id" json:"entityId"`
	Status      ApprovalStatus `db:"status" json:"status"`
	RequestedBy string         `db:"requested_by" json:"requestedBy"`
	RequestedAt time.Time      `db:"requested_at" json:"requestedAt"`
	ResolvedBy  *string        `db:"resolved_by" json:"resolvedBy,omitempty"`
	ResolvedAt  *time.Time     `db:"resolved_at" json:"resolvedAt,omitempty"`
	Comment     string         `db:"comment" json:"comment,omitempty"`
}
