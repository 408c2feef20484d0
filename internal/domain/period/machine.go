package period

import (
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/ncr"
)

var transitions = map[Status][]Status{
	StatusDraft:        {StatusOpen},
	StatusOpen:         {StatusPendingClose},
	StatusPendingClose: {StatusClosed, StatusOpen},
}

// CanTransition reports whether from → to is a lifecycle edge.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (p *Period) moveTo(to Status, now time.Time) error {
	if !CanTransition(p.Status, to) {
		return apperror.NewInvalidTransition("Period", string(p.Status), string(to), "transition is not allowed").
			WithDetail("period_id", p.ID.String())
	}
	p.Status = to
	at := now.UTC()
	switch to {
	case StatusOpen:
		if p.OpenedAt == nil {
			p.OpenedAt = &at
		}
	case StatusClosed:
		p.ClosedAt = &at
	}
	p.Touch(now)
	return nil
}

// CheckOpen guards DRAFT → OPEN. current is the period already OPEN, if any.
func CheckOpen(p *Period, current *Period, locationCount int) error {
	if err := p.RequireStatus(string(StatusOpen), StatusDraft); err != nil {
		return err
	}
	if current != nil && current.ID != p.ID {
		return apperror.NewConflictWith("Another period is already open", "Period", current.ID.String()).
			WithDetail("conflicting_name", current.Name)
	}
	if locationCount == 0 {
		return apperror.NewInvalidTransition("Period", string(p.Status), string(StatusOpen),
			"period has no locations")
	}
	return nil
}

// CheckReject guards PENDING_CLOSE → OPEN when a close request is rejected.
// Another period may have been opened meanwhile.
func CheckReject(p *Period, current *Period) error {
	if err := p.RequireStatus(string(StatusOpen), StatusPendingClose); err != nil {
		return err
	}
	if current != nil && current.ID != p.ID {
		return apperror.NewConflictWith("Another period is already open", "Period", current.ID.String()).
			WithDetail("conflicting_name", current.Name)
	}
	return nil
}

// CheckRequestClose guards OPEN → PENDING_CLOSE.
func CheckRequestClose(p *Period, locations []Location) error {
	if err := p.RequireStatus(string(StatusPendingClose), StatusOpen); err != nil {
		return err
	}
	var notReady []string
	for _, l := range locations {
		if l.Status != LocationReady {
			notReady = append(notReady, l.LocationID.String())
		}
	}
	if len(locations) == 0 || len(notReady) > 0 {
		return apperror.NewInvalidTransition("Period", string(p.Status), string(StatusPendingClose),
			"every location must be READY").
			WithDetail("not_ready", notReady)
	}
	return nil
}

// CloseWarnings is returned next to a successful close request.
type CloseWarnings struct {
	OpenNCRs []ncr.LocationSummary `json:"openNcrs"`
}

// HasWarnings reports whether any location still has OPEN NCRs.
func (w CloseWarnings) HasWarnings() bool {
	return len(w.OpenNCRs) > 0
}

// CloseRequest is the outcome of OPEN → PENDING_CLOSE.
type CloseRequest struct {
	Period   *Period       `json:"period"`
	Approval *Approval     `json:"approval"`
	Warnings CloseWarnings `json:"warnings"`
}

func newCloseApproval(periodID id.ID, requestedBy string, now time.Time) *Approval {
	return &Approval{
		ID:          id.New(),
		EntityType:  EntityPeriodClose,
		EntityID:    periodID,
		Status:      ApprovalPending,
		RequestedBy: requestedBy,
		RequestedAt: now.UTC(),
	}
}
