package ncr

import (
	"strings"
	"time"

	"stockledger/internal/core/apperror"
)

// StatusChange requests a move to another status.
// ResolutionType and FinancialImpact must be set when, and only when, To is RESOLVED.
type StatusChange struct {
	To              Status
	ResolutionType  string
	FinancialImpact FinancialImpact
}

// Transition applies change to n.
//
// The usual path is OPEN → SENT → CREDITED | REJECTED | RESOLVED, and OPEN may
// resolve directly. Otherwise statuses are assigned freely, since suppliers are
// not always notified before a credit arrives. A RESOLVED NCR is final.
func (n *NCR) Transition(change StatusChange, now time.Time) error {
	if !change.To.IsValid() {
		return apperror.NewFieldValidation("status", "is not a known NCR status").
			WithDetail("value", string(change.To))
	}
	if n.Status == StatusResolved {
		return apperror.NewInvalidTransition("NCR", string(n.Status), string(change.To), "NCR is already resolved").
			WithDetail("ncr_no", n.Number)
	}
	if n.Status == change.To {
		return apperror.NewInvalidTransition("NCR", string(n.Status), string(change.To), "NCR is already in this status").
			WithDetail("ncr_no", n.Number)
	}

	resolutionType := strings.TrimSpace(change.ResolutionType)

	if change.To != StatusResolved {
		if resolutionType != "" || change.FinancialImpact != "" {
			return apperror.NewValidation("resolutionType and financialImpact are only allowed when resolving").
				WithDetail("status", string(change.To))
		}
		n.Status = change.To
		n.Touch(now)
		return nil
	}

	if resolutionType == "" {
		return apperror.NewFieldValidation("resolutionType", "is required to resolve an NCR")
	}
	if change.FinancialImpact == "" {
		return apperror.NewFieldValidation("financialImpact", "is required to resolve an NCR")
	}
	if !change.FinancialImpact.IsValid() {
		return apperror.NewFieldValidation("financialImpact", "must be NONE, CREDIT or LOSS").
			WithDetail("value", string(change.FinancialImpact))
	}

	impact := change.FinancialImpact
	resolvedAt := now.UTC()
	n.Status = StatusResolved
	n.ResolutionType = &resolutionType
	n.FinancialImpact = &impact
	n.ResolvedAt = &resolvedAt
	n.Touch(now)
	return nil
}
