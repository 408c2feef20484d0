package ncr

import (
	"time"

	"stockledger/internal/core/id"
)

// Window is the date range of a period, both ends inclusive.
type Window struct {
	PeriodID  id.ID
	StartDate time.Time
	EndDate   time.Time
}

// Contains reports whether the calendar day of t (UTC) lies within the window.
func (w Window) Contains(t time.Time) bool {
	day := truncateDay(t)
	return !day.Before(truncateDay(w.StartDate)) && !day.After(truncateDay(w.EndDate))
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Linked is an NCR together with the period of its delivery, when it has one.
type Linked struct {
	NCR              NCR
	DeliveryPeriodID *id.ID
}

// PeriodOf resolves the period an NCR counts towards.
//
// An NCR linked to a delivery belongs to that delivery's period. Otherwise it
// belongs to the window containing its creation time. The association is not
// stored; it is recomputed every time NCRs are grouped by period.
func PeriodOf(l Linked, windows []Window) (id.ID, bool) {
	if l.DeliveryPeriodID != nil {
		return *l.DeliveryPeriodID, true
	}
	for _, w := range windows {
		if w.Contains(l.NCR.CreatedAt) {
			return w.PeriodID, true
		}
	}
	return id.ID{}, false
}

// InScope filters linked NCRs down to one (period, location).
func InScope(linked []Linked, windows []Window, periodID, locationID id.ID) []NCR {
	var out []NCR
	for _, l := range linked {
		if l.NCR.LocationID != locationID {
			continue
		}
		if p, ok := PeriodOf(l, windows); ok && p == periodID {
			out = append(out, l.NCR)
		}
	}
	return out
}
