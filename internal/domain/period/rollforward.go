package period

import (
	"time"

	"stockledger/internal/core/apperror"
)

// LastDayOfMonth returns the last calendar day of the month containing t.
func LastDayOfMonth(t time.Time) time.Time {
	d := Day(t)
	return time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// NextWindow computes the date range of the period following one that ended on closedEnd.
// The start is the next day; the end defaults to the last day of that month.
func NextWindow(closedEnd time.Time, endOverride *time.Time) (start, end time.Time, err error) {
	start = Day(closedEnd).AddDate(0, 0, 1)
	end = LastDayOfMonth(start)
	if endOverride != nil {
		end = Day(*endOverride)
		if end.Before(start) {
			return time.Time{}, time.Time{}, apperror.NewFieldValidation("endDate", "must not be before the new start date").
				WithDetail("startDate", start.Format(time.DateOnly))
		}
	}
	return start, end, nil
}

// DefaultName names a period after its start month, e.g. "February 2025".
func DefaultName(start time.Time) string {
	return start.Format("January 2006")
}

// RollForwardOptions customizes the next period.
type RollForwardOptions struct {
	Name       string
	EndDate    *time.Time
	CopyPrices bool
}
