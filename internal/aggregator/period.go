package aggregator

import (
	"time"

	"github.com/cloud-cost-manager/cloudcost-go/internal/domain"
)

// MonthToDate returns the current period: first day of today's month
// through today inclusive, as the half-open range [start, today+1d).
func MonthToDate(today time.Time) domain.Window {
	start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(today.Year(), today.Month(), today.Day()+1, 0, 0, 0, 0, time.UTC)
	return domain.Window{Start: start, EndExclusive: end}
}

// PreviousMonthSamePoint returns the comparison period: the first day of
// the previous month plus today's elapsed day count. Anchoring on day
// count keeps the two windows directly comparable regardless of month
// length; near month ends the window may run past the shorter month.
func PreviousMonthSamePoint(today time.Time) domain.Window {
	firstOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	prevStart := firstOfMonth.AddDate(0, -1, 0)
	prevEnd := prevStart.AddDate(0, 0, today.Day())
	return domain.Window{Start: prevStart, EndExclusive: prevEnd}
}
