/*
period.go - The 20th-to-19th billing window

PURPOSE:
  The business does not account by calendar month. A billing period runs
  from the 20th of one month through the 19th of the next, inclusive on
  both ends. Periods are labeled by their END month: "April 2024" means
  March 20 2024 - April 19 2024.

MONTH INDEXING:
  Months are 0-indexed (0 = January) throughout this file, matching the
  month selector the dashboard drives. WindowFor(0, 2025) is the window
  ending January 19 2025, which STARTS December 20 2024 - the year
  rollover is handled by calendar-date construction, not carry logic.

SEE ALSO:
  - aggregate.go: Filters trips into the resolved window
*/
package fleet

import "time"

// =============================================================================
// BILLING PERIOD
// =============================================================================

// BillingPeriod is one 20th-to-19th accounting window, inclusive on both
// ends.
type BillingPeriod struct {
	Start Date
	End   Date
}

// WindowFor resolves the billing window labeled by the given 0-indexed end
// month and year. The start is the 20th of the preceding calendar month;
// time.Date normalizes Month(0) to December of year-1, so the January
// window rolls back into the prior year without explicit carry handling.
func WindowFor(month, year int) BillingPeriod {
	start := time.Date(year, time.Month(month), 20, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.Month(month+1), 19, 0, 0, 0, 0, time.UTC)
	return BillingPeriod{
		Start: NewDate(start.Year(), start.Month(), start.Day()),
		End:   NewDate(end.Year(), end.Month(), end.Day()),
	}
}

// Contains reports whether the date falls inside the window, inclusive on
// both ends. Time-of-day is ignored.
func (p BillingPeriod) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days returns every calendar day in the window, inclusive. Callers walk
// this to build the dense calendar table: days without trips still render.
func (p BillingPeriod) Days() []Date {
	var days []Date
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// String returns a compact window description.
func (p BillingPeriod) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// Advance moves the period selector one month in the given direction
// (-1 or +1), rolling 0 <-> 11 with the matching year carry.
func Advance(month, year, direction int) (int, int) {
	month += direction
	if month < 0 {
		return 11, year - 1
	}
	if month > 11 {
		return 0, year + 1
	}
	return month, year
}
