package fleet

import (
	"strings"
	"time"
)

// =============================================================================
// DATE - Calendar-day abstraction (this IS a daily bookkeeping system)
// =============================================================================

// Date is a calendar day with no time-of-day component. Trips are keyed by
// the business "service date", so all comparisons happen at day granularity.
type Date struct {
	Time time.Time
}

// NewDate constructs a Date from year/month/day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current local calendar date.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// FromTime truncates a timestamp to its local calendar date.
func FromTime(t time.Time) Date {
	local := t.Local()
	return NewDate(local.Year(), local.Month(), local.Day())
}

// ParseDate parses a YYYY-MM-DD string. Date-time strings are truncated at
// the first 'T' (or space) before parsing. Malformed input falls back to
// today's local date: records are never rejected for shape reasons.
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "T "); i >= 0 {
		s = s[:i]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Today()
	}
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.normalize().Before(other.normalize()) }
func (d Date) Equal(other Date) bool         { return d.normalize().Equal(other.normalize()) }
func (d Date) After(other Date) bool         { return d.normalize().After(other.normalize()) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }
func (d Date) IsZero() bool      { return d.Time.IsZero() }

// String formats the date as YYYY-MM-DD, zero-padded.
func (d Date) String() string {
	return d.Time.Format("2006-01-02")
}

// timeValue converts raw date representations to a timestamp. Numbers are
// epoch milliseconds, the unit JSON timestamps arrive in.
func timeValue(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case *time.Time:
		if x != nil {
			return *x, true
		}
	case float64:
		if x > 0 {
			return time.UnixMilli(int64(x)), true
		}
	case int:
		if x > 0 {
			return time.UnixMilli(int64(x)), true
		}
	case int64:
		if x > 0 {
			return time.UnixMilli(x), true
		}
	}
	return time.Time{}, false
}
