// Package attendance implements the attendance window state machine and the
// transactional recording ledger.
package attendance

import (
	"time"
)

// phnomPenhLocation is the fixed civil time zone for all day bucketing.
// time.FixedZone instead of time.LoadLocation: Cambodia does not observe DST,
// so UTC+7 is always correct, and FixedZone works in minimal images without
// tzdata.
var phnomPenhLocation = time.FixedZone("Asia/Phnom_Penh", 7*60*60)

// lateCutoffHour is the fixed daily cutoff separating "present" from "late".
// It is deliberately independent of the configurable window_end setting: if
// an operator configures the window to end before this hour, no check-in can
// ever be late.
const lateCutoffHour = 10

// Clock supplies the current instant and civil date in the fixed zone.
// The nowFn indirection exists for tests.
type Clock struct {
	nowFn func() time.Time
}

// NewClock creates a Clock backed by the system time.
func NewClock() *Clock {
	return &Clock{nowFn: time.Now}
}

// NewClockAt creates a Clock frozen or driven by the given function. Used in
// tests.
func NewClockAt(nowFn func() time.Time) *Clock {
	return &Clock{nowFn: nowFn}
}

// Now returns the current instant in the fixed zone.
func (c *Clock) Now() time.Time {
	return c.nowFn().In(phnomPenhLocation)
}

// Today returns the current civil date (midnight in the fixed zone).
func (c *Clock) Today() time.Time {
	return DayOf(c.Now())
}

// DayOf returns the civil date of the given instant in the fixed zone.
func DayOf(t time.Time) time.Time {
	local := t.In(phnomPenhLocation)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, phnomPenhLocation)
}

// FormatDay renders a civil date as YYYY-MM-DD.
func FormatDay(day time.Time) string {
	return day.In(phnomPenhLocation).Format("2006-01-02")
}

// ParseDay parses a YYYY-MM-DD civil date in the fixed zone.
func ParseDay(value string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", value, phnomPenhLocation)
}

// MonthBounds returns the first day, last day and day count of a calendar
// month in the fixed zone.
func MonthBounds(year int, month time.Month) (first, last time.Time, days int) {
	first = time.Date(year, month, 1, 0, 0, 0, 0, phnomPenhLocation)
	next := first.AddDate(0, 1, 0)
	last = next.AddDate(0, 0, -1)
	return first, last, last.Day()
}

// BeforeCutoff reports whether the instant falls before the fixed daily
// cutoff of its own civil day.
func BeforeCutoff(t time.Time) bool {
	local := t.In(phnomPenhLocation)
	cutoff := time.Date(local.Year(), local.Month(), local.Day(), lateCutoffHour, 0, 0, 0, phnomPenhLocation)
	return local.Before(cutoff)
}
