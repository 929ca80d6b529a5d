// Package cycle provides pure functions for monthly billing-cycle boundaries.
// The anchor is the subscription start timestamp; its day-of-month defines the
// billing day, clamped to shorter months (a subscription started on the 31st
// resets on Feb 28/29).
package cycle

import "time"

// boundary returns the cycle boundary in the given year/month: the anchor's
// day-of-month clamped to the month's length, at the anchor's time of day.
func boundary(anchor time.Time, year int, month time.Month) time.Time {
	day := anchor.Day()
	if last := daysIn(year, month); day > last {
		day = last
	}
	h, m, s := anchor.Clock()
	return time.Date(year, month, day, h, m, s, 0, anchor.Location())
}

func daysIn(year int, month time.Month) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NextReset returns the first cycle boundary strictly after the given time.
// This is a PURE function.
func NextReset(after time.Time, anchor time.Time) time.Time {
	after = after.In(anchor.Location())
	b := boundary(anchor, after.Year(), after.Month())
	if b.After(after) {
		return b
	}
	next := after.AddDate(0, 0, daysIn(after.Year(), after.Month())-after.Day()+1)
	return boundary(anchor, next.Year(), next.Month())
}

// ResetDue reports whether a counter reset is owed at now, given the last
// reset time. The check is a boundary crossing, not a day-of-month equality:
// any number of missed boundaries collapse into one overdue reset, so a
// service that was down on the billing day still catches up.
// This is a PURE function.
func ResetDue(now, lastReset, anchor time.Time) bool {
	if anchor.IsZero() {
		return false
	}
	if lastReset.IsZero() {
		// never reset: due once the first full cycle has elapsed
		lastReset = anchor
	}
	return !now.Before(NextReset(lastReset, anchor))
}
