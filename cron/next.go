package cron

import (
	"fmt"
	"time"

	deflow "github.com/Legatia/DeFlow-sub000"
)

// scanBoundYears caps how far NextAfter searches before declaring the
// expression unmatchable. Four years covers every leap-year combination a
// satisfiable five-field expression needs.
const scanBoundYears = 4

// NextAfter returns the first instant strictly after the given one that
// matches the expression, evaluated in after's location. An expression
// with no match within the scan bound fails with deflow.ErrNoCronMatch.
func (e Expression) NextAfter(after time.Time) (time.Time, error) {
	// Cron resolution is one minute: align to the next whole minute.
	t := after.Truncate(time.Minute).Add(time.Minute)
	limit := after.AddDate(scanBoundYears, 0, 0)

	for !t.After(limit) {
		if e.matchesDay(t) {
			if e.Minute.Matches(t.Minute()) && e.Hour.Matches(t.Hour()) {
				return t, nil
			}
			t = t.Add(time.Minute)
			continue
		}
		// Wrong day: jump to the next midnight instead of walking
		// 1440 minutes through it.
		t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
	}

	return time.Time{}, fmt.Errorf("cron: %q: no match within %d years of %s: %w",
		e.raw, scanBoundYears, after.Format(time.RFC3339), deflow.ErrNoCronMatch)
}

// matchesDay applies the month field and the POSIX day-of-month/weekday
// rule: OR when both are restricted, the restricted one alone otherwise.
func (e Expression) matchesDay(t time.Time) bool {
	if !e.Month.Matches(int(t.Month())) {
		return false
	}

	domOK := e.Dom.Matches(t.Day())
	dowOK := e.Dow.Matches(int(t.Weekday()))

	switch {
	case e.Dom.Restricted() && e.Dow.Restricted():
		return domOK || dowOK
	case e.Dom.Restricted():
		return domOK
	case e.Dow.Restricted():
		return dowOK
	default:
		return true
	}
}

// Matches reports whether t (truncated to the minute) satisfies the
// expression.
func (e Expression) Matches(t time.Time) bool {
	return e.matchesDay(t) && e.Hour.Matches(t.Hour()) && e.Minute.Matches(t.Minute())
}
