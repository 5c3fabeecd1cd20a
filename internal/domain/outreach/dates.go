// internal/domain/outreach/dates.go
package outreach

import "time"

// NoMessagesWeekdays is the weekday gap reported for a student who has never
// been sent anything.
const NoMessagesWeekdays = 100

// Day drops the clock part of t, keeping its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from one date to another. It is negative
// when to is before from.
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Round(time.Hour).Hours() / 24)
}

// WeekdaysSince counts Monday-Friday dates from last up to, but not
// including, today.
func WeekdaysSince(last, today time.Time) int {
	n := 0
	for d, end := Day(last), Day(today); d.Before(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n++
		}
	}
	return n
}

// NearDue is true when due falls inside the four-day reminder window and has
// not yet passed. A zero due date is never near.
func NearDue(today, due time.Time) bool {
	if due.IsZero() {
		return false
	}
	t, d := Day(today), Day(due)
	return t.AddDate(0, 0, 4).After(d) && !t.After(d)
}

// Proximity describes where today falls relative to a due date.
type Proximity string

const (
	ProximityNone   Proximity = ""
	ProximityPassed Proximity = "passed"
	ProximityToday  Proximity = "today"
	ProximityNear   Proximity = "near"
	ProximityAhead  Proximity = "ahead"
)

// ProximityTo classifies today against due. "near" means within three days.
func ProximityTo(today, due time.Time) Proximity {
	if due.IsZero() {
		return ProximityNone
	}
	t, d := Day(today), Day(due)
	switch {
	case t.After(d):
		return ProximityPassed
	case t.Equal(d):
		return ProximityToday
	case t.Before(d.AddDate(0, 0, -3)):
		return ProximityAhead
	}
	return ProximityNear
}

// DueDayName is "today" when due is today, otherwise the weekday name.
func DueDayName(today, due time.Time) string {
	if Day(today).Equal(Day(due)) {
		return "today"
	}
	return due.Weekday().String()
}
