// internal/app/cadence.go
package app

// CadenceAllows reports whether a late student with the given urgency may be
// contacted again after weekdays without a message. Less urgent students wait
// longer between reminders.
func CadenceAllows(urgency, weekdays int) bool {
	switch {
	case urgency < 1:
		return false
	case urgency <= 2:
		return weekdays > 7
	case urgency <= 4:
		return weekdays > 5
	default:
		return weekdays > 3
	}
}
