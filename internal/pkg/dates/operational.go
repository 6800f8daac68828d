package dates

import "time"

// DefaultDayStartHour is when the operational day rolls over. A 0200 scan
// belongs to the previous day's duty cycle, not the next one.
const DefaultDayStartHour = 3

// OperationalDate returns the date-only operational day that t falls in,
// given the configured rollover hour. The result is midnight UTC of that
// day, which is how LockupStatus.Date and DdsAssignment.AssignedDate are
// keyed.
func OperationalDate(t time.Time, dayStartHour int) time.Time {
	if t.Hour() < dayStartHour {
		t = t.AddDate(0, 0, -1)
	}
	return Midnight(t)
}

// Midnight truncates t to its date in UTC.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b are the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
