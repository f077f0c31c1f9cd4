package dates

import (
	"fmt"
	"time"
)

// Standard date format constants
const (
	// ISO8601Date is the date format used for collection filtering,
	// image date properties and file naming.
	ISO8601Date = "2006-01-02"

	// MonthKey labels a monthly composite (the cube band suffix).
	MonthKey = "2006-01"
)

// ParseISO8601 parses a date string in ISO 8601 format (YYYY-MM-DD).
func ParseISO8601(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("date string is empty")
	}
	t, err := time.Parse(ISO8601Date, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatISO8601 formats a time.Time to an ISO 8601 date string.
func FormatISO8601(t time.Time) string {
	return t.UTC().Format(ISO8601Date)
}

// FormatMonth formats a time.Time to a YYYY-MM month label.
func FormatMonth(t time.Time) string {
	return t.UTC().Format(MonthKey)
}

// FloorMonth truncates t to the first instant of its calendar month, UTC.
func FloorMonth(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthsBetween returns the number of whole calendar months from the month
// of a to the month of b. Both endpoints floored, so (Jan 31, Feb 1) is 1.
func MonthsBetween(a, b time.Time) int {
	fa, fb := FloorMonth(a), FloorMonth(b)
	return (fb.Year()-fa.Year())*12 + int(fb.Month()) - int(fa.Month())
}
