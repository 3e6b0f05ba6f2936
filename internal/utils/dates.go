package utils

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used on the wire and in logs.
const DateLayout = "2006-01-02"

// ToDate truncates t to its calendar date at midnight UTC.
// The calendar date is read in t's own location, so a 23:30 local timestamp keeps its local day.
func ToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// FormatDate formats a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DateToUnix converts a calendar date to the unix timestamp of its midnight UTC.
// Dates are stored this way so range scans compare integers.
func DateToUnix(t time.Time) int64 {
	return ToDate(t).Unix()
}

// UnixToDate converts a stored unix timestamp back to a midnight-UTC calendar date.
func UnixToDate(unix int64) time.Time {
	return ToDate(time.Unix(unix, 0).UTC())
}
