package analytics

import (
	"fmt"
	"time"
)

// dayFormat is the canonical date layout used throughout the training
// history (dates are stored as TEXT so lexicographic order matches
// chronological order).
const dayFormat = "2006-01-02"

// parseDay parses a canonical YYYY-MM-DD date.
func parseDay(s string) (time.Time, error) {
	t, err := time.Parse(dayFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// weekStart returns the Monday of t's ISO week, at midnight UTC.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -offset)
}

// weekStartDay is weekStart for a canonical date string.
func weekStartDay(s string) (string, error) {
	t, err := parseDay(s)
	if err != nil {
		return "", err
	}
	return weekStart(t).Format(dayFormat), nil
}
