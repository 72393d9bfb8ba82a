// Package dateutils provides calendar-date handling for statement rows and monthly analytics.
// All values are UTC midnight; time-of-day is never significant.
package dateutils

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayoutISO is the canonical date rendering.
	DateLayoutISO = "2006-01-02"
	// MonthLayout is the rendering of a calendar month.
	MonthLayout = "2006-01"
)

// NormalizeStatementDate accepts DD/MM/YYYY, DD-MM-YYYY or YYYY-MM-DD and returns the date.
// The order is decided by position: a four-character first segment means year-first,
// anything else means day-first with the year last. Segments are zero-padded to two digits.
func NormalizeStatementDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	sep := "-"
	if strings.Contains(raw, "/") {
		sep = "/"
	}
	parts := strings.Split(raw, sep)
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("date %q: expected 3 segments, got %d", raw, len(parts))
	}

	var iso string
	if len(parts[0]) == 4 {
		iso = parts[0] + "-" + pad2(parts[1]) + "-" + pad2(parts[2])
	} else {
		iso = parts[2] + "-" + pad2(parts[1]) + "-" + pad2(parts[0])
	}

	date, err := time.Parse(DateLayoutISO, iso)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not a calendar date: %w", raw, err)
	}
	return date, nil
}

func pad2(s string) string {
	if len(s) < 2 {
		return strings.Repeat("0", 2-len(s)) + s
	}
	return s
}

// ParseISODate parses YYYY-MM-DD.
func ParseISODate(s string) (time.Time, error) {
	return time.Parse(DateLayoutISO, strings.TrimSpace(s))
}

// ParseMonth parses YYYY-MM into the first day of that month.
func ParseMonth(s string) (time.Time, error) {
	return time.Parse(MonthLayout, strings.TrimSpace(s))
}

// ToISODate formats a date as YYYY-MM-DD.
func ToISODate(date time.Time) string {
	return date.Format(DateLayoutISO)
}

// Day truncates t to UTC midnight of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StartOfMonth returns the first day of the month containing date.
func StartOfMonth(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// EndOfMonth returns the last day of the month containing date.
func EndOfMonth(date time.Time) time.Time {
	return StartOfMonth(date).AddDate(0, 1, -1)
}

// AddMonths shifts the month containing date by n months and returns its first day.
func AddMonths(date time.Time, n int) time.Time {
	return StartOfMonth(date).AddDate(0, n, 0)
}

// DaysBetween returns the whole number of days from a to b, ignoring time of day.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
