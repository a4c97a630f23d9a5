package domain

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar layout used for every history key
const DateLayout = "2006-01-02"

// Date is an ISO calendar date (YYYY-MM-DD). String order equals chronological order.
type Date string

// ParseDate validates and normalizes an ISO date string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return Date(t.Format(DateLayout)), nil
}

// MustDate is ParseDate for literals in tests and defaults
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf truncates a timestamp to its UTC calendar date
func DateOf(t time.Time) Date {
	return Date(t.UTC().Format(DateLayout))
}

// Time returns midnight UTC of the date. Invalid dates yield the zero time.
func (d Date) Time() time.Time {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays shifts the date by n calendar days
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// DaysUntil returns the whole-day distance from d to other (negative if other is earlier)
func (d Date) DaysUntil(other Date) int {
	return int(other.Time().Sub(d.Time()).Hours() / 24)
}

// Before reports whether d is strictly earlier than other
func (d Date) Before(other Date) bool { return d < other }

// After reports whether d is strictly later than other
func (d Date) After(other Date) bool { return d > other }

func (d Date) String() string { return string(d) }
