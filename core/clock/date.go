package clock

import (
	"time"

	"github.com/pkg/errors"
)

const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar date.
// Schedules are keyed by calendar date, never by instant.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate reads a "YYYY-MM-DD" calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid date %q", s)
	}
	return t, nil
}

// MustParseDate is like ParseDate but panics on error.
func MustParseDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// DateKey renders the calendar date of t as "YYYY-MM-DD".
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}
