package clock

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidTime is matched (errors.Is) by every *ParseError.
var ErrInvalidTime = errors.New("invalid time")

// ParseError reports time text that could not be understood.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid time %q: %s", e.Input, e.Reason)
}

func (e *ParseError) Is(target error) bool { return target == ErrInvalidTime }

type meridiem int

const (
	noMeridiem meridiem = iota
	ante
	post
)

// ParseTime converts loose human time text into a minute of the day.
//
// Accepted: "9", "09", "930", "0930", "9:30", "9.30", with an optional
// "a", "am", "p" or "pm" suffix ("2p" is 14:00, "12a" is 00:00, "12p" is 12:00,
// "15p" is 15:00).
func ParseTime(text string) (Minute, error) {
	fail := func(reason string) (Minute, error) {
		return 0, &ParseError{Input: text, Reason: reason}
	}

	s := strings.Join(strings.Fields(strings.ToLower(text)), "")
	if s == "" {
		return fail("time required")
	}
	s = strings.ReplaceAll(s, ".", ":")

	mer := noMeridiem
	for _, sfx := range []struct {
		text string
		mer  meridiem
	}{{"am", ante}, {"pm", post}, {"a", ante}, {"p", post}} {
		if strings.HasSuffix(s, sfx.text) {
			s = strings.TrimSuffix(s, sfx.text)
			mer = sfx.mer
			break
		}
	}

	var h, m int
	if i := strings.IndexByte(s, ':'); i >= 0 {
		hh, mm := s[:i], s[i+1:]
		if !isDigits(hh, 2) || !isDigits(mm, 2) {
			return fail("expected H:MM")
		}
		h, _ = strconv.Atoi(hh)
		m, _ = strconv.Atoi(mm)
	} else {
		if !isDigits(s, 4) {
			return fail("expected 1 to 4 digits")
		}
		switch len(s) {
		case 1, 2:
			h, _ = strconv.Atoi(s)
		case 3:
			h, _ = strconv.Atoi(s[:1])
			m, _ = strconv.Atoi(s[1:])
		default:
			h, _ = strconv.Atoi(s[:2])
			m, _ = strconv.Atoi(s[2:])
		}
	}

	if m > 59 {
		return fail("minutes must be 00-59")
	}

	switch mer {
	case ante:
		if h > 12 {
			return fail("hour must be 0-12 with am")
		}
		if h == 12 {
			h = 0
		}
	case post:
		// 13-23 already read as afternoon
		if h == 0 {
			return fail("hour must be 1-23 with pm")
		}
		if h < 12 {
			h += 12
		}
	}

	if h > 23 {
		return fail("hour must be 0-23")
	}
	return Minute(h*60 + m), nil
}

// MustParseTime is like ParseTime but panics on error. For fixtures and constants.
func MustParseTime(text string) Minute {
	m, err := ParseTime(text)
	if err != nil {
		panic(err)
	}
	return m
}

// isDigits reports whether s holds between 1 and max ASCII digits.
func isDigits(s string, max int) bool {
	if len(s) == 0 || len(s) > max {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
