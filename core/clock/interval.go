package clock

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share any instant.
// Touching ranges (aEnd == bStart) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd Minute) bool {
	return maxMinute(aStart, bStart) < minMinute(aEnd, bEnd)
}

// ToMinutes reads a strict "HH:MM" or "HH:MM:SS" value. Seconds are ignored.
func ToMinutes(hms string) (Minute, error) {
	parts := strings.Split(strings.TrimSpace(hms), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, &ParseError{Input: hms, Reason: "expected HH:MM[:SS]"}
	}
	var vals [3]int
	for i, p := range parts {
		if !isDigits(p, 2) {
			return 0, &ParseError{Input: hms, Reason: "expected HH:MM[:SS]"}
		}
		vals[i], _ = strconv.Atoi(p)
	}
	if vals[0] > 23 || vals[1] > 59 || vals[2] > 59 {
		return 0, &ParseError{Input: hms, Reason: "out of range"}
	}
	return Minute(vals[0]*60 + vals[1]), nil
}

// FromMinutes renders a minute of the day as "HH:MM:SS".
func FromMinutes(min int) (string, error) {
	m := Minute(min)
	if !m.Valid() {
		return "", errors.Errorf("clock: minute %d out of range", min)
	}
	return m.HMS(), nil
}

// Span is a half-open [Start, End) range within one day.
type Span struct {
	Start Minute `json:"start"`
	End   Minute `json:"end"`
}

// NewSpan computes the span starting at start lasting duration minutes.
// It fails when the duration is not positive or the span runs past the end of the day.
func NewSpan(start Minute, duration int) (Span, error) {
	if duration <= 0 {
		return Span{}, errors.New("duration must be positive")
	}
	if !start.Valid() {
		return Span{}, errors.Errorf("start %d out of range", int(start))
	}
	end := start.Add(duration)
	if !end.Valid() {
		return Span{}, errors.New("slot must end before midnight")
	}
	return Span{Start: start, End: end}, nil
}

func (s Span) Duration() int { return int(s.End - s.Start) }

func (s Span) Overlaps(o Span) bool { return Overlaps(s.Start, s.End, o.Start, o.End) }

func (s Span) String() string { return fmt.Sprintf("%s-%s", s.Start, s.End) }

func maxMinute(a, b Minute) Minute {
	if a > b {
		return a
	}
	return b
}

func minMinute(a, b Minute) Minute {
	if a < b {
		return a
	}
	return b
}
