// Package clock holds the minute-of-day arithmetic the timetable is built on:
// loose human time parsing, half-open interval overlap and calendar date helpers.
package clock

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

const MinutesPerDay = 24 * 60

const (
	Midnight   Minute = 0
	LastMinute Minute = MinutesPerDay - 1
)

// Minute is a time of day expressed in minutes since midnight (0 - 1439).
type Minute int

func (m Minute) Valid() bool { return m >= Midnight && m <= LastMinute }

func (m Minute) Hour() int { return int(m) / 60 }

func (m Minute) Minute() int { return int(m) % 60 }

// Add shifts m by d minutes. The result may fall outside the day; check Valid.
func (m Minute) Add(d int) Minute { return m + Minute(d) }

// String renders the canonical "HH:MM" form.
func (m Minute) String() string {
	return fmt.Sprintf("%02d:%02d", m.Hour(), m.Minute())
}

// HMS renders the "HH:MM:SS" form used by SQL time columns.
func (m Minute) HMS() string {
	return m.String() + ":00"
}

func (m Minute) MarshalJSON() ([]byte, error) {
	if !m.Valid() {
		return nil, errors.Errorf("clock: minute %d out of range", int(m))
	}
	return []byte(strconv.Quote(m.String())), nil
}

// UnmarshalJSON accepts the canonical form as well as any loose text ParseTime accepts.
func (m *Minute) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.Wrap(err, "clock: unquoting minute")
	}
	v, err := ToMinutes(s)
	if err != nil {
		if v, err = ParseTime(s); err != nil {
			return err
		}
	}
	*m = v
	return nil
}

// Scan implements sql.Scanner for SQL `time` columns.
func (m *Minute) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*m = Minute(v.Hour()*60 + v.Minute())
		return nil
	case []byte:
		return m.scanString(string(v))
	case string:
		return m.scanString(v)
	case int64:
		*m = Minute(v)
		if !m.Valid() {
			return errors.Errorf("clock: minute %d out of range", v)
		}
		return nil
	default:
		return errors.Errorf("clock: cannot scan %T into Minute", src)
	}
}

func (m *Minute) scanString(s string) error {
	v, err := ToMinutes(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Value implements driver.Valuer.
func (m Minute) Value() (driver.Value, error) {
	if !m.Valid() {
		return nil, errors.Errorf("clock: minute %d out of range", int(m))
	}
	return m.HMS(), nil
}
