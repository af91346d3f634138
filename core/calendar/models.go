package calendar

import (
	"time"

	"github.com/trezcool/ratiba/core"
)

type Status string

const (
	StatusOpen    Status = "open"
	StatusHoliday Status = "holiday"
)

// Override forces a school date open or closed, whatever its weekday.
type Override struct {
	ID        string    `json:"id" db:"id"`
	SchoolID  string    `json:"school_id" db:"school_id"`
	Date      time.Time `json:"date" db:"date"`
	Status    Status    `json:"status" db:"status"`
	Label     string    `json:"label,omitempty" db:"label"`
	CreatedBy string    `json:"created_by" db:"created_by"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// NewOverride contains information needed to set an Override.
type NewOverride struct {
	Status Status `json:"status" validate:"required,oneof=open holiday"`
	Label  string `json:"label" validate:"max=200"`
}

func (no *NewOverride) clean() {
	no.Status = Status(core.CleanString(string(no.Status), true /* lower */))
	no.Label = core.CleanString(no.Label)
}

// Day is the resolved state of one calendar date.
type Day struct {
	Date       time.Time `json:"date"`
	Holiday    bool      `json:"holiday"`
	Label      string    `json:"label,omitempty"`
	Overridden bool      `json:"overridden"`
}
