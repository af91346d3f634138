package timetable

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound             = errors.New("not found")
	ErrUniquenessViolation  = errors.New("a row with the same key already exists")
	ErrIncompleteAssignment = errors.New("subject and teacher must be set together")
	ErrSameDay              = errors.New("source and target dates must differ")

	// conflict kinds, matched with errors.Is against a *ConflictError
	ErrBreakConflict       = errors.New("period overlaps a break")
	ErrTimeOverlap         = errors.New("period overlaps another period")
	ErrTeacherDoubleBooked = errors.New("teacher is already booked")
)

type ConflictKind string

const (
	BreakConflict       ConflictKind = "break_conflict"
	TimeOverlap         ConflictKind = "time_overlap"
	TeacherDoubleBooked ConflictKind = "teacher_double_booked"
)

// ConflictError describes why a period cannot take an assignment.
// With is the slot (break or period) the target collides with; for a
// double-booked teacher it is the period of the other class.
type ConflictError struct {
	Kind         ConflictKind `json:"kind"`
	ClassID      string       `json:"class_id"`
	PeriodNumber int          `json:"period_number"`
	With         string       `json:"with"`
	WithClassID  string       `json:"with_class_id,omitempty"`
	WithPeriod   int          `json:"with_period,omitempty"`
	TeacherID    string       `json:"teacher_id,omitempty"`
}

func (err *ConflictError) Error() string {
	switch err.Kind {
	case BreakConflict:
		return fmt.Sprintf("period #%d overlaps break %q", err.PeriodNumber, err.With)
	case TimeOverlap:
		return fmt.Sprintf("period #%d overlaps %s", err.PeriodNumber, err.With)
	case TeacherDoubleBooked:
		return fmt.Sprintf(
			"teacher %s is already teaching class %s in period #%d", err.TeacherID, err.WithClassID, err.WithPeriod,
		)
	}
	return "conflict: " + string(err.Kind)
}

func (err *ConflictError) Is(target error) bool {
	switch target {
	case ErrBreakConflict:
		return err.Kind == BreakConflict
	case ErrTimeOverlap:
		return err.Kind == TimeOverlap
	case ErrTeacherDoubleBooked:
		return err.Kind == TeacherDoubleBooked
	}
	return false
}
