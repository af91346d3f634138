package timetable

import (
	"context"
	"time"
)

// Repository is the persistent store of slots, assignments and break templates.
// Implementations return ErrNotFound for missing rows, ErrUniquenessViolation for
// duplicate keys and an error matching core.ErrStoreUnavailable when the backend
// cannot be reached.
type Repository interface {
	ListClassSlots(ctx context.Context, classID string) ([]ClassSlot, error)
	GetClassSlot(ctx context.Context, id string) (ClassSlot, error)
	InsertClassSlot(ctx context.Context, slot ClassSlot) (ClassSlot, error)
	DeleteClassSlot(ctx context.Context, id string) error

	ListDayAssignments(ctx context.Context, classID string, date time.Time) ([]DaySlotAssignment, error)
	ListAssignmentsForSchoolDate(ctx context.Context, schoolID string, date time.Time) ([]DaySlotAssignment, error)
	// UpsertAssignment inserts asg when asg.ID is empty (failing with ErrUniquenessViolation
	// if (class, date, period) is taken) and updates the row with asg.ID otherwise.
	UpsertAssignment(ctx context.Context, asg DaySlotAssignment) (DaySlotAssignment, error)
	DeleteAssignments(ctx context.Context, classID string, date time.Time, periodNumbers ...int) (int, error)
	DeletePeriodAssignments(ctx context.Context, classID string, periodNumber int) (int, error)
	// ReplaceDayAssignments atomically deletes every row of (class, date) and inserts rows.
	ReplaceDayAssignments(ctx context.Context, classID string, date time.Time, rows []DaySlotAssignment) (int, error)
	// MergeDayAssignments atomically upserts rows on (class, date, period), keeping other rows of the day.
	MergeDayAssignments(ctx context.Context, classID string, date time.Time, rows []DaySlotAssignment) (int, error)

	ListBreakTemplates(ctx context.Context, schoolID string) ([]BreakTemplate, error)
	// UpsertBreakTemplate creates or updates the template keyed by (school, name).
	UpsertBreakTemplate(ctx context.Context, tpl BreakTemplate) (BreakTemplate, error)
	GetBreakTemplate(ctx context.Context, id string) (BreakTemplate, error)
	DeleteBreakTemplate(ctx context.Context, id string) error
}
