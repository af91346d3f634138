package timetable

import (
	"context"
	"time"
)

type ChangeKind string

const (
	AssignmentSaved   ChangeKind = "assignment_saved"
	AssignmentCleared ChangeKind = "assignment_cleared"
	DayCopied         ChangeKind = "day_copied"
	SlotAdded         ChangeKind = "slot_added"
	SlotDeleted       ChangeKind = "slot_deleted"
)

// ChangeEvent tells observers of a class's day that its schedule changed.
// Date is zero for catalog changes, which affect every day.
type ChangeEvent struct {
	ClassID       string     `json:"class_id"`
	Date          time.Time  `json:"date"`
	Kind          ChangeKind `json:"kind"`
	PeriodNumbers []int      `json:"period_numbers,omitempty"`
	ActorID       string     `json:"actor_id"`
	At            time.Time  `json:"at"`
}

type Notifier interface {
	Publish(ctx context.Context, evt ChangeEvent) error
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, ChangeEvent) error { return nil }
