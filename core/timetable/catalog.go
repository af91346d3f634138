package timetable

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/clock"
)

// defaultStart is suggested for the first slot of an empty catalog.
const defaultStart clock.Minute = 9 * 60

// AddSlot adds a period or a break to a class's weekly catalog.
// Periods are numbered max(existing)+1, starting at 1.
func (svc *Service) AddSlot(ctx context.Context, actor core.Actor, ns NewSlot) (ClassSlot, error) {
	ns.clean()
	if err := svc.validateStruct(ns); err != nil {
		return ClassSlot{}, err
	}

	start, err := clock.ParseTime(ns.Start)
	if err != nil {
		return ClassSlot{}, core.NewValidationError(err, core.FieldError{Field: "start", Error: err.Error()})
	}

	if ns.Type == SlotBreak && ns.TemplateID != "" {
		tpl, err := svc.repo.GetBreakTemplate(ctx, ns.TemplateID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ClassSlot{}, core.NewValidationError(err, core.FieldError{Field: "template_id", Error: "unknown break template"})
			}
			return ClassSlot{}, errors.Wrap(err, "loading break template")
		}
		if ns.BreakName == "" {
			ns.BreakName = tpl.Name
		}
		if ns.Duration == 0 {
			ns.Duration = tpl.DefaultDuration
		}
	}

	span, err := clock.NewSpan(start, ns.Duration)
	if err != nil {
		return ClassSlot{}, core.NewValidationError(err, core.FieldError{Field: "duration", Error: err.Error()})
	}

	existing, err := svc.repo.ListClassSlots(ctx, ns.ClassID)
	if err != nil {
		return ClassSlot{}, errors.Wrap(err, "listing class slots")
	}
	if err := checkSlotsSchool(existing, actor.SchoolID, ns.ClassID); err != nil {
		return ClassSlot{}, err
	}

	slot := ClassSlot{
		SchoolID:  actor.SchoolID,
		ClassID:   ns.ClassID,
		SlotType:  ns.Type,
		StartTime: span.Start,
		EndTime:   span.End,
		CreatedBy: actor.ID,
		CreatedAt: time.Now().UTC(),
	}
	switch ns.Type {
	case SlotPeriod:
		slot.SlotNumber = nextPeriodNumber(existing)
	case SlotBreak:
		slot.Name = ns.BreakName
		days := ns.Weekdays
		if len(days) == 0 {
			days = svc.schoolDays
		}
		slot.Weekdays = normalizeWeekdays(days)
	}

	slot, err = svc.repo.InsertClassSlot(ctx, slot)
	if err != nil {
		return ClassSlot{}, errors.Wrap(err, "inserting class slot")
	}
	svc.logger.Info("timetable: slot added", actor, map[string]interface{}{
		"class_id": slot.ClassID,
		"slot":     slot.Label(),
		"span":     slot.Span().String(),
	})
	svc.publish(ctx, actor, ChangeEvent{ClassID: slot.ClassID, Kind: SlotAdded, PeriodNumbers: periodNumbers(slot)})
	return slot, nil
}

// DeleteSlot removes a slot from the catalog. Assignments of a deleted period are kept;
// use PurgePeriodAssignments to remove them.
func (svc *Service) DeleteSlot(ctx context.Context, actor core.Actor, slotID string) error {
	slot, err := svc.repo.GetClassSlot(ctx, slotID)
	if err != nil {
		return errors.Wrap(err, "getting class slot")
	}
	if slot.SchoolID != actor.SchoolID {
		return errors.Wrap(ErrNotFound, "getting class slot")
	}
	if err := svc.repo.DeleteClassSlot(ctx, slotID); err != nil {
		return errors.Wrap(err, "deleting class slot")
	}
	svc.logger.Info("timetable: slot deleted", actor, map[string]interface{}{
		"class_id": slot.ClassID,
		"slot":     slot.Label(),
	})
	svc.publish(ctx, actor, ChangeEvent{ClassID: slot.ClassID, Kind: SlotDeleted, PeriodNumbers: periodNumbers(slot)})
	return nil
}

// PurgePeriodAssignments removes every assignment of a period, across all dates.
func (svc *Service) PurgePeriodAssignments(ctx context.Context, actor core.Actor, classID string, periodNumber int) (int, error) {
	classID = core.CleanString(classID)
	if err := svc.CheckClassSchool(ctx, actor.SchoolID, classID); err != nil {
		return 0, err
	}
	n, err := svc.repo.DeletePeriodAssignments(ctx, classID, periodNumber)
	if err != nil {
		return 0, errors.Wrap(err, "deleting period assignments")
	}
	svc.logger.Info("timetable: period assignments purged", actor, map[string]interface{}{
		"class_id": classID,
		"period":   periodNumber,
		"deleted":  n,
	})
	if n > 0 {
		svc.publish(ctx, actor, ChangeEvent{ClassID: classID, Kind: AssignmentCleared, PeriodNumbers: []int{periodNumber}})
	}
	return n, nil
}

// ListSlots returns the class catalog in display order.
func (svc *Service) ListSlots(ctx context.Context, classID string) ([]ClassSlot, error) {
	slots, err := svc.repo.ListClassSlots(ctx, core.CleanString(classID))
	if err != nil {
		return nil, errors.Wrap(err, "listing class slots")
	}
	sortSlots(slots)
	return slots, nil
}

// SuggestNextStart returns the end of the latest slot of the class, so slots can be added back to back.
func (svc *Service) SuggestNextStart(ctx context.Context, classID string) (clock.Minute, error) {
	slots, err := svc.repo.ListClassSlots(ctx, core.CleanString(classID))
	if err != nil {
		return 0, errors.Wrap(err, "listing class slots")
	}
	if len(slots) == 0 {
		return defaultStart, nil
	}
	var last clock.Minute
	for _, s := range slots {
		if s.EndTime > last {
			last = s.EndTime
		}
	}
	if last > clock.LastMinute {
		last = clock.LastMinute
	}
	return last, nil
}

// CheckClassSchool fails with ErrNotFound when the class holds slots of another school.
// A class without slots passes.
func (svc *Service) CheckClassSchool(ctx context.Context, schoolID, classID string) error {
	classID = core.CleanString(classID)
	slots, err := svc.repo.ListClassSlots(ctx, classID)
	if err != nil {
		return errors.Wrap(err, "listing class slots")
	}
	return checkSlotsSchool(slots, schoolID, classID)
}

func checkSlotsSchool(slots []ClassSlot, schoolID, classID string) error {
	for _, s := range slots {
		if s.SchoolID != schoolID {
			return errors.Wrapf(ErrNotFound, "class %s", classID)
		}
	}
	return nil
}

func nextPeriodNumber(slots []ClassSlot) int {
	var max int
	for _, s := range slots {
		if s.IsPeriod() && s.SlotNumber > max {
			max = s.SlotNumber
		}
	}
	return max + 1
}

func periodNumbers(slot ClassSlot) []int {
	if slot.IsPeriod() {
		return []int{slot.SlotNumber}
	}
	return nil
}
