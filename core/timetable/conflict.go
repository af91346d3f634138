package timetable

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/clock"
)

// ValidateAssignment checks that p can be bound to a period of the class on date.
// Checks run in order and the first failure is returned:
//   - the period is not blocked by a break active that weekday (*ConflictError BreakConflict)
//   - subject and teacher are both set or both empty (*core.ValidationError wrapping ErrIncompleteAssignment)
//   - no other assignment of the class that day overlaps the period (*ConflictError TimeOverlap)
//   - the teacher is not booked by another class of the school at an overlapping time (*ConflictError TeacherDoubleBooked)
func (svc *Service) ValidateAssignment(ctx context.Context, classID string, date time.Time, periodNumber int, p Proposal) error {
	_, err := svc.checkAssignment(ctx, core.CleanString(classID), clock.Day(date), periodNumber, &p)
	return err
}

// SaveAssignment validates p and upserts it on (class, date, period).
// A write losing a race to a concurrent one is re-validated and retried once.
func (svc *Service) SaveAssignment(
	ctx context.Context,
	actor core.Actor,
	classID string,
	date time.Time,
	periodNumber int,
	p Proposal,
) (DaySlotAssignment, error) {
	classID = core.CleanString(classID)
	date = clock.Day(date)

	if err := svc.CheckClassSchool(ctx, actor.SchoolID, classID); err != nil {
		return DaySlotAssignment{}, err
	}
	asg, err := svc.saveAssignment(ctx, actor, classID, date, periodNumber, p)
	if errors.Is(err, ErrUniquenessViolation) {
		svc.logger.Warn("timetable: concurrent assignment write, retrying", err, actor, map[string]interface{}{
			"class_id": classID,
			"date":     clock.DateKey(date),
			"period":   periodNumber,
		})
		asg, err = svc.saveAssignment(ctx, actor, classID, date, periodNumber, p)
	}
	if err != nil {
		return DaySlotAssignment{}, err
	}

	svc.logger.Info("timetable: assignment saved", actor, map[string]interface{}{
		"class_id": classID,
		"date":     clock.DateKey(date),
		"period":   periodNumber,
	})
	svc.publish(ctx, actor, ChangeEvent{ClassID: classID, Date: date, Kind: AssignmentSaved, PeriodNumbers: []int{periodNumber}})
	return asg, nil
}

// ClearAssignment deletes the assignment of a period on date. Clearing an empty period is a no-op.
func (svc *Service) ClearAssignment(ctx context.Context, actor core.Actor, classID string, date time.Time, periodNumber int) error {
	classID = core.CleanString(classID)
	date = clock.Day(date)

	if err := svc.CheckClassSchool(ctx, actor.SchoolID, classID); err != nil {
		return err
	}
	n, err := svc.repo.DeleteAssignments(ctx, classID, date, periodNumber)
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if n == 0 {
		return nil
	}
	svc.logger.Info("timetable: assignment cleared", actor, map[string]interface{}{
		"class_id": classID,
		"date":     clock.DateKey(date),
		"period":   periodNumber,
	})
	svc.publish(ctx, actor, ChangeEvent{ClassID: classID, Date: date, Kind: AssignmentCleared, PeriodNumbers: []int{periodNumber}})
	return nil
}

func (svc *Service) saveAssignment(
	ctx context.Context,
	actor core.Actor,
	classID string,
	date time.Time,
	periodNumber int,
	p Proposal,
) (DaySlotAssignment, error) {
	entry, err := svc.checkAssignment(ctx, classID, date, periodNumber, &p)
	if err != nil {
		return DaySlotAssignment{}, err
	}

	now := time.Now().UTC()
	asg := DaySlotAssignment{
		SchoolID:     entry.Slot.SchoolID,
		ClassID:      classID,
		Date:         date,
		PeriodNumber: periodNumber,
		StartTime:    entry.Slot.StartTime,
		EndTime:      entry.Slot.EndTime,
		SubjectID:    p.SubjectID,
		TeacherID:    p.TeacherID,
		ChapterRef:   p.ChapterRef,
		Notes:        p.Notes,
		Status:       p.Status,
		CreatedBy:    actor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if cur := entry.Assignment; cur != nil {
		asg.ID = cur.ID
		asg.CreatedBy = cur.CreatedBy
		asg.CreatedAt = cur.CreatedAt
	}

	asg, err = svc.repo.UpsertAssignment(ctx, asg)
	if err != nil {
		return DaySlotAssignment{}, errors.Wrap(err, "upserting assignment")
	}
	return asg, nil
}

// checkAssignment runs the ValidateAssignment checks and returns the resolved entry of the period.
func (svc *Service) checkAssignment(
	ctx context.Context,
	classID string,
	date time.Time,
	periodNumber int,
	p *Proposal,
) (DayEntry, error) {
	p.clean()

	day, err := svc.ResolveDay(ctx, classID, date)
	if err != nil {
		return DayEntry{}, err
	}
	entry, ok := day.Period(periodNumber)
	if !ok {
		return DayEntry{}, errors.Wrapf(ErrNotFound, "period #%d of class %s", periodNumber, classID)
	}

	// (a) breaks
	if entry.BlockedBy != nil {
		return entry, &ConflictError{
			Kind:         BreakConflict,
			ClassID:      classID,
			PeriodNumber: periodNumber,
			With:         entry.BlockedBy.Name,
		}
	}

	// (b) subject/teacher pair
	if err := svc.validate.Struct(*p); err != nil {
		tErr := core.TranslateValidationErrors(err, svc.translator)
		var vErr *core.ValidationError
		if isIncompletePair(err) && errors.As(tErr, &vErr) {
			return entry, core.NewValidationError(ErrIncompleteAssignment, vErr.Fields...)
		}
		return entry, tErr
	}

	// (c) same class, same day
	span := entry.Slot.Span()
	for _, other := range day.Entries {
		if !other.Slot.IsPeriod() || other.Slot.SlotNumber == periodNumber || other.Assignment == nil {
			continue
		}
		if span.Overlaps(other.Slot.Span()) {
			return entry, &ConflictError{
				Kind:         TimeOverlap,
				ClassID:      classID,
				PeriodNumber: periodNumber,
				With:         other.Slot.Label(),
				WithClassID:  classID,
				WithPeriod:   other.Slot.SlotNumber,
			}
		}
	}
	for _, orphan := range day.Orphans {
		if span.Overlaps(orphan.Span()) {
			return entry, &ConflictError{
				Kind:         TimeOverlap,
				ClassID:      classID,
				PeriodNumber: periodNumber,
				With:         "Period #" + strconv.Itoa(orphan.PeriodNumber),
				WithClassID:  classID,
				WithPeriod:   orphan.PeriodNumber,
			}
		}
	}

	// (d) same teacher, other classes of the school
	if p.TeacherID == "" {
		return entry, nil
	}
	school, err := svc.repo.ListAssignmentsForSchoolDate(ctx, entry.Slot.SchoolID, date)
	if err != nil {
		return entry, errors.Wrap(err, "listing school assignments")
	}
	for _, other := range school {
		if other.ClassID == classID || other.TeacherID != p.TeacherID {
			continue
		}
		if span.Overlaps(other.Span()) {
			return entry, &ConflictError{
				Kind:         TeacherDoubleBooked,
				ClassID:      classID,
				PeriodNumber: periodNumber,
				With:         "Period #" + strconv.Itoa(other.PeriodNumber),
				WithClassID:  other.ClassID,
				WithPeriod:   other.PeriodNumber,
				TeacherID:    p.TeacherID,
			}
		}
	}
	return entry, nil
}
