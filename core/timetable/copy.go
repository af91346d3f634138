package timetable

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/clock"
)

const nothingToCopy = "nothing to copy from source date"

// CopyDay copies the lesson assignments of a class from source to target.
//
// In replace mode the target day ends up holding exactly the copied rows; in merge
// mode copied rows overwrite target rows of the same period and other target rows
// are kept. Rows of periods blocked by a break on the target weekday are skipped.
// The write is rejected as a whole when two resulting rows would overlap.
// Teacher availability in other classes is not checked.
func (svc *Service) CopyDay(
	ctx context.Context,
	actor core.Actor,
	classID string,
	source, target time.Time,
	opts CopyOptions,
) (CopyResult, error) {
	classID = core.CleanString(classID)
	source, target = clock.Day(source), clock.Day(target)
	opts.Mode = CopyMode(core.CleanString(string(opts.Mode), true /* lower */))

	if err := svc.validateStruct(opts); err != nil {
		return CopyResult{}, err
	}
	if source.Equal(target) {
		return CopyResult{}, core.NewValidationError(ErrSameDay, core.FieldError{Field: "target", Error: ErrSameDay.Error()})
	}

	slots, err := svc.repo.ListClassSlots(ctx, classID)
	if err != nil {
		return CopyResult{}, errors.Wrap(err, "listing class slots")
	}
	if err := checkSlotsSchool(slots, actor.SchoolID, classID); err != nil {
		return CopyResult{}, err
	}
	srcRows, err := svc.repo.ListDayAssignments(ctx, classID, source)
	if err != nil {
		return CopyResult{}, errors.Wrap(err, "listing source assignments")
	}
	targetDay := resolve(classID, target, slots, nil)

	var (
		res  CopyResult
		rows []DaySlotAssignment
		now  = time.Now().UTC()
	)
	if opts.IncludeLessons {
		for _, src := range srcRows {
			entry, ok := targetDay.Period(src.PeriodNumber)
			if !ok {
				continue // period no longer in the catalog
			}
			if !entry.Assignable() {
				res.Skipped = append(res.Skipped, src.PeriodNumber)
				continue
			}
			status := src.Status
			if status == "" {
				status = StatusPlanned
			}
			rows = append(rows, DaySlotAssignment{
				SchoolID:     entry.Slot.SchoolID,
				ClassID:      classID,
				Date:         target,
				PeriodNumber: src.PeriodNumber,
				StartTime:    entry.Slot.StartTime,
				EndTime:      entry.Slot.EndTime,
				SubjectID:    src.SubjectID,
				TeacherID:    src.TeacherID,
				ChapterRef:   src.ChapterRef,
				Notes:        src.Notes,
				Status:       status,
				CreatedBy:    actor.ID,
				CreatedAt:    now,
				UpdatedAt:    now,
			})
		}
	}
	sort.Ints(res.Skipped)

	if len(rows) == 0 {
		res.Info = nothingToCopy
		return res, nil
	}

	final := rows
	if opts.Mode == CopyMerge {
		kept, err := svc.repo.ListDayAssignments(ctx, classID, target)
		if err != nil {
			return CopyResult{}, errors.Wrap(err, "listing target assignments")
		}
		final = mergeRows(kept, rows)
	}
	if err := checkRowsOverlap(classID, final); err != nil {
		return CopyResult{}, err
	}

	switch opts.Mode {
	case CopyReplace:
		res.Written, err = svc.repo.ReplaceDayAssignments(ctx, classID, target, rows)
	case CopyMerge:
		res.Written, err = svc.repo.MergeDayAssignments(ctx, classID, target, rows)
	}
	if err != nil {
		return CopyResult{}, errors.Wrapf(err, "copying day (%s)", opts.Mode)
	}

	nums := make([]int, 0, len(rows))
	for _, r := range rows {
		nums = append(nums, r.PeriodNumber)
	}
	sort.Ints(nums)
	svc.logger.Info("timetable: day copied", actor, map[string]interface{}{
		"class_id": classID,
		"source":   clock.DateKey(source),
		"target":   clock.DateKey(target),
		"mode":     opts.Mode,
		"written":  res.Written,
		"skipped":  res.Skipped,
	})
	svc.publish(ctx, actor, ChangeEvent{ClassID: classID, Date: target, Kind: DayCopied, PeriodNumbers: nums})
	return res, nil
}

// mergeRows overlays copied rows on the kept target rows by period number.
func mergeRows(kept, copied []DaySlotAssignment) []DaySlotAssignment {
	byPeriod := make(map[int]DaySlotAssignment, len(kept)+len(copied))
	for _, r := range kept {
		byPeriod[r.PeriodNumber] = r
	}
	for _, r := range copied {
		byPeriod[r.PeriodNumber] = r
	}
	out := make([]DaySlotAssignment, 0, len(byPeriod))
	for _, r := range byPeriod {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodNumber < out[j].PeriodNumber })
	return out
}

// checkRowsOverlap fails with a TimeOverlap conflict on the first pair of overlapping rows.
func checkRowsOverlap(classID string, rows []DaySlotAssignment) error {
	sorted := make([]DaySlotAssignment, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].StartTime != sorted[j].StartTime {
			return sorted[i].StartTime < sorted[j].StartTime
		}
		return sorted[i].PeriodNumber < sorted[j].PeriodNumber
	})
	for i := 1; i < len(sorted); i++ {
		for j := 0; j < i; j++ {
			if sorted[i].Span().Overlaps(sorted[j].Span()) {
				return &ConflictError{
					Kind:         TimeOverlap,
					ClassID:      classID,
					PeriodNumber: sorted[i].PeriodNumber,
					With:         "Period #" + strconv.Itoa(sorted[j].PeriodNumber),
					WithClassID:  classID,
					WithPeriod:   sorted[j].PeriodNumber,
				}
			}
		}
	}
	return nil
}
