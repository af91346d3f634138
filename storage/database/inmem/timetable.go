package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/ratiba/core/clock"
	"github.com/trezcool/ratiba/core/timetable"
)

type timetableRepository struct {
	db *DB
}

var _ timetable.Repository = (*timetableRepository)(nil) // interface compliance check

func NewTimetableRepository(db *DB) timetable.Repository {
	return &timetableRepository{db: db}
}

func sameDay(a, b time.Time) bool { return clock.DateKey(a) == clock.DateKey(b) }

func copySlot(s timetable.ClassSlot) timetable.ClassSlot {
	s.Weekdays = append([]int(nil), s.Weekdays...)
	return s
}

// Slots

func (repo *timetableRepository) ListClassSlots(ctx context.Context, classID string) ([]timetable.ClassSlot, error) {
	if err := repo.db.check("listing class slots"); err != nil {
		return nil, err
	}
	tbl := repo.db.slot
	tbl.RLock()
	defer tbl.RUnlock()

	slots := make([]timetable.ClassSlot, 0)
	for _, s := range tbl.table {
		if s.ClassID == classID {
			slots = append(slots, copySlot(*s))
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].StartTime < slots[j].StartTime })
	return slots, nil
}

func (repo *timetableRepository) GetClassSlot(ctx context.Context, id string) (timetable.ClassSlot, error) {
	if err := repo.db.check("getting class slot"); err != nil {
		return timetable.ClassSlot{}, err
	}
	tbl := repo.db.slot
	tbl.RLock()
	defer tbl.RUnlock()

	if s, ok := tbl.table[id]; ok {
		return copySlot(*s), nil
	}
	return timetable.ClassSlot{}, timetable.ErrNotFound
}

func (repo *timetableRepository) InsertClassSlot(ctx context.Context, slot timetable.ClassSlot) (timetable.ClassSlot, error) {
	if err := repo.db.check("inserting class slot"); err != nil {
		return timetable.ClassSlot{}, err
	}
	tbl := repo.db.slot
	tbl.Lock()
	defer tbl.Unlock()

	if slot.IsPeriod() {
		for _, s := range tbl.table {
			if s.ClassID == slot.ClassID && s.IsPeriod() && s.SlotNumber == slot.SlotNumber {
				return timetable.ClassSlot{}, timetable.ErrUniquenessViolation
			}
		}
	}
	slot.ID = uuid.New().String()
	slot = copySlot(slot)
	tbl.table[slot.ID] = &slot
	return copySlot(slot), nil
}

func (repo *timetableRepository) DeleteClassSlot(ctx context.Context, id string) error {
	if err := repo.db.check("deleting class slot"); err != nil {
		return err
	}
	tbl := repo.db.slot
	tbl.Lock()
	defer tbl.Unlock()

	if _, ok := tbl.table[id]; !ok {
		return timetable.ErrNotFound
	}
	delete(tbl.table, id)
	return nil
}

// Assignments

// filter returns copies of the rows matching keep, ordered by period. Callers hold the lock.
func (tbl *assignmentTable) filter(keep func(a *timetable.DaySlotAssignment) bool) []timetable.DaySlotAssignment {
	rows := make([]timetable.DaySlotAssignment, 0)
	for _, a := range tbl.table {
		if keep(a) {
			rows = append(rows, *a)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ClassID != rows[j].ClassID {
			return rows[i].ClassID < rows[j].ClassID
		}
		return rows[i].PeriodNumber < rows[j].PeriodNumber
	})
	return rows
}

// find returns the row of (class, date, period). Callers hold the lock.
func (tbl *assignmentTable) find(classID string, date time.Time, period int) (*timetable.DaySlotAssignment, bool) {
	for _, a := range tbl.table {
		if a.ClassID == classID && a.PeriodNumber == period && sameDay(a.Date, date) {
			return a, true
		}
	}
	return nil, false
}

// deleteWhere removes the rows matching match. Callers hold the lock.
func (tbl *assignmentTable) deleteWhere(match func(a *timetable.DaySlotAssignment) bool) int {
	var n int
	for id, a := range tbl.table {
		if match(a) {
			delete(tbl.table, id)
			n++
		}
	}
	return n
}

func (tbl *assignmentTable) insert(asg timetable.DaySlotAssignment) timetable.DaySlotAssignment {
	asg.ID = uuid.New().String()
	asg.Date = clock.Day(asg.Date)
	tbl.table[asg.ID] = &asg
	return asg
}

func (repo *timetableRepository) ListDayAssignments(ctx context.Context, classID string, date time.Time) ([]timetable.DaySlotAssignment, error) {
	if err := repo.db.check("listing day assignments"); err != nil {
		return nil, err
	}
	tbl := repo.db.assignment
	tbl.RLock()
	defer tbl.RUnlock()

	return tbl.filter(func(a *timetable.DaySlotAssignment) bool {
		return a.ClassID == classID && sameDay(a.Date, date)
	}), nil
}

func (repo *timetableRepository) ListAssignmentsForSchoolDate(ctx context.Context, schoolID string, date time.Time) ([]timetable.DaySlotAssignment, error) {
	if err := repo.db.check("listing school assignments"); err != nil {
		return nil, err
	}
	tbl := repo.db.assignment
	tbl.RLock()
	defer tbl.RUnlock()

	return tbl.filter(func(a *timetable.DaySlotAssignment) bool {
		return a.SchoolID == schoolID && sameDay(a.Date, date)
	}), nil
}

func (repo *timetableRepository) UpsertAssignment(ctx context.Context, asg timetable.DaySlotAssignment) (timetable.DaySlotAssignment, error) {
	if err := repo.db.check("upserting assignment"); err != nil {
		return timetable.DaySlotAssignment{}, err
	}
	tbl := repo.db.assignment
	tbl.Lock()
	defer tbl.Unlock()

	if asg.ID == "" {
		if _, taken := tbl.find(asg.ClassID, asg.Date, asg.PeriodNumber); taken {
			return timetable.DaySlotAssignment{}, timetable.ErrUniquenessViolation
		}
		return tbl.insert(asg), nil
	}

	cur, ok := tbl.table[asg.ID]
	if !ok {
		return timetable.DaySlotAssignment{}, timetable.ErrNotFound
	}
	if other, taken := tbl.find(asg.ClassID, asg.Date, asg.PeriodNumber); taken && other.ID != asg.ID {
		return timetable.DaySlotAssignment{}, timetable.ErrUniquenessViolation
	}
	asg.Date = clock.Day(asg.Date)
	asg.CreatedAt = cur.CreatedAt
	asg.CreatedBy = cur.CreatedBy
	*cur = asg
	return asg, nil
}

func (repo *timetableRepository) DeleteAssignments(ctx context.Context, classID string, date time.Time, periodNumbers ...int) (int, error) {
	if err := repo.db.check("deleting assignments"); err != nil {
		return 0, err
	}
	tbl := repo.db.assignment
	tbl.Lock()
	defer tbl.Unlock()

	periods := make(map[int]bool, len(periodNumbers))
	for _, p := range periodNumbers {
		periods[p] = true
	}
	return tbl.deleteWhere(func(a *timetable.DaySlotAssignment) bool {
		return a.ClassID == classID && sameDay(a.Date, date) && (len(periods) == 0 || periods[a.PeriodNumber])
	}), nil
}

func (repo *timetableRepository) DeletePeriodAssignments(ctx context.Context, classID string, periodNumber int) (int, error) {
	if err := repo.db.check("deleting period assignments"); err != nil {
		return 0, err
	}
	tbl := repo.db.assignment
	tbl.Lock()
	defer tbl.Unlock()

	return tbl.deleteWhere(func(a *timetable.DaySlotAssignment) bool {
		return a.ClassID == classID && a.PeriodNumber == periodNumber
	}), nil
}

func (repo *timetableRepository) ReplaceDayAssignments(
	ctx context.Context,
	classID string,
	date time.Time,
	rows []timetable.DaySlotAssignment,
) (int, error) {
	if err := repo.db.check("replacing day assignments"); err != nil {
		return 0, err
	}
	tbl := repo.db.assignment
	tbl.Lock()
	defer tbl.Unlock()

	if err := checkDistinctPeriods(rows); err != nil {
		return 0, err
	}
	tbl.deleteWhere(func(a *timetable.DaySlotAssignment) bool {
		return a.ClassID == classID && sameDay(a.Date, date)
	})
	for _, r := range rows {
		r.ClassID, r.Date = classID, date
		tbl.insert(r)
	}
	return len(rows), nil
}

func (repo *timetableRepository) MergeDayAssignments(
	ctx context.Context,
	classID string,
	date time.Time,
	rows []timetable.DaySlotAssignment,
) (int, error) {
	if err := repo.db.check("merging day assignments"); err != nil {
		return 0, err
	}
	tbl := repo.db.assignment
	tbl.Lock()
	defer tbl.Unlock()

	if err := checkDistinctPeriods(rows); err != nil {
		return 0, err
	}
	for _, r := range rows {
		r.ClassID, r.Date = classID, clock.Day(date)
		if cur, ok := tbl.find(classID, date, r.PeriodNumber); ok {
			r.ID, r.CreatedAt, r.CreatedBy = cur.ID, cur.CreatedAt, cur.CreatedBy
			*cur = r
			continue
		}
		tbl.insert(r)
	}
	return len(rows), nil
}

func checkDistinctPeriods(rows []timetable.DaySlotAssignment) error {
	seen := make(map[int]bool, len(rows))
	for _, r := range rows {
		if seen[r.PeriodNumber] {
			return timetable.ErrUniquenessViolation
		}
		seen[r.PeriodNumber] = true
	}
	return nil
}

// Break templates

func (repo *timetableRepository) ListBreakTemplates(ctx context.Context, schoolID string) ([]timetable.BreakTemplate, error) {
	if err := repo.db.check("listing break templates"); err != nil {
		return nil, err
	}
	tbl := repo.db.template
	tbl.RLock()
	defer tbl.RUnlock()

	tpls := make([]timetable.BreakTemplate, 0)
	for _, t := range tbl.table {
		if t.SchoolID == schoolID {
			tpls = append(tpls, *t)
		}
	}
	sort.Slice(tpls, func(i, j int) bool { return strings.ToLower(tpls[i].Name) < strings.ToLower(tpls[j].Name) })
	return tpls, nil
}

func (repo *timetableRepository) UpsertBreakTemplate(ctx context.Context, tpl timetable.BreakTemplate) (timetable.BreakTemplate, error) {
	if err := repo.db.check("upserting break template"); err != nil {
		return timetable.BreakTemplate{}, err
	}
	tbl := repo.db.template
	tbl.Lock()
	defer tbl.Unlock()

	for _, t := range tbl.table {
		if t.SchoolID == tpl.SchoolID && t.Name == tpl.Name {
			t.DefaultDuration = tpl.DefaultDuration
			return *t, nil
		}
	}
	tpl.ID = uuid.New().String()
	tbl.table[tpl.ID] = &tpl
	return tpl, nil
}

func (repo *timetableRepository) GetBreakTemplate(ctx context.Context, id string) (timetable.BreakTemplate, error) {
	if err := repo.db.check("getting break template"); err != nil {
		return timetable.BreakTemplate{}, err
	}
	tbl := repo.db.template
	tbl.RLock()
	defer tbl.RUnlock()

	if t, ok := tbl.table[id]; ok {
		return *t, nil
	}
	return timetable.BreakTemplate{}, timetable.ErrNotFound
}

func (repo *timetableRepository) DeleteBreakTemplate(ctx context.Context, id string) error {
	if err := repo.db.check("deleting break template"); err != nil {
		return err
	}
	tbl := repo.db.template
	tbl.Lock()
	defer tbl.Unlock()

	if _, ok := tbl.table[id]; !ok {
		return timetable.ErrNotFound
	}
	delete(tbl.table, id)
	return nil
}
