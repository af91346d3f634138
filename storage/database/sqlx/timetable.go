package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/trezcool/ratiba/core/clock"
	"github.com/trezcool/ratiba/core/timetable"
)

const (
	slotColumns = `id, school_id, class_id, slot_type, slot_number, name, start_time, end_time, weekdays, created_by, created_at`

	assignmentColumns = `id, school_id, class_id, class_date, period_number, start_time, end_time,
		subject_id, teacher_id, chapter_ref, notes, status, created_by, created_at, updated_at`

	templateColumns = `id, school_id, name, default_duration, created_by, created_at`

	insertAssignment = `INSERT INTO day_slot_assignment (` + assignmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
)

// slotRow carries the weekdays array ClassSlot does not map.
type slotRow struct {
	timetable.ClassSlot
	Weekdays pq.Int64Array `db:"weekdays"`
}

func (r slotRow) slot() timetable.ClassSlot {
	s := r.ClassSlot
	s.Weekdays = make([]int, 0, len(r.Weekdays))
	for _, d := range r.Weekdays {
		s.Weekdays = append(s.Weekdays, int(d))
	}
	if s.IsPeriod() {
		s.Weekdays = nil
	}
	return s
}

type timetableRepository struct {
	db *sqlx.DB
}

var _ timetable.Repository = (*timetableRepository)(nil) // interface compliance check

func NewTimetableRepository(db *sqlx.DB) timetable.Repository {
	return &timetableRepository{db: db}
}

// Slots

func (repo *timetableRepository) ListClassSlots(ctx context.Context, classID string) ([]timetable.ClassSlot, error) {
	var rows []slotRow
	q := `SELECT ` + slotColumns + ` FROM class_slot WHERE class_id = $1 ORDER BY start_time, slot_number, name`
	if err := repo.db.SelectContext(ctx, &rows, q, classID); err != nil {
		return nil, wrap(err, "selecting class slots")
	}
	slots := make([]timetable.ClassSlot, 0, len(rows))
	for _, r := range rows {
		slots = append(slots, r.slot())
	}
	return slots, nil
}

func (repo *timetableRepository) GetClassSlot(ctx context.Context, id string) (timetable.ClassSlot, error) {
	if !validID(id) {
		return timetable.ClassSlot{}, timetable.ErrNotFound
	}
	var row slotRow
	q := `SELECT ` + slotColumns + ` FROM class_slot WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return timetable.ClassSlot{}, trapNoRowsErr(err, timetable.ErrNotFound, "selecting class slot")
	}
	return row.slot(), nil
}

func (repo *timetableRepository) InsertClassSlot(ctx context.Context, slot timetable.ClassSlot) (timetable.ClassSlot, error) {
	slot.ID = uuid.New().String()
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}
	weekdays := make(pq.Int64Array, 0, len(slot.Weekdays))
	for _, d := range slot.Weekdays {
		weekdays = append(weekdays, int64(d))
	}

	q := `INSERT INTO class_slot (` + slotColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := repo.db.ExecContext(ctx, q,
		slot.ID, slot.SchoolID, slot.ClassID, slot.SlotType, slot.SlotNumber, slot.Name,
		slot.StartTime, slot.EndTime, weekdays, slot.CreatedBy, slot.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return timetable.ClassSlot{}, timetable.ErrUniquenessViolation
		}
		return timetable.ClassSlot{}, wrap(err, "inserting class slot")
	}
	return slot, nil
}

func (repo *timetableRepository) DeleteClassSlot(ctx context.Context, id string) error {
	if !validID(id) {
		return timetable.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM class_slot WHERE id = $1`, id)
	if err != nil {
		return wrap(err, "deleting class slot")
	}
	n, err := rowsAffected(res, "deleting class slot")
	if err != nil {
		return err
	}
	if n == 0 {
		return timetable.ErrNotFound
	}
	return nil
}

// Assignments

func assignmentArgs(a timetable.DaySlotAssignment) []interface{} {
	return []interface{}{
		a.ID, a.SchoolID, a.ClassID, clock.DateKey(a.Date), a.PeriodNumber, a.StartTime, a.EndTime,
		a.SubjectID, a.TeacherID, a.ChapterRef, a.Notes, a.Status, a.CreatedBy, a.CreatedAt, a.UpdatedAt,
	}
}

func normalize(rows []timetable.DaySlotAssignment) []timetable.DaySlotAssignment {
	for i := range rows {
		rows[i].Date = clock.Day(rows[i].Date)
		rows[i].CreatedAt = rows[i].CreatedAt.UTC()
		rows[i].UpdatedAt = rows[i].UpdatedAt.UTC()
	}
	return rows
}

func (repo *timetableRepository) ListDayAssignments(ctx context.Context, classID string, date time.Time) ([]timetable.DaySlotAssignment, error) {
	rows := make([]timetable.DaySlotAssignment, 0)
	q := `SELECT ` + assignmentColumns + ` FROM day_slot_assignment
		WHERE class_id = $1 AND class_date = $2 ORDER BY period_number`
	if err := repo.db.SelectContext(ctx, &rows, q, classID, clock.DateKey(date)); err != nil {
		return nil, wrap(err, "selecting day assignments")
	}
	return normalize(rows), nil
}

func (repo *timetableRepository) ListAssignmentsForSchoolDate(ctx context.Context, schoolID string, date time.Time) ([]timetable.DaySlotAssignment, error) {
	rows := make([]timetable.DaySlotAssignment, 0)
	q := `SELECT ` + assignmentColumns + ` FROM day_slot_assignment
		WHERE school_id = $1 AND class_date = $2 ORDER BY class_id, period_number`
	if err := repo.db.SelectContext(ctx, &rows, q, schoolID, clock.DateKey(date)); err != nil {
		return nil, wrap(err, "selecting school assignments")
	}
	return normalize(rows), nil
}

func (repo *timetableRepository) UpsertAssignment(ctx context.Context, asg timetable.DaySlotAssignment) (timetable.DaySlotAssignment, error) {
	asg.Date = clock.Day(asg.Date)

	if asg.ID == "" {
		asg.ID = uuid.New().String()
		if _, err := repo.db.ExecContext(ctx, insertAssignment, assignmentArgs(asg)...); err != nil {
			if isUniqueViolation(err) {
				return timetable.DaySlotAssignment{}, timetable.ErrUniquenessViolation
			}
			return timetable.DaySlotAssignment{}, wrap(err, "inserting assignment")
		}
		return asg, nil
	}

	if !validID(asg.ID) {
		return timetable.DaySlotAssignment{}, timetable.ErrNotFound
	}
	q := `UPDATE day_slot_assignment SET
			class_id = $2, class_date = $3, period_number = $4, start_time = $5, end_time = $6,
			subject_id = $7, teacher_id = $8, chapter_ref = $9, notes = $10, status = $11, updated_at = $12
		WHERE id = $1
		RETURNING created_by, created_at`
	err := repo.db.QueryRowxContext(ctx, q,
		asg.ID, asg.ClassID, clock.DateKey(asg.Date), asg.PeriodNumber, asg.StartTime, asg.EndTime,
		asg.SubjectID, asg.TeacherID, asg.ChapterRef, asg.Notes, asg.Status, asg.UpdatedAt,
	).Scan(&asg.CreatedBy, &asg.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return timetable.DaySlotAssignment{}, timetable.ErrUniquenessViolation
		}
		return timetable.DaySlotAssignment{}, trapNoRowsErr(err, timetable.ErrNotFound, "updating assignment")
	}
	asg.CreatedAt = asg.CreatedAt.UTC()
	return asg, nil
}

func (repo *timetableRepository) DeleteAssignments(ctx context.Context, classID string, date time.Time, periodNumbers ...int) (int, error) {
	q := `DELETE FROM day_slot_assignment WHERE class_id = $1 AND class_date = $2`
	args := []interface{}{classID, clock.DateKey(date)}
	if len(periodNumbers) > 0 {
		periods := make(pq.Int64Array, 0, len(periodNumbers))
		for _, p := range periodNumbers {
			periods = append(periods, int64(p))
		}
		q += ` AND period_number = ANY($3)`
		args = append(args, periods)
	}
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, wrap(err, "deleting assignments")
	}
	return rowsAffected(res, "deleting assignments")
}

func (repo *timetableRepository) DeletePeriodAssignments(ctx context.Context, classID string, periodNumber int) (int, error) {
	res, err := repo.db.ExecContext(ctx,
		`DELETE FROM day_slot_assignment WHERE class_id = $1 AND period_number = $2`, classID, periodNumber)
	if err != nil {
		return 0, wrap(err, "deleting period assignments")
	}
	return rowsAffected(res, "deleting period assignments")
}

func insertRows(ctx context.Context, tx *sqlx.Tx, q, classID string, date time.Time, rows []timetable.DaySlotAssignment) error {
	for _, r := range rows {
		r.ID = uuid.New().String()
		r.ClassID, r.Date = classID, date
		if _, err := tx.ExecContext(ctx, q, assignmentArgs(r)...); err != nil {
			if isUniqueViolation(err) {
				return timetable.ErrUniquenessViolation
			}
			return wrap(err, "inserting assignment")
		}
	}
	return nil
}

func (repo *timetableRepository) ReplaceDayAssignments(
	ctx context.Context,
	classID string,
	date time.Time,
	rows []timetable.DaySlotAssignment,
) (int, error) {
	date = clock.Day(date)
	err := withTx(ctx, repo.db, "replacing day assignments", func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM day_slot_assignment WHERE class_id = $1 AND class_date = $2`, classID, clock.DateKey(date))
		if err != nil {
			return wrap(err, "clearing day assignments")
		}
		return insertRows(ctx, tx, insertAssignment, classID, date, rows)
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (repo *timetableRepository) MergeDayAssignments(
	ctx context.Context,
	classID string,
	date time.Time,
	rows []timetable.DaySlotAssignment,
) (int, error) {
	seen := make(map[int]bool, len(rows))
	for _, r := range rows {
		if seen[r.PeriodNumber] {
			return 0, timetable.ErrUniquenessViolation
		}
		seen[r.PeriodNumber] = true
	}

	q := insertAssignment + `
		ON CONFLICT ON CONSTRAINT day_slot_assignment_period_key DO UPDATE SET
			school_id = EXCLUDED.school_id, start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time,
			subject_id = EXCLUDED.subject_id, teacher_id = EXCLUDED.teacher_id, chapter_ref = EXCLUDED.chapter_ref,
			notes = EXCLUDED.notes, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`
	err := withTx(ctx, repo.db, "merging day assignments", func(tx *sqlx.Tx) error {
		return insertRows(ctx, tx, q, classID, clock.Day(date), rows)
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Break templates

func (repo *timetableRepository) ListBreakTemplates(ctx context.Context, schoolID string) ([]timetable.BreakTemplate, error) {
	tpls := make([]timetable.BreakTemplate, 0)
	q := `SELECT ` + templateColumns + ` FROM break_template WHERE school_id = $1 ORDER BY lower(name)`
	if err := repo.db.SelectContext(ctx, &tpls, q, schoolID); err != nil {
		return nil, wrap(err, "selecting break templates")
	}
	return tpls, nil
}

func (repo *timetableRepository) UpsertBreakTemplate(ctx context.Context, tpl timetable.BreakTemplate) (timetable.BreakTemplate, error) {
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = time.Now().UTC()
	}
	var saved timetable.BreakTemplate
	q := `INSERT INTO break_template (` + templateColumns + `) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT break_template_name_key DO UPDATE SET default_duration = EXCLUDED.default_duration
		RETURNING ` + templateColumns
	err := repo.db.GetContext(ctx, &saved, q,
		uuid.New().String(), tpl.SchoolID, tpl.Name, tpl.DefaultDuration, tpl.CreatedBy, tpl.CreatedAt)
	if err != nil {
		return timetable.BreakTemplate{}, wrap(err, "upserting break template")
	}
	return saved, nil
}

func (repo *timetableRepository) GetBreakTemplate(ctx context.Context, id string) (timetable.BreakTemplate, error) {
	if !validID(id) {
		return timetable.BreakTemplate{}, timetable.ErrNotFound
	}
	var tpl timetable.BreakTemplate
	q := `SELECT ` + templateColumns + ` FROM break_template WHERE id = $1`
	if err := repo.db.GetContext(ctx, &tpl, q, id); err != nil {
		return timetable.BreakTemplate{}, trapNoRowsErr(err, timetable.ErrNotFound, "selecting break template")
	}
	return tpl, nil
}

func (repo *timetableRepository) DeleteBreakTemplate(ctx context.Context, id string) error {
	if !validID(id) {
		return timetable.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM break_template WHERE id = $1`, id)
	if err != nil {
		return wrap(err, "deleting break template")
	}
	n, err := rowsAffected(res, "deleting break template")
	if err != nil {
		return err
	}
	if n == 0 {
		return timetable.ErrNotFound
	}
	return nil
}
