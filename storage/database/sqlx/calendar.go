package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/ratiba/core/calendar"
	"github.com/trezcool/ratiba/core/clock"
)

const overrideColumns = `id, school_id, date, status, label, created_by, updated_at`

type calendarRepository struct {
	db *sqlx.DB
}

var _ calendar.Repository = (*calendarRepository)(nil) // interface compliance check

func NewCalendarRepository(db *sqlx.DB) calendar.Repository {
	return &calendarRepository{db: db}
}

func unifyOverride(ovr calendar.Override) calendar.Override {
	ovr.Date = clock.Day(ovr.Date)
	ovr.UpdatedAt = ovr.UpdatedAt.UTC()
	return ovr
}

func (repo *calendarRepository) GetOverride(ctx context.Context, schoolID string, date time.Time) (calendar.Override, error) {
	var ovr calendar.Override
	q := `SELECT ` + overrideColumns + ` FROM calendar_override WHERE school_id = $1 AND date = $2`
	if err := repo.db.GetContext(ctx, &ovr, q, schoolID, clock.DateKey(date)); err != nil {
		return calendar.Override{}, trapNoRowsErr(err, calendar.ErrNotFound, "selecting calendar override")
	}
	return unifyOverride(ovr), nil
}

func (repo *calendarRepository) UpsertOverride(ctx context.Context, ovr calendar.Override) (calendar.Override, error) {
	var saved calendar.Override
	q := `INSERT INTO calendar_override (` + overrideColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ON CONSTRAINT calendar_override_date_key DO UPDATE SET
			status = EXCLUDED.status, label = EXCLUDED.label,
			created_by = EXCLUDED.created_by, updated_at = EXCLUDED.updated_at
		RETURNING ` + overrideColumns
	err := repo.db.GetContext(ctx, &saved, q,
		uuid.New().String(), ovr.SchoolID, clock.DateKey(ovr.Date), ovr.Status, ovr.Label, ovr.CreatedBy, ovr.UpdatedAt)
	if err != nil {
		return calendar.Override{}, wrap(err, "upserting calendar override")
	}
	return unifyOverride(saved), nil
}

func (repo *calendarRepository) DeleteOverride(ctx context.Context, schoolID string, date time.Time) error {
	res, err := repo.db.ExecContext(ctx,
		`DELETE FROM calendar_override WHERE school_id = $1 AND date = $2`, schoolID, clock.DateKey(date))
	if err != nil {
		return wrap(err, "deleting calendar override")
	}
	n, err := rowsAffected(res, "deleting calendar override")
	if err != nil {
		return err
	}
	if n == 0 {
		return calendar.ErrNotFound
	}
	return nil
}

func (repo *calendarRepository) ListOverrides(ctx context.Context, schoolID string, from, to time.Time) ([]calendar.Override, error) {
	ovrs := make([]calendar.Override, 0)
	q := `SELECT ` + overrideColumns + ` FROM calendar_override
		WHERE school_id = $1 AND date BETWEEN $2 AND $3 ORDER BY date`
	if err := repo.db.SelectContext(ctx, &ovrs, q, schoolID, clock.DateKey(from), clock.DateKey(to)); err != nil {
		return nil, wrap(err, "selecting calendar overrides")
	}
	for i := range ovrs {
		ovrs[i] = unifyOverride(ovrs[i])
	}
	return ovrs, nil
}
