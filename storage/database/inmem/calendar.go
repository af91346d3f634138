package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/ratiba/core/calendar"
	"github.com/trezcool/ratiba/core/clock"
)

type calendarRepository struct {
	db *DB
}

var _ calendar.Repository = (*calendarRepository)(nil) // interface compliance check

func NewCalendarRepository(db *DB) calendar.Repository {
	return &calendarRepository{db: db}
}

func overrideKey(schoolID string, date time.Time) string {
	return schoolID + "/" + clock.DateKey(date)
}

func (repo *calendarRepository) GetOverride(ctx context.Context, schoolID string, date time.Time) (calendar.Override, error) {
	if err := repo.db.check("getting calendar override"); err != nil {
		return calendar.Override{}, err
	}
	repo.db.override.RLock()
	defer repo.db.override.RUnlock()

	if ovr, ok := repo.db.override.table[overrideKey(schoolID, date)]; ok {
		return *ovr, nil
	}
	return calendar.Override{}, calendar.ErrNotFound
}

func (repo *calendarRepository) UpsertOverride(ctx context.Context, ovr calendar.Override) (calendar.Override, error) {
	if err := repo.db.check("upserting calendar override"); err != nil {
		return calendar.Override{}, err
	}
	repo.db.override.Lock()
	defer repo.db.override.Unlock()

	ovr.Date = clock.Day(ovr.Date)
	key := overrideKey(ovr.SchoolID, ovr.Date)
	if cur, ok := repo.db.override.table[key]; ok {
		ovr.ID = cur.ID
	} else {
		ovr.ID = uuid.New().String()
	}
	repo.db.override.table[key] = &ovr
	return ovr, nil
}

func (repo *calendarRepository) DeleteOverride(ctx context.Context, schoolID string, date time.Time) error {
	if err := repo.db.check("deleting calendar override"); err != nil {
		return err
	}
	repo.db.override.Lock()
	defer repo.db.override.Unlock()

	key := overrideKey(schoolID, date)
	if _, ok := repo.db.override.table[key]; !ok {
		return calendar.ErrNotFound
	}
	delete(repo.db.override.table, key)
	return nil
}

func (repo *calendarRepository) ListOverrides(ctx context.Context, schoolID string, from, to time.Time) ([]calendar.Override, error) {
	if err := repo.db.check("listing calendar overrides"); err != nil {
		return nil, err
	}
	repo.db.override.RLock()
	defer repo.db.override.RUnlock()

	from, to = clock.Day(from), clock.Day(to)
	ovrs := make([]calendar.Override, 0)
	for _, o := range repo.db.override.table {
		if o.SchoolID == schoolID && !o.Date.Before(from) && !o.Date.After(to) {
			ovrs = append(ovrs, *o)
		}
	}
	sort.Slice(ovrs, func(i, j int) bool { return ovrs[i].Date.Before(ovrs[j].Date) })
	return ovrs, nil
}
