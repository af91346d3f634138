package calendar

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/clock"
)

var (
	// errors
	ErrNotFound     = errors.New("calendar override not found")
	ErrInvalidRange = errors.New("from must not be after to")
)

type (
	Repository interface {
		GetOverride(ctx context.Context, schoolID string, date time.Time) (Override, error)
		// UpsertOverride stores ovr, replacing any override of the same (school, date).
		UpsertOverride(ctx context.Context, ovr Override) (Override, error)
		DeleteOverride(ctx context.Context, schoolID string, date time.Time) error
		// ListOverrides returns the overrides of from..to (inclusive), ordered by date.
		ListOverrides(ctx context.Context, schoolID string, from, to time.Time) ([]Override, error)
	}

	Service struct {
		repo       Repository
		validate   *validator.Validate
		translator ut.Translator
		logger     core.Logger
	}
)

func NewService(repo Repository, validate *validator.Validate, translator ut.Translator, logger core.Logger) *Service {
	return &Service{repo: repo, validate: validate, translator: translator, logger: logger}
}

// defaultHoliday is the state of a date without override: only Sundays are closed.
func defaultHoliday(date time.Time) bool {
	return date.Weekday() == time.Sunday
}

// IsHoliday reports whether the school is closed on date.
func (svc *Service) IsHoliday(ctx context.Context, schoolID string, date time.Time) (bool, error) {
	ovr, err := svc.repo.GetOverride(ctx, core.CleanString(schoolID), clock.Day(date))
	switch {
	case err == nil:
		return ovr.Status == StatusHoliday, nil
	case errors.Is(err, ErrNotFound):
		return defaultHoliday(date), nil
	default:
		return false, errors.Wrap(err, "getting calendar override")
	}
}

// SetOverride stores the override of the actor's school for date, replacing the previous one.
func (svc *Service) SetOverride(ctx context.Context, actor core.Actor, date time.Time, no NewOverride) (Override, error) {
	no.clean()
	if err := svc.validate.Struct(no); err != nil {
		return Override{}, core.TranslateValidationErrors(err, svc.translator)
	}
	ovr, err := svc.repo.UpsertOverride(ctx, Override{
		SchoolID:  actor.SchoolID,
		Date:      clock.Day(date),
		Status:    no.Status,
		Label:     no.Label,
		CreatedBy: actor.ID,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Override{}, errors.Wrap(err, "upserting calendar override")
	}
	svc.logger.Info("calendar: override set", actor, map[string]interface{}{
		"date":   clock.DateKey(ovr.Date),
		"status": ovr.Status,
	})
	return ovr, nil
}

func (svc *Service) GetOverride(ctx context.Context, schoolID string, date time.Time) (Override, error) {
	return svc.repo.GetOverride(ctx, core.CleanString(schoolID), clock.Day(date))
}

// ClearOverride restores the default state of date.
func (svc *Service) ClearOverride(ctx context.Context, actor core.Actor, date time.Time) error {
	if err := svc.repo.DeleteOverride(ctx, actor.SchoolID, clock.Day(date)); err != nil {
		return errors.Wrap(err, "deleting calendar override")
	}
	svc.logger.Info("calendar: override cleared", actor, map[string]interface{}{"date": clock.DateKey(date)})
	return nil
}

func (svc *Service) ListOverrides(ctx context.Context, schoolID string, from, to time.Time) ([]Override, error) {
	from, to = clock.Day(from), clock.Day(to)
	if from.After(to) {
		return nil, core.NewValidationError(ErrInvalidRange, core.FieldError{Field: "from", Error: ErrInvalidRange.Error()})
	}
	ovrs, err := svc.repo.ListOverrides(ctx, core.CleanString(schoolID), from, to)
	if err != nil {
		return nil, errors.Wrap(err, "listing calendar overrides")
	}
	return ovrs, nil
}

// Month resolves every date of a month.
func (svc *Service) Month(ctx context.Context, schoolID string, year int, month time.Month) ([]Day, error) {
	if month < time.January || month > time.December {
		return nil, core.NewValidationError(
			errors.Errorf("invalid month %d", month),
			core.FieldError{Field: "month", Error: "month must be between 1 and 12"},
		)
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	ovrs, err := svc.ListOverrides(ctx, schoolID, first, last)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]Override, len(ovrs))
	for _, o := range ovrs {
		byDate[clock.DateKey(o.Date)] = o
	}

	days := make([]Day, 0, last.Day())
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		day := Day{Date: d, Holiday: defaultHoliday(d)}
		if o, ok := byDate[clock.DateKey(d)]; ok {
			day.Holiday = o.Status == StatusHoliday
			day.Label = o.Label
			day.Overridden = true
		}
		days = append(days, day)
	}
	return days, nil
}
