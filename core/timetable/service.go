package timetable

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/clock"
)

// Service is the scheduling engine of one deployment: slot catalog, day resolution,
// conflict checks and day copies over a Repository.
type Service struct {
	repo       Repository
	notifier   Notifier
	validate   *validator.Validate
	translator ut.Translator
	logger     core.Logger
	schoolDays []int
}

func NewService(
	repo Repository,
	notifier Notifier,
	validate *validator.Validate,
	translator ut.Translator,
	logger core.Logger,
	conf *core.Config,
) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	schoolDays := conf.Schedule.SchoolDays
	if len(schoolDays) == 0 {
		schoolDays = []int{1, 2, 3, 4, 5, 6}
	}
	return &Service{
		repo:       repo,
		notifier:   notifier,
		validate:   validate,
		translator: translator,
		logger:     logger,
		schoolDays: schoolDays,
	}
}

func (svc *Service) validateStruct(v interface{}) error {
	if err := svc.validate.Struct(v); err != nil {
		return core.TranslateValidationErrors(err, svc.translator)
	}
	return nil
}

// publish sends evt to the notifier. Failures only cost freshness so they are logged, not returned.
func (svc *Service) publish(ctx context.Context, actor core.Actor, evt ChangeEvent) {
	evt.ActorID = actor.ID
	evt.At = time.Now().UTC()
	if !evt.Date.IsZero() {
		evt.Date = clock.Day(evt.Date)
	}
	if err := svc.notifier.Publish(ctx, evt); err != nil {
		svc.logger.Warn("timetable: publishing change failed", err, actor, map[string]interface{}{
			"class_id": evt.ClassID,
			"kind":     evt.Kind,
		})
	}
}
