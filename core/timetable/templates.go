package timetable

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

// SaveBreakTemplate creates the actor's school template of that name, or updates its duration.
func (svc *Service) SaveBreakTemplate(ctx context.Context, actor core.Actor, nt NewBreakTemplate) (BreakTemplate, error) {
	nt.Name = core.CleanString(nt.Name)
	if err := svc.validateStruct(nt); err != nil {
		return BreakTemplate{}, err
	}
	tpl, err := svc.repo.UpsertBreakTemplate(ctx, BreakTemplate{
		SchoolID:        actor.SchoolID,
		Name:            nt.Name,
		DefaultDuration: nt.DefaultDuration,
		CreatedBy:       actor.ID,
		CreatedAt:       time.Now().UTC(),
	})
	if err != nil {
		return BreakTemplate{}, errors.Wrap(err, "saving break template")
	}
	svc.logger.Info("timetable: break template saved", actor, map[string]interface{}{"name": tpl.Name})
	return tpl, nil
}

func (svc *Service) ListBreakTemplates(ctx context.Context, schoolID string) ([]BreakTemplate, error) {
	tpls, err := svc.repo.ListBreakTemplates(ctx, core.CleanString(schoolID))
	if err != nil {
		return nil, errors.Wrap(err, "listing break templates")
	}
	return tpls, nil
}

func (svc *Service) DeleteBreakTemplate(ctx context.Context, actor core.Actor, id string) error {
	tpl, err := svc.repo.GetBreakTemplate(ctx, id)
	if err != nil {
		return errors.Wrap(err, "getting break template")
	}
	if tpl.SchoolID != actor.SchoolID {
		return errors.Wrap(ErrNotFound, "getting break template")
	}
	if err := svc.repo.DeleteBreakTemplate(ctx, id); err != nil {
		return errors.Wrap(err, "deleting break template")
	}
	svc.logger.Info("timetable: break template deleted", actor, map[string]interface{}{"id": id})
	return nil
}
