package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/timetable"
)

type timetableApi struct {
	svc *timetable.Service
}

func registerTimetableAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *timetable.Service) {
	api := timetableApi{svc: svc}

	cg := g.Group("/classes/:class", jwt, classMiddleware(svc))
	cg.GET("/slots", api.listSlots)
	cg.POST("/slots", api.addSlot, adminMiddleware())
	cg.GET("/slots/next-start", api.suggestNextStart)
	cg.DELETE("/slots/:id", api.deleteSlot, adminMiddleware())
	cg.DELETE("/periods/:period/assignments", api.purgePeriodAssignments, adminMiddleware())

	// day endpoints
	dg := cg.Group("/days/:date")
	dg.GET("", api.resolveDay)
	dg.POST("/copy", api.copyDay, adminMiddleware())
	dg.POST("/periods/:period/validate", api.validateAssignment)
	dg.PUT("/periods/:period", api.saveAssignment, adminMiddleware())
	dg.DELETE("/periods/:period", api.clearAssignment, adminMiddleware())

	tg := g.Group("/break-templates", jwt)
	tg.GET("", api.listBreakTemplates)
	tg.POST("", api.saveBreakTemplate, adminMiddleware())
	tg.DELETE("/:id", api.deleteBreakTemplate, adminMiddleware())
}

// Catalog

func (api *timetableApi) listSlots(ctx echo.Context) error {
	slots, err := api.svc.ListSlots(ctx.Request().Context(), ctx.Param("class"))
	if err != nil {
		return errors.Wrap(err, "listing slots")
	}
	return ctx.JSON(http.StatusOK, slots)
}

func (api *timetableApi) addSlot(ctx echo.Context) error {
	var data timetable.NewSlot
	if err := bind(ctx, &data); err != nil {
		return err
	}
	data.ClassID = ctx.Param("class")

	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	slot, err := api.svc.AddSlot(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "adding slot")
	}
	return ctx.JSON(http.StatusCreated, slot)
}

func (api *timetableApi) suggestNextStart(ctx echo.Context) error {
	start, err := api.svc.SuggestNextStart(ctx.Request().Context(), ctx.Param("class"))
	if err != nil {
		return errors.Wrap(err, "suggesting next start")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"start": start})
}

func (api *timetableApi) deleteSlot(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteSlot(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting slot")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *timetableApi) purgePeriodAssignments(ctx echo.Context) error {
	period, err := intParam(ctx, "period")
	if err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	n, err := api.svc.PurgePeriodAssignments(ctx.Request().Context(), actor, ctx.Param("class"), period)
	if err != nil {
		return errors.Wrap(err, "purging period assignments")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"deleted": n})
}

// Days

func (api *timetableApi) resolveDay(ctx echo.Context) error {
	date, err := dateParam(ctx, "date")
	if err != nil {
		return err
	}
	day, err := api.svc.ResolveDay(ctx.Request().Context(), ctx.Param("class"), date)
	if err != nil {
		return errors.Wrap(err, "resolving day")
	}
	return ctx.JSON(http.StatusOK, day)
}

func (api *timetableApi) validateAssignment(ctx echo.Context) error {
	target, err := periodTarget(ctx)
	if err != nil {
		return err
	}
	var data timetable.Proposal
	if err = bind(ctx, &data); err != nil {
		return err
	}
	err = api.svc.ValidateAssignment(ctx.Request().Context(), ctx.Param("class"), target.date, target.period, data)
	if err != nil {
		return errors.Wrap(err, "validating assignment")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"valid": true})
}

func (api *timetableApi) saveAssignment(ctx echo.Context) error {
	target, err := periodTarget(ctx)
	if err != nil {
		return err
	}
	var data timetable.Proposal
	if err = bind(ctx, &data); err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	asg, err := api.svc.SaveAssignment(ctx.Request().Context(), actor, ctx.Param("class"), target.date, target.period, data)
	if err != nil {
		return errors.Wrap(err, "saving assignment")
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *timetableApi) clearAssignment(ctx echo.Context) error {
	target, err := periodTarget(ctx)
	if err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.ClearAssignment(ctx.Request().Context(), actor, ctx.Param("class"), target.date, target.period); err != nil {
		return errors.Wrap(err, "clearing assignment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type copyRequest struct {
	Target string `json:"target"`
	timetable.CopyOptions
}

// copyDay copies the day in the path (the source) to the body's target date.
func (api *timetableApi) copyDay(ctx echo.Context) error {
	source, err := dateParam(ctx, "date")
	if err != nil {
		return err
	}
	var data copyRequest
	if err = bind(ctx, &data); err != nil {
		return err
	}
	target, err := parseDate("target", data.Target)
	if err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	res, err := api.svc.CopyDay(ctx.Request().Context(), actor, ctx.Param("class"), source, target, data.CopyOptions)
	if err != nil {
		return errors.Wrap(err, "copying day")
	}
	return ctx.JSON(http.StatusOK, res)
}

// Break templates

func (api *timetableApi) listBreakTemplates(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	tpls, err := api.svc.ListBreakTemplates(ctx.Request().Context(), actor.SchoolID)
	if err != nil {
		return errors.Wrap(err, "listing break templates")
	}
	return ctx.JSON(http.StatusOK, tpls)
}

func (api *timetableApi) saveBreakTemplate(ctx echo.Context) error {
	var data timetable.NewBreakTemplate
	if err := bind(ctx, &data); err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	tpl, err := api.svc.SaveBreakTemplate(ctx.Request().Context(), actor, data)
	if err != nil {
		return errors.Wrap(err, "saving break template")
	}
	return ctx.JSON(http.StatusOK, tpl)
}

func (api *timetableApi) deleteBreakTemplate(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteBreakTemplate(ctx.Request().Context(), actor, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting break template")
	}
	return ctx.NoContent(http.StatusNoContent)
}
