package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/calendar"
)

type calendarApi struct {
	svc *calendar.Service
}

func registerCalendarAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *calendar.Service) {
	api := calendarApi{svc: svc}

	cg := g.Group("/calendar", jwt)
	cg.GET("", api.listOverrides)
	cg.GET("/months/:year/:month", api.month)
	cg.GET("/:date", api.day)
	cg.PUT("/:date", api.setOverride, adminMiddleware())
	cg.DELETE("/:date", api.clearOverride, adminMiddleware())
}

// day resolves whether the actor's school is open on a date.
func (api *calendarApi) day(ctx echo.Context) error {
	date, err := dateParam(ctx, "date")
	if err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	holiday, err := api.svc.IsHoliday(reqCtx, actor.SchoolID, date)
	if err != nil {
		return errors.Wrap(err, "checking holiday")
	}
	day := calendar.Day{Date: date, Holiday: holiday}

	ovr, err := api.svc.GetOverride(reqCtx, actor.SchoolID, date)
	switch {
	case err == nil:
		day.Label = ovr.Label
		day.Overridden = true
	case !errors.Is(err, calendar.ErrNotFound):
		return errors.Wrap(err, "getting override")
	}
	return ctx.JSON(http.StatusOK, day)
}

func (api *calendarApi) listOverrides(ctx echo.Context) error {
	from, err := dateQuery(ctx, "from")
	if err != nil {
		return err
	}
	to, err := dateQuery(ctx, "to")
	if err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	ovrs, err := api.svc.ListOverrides(ctx.Request().Context(), actor.SchoolID, from, to)
	if err != nil {
		return errors.Wrap(err, "listing overrides")
	}
	return ctx.JSON(http.StatusOK, ovrs)
}

func (api *calendarApi) month(ctx echo.Context) error {
	year, err := intParam(ctx, "year")
	if err != nil {
		return err
	}
	month, err := strconv.Atoi(ctx.Param("month"))
	if err != nil {
		return invalidParam("month", errInvalidNumber, "expected a number")
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	days, err := api.svc.Month(ctx.Request().Context(), actor.SchoolID, year, time.Month(month))
	if err != nil {
		return errors.Wrap(err, "resolving month")
	}
	return ctx.JSON(http.StatusOK, days)
}

func (api *calendarApi) setOverride(ctx echo.Context) error {
	date, err := dateParam(ctx, "date")
	if err != nil {
		return err
	}
	var data calendar.NewOverride
	if err = bind(ctx, &data); err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	ovr, err := api.svc.SetOverride(ctx.Request().Context(), actor, date, data)
	if err != nil {
		return errors.Wrap(err, "setting override")
	}
	return ctx.JSON(http.StatusOK, ovr)
}

func (api *calendarApi) clearOverride(ctx echo.Context) error {
	date, err := dateParam(ctx, "date")
	if err != nil {
		return err
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.ClearOverride(ctx.Request().Context(), actor, date); err != nil {
		return errors.Wrap(err, "clearing override")
	}
	return ctx.NoContent(http.StatusNoContent)
}
