package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/clock"
)

var errInvalidNumber = errors.New("invalid number")

func invalidParam(name string, err error, text string) error {
	return core.NewValidationError(err, core.FieldError{Field: name, Error: text})
}

// dateParam reads a YYYY-MM-DD path parameter.
func dateParam(ctx echo.Context, name string) (time.Time, error) {
	return parseDate(name, ctx.Param(name))
}

// dateQuery reads a required YYYY-MM-DD query parameter.
func dateQuery(ctx echo.Context, name string) (time.Time, error) {
	return parseDate(name, ctx.QueryParam(name))
}

func parseDate(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, invalidParam(name, errors.Errorf("%s required", name), "this field is required")
	}
	date, err := clock.ParseDate(value)
	if err != nil {
		return time.Time{}, invalidParam(name, err, "expected a YYYY-MM-DD date")
	}
	return date, nil
}

// intParam reads a positive integer path parameter.
func intParam(ctx echo.Context, name string) (int, error) {
	n, err := strconv.Atoi(ctx.Param(name))
	if err != nil || n <= 0 {
		return 0, invalidParam(name, errInvalidNumber, "expected a positive number")
	}
	return n, nil
}

// periodDate addresses one period of a class day.
type periodDate struct {
	date   time.Time
	period int
}

// periodTarget reads the date and period path parameters.
func periodTarget(ctx echo.Context) (periodDate, error) {
	date, err := dateParam(ctx, "date")
	if err != nil {
		return periodDate{}, err
	}
	period, err := intParam(ctx, "period")
	if err != nil {
		return periodDate{}, err
	}
	return periodDate{date: date, period: period}, nil
}

// bind decodes the request body into v.
func bind(ctx echo.Context, v interface{}) error {
	if err := ctx.Bind(v); err != nil {
		return errors.Wrap(err, "binding request body")
	}
	return nil
}
