package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/calendar"
	"github.com/trezcool/ratiba/core/clock"
	"github.com/trezcool/ratiba/core/timetable"
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		var (
			httpErr     *echo.HTTPError
			vErr        *core.ValidationError
			vErrs       validator.ValidationErrors
			parseErr    *clock.ParseError
			conflictErr *timetable.ConflictError
		)
		switch {
		case errors.As(err, &httpErr):
			if httpErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = httpErr.Message
				break
			}
			if httpErr.Internal != nil {
				if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
					httpErr = herr
				}
			}
			code = httpErr.Code
			message = httpErr.Message
		case errors.As(err, &vErr):
			if vErr.Fields != nil {
				fldErrs := make(map[string]string, len(vErr.Fields))
				for _, fErr := range vErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = vErr.Error()
			}
			code = http.StatusBadRequest
		case errors.As(err, &vErrs):
			fldErrs := make(map[string]string, len(vErrs))
			for _, fe := range vErrs {
				fldErrs[fe.Field()] = fe.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case errors.As(err, &parseErr):
			code = http.StatusBadRequest
			message = parseErr.Error()
		case errors.As(err, &conflictErr):
			code = http.StatusConflict
			message = echo.Map{"error": conflictErr.Error(), "conflict": conflictErr}
		case errors.Is(err, timetable.ErrUniquenessViolation):
			code = http.StatusConflict
			message = timetable.ErrUniquenessViolation.Error()
		case errors.Is(err, timetable.ErrNotFound), errors.Is(err, calendar.ErrNotFound):
			code = http.StatusNotFound
			message = "not found"
		case errors.Is(err, core.ErrStoreUnavailable):
			code = http.StatusServiceUnavailable
			msg := http.StatusText(code)
			message = msg
			logger.Warn(msg, err, contextActor(ctx))
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			logger.Error(msg, errors.Wrap(err, msg), contextActor(ctx))
			if ctx.Echo().Debug {
				message = err.Error()
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// contextActor is the authenticated actor, if any, for error reports.
func contextActor(ctx echo.Context) core.Actor {
	actor, _ := getContextActor(ctx)
	return actor
}
