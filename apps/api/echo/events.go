package echoapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/timetable"
	"github.com/trezcool/ratiba/services/notify"
)

// eventBuffer is how many changes a slow client may lag behind before changes are dropped.
const eventBuffer = 16

type eventsApi struct {
	broker    *notifysvc.Broker
	keepAlive time.Duration
}

func registerEventsAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *timetable.Service,
	broker *notifysvc.Broker,
	keepAlive time.Duration,
) {
	api := eventsApi{broker: broker, keepAlive: keepAlive}
	g.GET("/classes/:class/days/:date/events", api.stream, jwt, classMiddleware(svc))
}

// stream pushes the changes of a class day as server-sent events until the client leaves.
func (api *eventsApi) stream(ctx echo.Context) error {
	date, err := dateParam(ctx, "date")
	if err != nil {
		return err
	}

	evts := make(chan timetable.ChangeEvent, eventBuffer)
	unsubscribe := api.broker.Subscribe(ctx.Param("class"), date, func(evt timetable.ChangeEvent) {
		select {
		case evts <- evt:
		default: // the client re-resolves the day on its next event
		}
	})
	defer unsubscribe()

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	if _, err = fmt.Fprint(res, ": connected\n\n"); err != nil {
		return nil
	}
	res.Flush()

	keepAlive := time.NewTicker(api.keepAlive)
	defer keepAlive.Stop()
	done := ctx.Request().Context().Done()
	for {
		select {
		case <-done:
			return nil
		case evt := <-evts:
			data, err := json.Marshal(evt)
			if err != nil {
				return errors.Wrap(err, "encoding change event")
			}
			if _, err = fmt.Fprintf(res, "event: %s\ndata: %s\n\n", evt.Kind, data); err != nil {
				return nil // client gone
			}
			res.Flush()
		case <-keepAlive.C:
			if _, err := fmt.Fprint(res, ": keep-alive\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
