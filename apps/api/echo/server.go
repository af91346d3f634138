package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/calendar"
	"github.com/trezcool/ratiba/core/timetable"
	"github.com/trezcool/ratiba/services/notify"
)

const defaultKeepAlive = 30 * time.Second

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Translator     ut.Translator
		TimetableSvc   *timetable.Service
		CalendarSvc    *calendar.Service
		Broker         *notifysvc.Broker
		Readiness      func(ctx context.Context) error // optional
		DisableReqLogs bool
		KeepAlive      time.Duration // between event stream heartbeats
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	if deps.KeepAlive <= 0 {
		deps.KeepAlive = defaultKeepAlive
	}
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	s.app.GET("/readiness", s.readiness)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))

	registerTimetableAPI(v1, jwt, s.deps.TimetableSvc)
	registerCalendarAPI(v1, jwt, s.deps.CalendarSvc)
	if s.deps.Broker != nil {
		// EventSource cannot set headers: the token comes in the query string
		queryJWT := middleware.JWTWithConfig(newJWTConfig(conf, "query:token"))
		registerEventsAPI(v1, queryJWT, s.deps.TimetableSvc, s.deps.Broker, s.deps.KeepAlive)
	}
}

func (s *server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Ratiba API!")
}

func (s *server) readiness(ctx echo.Context) error {
	if s.deps.Readiness != nil {
		if err := s.deps.Readiness(ctx.Request().Context()); err != nil {
			return err
		}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
