package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/calendar"
	"github.com/trezcool/ratiba/core/timetable"
	logsvc "github.com/trezcool/ratiba/services/logger"
	notifysvc "github.com/trezcool/ratiba/services/notify"
	"github.com/trezcool/ratiba/storage/database"
	inmemdb "github.com/trezcool/ratiba/storage/database/inmem"
	sqlxrepos "github.com/trezcool/ratiba/storage/database/sqlx"
)

// stores holds the repositories of the configured database engine.
type stores struct {
	timetable timetable.Repository
	calendar  calendar.Repository
	ready     func(ctx context.Context) error
	close     func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	logger := newLogger(conf)

	// set up DB
	st, err := setUpStores(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = st.close(); err != nil {
			logger.Error("failed to close database", err)
		}
	}()

	// set up change notifications
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := notifysvc.NewBroker()
	var notifier timetable.Notifier = broker
	ready := st.ready
	if conf.Redis.Enabled {
		client, err := notifysvc.NewRedisClient(ctx, conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
		}
		defer client.Close()

		// every instance relays the changes published by any of them to its own subscribers
		notifier = notifysvc.NewRedisPublisher(client)
		relay := notifysvc.NewRedisRelay(client, broker, logger)
		go func() {
			if err := relay.Run(ctx); err != nil {
				logger.Error(fmt.Sprintf("redis relay stopped: %v", err), err)
			}
		}()
		ready = func(ctx context.Context) error {
			if err := st.ready(ctx); err != nil {
				return err
			}
			if err := client.Ping(ctx).Err(); err != nil {
				return core.NewStoreError("pinging redis", err)
			}
			return nil
		}
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	timetable.InitValidators(validate, translator)

	timetableSvc := timetable.NewService(st.timetable, notifier, validate, translator, logger, conf)
	calendarSvc := calendar.NewService(st.calendar, validate, translator, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("database").Set(conf.Database.Engine)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			Translator:   translator,
			TimetableSvc: timetableSvc,
			CalendarSvc:  calendarSvc,
			Broker:       broker,
			Readiness:    ready,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		cancel() // stop relaying changes

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// newLogger logs to the console with zap in DEV|TEST and reports to Rollbar elsewhere.
func newLogger(conf *core.Config) core.Logger {
	if conf.Debug {
		return logsvc.NewZapLogger(conf)
	}
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(true)
	return logger
}

func setUpStores(conf *core.Config) (stores, error) {
	if conf.Database.Engine == "memory" {
		db, err := inmemdb.Open()
		if err != nil {
			return stores{}, err
		}
		return stores{
			timetable: inmemdb.NewTimetableRepository(db),
			calendar:  inmemdb.NewCalendarRepository(db),
			ready:     func(context.Context) error { return nil },
			close:     db.Close,
		}, nil
	}

	db, err := setUpDB(conf)
	if err != nil {
		return stores{}, err
	}
	return stores{
		timetable: sqlxrepos.NewTimetableRepository(db),
		calendar:  sqlxrepos.NewCalendarRepository(db),
		ready:     func(ctx context.Context) error { return database.StatusCheck(ctx, db) },
		close:     db.Close,
	}, nil
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
