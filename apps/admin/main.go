package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/calendar"
	"github.com/trezcool/ratiba/core/timetable"
	logsvc "github.com/trezcool/ratiba/services/logger"
	"github.com/trezcool/ratiba/storage/database"
	sqlxrepos "github.com/trezcool/ratiba/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	svcLogger := logsvc.NewRollbarLogger(logger, conf)
	svcLogger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	timetable.InitValidators(validate, translator)

	// changes made from here are not pushed to API subscribers
	timetableSvc := timetable.NewService(
		sqlxrepos.NewTimetableRepository(db), timetable.NopNotifier{}, validate, translator, svcLogger, conf,
	)
	calendarSvc := calendar.NewService(sqlxrepos.NewCalendarRepository(db), validate, translator, svcLogger)

	// start CLI
	cli := commandLine{
		db:           db.DB,
		conf:         conf,
		timetableSvc: timetableSvc,
		calendarSvc:  calendarSvc,
		out:          os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
