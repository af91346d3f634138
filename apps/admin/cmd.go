package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/calendar"
	"github.com/trezcool/ratiba/core/timetable"
)

// cliActorID is recorded as the author of the changes made from the command line.
const cliActorID = "admin-cli"

var errHelp = errors.New("help provided")

type commandLine struct {
	db           *sql.DB
	conf         *core.Config
	timetableSvc *timetable.Service
	calendarSvc  *calendar.Service
	out          io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...) on the database")
	fmt.Fprintln(cli.out, "  holiday -school SCHOOL -date YYYY-MM-DD [-status holiday|open] [-label LABEL] [-clear] - override a calendar date")
	fmt.Fprintln(cli.out, "  copyday -school SCHOOL -class CLASS -from YYYY-MM-DD -to YYYY-MM-DD [-mode replace|merge] - copy a class day")
	fmt.Fprintln(cli.out, "  token -school SCHOOL -user USER [-admin] - issue an API token")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	holidayCmd := flag.NewFlagSet("holiday", flag.ExitOnError)
	holidaySchool := holidayCmd.String("school", "", "The school the date belongs to.")
	holidayDate := holidayCmd.String("date", "", "The date to override (YYYY-MM-DD).")
	holidayStatus := holidayCmd.String("status", string(calendar.StatusHoliday), "holiday or open.")
	holidayLabel := holidayCmd.String("label", "", "What the date is about.")
	holidayClear := holidayCmd.Bool("clear", false, "Restore the default state of the date.")

	copyDayCmd := flag.NewFlagSet("copyday", flag.ExitOnError)
	copyDaySchool := copyDayCmd.String("school", "", "The school of the class.")
	copyDayClass := copyDayCmd.String("class", "", "The class whose day is copied.")
	copyDayFrom := copyDayCmd.String("from", "", "The source date (YYYY-MM-DD).")
	copyDayTo := copyDayCmd.String("to", "", "The target date (YYYY-MM-DD).")
	copyDayMode := copyDayCmd.String("mode", string(timetable.CopyReplace), "replace or merge.")

	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
	tokenSchool := tokenCmd.String("school", "", "The school of the user.")
	tokenUser := tokenCmd.String("user", "", "The user the token is issued to.")
	tokenAdmin := tokenCmd.Bool("admin", false, "Allow the token to change timetables.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			fmt.Fprintln(cli.out, "Usage: migrate COMMAND [ARGS]")
			return errHelp
		}
		return cli.migrate(args[2:])

	case "holiday":
		if err := holidayCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *holidaySchool == "" || *holidayDate == "" {
			holidayCmd.Usage()
			return errHelp
		}
		actor := core.Actor{ID: cliActorID, SchoolID: *holidaySchool}
		if *holidayClear {
			return cli.clearHoliday(actor, *holidayDate)
		}
		return cli.setHoliday(actor, *holidayDate, *holidayStatus, *holidayLabel)

	case "copyday":
		if err := copyDayCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *copyDaySchool == "" || *copyDayClass == "" || *copyDayFrom == "" || *copyDayTo == "" {
			copyDayCmd.Usage()
			return errHelp
		}
		actor := core.Actor{ID: cliActorID, SchoolID: *copyDaySchool}
		return cli.copyDay(actor, *copyDayClass, *copyDayFrom, *copyDayTo, *copyDayMode)

	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenSchool == "" || *tokenUser == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.issueToken(core.Actor{ID: *tokenUser, SchoolID: *tokenSchool}, *tokenAdmin)

	default:
		cli.printUsage()
		return errHelp
	}
}
