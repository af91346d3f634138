package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core/calendar"
	"github.com/trezcool/ratiba/core/clock"
	"github.com/trezcool/ratiba/core/timetable"
	inmemdb "github.com/trezcool/ratiba/storage/database/inmem"
	"github.com/trezcool/ratiba/tests"
)

type fixture struct {
	cli     *commandLine
	out     *bytes.Buffer
	ttRepo  timetable.Repository
	calRepo calendar.Repository
}

func setup(t *testing.T) *fixture {
	db, err := inmemdb.Open()
	require.NoError(t, err)
	ttRepo := inmemdb.NewTimetableRepository(db)
	calRepo := inmemdb.NewCalendarRepository(db)
	out := new(bytes.Buffer)

	// start CLI
	return &fixture{
		cli: &commandLine{
			conf:         testutil.NewConfig(),
			timetableSvc: testutil.NewTimetableService(ttRepo, timetable.NopNotifier{}),
			calendarSvc:  testutil.NewCalendarService(calRepo),
			out:          out,
		},
		out:     out,
		ttRepo:  ttRepo,
		calRepo: calRepo,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func (f *fixture) run(t *testing.T, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := f.cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			} else if tt.wantErr != nil || tt.wantErrStr != "" {
				t.Errorf("cli.run() error = nil, wantErr %v %s", tt.wantErr, tt.wantErrStr)
			}
		})
	}
}

func Test_commandLine_usage(t *testing.T) {
	f := setup(t)
	f.run(t, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	})
	assert.Contains(t, f.out.String(), "Usage:")
}

func Test_commandLine_migrate(t *testing.T) {
	f := setup(t)

	defer func(orig func(*sql.DB, string, ...string) error) { runMigrationsFunc = orig }(runMigrationsFunc)
	runMigrationsFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	f.run(t, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "substitution", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	})
}

func Test_commandLine_holiday(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	date := clock.MustParseDate("2025-03-10")

	f.run(t, []cliTest{
		{name: "no args", args: []string{"holiday"}, wantErr: errHelp},
		{name: "no date", args: []string{"holiday", "-school", testutil.SchoolID}, wantErr: errHelp},
	})

	err := f.cli.run([]string{"admin", "holiday", "-school", testutil.SchoolID, "-date", "10/03/2025"})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), `invalid date "10/03/2025"`)
	}
	err = f.cli.run([]string{"admin", "holiday", "-school", testutil.SchoolID, "-date", "2025-03-10", "-status", "closed"})
	assert.Error(t, err)

	require.NoError(t, f.cli.run([]string{"admin", "holiday", "-school", testutil.SchoolID, "-date", "2025-03-10", "-label", "Heroes Day"}))
	ovr, err := f.calRepo.GetOverride(ctx, testutil.SchoolID, date)
	require.NoError(t, err)
	assert.Equal(t, calendar.StatusHoliday, ovr.Status)
	assert.Equal(t, "Heroes Day", ovr.Label)
	assert.Equal(t, cliActorID, ovr.CreatedBy)
	assert.Contains(t, f.out.String(), "2025-03-10 is now holiday")

	require.NoError(t, f.cli.run([]string{"admin", "holiday", "-school", testutil.SchoolID, "-date", "2025-03-10", "-clear"}))
	_, err = f.calRepo.GetOverride(ctx, testutil.SchoolID, date)
	assert.ErrorIs(t, err, calendar.ErrNotFound)

	err = f.cli.run([]string{"admin", "holiday", "-school", testutil.SchoolID, "-date", "2025-03-10", "-clear"})
	assert.ErrorIs(t, err, calendar.ErrNotFound)
}

func Test_commandLine_copyday(t *testing.T) {
	f := setup(t)
	p1 := testutil.CreatePeriod(t, f.ttRepo, "c1", 1, "08:00", "08:40")
	p2 := testutil.CreatePeriod(t, f.ttRepo, "c1", 2, "08:40", "09:20")
	testutil.CreateBreak(t, f.ttRepo, "c1", "Assembly", "08:50", "09:00", int(clock.MustParseDate("2025-03-10").Weekday()))
	testutil.CreateAssignment(t, f.ttRepo, p1, "2025-03-11", "math", "t1")
	testutil.CreateAssignment(t, f.ttRepo, p2, "2025-03-11", "bio", "t2")

	f.run(t, []cliTest{
		{name: "no args", args: []string{"copyday"}, wantErr: errHelp},
		{name: "no target", args: []string{"copyday", "-school", testutil.SchoolID, "-class", "c1", "-from", "2025-03-11"}, wantErr: errHelp},
	})

	err := f.cli.run([]string{"admin", "copyday", "-school", testutil.SchoolID, "-class", "c1", "-from", "2025-03-11", "-to", "2025-03-11"})
	assert.ErrorIs(t, err, timetable.ErrSameDay)

	f.out.Reset()
	require.NoError(t, f.cli.run([]string{"admin", "copyday", "-school", testutil.SchoolID, "-class", "c1", "-from", "2025-03-11", "-to", "2025-03-10"}))
	assert.Contains(t, f.out.String(), "1 assignment(s) copied to 2025-03-10")
	assert.Contains(t, f.out.String(), "skipped period(s) blocked by a break: [2]")

	rows, err := f.ttRepo.ListDayAssignments(context.Background(), "c1", clock.MustParseDate("2025-03-10"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "math", rows[0].SubjectID)
	assert.Equal(t, cliActorID, rows[0].CreatedBy)

	f.out.Reset()
	require.NoError(t, f.cli.run([]string{"admin", "copyday", "-school", testutil.SchoolID, "-class", "c1", "-from", "2025-03-12", "-to", "2025-03-10", "-mode", "merge"}))
	assert.Equal(t, "nothing to copy from source date", strings.TrimSpace(f.out.String()))
}

func Test_commandLine_token(t *testing.T) {
	f := setup(t)

	f.run(t, []cliTest{
		{name: "no args", args: []string{"token"}, wantErr: errHelp},
		{name: "no user", args: []string{"token", "-school", testutil.SchoolID}, wantErr: errHelp},
	})

	f.out.Reset()
	require.NoError(t, f.cli.run([]string{"admin", "token", "-school", testutil.SchoolID, "-user", "u1", "-admin"}))
	raw := strings.TrimSpace(f.out.String())

	claims := new(echoapi.Claims)
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(f.cli.conf.Auth.SecretKey), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, testutil.SchoolID, claims.SchoolID)
	assert.True(t, claims.IsAdmin)
}
