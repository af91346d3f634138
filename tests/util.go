package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/calendar"
	"github.com/trezcool/ratiba/core/clock"
	"github.com/trezcool/ratiba/core/timetable"
	"github.com/trezcool/ratiba/services/logger"
	"github.com/trezcool/ratiba/storage/database"
)

const (
	SchoolID = "school-1"
	AdminID  = "admin-1"
)

var Admin = core.Actor{ID: AdminID, SchoolID: SchoolID}

// NewConfig returns the configuration used by tests.
func NewConfig() *core.Config {
	return &core.Config{
		Env:      "TEST",
		TestMode: true,
		AppName:  "Ratiba",
		Auth: core.AuthConfig{
			SecretKey:          "test-secret",
			JWTExpirationDelta: time.Hour,
		},
		Schedule: core.ScheduleConfig{SchoolDays: []int{1, 2, 3, 4, 5, 6}},
	}
}

// NewValidator returns a validator with every rule of the module registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	timetable.InitValidators(validate, translator)
	return validate, translator
}

func NewTimetableService(repo timetable.Repository, notifier timetable.Notifier) *timetable.Service {
	validate, translator := NewValidator()
	return timetable.NewService(repo, notifier, validate, translator, logsvc.NewNopLogger(), NewConfig())
}

func NewCalendarService(repo calendar.Repository) *calendar.Service {
	validate, translator := NewValidator()
	return calendar.NewService(repo, validate, translator, logsvc.NewNopLogger())
}

// CreatePeriod stores a period slot directly, bypassing numbering.
func CreatePeriod(t *testing.T, repo timetable.Repository, classID string, number int, start, end string) timetable.ClassSlot {
	t.Helper()
	slot, err := repo.InsertClassSlot(context.Background(), timetable.ClassSlot{
		SchoolID:   SchoolID,
		ClassID:    classID,
		SlotType:   timetable.SlotPeriod,
		SlotNumber: number,
		StartTime:  clock.MustParseTime(start),
		EndTime:    clock.MustParseTime(end),
		CreatedBy:  AdminID,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreatePeriod() failed: %v", err)
	}
	return slot
}

// CreateBreak stores a break slot recurring on weekdays.
func CreateBreak(t *testing.T, repo timetable.Repository, classID, name, start, end string, weekdays ...int) timetable.ClassSlot {
	t.Helper()
	slot, err := repo.InsertClassSlot(context.Background(), timetable.ClassSlot{
		SchoolID:  SchoolID,
		ClassID:   classID,
		SlotType:  timetable.SlotBreak,
		Name:      name,
		StartTime: clock.MustParseTime(start),
		EndTime:   clock.MustParseTime(end),
		Weekdays:  weekdays,
		CreatedBy: AdminID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateBreak() failed: %v", err)
	}
	return slot
}

// CreateAssignment stores an assignment directly, bypassing conflict checks.
func CreateAssignment(
	t *testing.T,
	repo timetable.Repository,
	slot timetable.ClassSlot,
	date, subjectID, teacherID string,
) timetable.DaySlotAssignment {
	t.Helper()
	now := time.Now().UTC()
	asg, err := repo.UpsertAssignment(context.Background(), timetable.DaySlotAssignment{
		SchoolID:     slot.SchoolID,
		ClassID:      slot.ClassID,
		Date:         clock.MustParseDate(date),
		PeriodNumber: slot.SlotNumber,
		StartTime:    slot.StartTime,
		EndTime:      slot.EndTime,
		SubjectID:    subjectID,
		TeacherID:    teacherID,
		Status:       timetable.StatusPlanned,
		CreatedBy:    AdminID,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return asg
}

// PrepareDB connects to TEST_DATABASE_URL, migrates it and truncates every table.
// The test is skipped when the variable is not set.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(db.DB); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if _, err := db.Exec(`TRUNCATE class_slot, day_slot_assignment, break_template, calendar_override`); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}
