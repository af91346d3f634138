package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core/calendar"
	"github.com/trezcool/ratiba/core/clock"
	"github.com/trezcool/ratiba/core/timetable"
	"github.com/trezcool/ratiba/tests"
)

var ctx = context.Background()

func TestTimetableRepository_slots(t *testing.T) {
	repo := NewTimetableRepository(testutil.PrepareDB(t))

	p1 := testutil.CreatePeriod(t, repo, "c1", 1, "08:00", "08:40")
	brk := testutil.CreateBreak(t, repo, "c1", "Tea", "10:15", "10:30", 1, 3)
	testutil.CreatePeriod(t, repo, "c2", 1, "08:00", "08:40")

	_, err := repo.InsertClassSlot(ctx, timetable.ClassSlot{
		SchoolID: testutil.SchoolID, ClassID: "c1", SlotType: timetable.SlotPeriod, SlotNumber: 1,
		StartTime: clock.MustParseTime("09:00"), EndTime: clock.MustParseTime("09:40"), CreatedBy: testutil.AdminID,
	})
	assert.True(t, errors.Is(err, timetable.ErrUniquenessViolation))

	slots, err := repo.ListClassSlots(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, p1.ID, slots[0].ID)
	assert.Equal(t, clock.MustParseTime("08:40"), slots[0].EndTime)
	assert.Equal(t, []int{1, 3}, slots[1].Weekdays)

	got, err := repo.GetClassSlot(ctx, brk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tea", got.Name)

	require.NoError(t, repo.DeleteClassSlot(ctx, brk.ID))
	assert.True(t, errors.Is(repo.DeleteClassSlot(ctx, brk.ID), timetable.ErrNotFound))
	_, err = repo.GetClassSlot(ctx, "not-a-uuid")
	assert.True(t, errors.Is(err, timetable.ErrNotFound))
}

func TestTimetableRepository_assignments(t *testing.T) {
	repo := NewTimetableRepository(testutil.PrepareDB(t))
	monday := "2025-03-10"
	p1 := testutil.CreatePeriod(t, repo, "c1", 1, "08:00", "08:40")
	p2 := testutil.CreatePeriod(t, repo, "c1", 2, "08:40", "09:20")

	asg := testutil.CreateAssignment(t, repo, p1, monday, "math", "t1")
	dup := asg
	dup.ID = ""
	_, err := repo.UpsertAssignment(ctx, dup)
	assert.True(t, errors.Is(err, timetable.ErrUniquenessViolation))

	asg.SubjectID = "eng"
	asg.CreatedBy = "someone-else"
	asg.UpdatedAt = time.Now().UTC()
	updated, err := repo.UpsertAssignment(ctx, asg)
	require.NoError(t, err)
	assert.Equal(t, testutil.AdminID, updated.CreatedBy)

	testutil.CreateAssignment(t, repo, p2, monday, "bio", "t2")
	rows, err := repo.ListDayAssignments(ctx, "c1", clock.MustParseDate(monday))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "eng", rows[0].SubjectID)
	assert.True(t, rows[0].Date.Equal(clock.MustParseDate(monday)))

	school, err := repo.ListAssignmentsForSchoolDate(ctx, testutil.SchoolID, clock.MustParseDate(monday))
	require.NoError(t, err)
	assert.Len(t, school, 2)

	n, err := repo.DeleteAssignments(ctx, "c1", clock.MustParseDate(monday), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = repo.DeletePeriodAssignments(ctx, "c1", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTimetableRepository_replaceAndMerge(t *testing.T) {
	repo := NewTimetableRepository(testutil.PrepareDB(t))
	tuesday := clock.MustParseDate("2025-03-11")
	p1 := testutil.CreatePeriod(t, repo, "c1", 1, "08:00", "08:40")
	p2 := testutil.CreatePeriod(t, repo, "c1", 2, "08:40", "09:20")
	testutil.CreateAssignment(t, repo, p1, "2025-03-11", "old", "t1")
	testutil.CreateAssignment(t, repo, p2, "2025-03-11", "old", "t2")

	row := func(period int, subject string) timetable.DaySlotAssignment {
		return timetable.DaySlotAssignment{
			SchoolID: testutil.SchoolID, PeriodNumber: period, SubjectID: subject,
			StartTime: p1.StartTime, EndTime: p1.EndTime, Status: timetable.StatusPlanned,
			CreatedBy: testutil.AdminID, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		}
	}

	n, err := repo.MergeDayAssignments(ctx, "c1", tuesday, []timetable.DaySlotAssignment{row(2, "new"), row(3, "new")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	rows, err := repo.ListDayAssignments(ctx, "c1", tuesday)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"old", "new", "new"}, []string{rows[0].SubjectID, rows[1].SubjectID, rows[2].SubjectID})

	// a failing replace leaves the day untouched
	_, err = repo.ReplaceDayAssignments(ctx, "c1", tuesday, []timetable.DaySlotAssignment{row(5, "x"), row(5, "y")})
	assert.True(t, errors.Is(err, timetable.ErrUniquenessViolation))
	rows, err = repo.ListDayAssignments(ctx, "c1", tuesday)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	n, err = repo.ReplaceDayAssignments(ctx, "c1", tuesday, []timetable.DaySlotAssignment{row(4, "only")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	rows, err = repo.ListDayAssignments(ctx, "c1", tuesday)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 4, rows[0].PeriodNumber)
}

func TestTimetableRepository_breakTemplates(t *testing.T) {
	repo := NewTimetableRepository(testutil.PrepareDB(t))

	lunch, err := repo.UpsertBreakTemplate(ctx, timetable.BreakTemplate{SchoolID: testutil.SchoolID, Name: "Lunch", DefaultDuration: 45, CreatedBy: testutil.AdminID})
	require.NoError(t, err)
	_, err = repo.UpsertBreakTemplate(ctx, timetable.BreakTemplate{SchoolID: testutil.SchoolID, Name: "assembly", DefaultDuration: 20, CreatedBy: testutil.AdminID})
	require.NoError(t, err)
	again, err := repo.UpsertBreakTemplate(ctx, timetable.BreakTemplate{SchoolID: testutil.SchoolID, Name: "Lunch", DefaultDuration: 30, CreatedBy: testutil.AdminID})
	require.NoError(t, err)
	assert.Equal(t, lunch.ID, again.ID)
	assert.Equal(t, 30, again.DefaultDuration)

	tpls, err := repo.ListBreakTemplates(ctx, testutil.SchoolID)
	require.NoError(t, err)
	require.Len(t, tpls, 2)
	assert.Equal(t, "assembly", tpls[0].Name)

	require.NoError(t, repo.DeleteBreakTemplate(ctx, lunch.ID))
	_, err = repo.GetBreakTemplate(ctx, lunch.ID)
	assert.True(t, errors.Is(err, timetable.ErrNotFound))
}

func TestCalendarRepository(t *testing.T) {
	repo := NewCalendarRepository(testutil.PrepareDB(t))
	sunday := clock.MustParseDate("2025-03-09")
	tuesday := clock.MustParseDate("2025-03-11")

	_, err := repo.GetOverride(ctx, testutil.SchoolID, sunday)
	assert.True(t, errors.Is(err, calendar.ErrNotFound))

	first, err := repo.UpsertOverride(ctx, calendar.Override{SchoolID: testutil.SchoolID, Date: sunday, Status: calendar.StatusOpen, CreatedBy: testutil.AdminID, UpdatedAt: time.Now().UTC()})
	require.NoError(t, err)
	second, err := repo.UpsertOverride(ctx, calendar.Override{SchoolID: testutil.SchoolID, Date: sunday, Status: calendar.StatusHoliday, Label: "Retreat", CreatedBy: testutil.AdminID, UpdatedAt: time.Now().UTC()})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	_, err = repo.UpsertOverride(ctx, calendar.Override{SchoolID: testutil.SchoolID, Date: tuesday, Status: calendar.StatusHoliday, CreatedBy: testutil.AdminID, UpdatedAt: time.Now().UTC()})
	require.NoError(t, err)

	ovr, err := repo.GetOverride(ctx, testutil.SchoolID, sunday)
	require.NoError(t, err)
	assert.Equal(t, "Retreat", ovr.Label)
	assert.True(t, ovr.Date.Equal(sunday))

	ovrs, err := repo.ListOverrides(ctx, testutil.SchoolID, sunday, tuesday)
	require.NoError(t, err)
	require.Len(t, ovrs, 2)
	assert.True(t, ovrs[1].Date.Equal(tuesday))

	require.NoError(t, repo.DeleteOverride(ctx, testutil.SchoolID, sunday))
	assert.True(t, errors.Is(repo.DeleteOverride(ctx, testutil.SchoolID, sunday), calendar.ErrNotFound))
}
