package calendar_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/calendar"
	"github.com/trezcool/ratiba/core/clock"
	"github.com/trezcool/ratiba/storage/database/inmem"
	"github.com/trezcool/ratiba/tests"
)

var ctx = context.Background()

func setup(t *testing.T) *calendar.Service {
	db, err := inmemdb.Open()
	require.NoError(t, err)
	return testutil.NewCalendarService(inmemdb.NewCalendarRepository(db))
}

func TestService_IsHoliday(t *testing.T) {
	svc := setup(t)
	sunday := clock.MustParseDate("2025-03-09")
	tuesday := clock.MustParseDate("2025-03-11")

	tests := []struct {
		name     string
		override *calendar.NewOverride
		date     time.Time
		want     bool
	}{
		{name: "plain sunday", date: sunday, want: true},
		{name: "plain tuesday", date: tuesday, want: false},
		{name: "sunday opened", override: &calendar.NewOverride{Status: calendar.StatusOpen}, date: sunday, want: false},
		{name: "tuesday closed", override: &calendar.NewOverride{Status: calendar.StatusHoliday, Label: "Heroes day"}, date: tuesday, want: true},
		{name: "tuesday reopened", override: &calendar.NewOverride{Status: "OPEN"}, date: tuesday, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.override != nil {
				_, err := svc.SetOverride(ctx, testutil.Admin, tt.date, *tt.override)
				require.NoError(t, err)
			}
			got, err := svc.IsHoliday(ctx, testutil.SchoolID, tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	// one override per date: the last write wins
	ovrs, err := svc.ListOverrides(ctx, testutil.SchoolID, sunday, tuesday)
	require.NoError(t, err)
	require.Len(t, ovrs, 2)
	assert.Equal(t, calendar.StatusOpen, ovrs[1].Status)
	assert.Empty(t, ovrs[1].Label)

	// other schools keep the default
	got, err := svc.IsHoliday(ctx, "other-school", sunday)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestService_SetOverride_invalid(t *testing.T) {
	svc := setup(t)
	_, err := svc.SetOverride(ctx, testutil.Admin, clock.MustParseDate("2025-03-11"), calendar.NewOverride{Status: "closed"})
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "status", vErr.Fields[0].Field)
}

func TestService_ClearOverride(t *testing.T) {
	svc := setup(t)
	sunday := clock.MustParseDate("2025-03-09")

	_, err := svc.SetOverride(ctx, testutil.Admin, sunday, calendar.NewOverride{Status: calendar.StatusOpen})
	require.NoError(t, err)
	ovr, err := svc.GetOverride(ctx, testutil.SchoolID, sunday)
	require.NoError(t, err)
	assert.Equal(t, testutil.AdminID, ovr.CreatedBy)

	require.NoError(t, svc.ClearOverride(ctx, testutil.Admin, sunday))
	got, err := svc.IsHoliday(ctx, testutil.SchoolID, sunday)
	require.NoError(t, err)
	assert.True(t, got)

	_, err = svc.GetOverride(ctx, testutil.SchoolID, sunday)
	assert.True(t, errors.Is(err, calendar.ErrNotFound))
	assert.True(t, errors.Is(svc.ClearOverride(ctx, testutil.Admin, sunday), calendar.ErrNotFound))
}

func TestService_Month(t *testing.T) {
	svc := setup(t)
	_, err := svc.SetOverride(ctx, testutil.Admin, clock.MustParseDate("2025-02-09"), calendar.NewOverride{Status: calendar.StatusOpen})
	require.NoError(t, err)
	_, err = svc.SetOverride(ctx, testutil.Admin, clock.MustParseDate("2025-02-14"), calendar.NewOverride{Status: calendar.StatusHoliday, Label: "Staff day"})
	require.NoError(t, err)

	days, err := svc.Month(ctx, testutil.SchoolID, 2025, time.February)
	require.NoError(t, err)
	require.Len(t, days, 28)

	var holidays []int
	for _, d := range days {
		if d.Holiday {
			holidays = append(holidays, d.Date.Day())
		}
	}
	assert.Equal(t, []int{2, 14, 16, 23}, holidays)
	assert.True(t, days[8].Overridden)
	assert.Equal(t, "Staff day", days[13].Label)

	_, err = svc.Month(ctx, testutil.SchoolID, 2025, 13)
	assert.Error(t, err)
	_, err = svc.ListOverrides(ctx, testutil.SchoolID, clock.MustParseDate("2025-03-02"), clock.MustParseDate("2025-03-01"))
	assert.Error(t, err)
}

func TestService_storeUnavailable(t *testing.T) {
	db, err := inmemdb.Open()
	require.NoError(t, err)
	svc := testutil.NewCalendarService(inmemdb.NewCalendarRepository(db))
	require.NoError(t, db.Close())

	_, err = svc.IsHoliday(ctx, testutil.SchoolID, clock.MustParseDate("2025-03-09"))
	assert.True(t, errors.Is(err, core.ErrStoreUnavailable))
}
