package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/clock"
	"github.com/trezcool/ratiba/core/timetable"
	"github.com/trezcool/ratiba/tests"
)

func Test_timetableApi_auth(t *testing.T) {
	f := setup(t)
	otherConf := testutil.NewConfig()
	otherConf.Auth.SecretKey = "another-secret"
	forged := getToken(t, otherConf, testutil.Admin, true)
	noSchool := getToken(t, f.conf, core.Actor{ID: "admin-1"}, true)

	f.run(t, []httpTest{
		{name: "auth required", path: "/v1/classes/c1/slots", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "forged token", path: "/v1/classes/c1/slots", token: forged,
			wantCode: http.StatusUnauthorized, wantData: marshalObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name: "admin required", method: http.MethodPost, path: "/v1/classes/c1/slots", token: f.teacherToken,
			body: []byte(`{"slot_type": "period", "start": "12", "duration": 30}`), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, errForbidden),
		},
		{
			name: "school required", method: http.MethodPost, path: "/v1/classes/c1/slots", token: noSchool,
			body: []byte(`{"slot_type": "period", "start": "12", "duration": 30}`), wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "user not authenticated"}),
		},
		{name: "teachers can read", path: "/v1/classes/c1/slots", token: f.teacherToken, wantCode: http.StatusOK},
	})
}

func Test_timetableApi_otherSchool(t *testing.T) {
	f := setup(t)
	stranger := getToken(t, f.conf, core.Actor{ID: "admin-9", SchoolID: "other-school"}, true)
	math := []byte(`{"subject_id": "math", "teacher_id": "t1"}`)
	notFound := marshalObj(t, errNotFound)

	f.run(t, []httpTest{
		{name: "list slots", path: "/v1/classes/c1/slots", token: stranger, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "next start", path: "/v1/classes/c1/slots/next-start", token: stranger, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "resolve day", path: "/v1/classes/c1/days/" + monday, token: stranger, wantCode: http.StatusNotFound, wantData: notFound},
		{
			name: "validate", method: http.MethodPost, path: "/v1/classes/c1/days/" + monday + "/periods/1/validate",
			token: stranger, body: math, wantCode: http.StatusNotFound, wantData: notFound,
		},
		{
			name: "save", method: http.MethodPut, path: "/v1/classes/c1/days/" + monday + "/periods/1",
			token: stranger, body: math, wantCode: http.StatusNotFound, wantData: notFound,
		},
		{name: "events", path: "/v1/classes/c1/days/" + monday + "/events?token=" + stranger, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "own empty class", path: "/v1/classes/c9/slots", token: stranger, wantCode: http.StatusOK, wantData: []byte(`[]`)},
	})

	rows, err := f.repo.ListDayAssignments(context.Background(), "c1", clock.MustParseDate(monday))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func Test_timetableApi_slots(t *testing.T) {
	f := setup(t)

	// add
	rec := f.do(http.MethodPost, "/v1/classes/c1/slots", f.adminToken, []byte(`{"slot_type": "period", "start": "11:20", "duration": 40}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var slot timetable.ClassSlot
	decode(t, rec, &slot)
	assert.Equal(t, 6, slot.SlotNumber)
	assert.Equal(t, "c1", slot.ClassID)
	assert.Equal(t, testutil.AdminID, slot.CreatedBy)
	assert.Equal(t, clock.MustParseTime("12:00"), slot.EndTime)

	rec = f.do(http.MethodPost, "/v1/classes/c1/slots", f.adminToken, []byte(`{"slot_type": "break", "start": "lunch", "duration": 40, "break_name": "Lunch"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var fields map[string]string
	decode(t, rec, &fields)
	assert.Contains(t, fields, "start")

	rec = f.do(http.MethodPost, "/v1/classes/c1/slots", f.adminToken, []byte(`{"slot_type": "break", "start": "12", "duration": 40}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	fields = nil
	decode(t, rec, &fields)
	assert.Contains(t, fields, "break_name")

	rec = f.do(http.MethodPost, "/v1/classes/c1/slots", f.adminToken, []byte(`{"slot_type": `))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// list & suggest
	rec = f.do(http.MethodGet, "/v1/classes/c1/slots", f.teacherToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var slots []timetable.ClassSlot
	decode(t, rec, &slots)
	require.Len(t, slots, 7)
	assert.Equal(t, "Tea", slots[4].Name)

	f.run(t, []httpTest{
		{name: "next start", path: "/v1/classes/c1/slots/next-start", token: f.teacherToken, wantCode: http.StatusOK, wantData: []byte(`{"start": "12:00"}`)},
		{name: "next start (empty class)", path: "/v1/classes/c9/slots/next-start", token: f.teacherToken, wantCode: http.StatusOK, wantData: []byte(`{"start": "09:00"}`)},
		{name: "delete", method: http.MethodDelete, path: "/v1/classes/c1/slots/" + slot.ID, token: f.adminToken, wantCode: http.StatusNoContent},
		{
			name: "delete again", method: http.MethodDelete, path: "/v1/classes/c1/slots/" + slot.ID, token: f.adminToken,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound),
		},
	})
}

func Test_timetableApi_assignments(t *testing.T) {
	f := setup(t)
	c2p1 := testutil.CreatePeriod(t, f.repo, "c2", 1, "08:20", "09:00")
	math := []byte(`{"subject_id": "math", "teacher_id": "t1"}`)

	rec := f.do(http.MethodPut, "/v1/classes/c1/days/"+monday+"/periods/1", f.adminToken, math)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var asg timetable.DaySlotAssignment
	decode(t, rec, &asg)
	assert.Equal(t, "math", asg.SubjectID)
	assert.Equal(t, timetable.StatusPlanned, asg.Status)
	assert.Equal(t, f.p[1].StartTime, asg.StartTime)

	f.run(t, []httpTest{
		{
			name: "blocked by break", method: http.MethodPut, path: "/v1/classes/c1/days/" + monday + "/periods/4",
			token: f.adminToken, body: math, wantCode: http.StatusConflict,
			wantData: marshalObj(t, map[string]interface{}{
				"error":    `period #4 overlaps break "Tea"`,
				"conflict": timetable.ConflictError{Kind: timetable.BreakConflict, ClassID: "c1", PeriodNumber: 4, With: "Tea"},
			}),
		},
		{
			name: "not blocked on tuesday", method: http.MethodPost, path: "/v1/classes/c1/days/" + tuesday + "/periods/4/validate",
			token: f.teacherToken, body: math, wantCode: http.StatusOK, wantData: []byte(`{"valid": true}`),
		},
		{
			name: "incomplete", method: http.MethodPost, path: "/v1/classes/c1/days/" + tuesday + "/periods/2/validate",
			token: f.teacherToken, body: []byte(`{"subject_id": "math"}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown period", method: http.MethodPut, path: "/v1/classes/c1/days/" + monday + "/periods/9",
			token: f.adminToken, body: math, wantCode: http.StatusNotFound,
		},
		{
			name: "bad period", method: http.MethodPut, path: "/v1/classes/c1/days/" + monday + "/periods/first",
			token: f.adminToken, body: math, wantCode: http.StatusBadRequest,
			wantData: []byte(`{"period": "expected a positive number"}`),
		},
		{
			name: "bad date", path: "/v1/classes/c1/days/10-03-2025", token: f.teacherToken,
			wantCode: http.StatusBadRequest, wantData: []byte(`{"date": "expected a YYYY-MM-DD date"}`),
		},
	})

	// t1 teaches c1 at 08:00 - 08:40 on monday
	rec = f.do(http.MethodPut, "/v1/classes/c2/days/"+monday+"/periods/1", f.adminToken, []byte(`{"subject_id": "bio", "teacher_id": "t1"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)
	var body struct {
		Conflict timetable.ConflictError `json:"conflict"`
	}
	decode(t, rec, &body)
	assert.Equal(t, timetable.TeacherDoubleBooked, body.Conflict.Kind)
	assert.Equal(t, "c1", body.Conflict.WithClassID)
	assert.Equal(t, c2p1.SlotNumber, body.Conflict.PeriodNumber)

	// resolve
	rec = f.do(http.MethodGet, "/v1/classes/c1/days/"+monday, f.teacherToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var day timetable.DaySchedule
	decode(t, rec, &day)
	require.Len(t, day.Entries, 6)
	require.NotNil(t, day.Entries[0].Assignment)
	assert.Equal(t, "math", day.Entries[0].Assignment.SubjectID)
	p4, ok := day.Period(4)
	require.True(t, ok)
	require.NotNil(t, p4.BlockedBy)
	assert.Equal(t, "Tea", p4.BlockedBy.Name)

	// clear twice
	for i := 0; i < 2; i++ {
		rec = f.do(http.MethodDelete, "/v1/classes/c1/days/"+monday+"/periods/1", f.adminToken)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
	rows, err := f.repo.ListDayAssignments(context.Background(), "c1", clock.MustParseDate(monday))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func Test_timetableApi_purgePeriodAssignments(t *testing.T) {
	f := setup(t)
	testutil.CreateAssignment(t, f.repo, f.p[2], monday, "math", "t1")
	testutil.CreateAssignment(t, f.repo, f.p[2], tuesday, "math", "t1")

	f.run(t, []httpTest{
		{
			name: "purge", method: http.MethodDelete, path: "/v1/classes/c1/periods/2/assignments",
			token: f.adminToken, wantCode: http.StatusOK, wantData: []byte(`{"deleted": 2}`),
		},
		{
			name: "nothing left", method: http.MethodDelete, path: "/v1/classes/c1/periods/2/assignments",
			token: f.adminToken, wantCode: http.StatusOK, wantData: []byte(`{"deleted": 0}`),
		},
	})
}

func Test_timetableApi_copyDay(t *testing.T) {
	f := setup(t)
	testutil.CreateAssignment(t, f.repo, f.p[4], tuesday, "bio", "t4")
	testutil.CreateAssignment(t, f.repo, f.p[5], tuesday, "chem", "t5")
	path := "/v1/classes/c1/days/" + tuesday + "/copy"

	f.run(t, []httpTest{
		{
			name: "same day", method: http.MethodPost, path: path, token: f.adminToken,
			body:     []byte(`{"target": "` + tuesday + `", "include_lessons": true, "mode": "replace"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "no target", method: http.MethodPost, path: path, token: f.adminToken,
			body:     []byte(`{"include_lessons": true, "mode": "replace"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"target": "this field is required"}`),
		},
		{
			name: "bad mode", method: http.MethodPost, path: path, token: f.adminToken,
			body:     []byte(`{"target": "` + wednesday + `", "include_lessons": true, "mode": "append"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "skips blocked period", method: http.MethodPost, path: path, token: f.adminToken,
			body:     []byte(`{"target": "` + monday + `", "include_lessons": true, "mode": "replace"}`),
			wantCode: http.StatusOK, wantData: []byte(`{"written": 1, "skipped": [4]}`),
		},
		{
			name: "nothing eligible", method: http.MethodPost, path: path, token: f.adminToken,
			body:     []byte(`{"target": "` + wednesday + `", "include_breaks": true, "mode": "merge"}`),
			wantCode: http.StatusOK, wantData: []byte(`{"written": 0, "info": "nothing to copy from source date"}`),
		},
	})
}

func Test_timetableApi_breakTemplates(t *testing.T) {
	f := setup(t)

	rec := f.do(http.MethodPost, "/v1/break-templates", f.adminToken, []byte(`{"name": "Lunch", "default_duration": 45}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var lunch timetable.BreakTemplate
	decode(t, rec, &lunch)
	assert.Equal(t, testutil.SchoolID, lunch.SchoolID)

	rec = f.do(http.MethodPost, "/v1/break-templates", f.adminToken, []byte(`{"name": "", "default_duration": 0}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// add a break from the template
	rec = f.do(http.MethodPost, "/v1/classes/c1/slots", f.adminToken,
		[]byte(`{"slot_type": "break", "start": "12:00", "template_id": "`+lunch.ID+`", "weekdays": [1, 2]}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var brk timetable.ClassSlot
	decode(t, rec, &brk)
	assert.Equal(t, "Lunch", brk.Name)
	assert.Equal(t, clock.MustParseTime("12:45"), brk.EndTime)

	rec = f.do(http.MethodGet, "/v1/break-templates", f.teacherToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var tpls []timetable.BreakTemplate
	decode(t, rec, &tpls)
	assert.Len(t, tpls, 1)

	f.run(t, []httpTest{
		{name: "delete", method: http.MethodDelete, path: "/v1/break-templates/" + lunch.ID, token: f.adminToken, wantCode: http.StatusNoContent},
		{name: "delete again", method: http.MethodDelete, path: "/v1/break-templates/" + lunch.ID, token: f.adminToken, wantCode: http.StatusNotFound},
	})
}

func Test_server_storeUnavailable(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.db.Close())

	f.run(t, []httpTest{
		{
			name: "read", path: "/v1/classes/c1/slots", token: f.teacherToken,
			wantCode: http.StatusServiceUnavailable, wantData: marshalObj(t, httpErr{Error: "Service Unavailable"}),
		},
		{name: "home", path: "/", wantCode: http.StatusOK},
		{name: "readiness", path: "/readiness", wantCode: http.StatusOK, wantData: []byte(`{"status": "ok"}`)},
	})
}
