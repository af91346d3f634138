package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/calendar"
	"github.com/trezcool/ratiba/core/timetable"
	"github.com/trezcool/ratiba/services/logger"
	"github.com/trezcool/ratiba/services/notify"
	"github.com/trezcool/ratiba/storage/database/inmem"
	"github.com/trezcool/ratiba/tests"
)

const (
	monday    = "2025-03-10"
	tuesday   = "2025-03-11"
	wednesday = "2025-03-12"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}

	teacher = core.Actor{ID: "teacher-1", SchoolID: testutil.SchoolID}
)

type fixture struct {
	app    Server
	conf   *core.Config
	db     *inmemdb.DB
	repo   timetable.Repository
	broker *notifysvc.Broker
	p      map[int]timetable.ClassSlot

	adminToken   string
	teacherToken string
}

// setup serves an in-memory school whose class c1 has periods #1 - #5 (08:00 - 11:20, 40 minutes each)
// and a Monday tea break (10:15 - 10:30) blocking period #4.
func setup(t *testing.T) *fixture {
	conf := testutil.NewConfig()
	db, err := inmemdb.Open()
	require.NoError(t, err)
	repo := inmemdb.NewTimetableRepository(db)
	broker := notifysvc.NewBroker()

	validate, translator := testutil.NewValidator()
	logger := logsvc.NewNopLogger()
	app := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Translator:     translator,
		TimetableSvc:   timetable.NewService(repo, broker, validate, translator, logger, conf),
		CalendarSvc:    calendar.NewService(inmemdb.NewCalendarRepository(db), validate, translator, logger),
		Broker:         broker,
		DisableReqLogs: true,
		KeepAlive:      50 * time.Millisecond,
	})

	f := &fixture{
		app:          app,
		conf:         conf,
		db:           db,
		repo:         repo,
		broker:       broker,
		p:            make(map[int]timetable.ClassSlot),
		adminToken:   getToken(t, conf, testutil.Admin, true),
		teacherToken: getToken(t, conf, teacher, false),
	}
	starts := []string{"08:00", "08:40", "09:20", "10:00", "10:40", "11:20"}
	for i := 0; i < 5; i++ {
		f.p[i+1] = testutil.CreatePeriod(t, repo, "c1", i+1, starts[i], starts[i+1])
	}
	testutil.CreateBreak(t, repo, "c1", "Tea", "10:15", "10:30", 1)
	return f
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, conf *core.Config, actor core.Actor, isAdmin bool) string {
	token, err := GenerateToken(conf, NewClaims(conf, actor, isAdmin))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func (f *fixture) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	f.app.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			checkCodeAndData(t, tt, f.do(method, tt.path, tt.token, tt.body))
		})
	}
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, "code; body %s", rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
