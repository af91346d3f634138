package tests

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core/timetable"
)

func Test_eventsApi(t *testing.T) {
	f := setup(t)
	srv := httptest.NewServer(f.app)
	defer srv.Close()

	f.run(t, []httpTest{
		{name: "auth required", path: "/v1/classes/c1/days/" + monday + "/events", wantCode: http.StatusUnauthorized},
		{
			name: "header token is not enough", path: "/v1/classes/c1/days/" + monday + "/events", token: f.teacherToken,
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "bad date", path: "/v1/classes/c1/days/monday/events?token=" + f.teacherToken,
			wantCode: http.StatusBadRequest,
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/classes/c1/days/"+monday+"/events?token="+f.teacherToken, nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(res.Body)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	next := func(prefix string) string {
		t.Helper()
		for {
			select {
			case line, ok := <-lines:
				require.True(t, ok, "stream closed before %q", prefix)
				if strings.HasPrefix(line, prefix) {
					return line
				}
			case <-ctx.Done():
				t.Fatalf("timed out waiting for %q", prefix)
			}
		}
	}

	next(": connected")
	require.Equal(t, 1, f.broker.Subscribers("c1"))
	next(": keep-alive")

	// another day of the class is not streamed
	rec := f.do(http.MethodPut, "/v1/classes/c1/days/"+tuesday+"/periods/2", f.adminToken, []byte(`{"subject_id": "art", "teacher_id": "t2"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = f.do(http.MethodPut, "/v1/classes/c1/days/"+monday+"/periods/1", f.adminToken, []byte(`{"subject_id": "math", "teacher_id": "t1"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "event: "+string(timetable.AssignmentSaved), next("event: "))
	data := next("data: ")
	assert.Contains(t, data, `"period_numbers":[1]`)
	assert.Contains(t, data, `"date":"2025-03-10T00:00:00Z"`)

	// catalog changes reach every day
	rec = f.do(http.MethodPost, "/v1/classes/c1/slots", f.adminToken, []byte(`{"slot_type": "period", "start": "11:20", "duration": 40}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "event: "+string(timetable.SlotAdded), next("event: "))

	cancel()
	require.Eventually(t, func() bool { return f.broker.Subscribers("c1") == 0 }, 2*time.Second, 10*time.Millisecond)
}
