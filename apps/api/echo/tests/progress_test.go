package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmarronetravels-sudo/tiertrak-sub001/core"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/core/progress"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/testutil"
)

func TestServer_home(t *testing.T) {
	ta := newTestApp(t)

	rec := ta.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to TierTrak API!", rec.Body.String())
}

func Test_progressApi_auth(t *testing.T) {
	ta := newTestApp(t)

	otherConf := core.NewTestConfig()
	otherConf.SecretKey = "not-the-secret"
	forged := getToken(t, otherConf, ta.staff)
	noTenant := getToken(t, ta.conf, core.Identity{UserID: ta.staff.UserID, Name: "Ms. Rivera"})
	invalidJWT := marshalObj(t, httpErr{Error: "invalid or expired jwt"})

	runHTTPTests(t, ta, []httpTest{
		{name: "no token", path: "/v1/progress/options", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "garbage token", path: "/v1/progress/options", token: "abc", wantCode: http.StatusUnauthorized, wantData: invalidJWT},
		{name: "forged token", path: "/v1/progress/options", token: forged, wantCode: http.StatusUnauthorized, wantData: invalidJWT},
		{
			name: "summary needs a token", path: "/v1/students/" + ta.student.ID + "/progress-summary",
			wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken),
		},
		{
			name: "missing logs need a tenant", path: "/v1/progress/missing", token: noTenant,
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "no tenant in token"}),
		},
	})
}

func Test_progressApi_options(t *testing.T) {
	ta := newTestApp(t)

	runHTTPTests(t, ta, []httpTest{{
		name:     "lookup",
		path:     "/v1/progress/options",
		token:    getToken(t, ta.conf, ta.staff),
		wantCode: http.StatusOK,
		wantData: marshalObj(t, progress.GetOptions()),
	}})
}

func Test_progressApi_record(t *testing.T) {
	ta := newTestApp(t)
	token := getToken(t, ta.conf, ta.staff)

	body := func(date, status string, rating interface{}) []byte {
		return marshalObj(t, map[string]interface{}{
			"intervention_id": ta.iv.ID,
			"student_id":      ta.student.ID,
			"date":            date,
			"status":          status,
			"rating":          rating,
			"logged_by":       "someone-else",
		})
	}

	rec := ta.do(http.MethodPost, "/v1/progress", token, body("2024-01-04", progress.StatusImplemented, 4))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var first progress.Entry
	unmarshalBody(t, rec, &first)
	assert.Equal(t, "2024-01-01", first.WeekOf.String())
	assert.Equal(t, ta.staff.UserID, first.LoggedBy, "logged_by comes from the token")
	assert.Equal(t, 4, first.Rating.Int)

	rec = ta.do(http.MethodGet, "/v1/interventions/"+ta.iv.ID+"/progress?week_of=2024-01-01", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var fetched progress.Entry
	unmarshalBody(t, rec, &fetched)
	assert.Equal(t, first.ID, fetched.ID)

	// same week, later day: overwritten in place
	rec = ta.do(http.MethodPost, "/v1/progress", token, body("2024-01-07T23:30:00-08:00", progress.StatusPartial, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var second progress.Entry
	unmarshalBody(t, rec, &second)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, progress.StatusPartial, second.Status)
	assert.False(t, second.Rating.Valid)

	rec = ta.do(http.MethodGet, "/v1/interventions/"+ta.iv.ID+"/progress", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var entries []progress.LogEntry
	unmarshalBody(t, rec, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, "Ms. Rivera", entries[0].LoggedByName)
}

func Test_progressApi_recordErrors(t *testing.T) {
	ta := newTestApp(t)
	token := getToken(t, ta.conf, ta.staff)

	payload := func(overrides map[string]interface{}) []byte {
		data := map[string]interface{}{
			"intervention_id": ta.iv.ID,
			"student_id":      ta.student.ID,
			"date":            "2024-01-04",
			"status":          progress.StatusImplemented,
		}
		for k, v := range overrides {
			if v == nil {
				delete(data, k)
			} else {
				data[k] = v
			}
		}
		return marshalObj(t, data)
	}

	runHTTPTests(t, ta, []httpTest{
		{
			name: "status required", method: http.MethodPost, path: "/v1/progress", token: token,
			body:     payload(map[string]interface{}{"status": nil}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"status": "this field is required"}),
		},
		{
			name: "date and intervention required", method: http.MethodPost, path: "/v1/progress", token: token,
			body:     payload(map[string]interface{}{"date": nil, "intervention_id": nil}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"date": "this field is required", "intervention_id": "this field is required"}),
		},
		{
			name: "rating out of range", method: http.MethodPost, path: "/v1/progress", token: token,
			body:     payload(map[string]interface{}{"rating": 6}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"rating": "must be between 1 and 5"}),
		},
		{
			name: "absent with a rating", method: http.MethodPost, path: "/v1/progress", token: token,
			body:     payload(map[string]interface{}{"status": progress.StatusAbsent, "rating": 3}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"rating": "must be empty when the student is absent"}),
		},
		{
			name: "fractional rating", method: http.MethodPost, path: "/v1/progress", token: token,
			body:     payload(map[string]interface{}{"rating": 3.5}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"rating": "must be a whole number"}),
		},
		{
			name: "malformed date", method: http.MethodPost, path: "/v1/progress", token: token,
			body:     payload(map[string]interface{}{"date": "01/04/2024"}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"date": "must be a date formatted as YYYY-MM-DD"}),
		},
		{
			name: "date not a string", method: http.MethodPost, path: "/v1/progress", token: token,
			body:     payload(map[string]interface{}{"date": 20240104}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"date": "must be a date formatted as YYYY-MM-DD"}),
		},
		{
			name: "unknown intervention", method: http.MethodPost, path: "/v1/progress", token: token,
			body:     payload(map[string]interface{}{"intervention_id": "nope"}),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "intervention not found"}),
		},
		{
			name: "unknown entry", path: "/v1/progress/nope", token: token,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "progress entry not found"}),
		},
		{
			name: "no entry that week", path: "/v1/interventions/" + ta.iv.ID + "/progress?week_of=2024-01-01", token: token,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "progress entry not found"}),
		},
		{
			name: "malformed week", path: "/v1/interventions/" + ta.iv.ID + "/progress?week_of=01/04/2024", token: token,
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"week_of": "must be a date formatted as YYYY-MM-DD"}),
		},
	})

	rec := ta.do(http.MethodPost, "/v1/progress", token, []byte(`{"status": `))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_progressApi_updateAndDelete(t *testing.T) {
	ta := newTestApp(t)
	token := getToken(t, ta.conf, ta.staff)
	entry := testutil.CreateEntry(t, ta.repo, ta.iv, testutil.Date(t, "2024-01-08"), progress.StatusImplemented, testutil.IntPtr(4), ta.staff.UserID)
	path := "/v1/progress/" + entry.ID

	counselor := core.Identity{
		UserID:   testutil.CreateUser(t, ta.db, ta.tenant, "Mr. Diaz"),
		TenantID: ta.tenant,
		Name:     "Mr. Diaz",
	}
	rec := ta.do(http.MethodPatch, path, getToken(t, ta.conf, counselor), []byte(`{"notes": "  engaged  ", "response": null}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated progress.Entry
	unmarshalBody(t, rec, &updated)
	assert.Equal(t, "engaged", updated.Notes.String)
	assert.Equal(t, 4, updated.Rating.Int, "absent fields are left alone")
	assert.Equal(t, counselor.UserID, updated.LoggedBy)
	assert.Equal(t, "2024-01-08", updated.WeekOf.String())

	rec = ta.do(http.MethodPatch, path, token, marshalObj(t, map[string]string{"status": progress.StatusAbsent}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshalBody(t, rec, &updated)
	assert.Equal(t, progress.StatusAbsent, updated.Status)
	assert.False(t, updated.Rating.Valid)

	runHTTPTests(t, ta, []httpTest{
		{
			name: "invalid status", method: http.MethodPatch, path: path, token: token, body: []byte(`{"status": "Done"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"status": "must be one of: Implemented as Planned, Partially Implemented, Not Implemented, Student Absent"}),
		},
		{
			name: "rating as text", method: http.MethodPatch, path: path, token: token, body: []byte(`{"rating": "four"}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"rating": "must be a whole number"}),
		},
		{
			name: "unknown entry", method: http.MethodPatch, path: "/v1/progress/nope", token: token, body: []byte(`{}`),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "progress entry not found"}),
		},
	})

	rec = ta.do(http.MethodDelete, path, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var removed progress.Entry
	unmarshalBody(t, rec, &removed)
	assert.Equal(t, entry.ID, removed.ID)
	assert.Equal(t, progress.StatusAbsent, removed.Status)

	notFound := marshalObj(t, httpErr{Error: "progress entry not found"})
	runHTTPTests(t, ta, []httpTest{
		{name: "deleted", path: path, token: token, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "delete twice", method: http.MethodDelete, path: path, token: token, wantCode: http.StatusNotFound, wantData: notFound},
	})
}

func Test_progressApi_missing(t *testing.T) {
	ta := newTestApp(t)
	token := getToken(t, ta.conf, ta.staff)

	rec := ta.do(http.MethodGet, "/v1/progress/missing?as_of=2024-03-06", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report progress.MissingReport
	unmarshalBody(t, rec, &report)
	assert.Equal(t, "2024-03-04", report.WeekOf.String())
	assert.Equal(t, 1, report.Count)
	require.Len(t, report.Missing, 1)
	assert.Equal(t, ta.iv.ID, report.Missing[0].InterventionID)

	testutil.CreateEntry(t, ta.repo, ta.iv, testutil.Date(t, "2024-03-04"), progress.StatusAbsent, nil, ta.staff.UserID)

	runHTTPTests(t, ta, []httpTest{
		{
			name: "logged", path: "/v1/progress/missing?as_of=2024-03-10", token: token, wantCode: http.StatusOK,
			wantData: []byte(`{"week_of": "2024-03-04", "count": 0, "missing": []}`),
		},
		{
			name: "other tenant sees nothing", path: "/v1/progress/missing?as_of=2024-03-11",
			token:    getToken(t, ta.conf, core.Identity{UserID: "u-2", TenantID: "elsewhere"}),
			wantCode: http.StatusOK, wantData: []byte(`{"week_of": "2024-03-11", "count": 0, "missing": []}`),
		},
		{
			name: "malformed as_of", path: "/v1/progress/missing?as_of=yesterday", token: token,
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"as_of": "must be a date formatted as YYYY-MM-DD"}),
		},
	})
}

func Test_progressApi_summary(t *testing.T) {
	ta := newTestApp(t)
	token := getToken(t, ta.conf, ta.staff)

	testutil.CreateEntry(t, ta.repo, ta.iv, testutil.Date(t, "2024-01-01"), progress.StatusImplemented, testutil.IntPtr(3), ta.staff.UserID)
	testutil.CreateEntry(t, ta.repo, ta.iv, testutil.Date(t, "2024-01-08"), progress.StatusNotImplemented, testutil.IntPtr(5), ta.staff.UserID)

	rec := ta.do(http.MethodPost, fmt.Sprintf("/v1/students/%s/notes", ta.student.ID), token,
		[]byte(`{"kind": "meeting", "note_date": "2024-01-10", "content": "Team meeting"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var note progress.Note
	unmarshalBody(t, rec, &note)
	assert.Equal(t, "Ms. Rivera", note.AuthorName)

	path := fmt.Sprintf("/v1/students/%s/progress-summary?start_date=2024-01-01&end_date=2024-01-31", ta.student.ID)
	rec = ta.do(http.MethodGet, path, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var summary progress.Summary
	unmarshalBody(t, rec, &summary)
	require.Len(t, summary.Interventions, 1)
	reading := summary.Interventions[0]
	assert.Equal(t, 4.0, reading.AvgRating.Float64)
	assert.Equal(t, 2, reading.TotalLogs)
	assert.Equal(t, 1, reading.ImplementedCount)
	require.Len(t, summary.Notes, 1)
	assert.Equal(t, note.ID, summary.Notes[0].ID)

	// no entries in the window: avg_rating is null
	rec = ta.do(http.MethodGet, fmt.Sprintf("/v1/students/%s/progress-summary?start_date=2024-02-01&end_date=2024-02-28", ta.student.ID), token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var raw map[string]interface{}
	unmarshalBody(t, rec, &raw)
	ivs := raw["interventions"].([]interface{})
	require.Len(t, ivs, 1)
	assert.Nil(t, ivs[0].(map[string]interface{})["avg_rating"])
	assert.Equal(t, 0.0, ivs[0].(map[string]interface{})["total_logs"])

	runHTTPTests(t, ta, []httpTest{
		{
			name: "unknown student", path: "/v1/students/nope/progress-summary", token: token,
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "student not found"}),
		},
		{
			name: "end before start", token: token,
			path:     fmt.Sprintf("/v1/students/%s/progress-summary?start_date=2024-02-01&end_date=2024-01-01", ta.student.ID),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"end_date": "must not be before the start date"}),
		},
		{
			name: "note for unknown student", method: http.MethodPost, path: "/v1/students/nope/notes", token: token,
			body:     []byte(`{"kind": "progress", "note_date": "2024-01-10", "content": "x"}`),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "student not found"}),
		},
	})
}

func Test_progressApi_storageFailure(t *testing.T) {
	ta := newTestApp(t)
	token := getToken(t, ta.conf, ta.staff)
	require.NoError(t, ta.db.Close())

	runHTTPTests(t, ta, []httpTest{{
		name: "db closed", path: "/v1/progress/missing", token: token,
		wantCode: http.StatusInternalServerError, wantData: marshalObj(t, httpErr{Error: "Internal Server Error"}),
	}})
}
