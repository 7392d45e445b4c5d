package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/mmarronetravels-sudo/tiertrak-sub001/apps/api/echo"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/core"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/core/progress"
	logsvc "github.com/mmarronetravels-sudo/tiertrak-sub001/services/logger"
	sqlxrepos "github.com/mmarronetravels-sudo/tiertrak-sub001/storage/database/sqlx"
	"github.com/mmarronetravels-sudo/tiertrak-sub001/testutil"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	conf    *core.Config
	db      *sqlx.DB
	repo    progress.Repository
	app     *echoapi.Server
	tenant  string
	staff   core.Identity
	student progress.Student
	iv      progress.Intervention
}

// newTestApp serves the API over a fresh database holding one tenant, one staff member,
// one student and its "Reading fluency" intervention started on 2024-01-03.
func newTestApp(t *testing.T) *testApp {
	conf := core.NewTestConfig()
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewProgressRepository(db)
	validate, translator := testutil.NewValidator()

	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)

	ta := &testApp{conf: conf, db: db, repo: repo}
	ta.app = echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		ProgressSvc:    progress.NewService(db, repo, validate, translator, conf),
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	t.Cleanup(func() { _ = ta.app.Shutdown(context.Background()) })

	ta.tenant = testutil.CreateTenant(t, db, "Lincoln Elementary")
	ta.staff = core.Identity{
		UserID:   testutil.CreateUser(t, db, ta.tenant, "Ms. Rivera"),
		TenantID: ta.tenant,
		Name:     "Ms. Rivera",
		Role:     "teacher",
	}
	ta.student = testutil.CreateStudent(t, db, ta.tenant, "Ada", "Lovelace", false)
	ta.iv = testutil.CreateIntervention(t, db, ta.student.ID, "Reading fluency", testutil.Date(t, "2024-01-03"), "", nil)
	return ta
}

func (ta *testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	ta.app.ServeHTTP(rec, req)
	return rec
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

func getToken(t *testing.T, conf *core.Config, id core.Identity) string {
	token, err := echoapi.GenerateToken(echoapi.NewClaims(id, conf), conf.SecretKey)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func unmarshalBody(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("unmarshalBody(%s): %v", rec.Body.String(), err)
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
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, ta *testApp, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			checkCodeAndData(t, tt, ta.do(method, tt.path, tt.token, tt.body))
		})
	}
}
