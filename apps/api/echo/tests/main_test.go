package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	. "github.com/trezcool/kampus/apps/api/echo"
	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/audit"
	"github.com/trezcool/kampus/core/dispatch"
	"github.com/trezcool/kampus/core/schedule"
	"github.com/trezcool/kampus/core/user"
	emailsvc "github.com/trezcool/kampus/services/email"
	"github.com/trezcool/kampus/storage/database/dummydb"
	testutil "github.com/trezcool/kampus/tests"
)

var (
	conf      *core.Config
	app       Server
	usrRepo   user.Repository
	schedRepo *dummydb.ScheduleRepository
	auditRepo interface{ Events() []audit.Event }
	validate  *validator.Validate

	errNoAuth = httpErr{Error: "user not authenticated"}
)

func TestMain(m *testing.M) {
	conf = core.NewTestConfig()
	logger := testutil.NopLogger{}

	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		os.Exit(1)
	}
	usrRepo = dummydb.NewUserRepository(db)
	schedRepo = dummydb.NewScheduleRepository()
	audRepo := dummydb.NewAuditRepository(db)
	auditRepo = audRepo

	// set up services
	var translator ut.Translator
	validate, translator = testutil.NewValidator()
	auditor := audit.NewRecorder(audRepo, logger)
	mailSvc := emailsvc.NewConsoleService(conf)
	usrSvc := user.NewService(usrRepo, auditor, mailSvc, validate, conf)
	schedSvc := schedule.NewService(schedRepo, validate)

	// build the closed action tables
	registry := dispatch.NewRegistry()
	if err = registry.Register(schedule.Domain, schedSvc.Actions()); err != nil {
		os.Exit(1)
	}
	if err = registry.Register(schedule.UsersDomain, schedSvc.UserActions()); err != nil {
		os.Exit(1)
	}
	dispatcher := dispatch.NewDispatcher(registry, logger)

	// set up server
	app = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		UserSvc:        usrSvc,
		Dispatcher:     dispatcher,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})

	os.Exit(m.Run())
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

// newAuthRequest builds a JSON request carrying the auth cookie when a
// token is given.
func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	token, err := GenerateToken(GetUserClaims(usr, conf), conf)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
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

// authCookie returns the "token" cookie set on the response, if any.
func authCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	return nil
}
