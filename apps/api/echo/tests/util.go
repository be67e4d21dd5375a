package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/educonnect/backend/apps/api/echo"
	"github.com/educonnect/backend/core"
	"github.com/educonnect/backend/core/announcement"
	"github.com/educonnect/backend/core/assignment"
	"github.com/educonnect/backend/core/class"
	"github.com/educonnect/backend/core/user"
	emailsvc "github.com/educonnect/backend/services/email"
	inmemdb "github.com/educonnect/backend/storage/database/inmem"
	testutil "github.com/educonnect/backend/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	server Server
	conf   *core.Config

	usrRepo user.Repository
	clsRepo class.Repository
	asgRepo assignment.Repository
	annRepo announcement.Repository

	usrSvc user.Service
	clsSvc class.Service
	asgSvc assignment.Service
	annSvc announcement.Service
}

func setup(t *testing.T) *testApp {
	t.Helper()

	conf := testutil.NewTestConfig()

	// set up DB & repos
	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	clsRepo := inmemdb.NewClassRepository(db)
	asgRepo := inmemdb.NewAssignmentRepository(db)
	annRepo := inmemdb.NewAnnouncementRepository(db)

	// set up services
	emailsvc.ClearSentMessages()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewServiceMock(usrRepo, mailSvc, conf)
	clsSvc := class.NewService(clsRepo, usrRepo)
	asgSvc := assignment.NewService(asgRepo, clsRepo)
	annSvc := announcement.NewService(annRepo, clsSvc, mailSvc, conf)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.Init(conf)

	// set up server
	server := NewServer(
		ServerDeps{
			Conf:            conf,
			Logger:          testLogger{t},
			UserSvc:         usrSvc,
			ClassSvc:        clsSvc,
			AssignmentSvc:   asgSvc,
			AnnouncementSvc: annSvc,
			Validate:        validate,
			Translator:      translator,
		},
	)

	return &testApp{
		server:  server,
		conf:    conf,
		usrRepo: usrRepo,
		clsRepo: clsRepo,
		asgRepo: asgRepo,
		annRepo: annRepo,
		usrSvc:  usrSvc,
		clsSvc:  clsSvc,
		asgSvc:  asgSvc,
		annSvc:  annSvc,
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// testLogger routes server errors to the test log.
type testLogger struct {
	t *testing.T
}

var _ core.Logger = (*testLogger)(nil)

func (l testLogger) Debug(msg string, args ...interface{}) { l.t.Logf("DEBUG: %s %v", msg, args) }
func (l testLogger) Info(msg string, args ...interface{})  { l.t.Logf("INFO: %s %v", msg, args) }
func (l testLogger) Warn(msg string, args ...interface{})  { l.t.Logf("WARN: %s %v", msg, args) }
func (l testLogger) Error(msg string, args ...interface{}) { l.t.Logf("ERROR: %s %v", msg, args) }
func (l testLogger) Fatal(msg string, args ...interface{}) { l.t.Fatalf("FATAL: %s %v", msg, args) }

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
	extra    interface{}
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

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	if l1, ok := j1.([]interface{}); ok {
		if l2, ok := j2.([]interface{}); ok {
			return assert.ElementsMatch(t, l1, l2), nil
		}
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	if rec.Code != wantCode {
		t.Errorf("code = %d, want %d; body: %s", rec.Code, wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("comparing response data: %v", err)
		return
	}
	if !ok {
		t.Errorf("data = %s, want %s", rec.Body.String(), tt.wantData)
	}
}
