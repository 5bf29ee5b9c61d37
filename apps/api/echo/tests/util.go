package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/feedback/apps/api/echo"
	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/admin"
	"github.com/trezcool/feedback/core/faculty"
	"github.com/trezcool/feedback/core/feedback"
	"github.com/trezcool/feedback/core/report"
	"github.com/trezcool/feedback/core/round"
	"github.com/trezcool/feedback/core/student"
	"github.com/trezcool/feedback/core/subject"
	"github.com/trezcool/feedback/storage/database/dummy"
	"github.com/trezcool/feedback/tests"
)

var (
	conf     *core.Config
	stdRepo  student.Repository
	subjRepo subject.Repository
	rndRepo  round.Repository
	fbRepo   feedback.Repository
	admRepo  admin.Repository

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func setup(t *testing.T, storageCheck ...echoapi.StatusChecker) *echoapi.Server {
	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	stdRepo = dummydb.NewStudentRepository(db)
	subjRepo = dummydb.NewSubjectRepository(db)
	rndRepo = dummydb.NewRoundRepository(db)
	fbRepo = dummydb.NewFeedbackRepository(db)
	admRepo = dummydb.NewAdminRepository(db)
	facRepo := dummydb.NewFacultyRepository(db)

	// set up services
	conf = testutil.NewConfig()
	validate, translator := testutil.NewValidator()
	roundSvc := round.NewService(rndRepo)
	feedbackSvc := feedback.NewService(nil, fbRepo, stdRepo, roundSvc)
	studentSvc := student.NewService(stdRepo, feedbackSvc, conf)
	subjectSvc := subject.NewService(nil, subjRepo, roundSvc)

	opts := echoapi.Options{
		Conf:           conf,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
		Storage:        core.StorageMemory,
		StudentSvc:     studentSvc,
		SubjectSvc:     subjectSvc,
		RoundSvc:       roundSvc,
		FeedbackSvc:    feedbackSvc,
		FacultySvc:     faculty.NewService(nil, facRepo),
		ReportSvc:      report.NewService(fbRepo, subjRepo, core.NopLogger{}),
		AdminSvc:       admin.NewService(admRepo),
	}
	if len(storageCheck) > 0 {
		opts.StorageFunc = storageCheck[0]
	}

	// set up server
	return echoapi.NewServer(opts)
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

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newUploadRequest posts a multipart form holding the file and the given fields.
func newUploadRequest(t *testing.T, path, token, filename string, content []byte, fields map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField() failed: %v", err)
		}
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile() failed: %v", err)
		}
		if _, err = io.Copy(part, bytes.NewReader(content)); err != nil {
			t.Fatalf("io.Copy() failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("multipart.Close() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func studentToken(t *testing.T, std student.Student) string {
	token, err := echoapi.StudentToken(conf, std)
	if err != nil {
		t.Fatalf("studentToken() failed: %v", err)
	}
	return token
}

func adminToken(t *testing.T, adm admin.Admin) string {
	token, err := echoapi.AdminToken(conf, adm)
	if err != nil {
		t.Fatalf("adminToken() failed: %v", err)
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

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
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
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runTests(t *testing.T, app *echoapi.Server, tests []httpTest) {
	for _, tt := range tests {
		tt := tt
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
