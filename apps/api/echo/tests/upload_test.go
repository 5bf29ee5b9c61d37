package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/feedback/apps/api/echo"
	"github.com/trezcool/feedback/core/admin"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/feedback"
	"github.com/trezcool/feedback/tests"
)

func Test_uploadApi_students(t *testing.T) {
	app := setup(t)
	adm := testutil.CreateAdmin(t, admRepo, "staff", "staff@test.edu", "secret1", admin.RoleAdmin)
	token := adminToken(t, adm)
	// Bob is returning from an older cohort, Carl already belongs to this one
	testutil.CreateStudent(t, stdRepo, "Bob", "21A2", "CSE", "2019-2023", "bob@test.edu", "secret1")
	cohortYear := cohort.Resolve("2024-2025", "3-1")
	testutil.CreateStudent(t, stdRepo, "Carl", "21A3", "CSE", cohortYear, "carl@test.edu", "secret1")

	fields := map[string]string{"class": "3-1", "branch": "CSE", "academic_year": "2024-2025"}
	csv := []byte("\ufeffName,Hallticket,Branch\nAlice,21A1,CSE\nBob,21A2,CSE\n\nCarl Jr,21A3,CSE\nbroken row\n")

	t.Run("auth required", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/uploads/students", "", "students.csv", csv, fields)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("no file", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/uploads/students", token, "", nil, fields)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"file": "no file uploaded"})}, rec)
	})

	t.Run("not a csv", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/uploads/students", token, "students.xlsx", csv, fields)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"file": "only CSV files are allowed"})}, rec)
	})

	t.Run("scope missing", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/uploads/students", token, "students.csv", csv, map[string]string{"class": "3-1"})
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "class, branch and academic year are required"})}, rec)
	})

	t.Run("empty file", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/uploads/students", token, "students.csv", []byte(" \n"), fields)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "file is empty"})}, rec)
	})

	t.Run("ingested", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/uploads/students", token, "students.csv", csv, fields)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp echoapi.StudentUploadResponse
		unmarshal(t, rec, &resp)
		assert.True(t, resp.Success)
		assert.Equal(t, "students.csv", resp.FileName)
		assert.Equal(t, 4, resp.Stats.Processed)
		assert.Equal(t, 2, resp.Stats.New)
		assert.Equal(t, 1, resp.Stats.Updated)
		assert.Equal(t, 1, resp.Stats.Errors)
		require.Len(t, resp.Stats.Failures, 1)
		assert.Equal(t, 6, resp.Stats.Failures[0].Line)
		assert.Equal(t, "Processed 4 students: 2 new, 1 updated, 1 of 4 rows failed", resp.Message)
	})

	ctx := context.Background()
	alice, err := stdRepo.GetStudent(ctx, "21A1", cohortYear)
	require.NoError(t, err)
	assert.False(t, alice.IsRegistered())
	assert.NoError(t, alice.CheckPassword("21A1"))

	// the returning student got a fresh record, the older one is untouched
	bob, err := stdRepo.GetStudent(ctx, "21A2", cohortYear)
	require.NoError(t, err)
	assert.False(t, bob.IsRegistered())
	oldBob, err := stdRepo.GetStudent(ctx, "21A2", "2019-2023")
	require.NoError(t, err)
	assert.True(t, oldBob.IsRegistered())

	// the known student keeps their credentials
	carl, err := stdRepo.GetStudent(ctx, "21A3", cohortYear)
	require.NoError(t, err)
	assert.Equal(t, "Carl Jr", carl.Name)
	assert.Equal(t, "carl@test.edu", carl.Email)

	subs, err := fbRepo.QuerySubmissions(ctx, cohort.Scope{Class: "3-1", Branch: "CSE", CohortYear: cohortYear})
	require.NoError(t, err)
	assert.Len(t, subs, 3)
	for _, sub := range subs {
		assert.False(t, sub.Submitted("initial"))
		assert.Equal(t, feedback.Submission{
			Hallticket: sub.Hallticket, Class: "3-1", Branch: "CSE", CohortYear: cohortYear,
		}, sub)
	}
}

func Test_uploadApi_subjects(t *testing.T) {
	app := setup(t)
	adm := testutil.CreateAdmin(t, admRepo, "staff", "staff@test.edu", "secret1", admin.RoleAdmin)
	token := adminToken(t, adm)
	scope := cohort.Scope{Class: "3-1", Branch: "CSE", CohortYear: "2023-2027"}
	testutil.CreateSubjects(t, subjRepo, scope, [2]string{"Old Subject", "Dr. Old"})

	fields := map[string]string{"class": "3-1", "branch": "CSE", "cohort_year": "2023-2027"}

	t.Run("no valid row", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/uploads/subjects", token, "subjects.csv", []byte("subject,faculty\nOnly a subject\n"), fields)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "no valid subject data found in CSV"})}, rec)
	})

	t.Run("replaced", func(t *testing.T) {
		csv := []byte("subject,faculty\nCompilers,Dr. Rao\nNetworks,Dr. Iyer\n,Dr. Nobody\n")
		req, rec := newUploadRequest(t, "/v1/uploads/subjects", token, "subjects.csv", csv, fields)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp echoapi.SubjectUploadResponse
		unmarshal(t, rec, &resp)
		assert.True(t, resp.Success)
		assert.Equal(t, 3, resp.Stats.Processed)
		assert.Equal(t, 2, resp.Stats.Inserted)
		assert.Equal(t, "Subjects uploaded successfully! 2 subjects processed.", resp.Message)
	})

	subjects, err := subjRepo.QuerySubjects(context.Background(), cohort.Filter(scope))
	require.NoError(t, err)
	names := make([]string, 0, len(subjects))
	for _, s := range subjects {
		names = append(names, s.Subject)
	}
	assert.ElementsMatch(t, []string{"Compilers", "Networks"}, names)

	// uploading subjects opens the initial round of the scope
	ctrl, err := rndRepo.GetControl(context.Background(), scope)
	require.NoError(t, err)
	assert.True(t, ctrl.InitialEnabled)
	assert.False(t, ctrl.FinalEnabled)
}
