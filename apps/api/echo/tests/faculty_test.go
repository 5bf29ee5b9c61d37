package tests

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/feedback/apps/api/echo"
	"github.com/trezcool/feedback/core/admin"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/faculty"
	"github.com/trezcool/feedback/core/feedback"
	"github.com/trezcool/feedback/core/round"
	"github.com/trezcool/feedback/tests"
)

func seedFaculties(t *testing.T) {
	testutil.CreateSubjects(t, subjRepo, class31,
		[2]string{"Compilers", "Dr. Rao"},
		[2]string{"Networks", "DR RAO"},
		[2]string{"Maths", "25C01A7301"},
		[2]string{"Physics", "Dr. Sen"},
	)
	testutil.CreateSubjects(t, subjRepo, cohort.Scope{Class: "3-2", Branch: "CSE", CohortYear: "2023-2027"},
		[2]string{"AI", "DR RAO"},
		[2]string{"Ethics", "TBA"},
	)
	testutil.CreateFeedback(t, fbRepo, "21A1", class31, "Networks", "DR RAO", round.Initial, testutil.Answers(4))
	testutil.CreateFeedback(t, fbRepo, "21A1", class31, "Maths", "25C01A7301", round.Initial, testutil.Answers(4))
}

func Test_facultyApi_listing(t *testing.T) {
	app := setup(t)
	seedFaculties(t)
	adm := testutil.CreateAdmin(t, admRepo, "staff", "staff@test.edu", "secret1", admin.RoleAdmin)
	token := adminToken(t, adm)

	runTests(t, app, []httpTest{
		{name: "auth required", path: "/v1/faculties/all", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "all listable", path: "/v1/faculties/all", token: token, wantCode: http.StatusOK, wantData: marchallList(t, "DR RAO", "Dr. Rao", "Dr. Sen")},
		{
			name: "class faculties", path: "/v1/faculties?class=3-1&branch=CSE&cohort_year=2023-2027", token: token,
			wantCode: http.StatusOK, wantData: marchallList(t, "25C01A7301", "DR RAO", "Dr. Rao", "Dr. Sen"),
		},
		{
			name: "variations", path: "/v1/faculties/variations", token: token, wantCode: http.StatusOK,
			wantData: marchallList(t, faculty.VariationGroup{Key: "rao", Variations: []string{"DR RAO", "Dr. Rao"}, Suggested: "Dr. Rao"}),
		},
	})
}

func Test_facultyApi_rename(t *testing.T) {
	app := setup(t)
	seedFaculties(t)
	adm := testutil.CreateAdmin(t, admRepo, "staff", "staff@test.edu", "secret1", admin.RoleAdmin)
	token := adminToken(t, adm)

	preview := func(from, to, class string) string {
		v := make(url.Values)
		v.Set("original_name", from)
		v.Set("new_name", to)
		if class != "" {
			v.Set("class", class)
		}
		return "/v1/faculties/rename-preview?" + v.Encode()
	}
	rename := func(from, to, class string) []byte {
		req := echoapi.FacultyRenameRequest{OriginalName: from, NewName: to}
		req.Class = class
		return marchallObj(t, req)
	}

	runTests(t, app, []httpTest{
		{
			name: "names required", path: preview("", "Dr. Rao", ""), token: token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"original_name": "this field is required", "new_name": "this field is required"}),
		},
		{
			name: "same names", path: preview("Dr. Rao", " Dr. Rao ", ""), token: token,
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "original and new names are the same"}),
		},
		{
			name: "preview everywhere", path: preview("DR RAO", "Dr. Rao", ""), token: token, wantCode: http.StatusOK,
			wantData: marchallObj(t, faculty.RenameResult{SubjectsUpdated: 2, FeedbacksUpdated: 1, TotalUpdated: 3, Message: "3 records would be renamed"}),
		},
		{
			name: "preview scoped", path: preview("DR RAO", "Dr. Rao", "3-2"), token: token, wantCode: http.StatusOK,
			wantData: marchallObj(t, faculty.RenameResult{SubjectsUpdated: 1, TotalUpdated: 1, Message: "1 records would be renamed"}),
		},
		{
			name: "renamed in 3-1 only", method: http.MethodPut, path: "/v1/faculties/rename", body: rename("DR RAO", "Dr. Rao", "3-1"), token: token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, faculty.RenameResult{SubjectsUpdated: 1, FeedbacksUpdated: 1, TotalUpdated: 2, Message: `Successfully renamed "DR RAO" to "Dr. Rao"`}),
		},
	})

	ctx := context.Background()
	subjects, err := subjRepo.QuerySubjectsByFaculty(ctx, "DR RAO", cohort.Filter{})
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "3-2", subjects[0].Class)

	fbs, err := fbRepo.QueryFeedbacks(ctx, feedback.Filter{Faculty: "Dr. Rao"})
	require.NoError(t, err)
	assert.Len(t, fbs, 1)
}

func Test_facultyApi_cleanup(t *testing.T) {
	app := setup(t)
	seedFaculties(t)
	owner := testutil.CreateAdmin(t, admRepo, "owner", "owner@test.edu", "secret1", admin.RoleOwner)
	staff := testutil.CreateAdmin(t, admRepo, "staff", "staff@test.edu", "secret1", admin.RoleAdmin)

	runTests(t, app, []httpTest{
		{name: "owner only", method: http.MethodDelete, path: "/v1/faculties/cleanup", token: adminToken(t, staff), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "cleaned up", method: http.MethodDelete, path: "/v1/faculties/cleanup", token: adminToken(t, owner), wantCode: http.StatusOK},
	})

	fbs, err := fbRepo.QueryFeedbacks(context.Background(), feedback.Filter{Faculty: "25C01A7301"})
	require.NoError(t, err)
	assert.Empty(t, fbs)
	subjects, err := subjRepo.QuerySubjectsByFaculty(context.Background(), "25C01A7301", cohort.Filter{})
	require.NoError(t, err)
	assert.Empty(t, subjects)
}
