package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/feedback/apps/api/echo"
	"github.com/trezcool/feedback/core/admin"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/feedback"
	"github.com/trezcool/feedback/core/round"
	"github.com/trezcool/feedback/core/subject"
	"github.com/trezcool/feedback/tests"
)

func Test_roundApi(t *testing.T) {
	app := setup(t)
	adm := testutil.CreateAdmin(t, admRepo, "staff", "staff@test.edu", "secret1", admin.RoleAdmin)
	token := adminToken(t, adm)

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	round.NowFunc = func() time.Time { return now }
	defer func() { round.NowFunc = time.Now }()

	toggle := func(r string, enabled interface{}) []byte {
		return marchallObj(t, map[string]interface{}{
			"class": "3-1", "branch": "CSE", "cohort_year": "2023-2027", "round": r, "enabled": enabled,
		})
	}
	weekLater := now.Add(7 * 24 * time.Hour)

	runTests(t, app, []httpTest{
		{
			name: "default status", path: "/v1/rounds?class=3-1&branch=CSE&cohort_year=2023-2027", token: token,
			wantCode: http.StatusOK, wantData: marchallObj(t, round.DefaultControl(class31)),
		},
		{
			name: "scope required", path: "/v1/rounds?class=3-1", token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"branch": "this field is required", "cohort_year": "this field is required"}),
		},
		{
			name: "invalid round", method: http.MethodPost, path: "/v1/rounds", body: toggle("mid", true), token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"round": "round must be one of: initial, final"}),
		},
		{
			name: "enabled required", method: http.MethodPost, path: "/v1/rounds", body: toggle("final", nil), token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"enabled": "this field is required"}),
		},
		{
			name: "final enabled", method: http.MethodPost, path: "/v1/rounds", body: toggle("final", true), token: token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, echoapi.RoundToggleResponse{Success: true, Control: round.Control{
				Scope: class31, InitialEnabled: true, FinalEnabled: true, FinalEndDate: &weekLater,
			}}),
		},
		{
			name: "initial disabled", method: http.MethodPost, path: "/v1/rounds", body: toggle("initial", false), token: token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, echoapi.RoundToggleResponse{Success: true, Control: round.Control{
				Scope: class31, FinalEnabled: true, InitialEndDate: &now, FinalEndDate: &weekLater,
			}}),
		},
		{
			name: "final disabled keeps its date", method: http.MethodPost, path: "/v1/rounds", body: toggle("final", false), token: token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, echoapi.RoundToggleResponse{Success: true, Control: round.Control{
				Scope: class31, InitialEndDate: &now, FinalEndDate: &weekLater,
			}}),
		},
	})
}

func Test_roundApi_catalog(t *testing.T) {
	app := setup(t)
	adm := testutil.CreateAdmin(t, admRepo, "staff", "staff@test.edu", "secret1", admin.RoleAdmin)
	testutil.CreateSubjects(t, subjRepo, class31, [2]string{"Compilers", "Dr. Rao"})
	testutil.CreateSubjects(t, subjRepo, cohort.Scope{Class: "1-1", Branch: "ECE", CohortYear: "2025-2029"}, [2]string{"Physics", "Dr. Sen"})

	runTests(t, app, []httpTest{
		{
			name: "catalog", path: "/v1/catalog", token: adminToken(t, adm), wantCode: http.StatusOK,
			wantData: marchallObj(t, subject.Catalog{
				Classes:     []string{"1-1", "3-1"},
				Branches:    []string{"CSE", "ECE"},
				CohortYears: []string{"2023-2027", "2025-2029"},
			}),
		},
	})
}

func Test_submissionApi(t *testing.T) {
	app := setup(t)
	adm := testutil.CreateAdmin(t, admRepo, "staff", "staff@test.edu", "secret1", admin.RoleAdmin)
	token := adminToken(t, adm)
	alice := testutil.CreateStudent(t, stdRepo, "Alice", "21A1", "CSE", "2023-2027", "alice@test.edu", "secret1")
	testutil.CreateStudent(t, stdRepo, "Bob", "21A2", "CSE", "2023-2027", "", "")
	testutil.CreateStudent(t, stdRepo, "Carl", "21A3", "CSE", "2023-2027", "", "")

	ctx := context.Background()
	for _, h := range []string{"21A1", "21A2", "21A3"} {
		_, err := fbRepo.CreateSubmission(ctx, feedback.SubmissionKey{Hallticket: h, Scope: class31})
		require.NoError(t, err)
	}

	req, rec := newAuthRequest(http.MethodPost, "/v1/me/feedback", studentToken(t, alice), submitBody(t, "3-1", "initial", 4))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	runTests(t, app, []httpTest{
		{
			name: "counts", path: "/v1/submissions/counts?class=3-1&branch=CSE&cohort_year=2023-2027", token: token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, feedback.Counts{
				Initial: feedback.RoundCount{Submitted: 1, Total: 3},
				Final:   feedback.RoundCount{Submitted: 0, Total: 3},
			}),
		},
		{
			name: "counts need a class", path: "/v1/submissions/counts?branch=CSE&cohort_year=2023-2027", token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"class": "this field is required"}),
		},
		{name: "students forbidden", path: "/v1/submissions?class=3-1&branch=CSE&cohort_year=2023-2027", token: studentToken(t, alice), wantCode: http.StatusForbidden},
	})

	t.Run("records", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/submissions?class=3-1&branch=CSE&cohort_year=2023-2027", token)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var subs []feedback.Submission
		unmarshal(t, rec, &subs)
		require.Len(t, subs, 3)
		assert.Equal(t, "21A1", subs[0].Hallticket)
		assert.True(t, subs[0].InitialSubmitted)
		assert.NotNil(t, subs[0].InitialDate)
		assert.False(t, subs[0].FinalSubmitted)
		assert.False(t, subs[1].InitialSubmitted)
		assert.False(t, subs[2].InitialSubmitted)
	})
}
