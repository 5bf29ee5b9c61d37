package tests

import (
	"context"
	"net/http"
	"sync"
	"testing"

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

var class31 = cohort.Scope{Class: "3-1", Branch: "CSE", CohortYear: "2023-2027"}

func submitBody(t *testing.T, class, r string, score int) []byte {
	return marchallObj(t, feedback.SubmitRequest{
		Class: class,
		Round: r,
		Feedbacks: []feedback.SubjectAnswers{
			{Subject: "Compilers", Faculty: "Dr. Rao", Answers: testutil.Answers(score)},
			{Subject: "Networks", Faculty: "Dr. Iyer", Answers: testutil.Answers(score)},
		},
		Suggestion: "more labs",
	})
}

func Test_meApi_access(t *testing.T) {
	app := setup(t)
	adm := testutil.CreateAdmin(t, admRepo, "staff", "staff@test.edu", "secret1", admin.RoleAdmin)

	runTests(t, app, []httpTest{
		{name: "auth required", path: "/v1/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "bad token", path: "/v1/me", token: "not.a.token", wantCode: http.StatusUnauthorized},
		{name: "admins forbidden", path: "/v1/me", token: adminToken(t, adm), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
	})
}

func Test_meApi_subjects(t *testing.T) {
	app := setup(t)
	std := testutil.CreateStudent(t, stdRepo, "Alice", "21A1", "CSE", "2023-2027", "alice@test.edu", "secret1")
	subjects := testutil.CreateSubjects(t, subjRepo, class31, [2]string{"Compilers", "Dr. Rao"})
	testutil.CreateSubjects(t, subjRepo, cohort.Scope{Class: "3-2", Branch: "CSE", CohortYear: "2023-2027"}, [2]string{"AI", "Dr. Sen"})
	testutil.CreateSubjects(t, subjRepo, cohort.Scope{Class: "3-1", Branch: "ECE", CohortYear: "2023-2027"}, [2]string{"VLSI", "Dr. Pai"})
	token := studentToken(t, std)

	runTests(t, app, []httpTest{
		{name: "semesters", path: "/v1/me/semesters", token: token, wantCode: http.StatusOK, wantData: marchallList(t, "3-1", "3-2")},
		{name: "own class", path: "/v1/me/subjects?class=3-1", token: token, wantCode: http.StatusOK, wantData: marchallList(t, subjects[0])},
		{
			name: "class required", path: "/v1/me/subjects", token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"class": "this field is required"}),
		},
		{
			name: "other branch", path: "/v1/me/subjects?class=3-1&branch=ECE", token: token,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: subject.ErrUnauthorized.Error()}),
		},
		{
			name: "other cohort", path: "/v1/me/subjects?class=3-1&cohort_year=2022-2026", token: token,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: subject.ErrUnauthorized.Error()}),
		},
	})
}

func Test_meApi_submitFeedback(t *testing.T) {
	app := setup(t)
	std := testutil.CreateStudent(t, stdRepo, "Alice", "21A1", "CSE", "2023-2027", "alice@test.edu", "secret1")
	adm := testutil.CreateAdmin(t, admRepo, "staff", "staff@test.edu", "secret1", admin.RoleAdmin)
	token := studentToken(t, std)

	accepted := func(r round.Round) []byte {
		return marchallObj(t, feedback.SubmitResult{Accepted: true, Count: 2, Message: "Feedback for " + r.String() + " round submitted successfully"})
	}

	runTests(t, app, []httpTest{
		{
			name: "invalid class", method: http.MethodPost, path: "/v1/me/feedback", token: token, body: submitBody(t, "9", "initial", 4),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"class": "class must look like YEAR-SEMESTER (e.g. 3-2)"}),
		},
		{
			name: "invalid round", method: http.MethodPost, path: "/v1/me/feedback", token: token, body: submitBody(t, "3-1", "mid", 4),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"round": "round must be one of: initial, final"}),
		},
		{
			name: "score out of scale", method: http.MethodPost, path: "/v1/me/feedback", token: token, body: submitBody(t, "3-1", "initial", 6),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"score": "score must be between 1 and 5"}),
		},
		{
			name: "same subject rated twice", method: http.MethodPost, path: "/v1/me/feedback", token: token,
			body: marchallObj(t, feedback.SubmitRequest{
				Class: "3-1",
				Round: "initial",
				Feedbacks: []feedback.SubjectAnswers{
					{Subject: "Compilers", Faculty: "Dr. Rao", Answers: testutil.Answers(4)},
					{Subject: "Compilers", Faculty: "Dr. Rao", Answers: testutil.Answers(2)},
				},
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"feedbacks": "subject Compilers of Dr. Rao is rated more than once"}),
		},
		{name: "not submitted yet", path: "/v1/me/feedback/check?class=3-1&round=initial", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.CheckResponse{})},
		{name: "initial accepted", method: http.MethodPost, path: "/v1/me/feedback", token: token, body: submitBody(t, "3-1", "initial", 4), wantCode: http.StatusCreated, wantData: accepted(round.Initial)},
		{
			name: "initial twice", method: http.MethodPost, path: "/v1/me/feedback", token: token, body: submitBody(t, "3-1", "initial", 5),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "feedback already submitted for initial round"}),
		},
		{name: "submitted", path: "/v1/me/feedback/check?class=3-1&round=initial", token: token, wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.CheckResponse{Submitted: true})},
		{
			name: "check needs a round", path: "/v1/me/feedback/check?class=3-1", token: token,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"round": "round must be one of: initial, final"}),
		},
		{
			name: "final closed by default", method: http.MethodPost, path: "/v1/me/feedback", token: token, body: submitBody(t, "3-1", "final", 4),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "final feedback is not currently accepted"}),
		},
		{
			name: "final opened", method: http.MethodPost, path: "/v1/rounds", token: adminToken(t, adm),
			body:     marchallObj(t, map[string]interface{}{"class": "3-1", "branch": "CSE", "cohort_year": "2023-2027", "round": "final", "enabled": true}),
			wantCode: http.StatusOK,
		},
		{name: "final accepted", method: http.MethodPost, path: "/v1/me/feedback", token: token, body: submitBody(t, "3-1", "final", 3), wantCode: http.StatusCreated, wantData: accepted(round.Final)},
	})

	fbs, err := fbRepo.QueryFeedbacks(context.Background(), feedback.Filter{Filter: cohort.Filter(class31)})
	require.NoError(t, err)
	assert.Len(t, fbs, 4)
	for _, fb := range fbs {
		assert.Equal(t, "21A1", fb.Hallticket)
		assert.Equal(t, "more labs", fb.Suggestion)
	}
}

func Test_meApi_submitFeedback_concurrent(t *testing.T) {
	app := setup(t)
	std := testutil.CreateStudent(t, stdRepo, "Alice", "21A1", "CSE", "2023-2027", "alice@test.edu", "secret1")
	token := studentToken(t, std)

	const attempts = 10
	codes := make([]int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, rec := newAuthRequest(http.MethodPost, "/v1/me/feedback", token, submitBody(t, "3-1", "initial", 4))
			app.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	var created, conflicts int
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, conflicts)

	fbs, err := fbRepo.QueryFeedbacks(context.Background(), feedback.Filter{Filter: cohort.Filter(class31), Round: round.Initial})
	require.NoError(t, err)
	assert.Len(t, fbs, 2)
}
