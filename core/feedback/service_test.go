package feedback_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/feedback"
	"github.com/trezcool/feedback/core/round"
	"github.com/trezcool/feedback/storage/database/dummy"
	"github.com/trezcool/feedback/tests"
)

var scope = cohort.Scope{Class: "3-1", Branch: "CSE", CohortYear: "2023-2027"}

func setup(t *testing.T) (*feedback.Service, *round.Service, feedback.Repository) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	stdRepo := dummydb.NewStudentRepository(db)
	fbRepo := dummydb.NewFeedbackRepository(db)
	roundSvc := round.NewService(dummydb.NewRoundRepository(db))

	testutil.CreateStudent(t, stdRepo, "Alice", "21A1", "CSE", "2023-2027", "alice@test.edu", "secret1")
	testutil.CreateStudent(t, stdRepo, "Bob", "21A2", "CSE", "2023-2027", "", "")
	testutil.CreateStudent(t, stdRepo, "Eve", "21A9", "ECE", "2023-2027", "", "")

	return feedback.NewService(nil, fbRepo, stdRepo, roundSvc), roundSvc, fbRepo
}

func request(r string, score int) feedback.SubmitRequest {
	return feedback.SubmitRequest{
		Class: "3-1",
		Round: r,
		Feedbacks: []feedback.SubjectAnswers{
			{Subject: "Compilers", Faculty: "Dr. Rao", Answers: testutil.Answers(score)},
			{Subject: "Networks", Faculty: "Dr. Iyer", Answers: testutil.Answers(score)},
		},
		Suggestion: " more labs ",
	}
}

func TestService_Submit(t *testing.T) {
	svc, roundSvc, fbRepo := setup(t)
	ctx := context.Background()
	alice := feedback.Identity{Hallticket: "21A1", Branch: "CSE", CohortYear: "2023-2027"}

	badScore := request("initial", 4)
	badScore.Feedbacks[0].Answers[0].Score = 6

	twice := request("initial", 4)
	twice.Feedbacks[1] = feedback.SubjectAnswers{Subject: " Compilers", Faculty: "Dr. Rao ", Answers: testutil.Answers(3)}

	tests := []struct {
		name    string
		id      feedback.Identity
		req     feedback.SubmitRequest
		check   func(error) bool
		wantErr string
	}{
		{name: "invalid round", id: alice, req: request("midterm", 4), check: core.IsValidation, wantErr: "invalid round specified"},
		{name: "score out of scale", id: alice, req: badScore, check: core.IsValidation, wantErr: "score: score must be between 1 and 5"},
		{name: "no feedbacks", id: alice, req: feedback.SubmitRequest{Class: "3-1", Round: "initial"}, check: core.IsValidation},
		{name: "final closed", id: alice, req: request("final", 4), check: core.IsStateConflict, wantErr: "final feedback is not currently accepted"},
		{
			name:    "unknown student",
			id:      feedback.Identity{Hallticket: "21A7", Branch: "CSE", CohortYear: "2023-2027"},
			req:     request("initial", 4),
			check:   core.IsAuthorization,
			wantErr: "unauthorized to submit feedback for this branch/cohort",
		},
		{
			name:  "other branch",
			id:    feedback.Identity{Hallticket: "21A9", Branch: "CSE", CohortYear: "2023-2027"},
			req:   request("initial", 4),
			check: core.IsAuthorization,
		},
		{name: "same subject rated twice", id: alice, req: twice, check: core.IsValidation, wantErr: "feedbacks: subject Compilers of Dr. Rao is rated more than once"},
		{name: "initial accepted", id: alice, req: request("initial", 4)},
		{name: "initial again", id: alice, req: request("initial", 5), check: core.IsStateConflict, wantErr: "feedback already submitted for initial round"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Submit(ctx, tt.id, tt.req)
			if tt.check == nil {
				require.NoError(t, err)
				assert.True(t, res.Accepted)
				assert.Equal(t, 2, res.Count)
				return
			}
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error type: %v", err)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, errors.Cause(err).Error())
			}
		})
	}

	_, err := roundSvc.SetEnabled(ctx, scope, round.Final, true)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, alice, request("final", 5))
	require.NoError(t, err)

	fbs, err := fbRepo.QueryFeedbacks(ctx, feedback.Filter{Filter: cohort.Filter(scope)})
	require.NoError(t, err)
	assert.Len(t, fbs, 4)
	for _, fb := range fbs {
		assert.Equal(t, "more labs", fb.Suggestion)
		assert.Len(t, fb.Answers, len(feedback.Questions))
	}

	submitted, err := svc.Check(ctx, alice, "3-1", round.Final)
	require.NoError(t, err)
	assert.True(t, submitted)

	counts, err := svc.Counts(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, feedback.Counts{
		Initial: feedback.RoundCount{Submitted: 1, Total: 2},
		Final:   feedback.RoundCount{Submitted: 1, Total: 2},
	}, counts)
}

func TestService_Submit_concurrent(t *testing.T) {
	svc, _, fbRepo := setup(t)
	ctx := context.Background()
	bob := feedback.Identity{Hallticket: "21A2", Branch: "CSE", CohortYear: "2023-2027"}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		refused  int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(ctx, bob, request("initial", 3))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
			} else if core.IsStateConflict(err) {
				refused++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, 24, refused)

	fbs, err := fbRepo.QueryFeedbacks(ctx, feedback.Filter{Filter: cohort.Filter(scope), Round: round.Initial})
	require.NoError(t, err)
	assert.Len(t, fbs, 2)
}

func TestService_EnsureSubmission(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureSubmission(ctx, "21A2", scope))
	require.NoError(t, svc.EnsureSubmission(ctx, "21A2", scope))

	subs, err := svc.Submissions(ctx, scope)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.False(t, subs[0].InitialSubmitted)
	assert.False(t, subs[0].FinalSubmitted)

	_, err = svc.Submissions(ctx, cohort.Scope{Class: "3-1"})
	assert.True(t, core.IsValidation(err))
}
