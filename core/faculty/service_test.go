package faculty_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/faculty"
	"github.com/trezcool/feedback/core/feedback"
	"github.com/trezcool/feedback/core/round"
	"github.com/trezcool/feedback/core/subject"
	"github.com/trezcool/feedback/storage/database/dummy"
	"github.com/trezcool/feedback/tests"
)

var (
	class31 = cohort.Scope{Class: "3-1", Branch: "CSE", CohortYear: "2023-2027"}
	class32 = cohort.Scope{Class: "3-2", Branch: "CSE", CohortYear: "2023-2027"}
)

func setup(t *testing.T) (*faculty.Service, subject.Repository, feedback.Repository) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	subjRepo := dummydb.NewSubjectRepository(db)
	fbRepo := dummydb.NewFeedbackRepository(db)

	testutil.CreateSubjects(t, subjRepo, class31, [2]string{"Compilers", "Dr. Rao"}, [2]string{"Networks", "DR RAO"}, [2]string{"OS", "TBA"})
	testutil.CreateSubjects(t, subjRepo, class32, [2]string{"Databases", "Dr. Rao"}, [2]string{"Project", "25C01A7301"})
	testutil.CreateFeedback(t, fbRepo, "21A1", class31, "Compilers", "Dr. Rao", round.Initial, testutil.Answers(4))
	testutil.CreateFeedback(t, fbRepo, "21A1", class32, "Databases", "Dr. Rao", round.Initial, testutil.Answers(4))
	testutil.CreateFeedback(t, fbRepo, "21A1", class32, "Project", "25C01A7301", round.Initial, testutil.Answers(4))

	return faculty.NewService(nil, dummydb.NewFacultyRepository(db)), subjRepo, fbRepo
}

func TestService_listing(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	all, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"DR RAO", "Dr. Rao"}, all)

	names, err := svc.ForScope(ctx, class31)
	require.NoError(t, err)
	assert.Equal(t, []string{"DR RAO", "Dr. Rao", "TBA"}, names)

	_, err = svc.ForScope(ctx, cohort.Scope{Class: "3-1"})
	assert.True(t, core.IsValidation(err))

	groups, err := svc.Variations(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Dr. Rao", groups[0].Suggested)
}

func TestService_Rename(t *testing.T) {
	svc, subjRepo, fbRepo := setup(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   faculty.RenameRequest
		check func(error) bool
	}{
		{name: "names required", req: faculty.RenameRequest{OriginalName: "Dr. Rao"}, check: core.IsValidation},
		{name: "same names", req: faculty.RenameRequest{OriginalName: "Dr. Rao", NewName: " Dr. Rao "}, check: core.IsStateConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Rename(ctx, tt.req)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}

	req := faculty.RenameRequest{OriginalName: "Dr. Rao", NewName: "Dr. K. Rao", Scope: cohort.Filter{Class: "3-2"}}
	preview, err := svc.Preview(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, preview.TotalUpdated)

	res, err := svc.Rename(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SubjectsUpdated)
	assert.Equal(t, 1, res.FeedbacksUpdated)
	assert.Equal(t, `Successfully renamed "Dr. Rao" to "Dr. K. Rao"`, res.Message)

	// the old spelling survives outside of the scope
	subjects, err := subjRepo.QuerySubjectsByFaculty(ctx, "Dr. Rao", cohort.Filter{})
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "3-1", subjects[0].Class)

	fbs, err := fbRepo.QueryFeedbacks(ctx, feedback.Filter{Faculty: "Dr. K. Rao"})
	require.NoError(t, err)
	assert.Len(t, fbs, 1)
}

func TestService_Rename_byBranch(t *testing.T) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	subjRepo := dummydb.NewSubjectRepository(db)
	fbRepo := dummydb.NewFeedbackRepository(db)
	svc := faculty.NewService(nil, dummydb.NewFacultyRepository(db))
	ctx := context.Background()

	cseA := cohort.Scope{Class: "3-1", Branch: "CSE-A", CohortYear: "2023-2027"}
	cseB := cohort.Scope{Class: "3-1", Branch: "CSE-B", CohortYear: "2023-2027"}
	for _, scope := range []cohort.Scope{cseA, cseB} {
		testutil.CreateSubjects(t, subjRepo, scope, [2]string{"Compilers", "Dr. Rao"})
		testutil.CreateFeedback(t, fbRepo, "21A1", scope, "Compilers", "Dr. Rao", round.Initial, testutil.Answers(4))
	}

	res, err := svc.Rename(ctx, faculty.RenameRequest{OriginalName: "Dr. Rao", NewName: "Dr. K. Rao", Scope: cohort.Filter{Branch: "CSE-A"}})
	require.NoError(t, err)
	assert.Equal(t, faculty.RenameResult{
		SubjectsUpdated:  1,
		FeedbacksUpdated: 1,
		TotalUpdated:     2,
		Message:          `Successfully renamed "Dr. Rao" to "Dr. K. Rao"`,
	}, res)

	for _, tt := range []struct {
		scope cohort.Scope
		want  string
	}{
		{scope: cseA, want: "Dr. K. Rao"},
		{scope: cseB, want: "Dr. Rao"},
	} {
		subjects, err := subjRepo.QuerySubjects(ctx, cohort.Filter(tt.scope))
		require.NoError(t, err)
		require.Len(t, subjects, 1)
		assert.Equal(t, tt.want, subjects[0].Faculty, tt.scope.Branch)

		fbs, err := fbRepo.QueryFeedbacks(ctx, feedback.Filter{Filter: cohort.Filter(tt.scope)})
		require.NoError(t, err)
		require.Len(t, fbs, 1)
		assert.Equal(t, tt.want, fbs[0].Faculty, tt.scope.Branch)
	}
}

func TestService_Cleanup(t *testing.T) {
	svc, subjRepo, fbRepo := setup(t)
	ctx := context.Background()

	res, err := svc.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DeletedSubjects)
	assert.Equal(t, 1, res.DeletedFeedbacks)
	assert.Equal(t, "Cleaned up 1 subject records and 1 feedback records", res.Message)

	subjects, err := subjRepo.QuerySubjects(ctx, cohort.Filter(class32))
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Equal(t, "Databases", subjects[0].Subject)

	fbs, err := fbRepo.QueryFeedbacks(ctx, feedback.Filter{Faculty: "25C01A7301"})
	require.NoError(t, err)
	assert.Empty(t, fbs)

	// nothing left to clean
	res, err = svc.Cleanup(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.DeletedSubjects)
}
