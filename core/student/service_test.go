package student_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/student"
	"github.com/trezcool/feedback/storage/database/dummy"
	"github.com/trezcool/feedback/tests"
)

// stubber records the stubbed submissions and fails for the halltickets of failFor.
type stubber struct {
	mu      sync.Mutex
	stubbed []string
	failFor map[string]bool
}

func (s *stubber) EnsureSubmission(_ context.Context, hallticket string, _ cohort.Scope, _ ...core.DBExecutor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[hallticket] {
		return errors.New("storage unavailable")
	}
	s.stubbed = append(s.stubbed, hallticket)
	return nil
}

func setup(t *testing.T) (*student.Service, student.Repository, *stubber) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewStudentRepository(db)
	stub := &stubber{failFor: map[string]bool{}}
	return student.NewService(repo, stub, testutil.NewConfig()), repo, stub
}

func TestService_Ingest(t *testing.T) {
	svc, repo, stub := setup(t)
	ctx := context.Background()
	scope := cohort.NewScope("3-1", "CSE", "2024-2025")
	require.Equal(t, "2024-2025", scope.CohortYear)

	testutil.CreateStudent(t, repo, "Bob", "21A2", "CSE", "2019-2023", "bob@test.edu", "secret1")
	testutil.CreateStudent(t, repo, "Carl", "21A3", "CSE", scope.CohortYear, "carl@test.edu", "secret1")
	stub.failFor["21A5"] = true

	rows := []student.Row{
		{Line: 2, Name: "Alice", Hallticket: "21A1", Branch: "CSE"},
		{Line: 3, Name: "Bob", Hallticket: "21A2", Branch: "CSE"},
		{Line: 4, Name: " Carl Jr ", Hallticket: "21A3", Branch: "CSE"},
		{Line: 5, Name: "", Hallticket: "21A4", Branch: "CSE"},
		{Line: 6, Name: "Dan", Hallticket: "21A5", Branch: "CSE"},
		{Line: 7, Name: "Alice", Hallticket: "21A1", Branch: "CSE"},
		{Line: 8, Name: "Eve", Hallticket: "21A6", Branch: "CSE"},
	}
	summary, err := svc.Ingest(ctx, rows, scope)
	require.NoError(t, err)

	assert.Equal(t, 7, summary.Processed)
	assert.Equal(t, 5, summary.Successful())
	assert.Equal(t, 2, summary.Errors)
	require.Len(t, summary.Failures, 2)
	assert.Equal(t, 5, summary.Failures[0].Line)
	assert.Equal(t, "name: this field is required", summary.Failures[0].Error)
	assert.Equal(t, 6, summary.Failures[1].Line)

	var batchErr *core.PartialBatchFailure
	require.True(t, errors.As(summary.Err(), &batchErr))
	assert.Equal(t, "2 of 7 rows failed", batchErr.Error())

	// the credentials of an updated student are kept
	carl, err := repo.GetStudent(ctx, "21A3", scope.CohortYear)
	require.NoError(t, err)
	assert.Equal(t, "Carl Jr", carl.Name)
	assert.NoError(t, carl.CheckPassword("secret1"))

	// a returning student gets a fresh, unregistered record
	bobs, err := repo.QueryStudentsByHallticket(ctx, "21A2")
	require.NoError(t, err)
	require.Len(t, bobs, 2)
	assert.Equal(t, scope.CohortYear, bobs[0].CohortYear)
	assert.False(t, bobs[0].IsRegistered())
	assert.True(t, bobs[1].IsRegistered())

	// a new student logs in with their hallticket until they register
	alice, err := repo.GetStudent(ctx, "21A1", scope.CohortYear)
	require.NoError(t, err)
	assert.NoError(t, alice.CheckPassword("21A1"))

	assert.ElementsMatch(t, []string{"21A1", "21A1", "21A2", "21A3", "21A6"}, stub.stubbed)

	_, err = svc.Ingest(ctx, rows, cohort.Scope{Class: "3-1"})
	assert.True(t, core.IsValidation(err))
}

func TestService_Ingest_cancelled(t *testing.T) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	conf := testutil.NewConfig()
	conf.Ingest.BatchPause = time.Hour
	svc := student.NewService(dummydb.NewStudentRepository(db), &stubber{}, conf)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows := make([]student.Row, 10)
	for i := range rows {
		rows[i] = student.Row{Line: i + 2, Name: "S", Hallticket: "21B" + string(rune('0'+i)), Branch: "CSE"}
	}
	summary, err := svc.Ingest(ctx, rows, cohort.NewScope("1-1", "CSE", "2024-2025"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, summary.Processed)
}

func TestService_Register(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()
	testutil.CreateStudent(t, repo, "Alice", "21A1", "CSE", "2019-2023", "", "21A1")
	testutil.CreateStudent(t, repo, "Alice", "21A1", "CSE", "2023-2027", "", "21A1")
	testutil.CreateStudent(t, repo, "Bob", "21A2", "CSE", "2023-2027", "bob@test.edu", "secret1")

	tests := []struct {
		name    string
		nr      student.NewRegistration
		wantErr error
	}{
		{name: "unknown hallticket", nr: student.NewRegistration{Hallticket: "21A9", Email: "x@test.edu", Password: "Tr0ub4dor"}, wantErr: student.ErrUnknownHallticket},
		{name: "already registered", nr: student.NewRegistration{Hallticket: "21A2", Email: "y@test.edu", Password: "Tr0ub4dor"}, wantErr: student.ErrAlreadyRegistered},
		{name: "email taken", nr: student.NewRegistration{Hallticket: "21A1", Email: "BOB@test.edu", Password: "Tr0ub4dor"}, wantErr: student.ErrEmailExists},
		{name: "registered", nr: student.NewRegistration{Hallticket: "21A1", Email: "alice@test.edu", Password: "Tr0ub4dor"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.nr)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			cause := errors.Cause(err)
			if vErr, ok := cause.(*core.ValidationError); ok && vErr.Err != nil && tt.wantErr == student.ErrEmailExists {
				cause = vErr.Err
			}
			assert.Equal(t, tt.wantErr, cause)
		})
	}

	// the latest cohort got registered
	latest, err := repo.GetStudent(ctx, "21A1", "2023-2027")
	require.NoError(t, err)
	assert.Equal(t, "alice@test.edu", latest.Email)
	older, err := repo.GetStudent(ctx, "21A1", "2019-2023")
	require.NoError(t, err)
	assert.False(t, older.IsRegistered())

	std, err := svc.Authenticate(ctx, "21A1", "Tr0ub4dor")
	require.NoError(t, err)
	assert.Equal(t, "2023-2027", std.CohortYear)
	_, err = svc.Authenticate(ctx, "21A1", "nope")
	assert.Equal(t, student.ErrInvalidCredentials, err)

	std, err = svc.ResetRegistration(ctx, "21A1", "2023-2027")
	require.NoError(t, err)
	assert.False(t, std.IsRegistered())
	_, err = svc.ResetRegistration(ctx, "21A1", "2023-2027")
	assert.Equal(t, student.ErrNotRegistered, err)
}
