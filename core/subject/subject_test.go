package subject_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/round"
	"github.com/trezcool/feedback/core/subject"
	"github.com/trezcool/feedback/storage/database/dummy"
)

func TestService(t *testing.T) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	rndRepo := dummydb.NewRoundRepository(db)
	svc := subject.NewService(nil, dummydb.NewSubjectRepository(db), round.NewService(rndRepo))
	ctx := context.Background()

	class31 := cohort.Scope{Class: "3-1", Branch: "CSE", CohortYear: "2023-2027"}
	class32 := cohort.Scope{Class: "3-2", Branch: "CSE", CohortYear: "2023-2027"}
	ece := cohort.Scope{Class: "1-1", Branch: "ECE", CohortYear: "2025-2029"}

	t.Run("replace", func(t *testing.T) {
		_, err := svc.Replace(ctx, cohort.Scope{Class: "3-1"}, []subject.Row{{Subject: "OS", Faculty: "Dr. Das"}})
		assert.True(t, core.IsValidation(err))

		_, err = svc.Replace(ctx, class31, []subject.Row{{Subject: "OS"}, {Faculty: "Dr. Das"}})
		assert.True(t, core.IsValidation(err))

		res, err := svc.Replace(ctx, class31, []subject.Row{{Subject: "Old", Faculty: "Dr. Old"}})
		require.NoError(t, err)
		assert.Equal(t, subject.ReplaceResult{Processed: 1, Inserted: 1}, res)

		res, err = svc.Replace(ctx, class31, []subject.Row{
			{Subject: " Compilers ", Faculty: "Dr. Rao"},
			{Subject: "Networks", Faculty: "Dr. Iyer"},
			{Subject: "", Faculty: "Dr. Nobody"},
		})
		require.NoError(t, err)
		assert.Equal(t, subject.ReplaceResult{Processed: 3, Inserted: 2}, res)

		_, err = svc.Replace(ctx, class32, []subject.Row{{Subject: "OS", Faculty: "Dr. Das"}})
		require.NoError(t, err)
		_, err = svc.Replace(ctx, ece, []subject.Row{{Subject: "Circuits", Faculty: "Dr. Rao"}})
		require.NoError(t, err)

		subjects, err := svc.Query(ctx, class31)
		require.NoError(t, err)
		names := make([]string, 0, len(subjects))
		for _, s := range subjects {
			names = append(names, s.Subject)
		}
		assert.ElementsMatch(t, []string{"Compilers", "Networks"}, names)

		ctrl, err := rndRepo.GetControl(ctx, class31)
		require.NoError(t, err)
		assert.True(t, ctrl.InitialEnabled)
	})

	t.Run("for student", func(t *testing.T) {
		id := subject.Identity{Branch: "CSE", CohortYear: "2023-2027"}
		subjects, err := svc.ForStudent(ctx, id, class31)
		require.NoError(t, err)
		assert.Len(t, subjects, 2)

		_, err = svc.ForStudent(ctx, id, ece)
		assert.Equal(t, subject.ErrUnauthorized, err)
	})

	t.Run("lookups", func(t *testing.T) {
		semesters, err := svc.Semesters(ctx, cohort.BranchScope{Branch: "CSE", CohortYear: "2023-2027"})
		require.NoError(t, err)
		assert.Equal(t, []string{"3-1", "3-2"}, semesters)

		faculties, err := svc.Faculties(ctx, cohort.Filter{Branch: "CSE"})
		require.NoError(t, err)
		assert.Equal(t, []string{"Dr. Das", "Dr. Iyer", "Dr. Rao"}, faculties)

		taught, err := svc.ByFaculty(ctx, " Dr. Rao ", cohort.Filter{})
		require.NoError(t, err)
		assert.Len(t, taught, 2)

		cat, err := svc.Catalog(ctx)
		require.NoError(t, err)
		assert.Equal(t, subject.Catalog{
			Classes:     []string{"1-1", "3-1", "3-2"},
			Branches:    []string{"CSE", "ECE"},
			CohortYears: []string{"2023-2027", "2025-2029"},
		}, cat)
	})
}
