package round_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/round"
	"github.com/trezcool/feedback/storage/database/dummy"
)

func TestService(t *testing.T) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewRoundRepository(db)
	svc := round.NewService(repo)
	ctx := context.Background()
	scope := cohort.Scope{Class: "3-1", Branch: "CSE", CohortYear: "2023-2027"}

	t.Run("untouched scope", func(t *testing.T) {
		ctrl, err := svc.Status(ctx, scope)
		require.NoError(t, err)
		assert.Equal(t, round.DefaultControl(scope), ctrl)
	})

	t.Run("invalid scope", func(t *testing.T) {
		_, err := svc.Status(ctx, cohort.Scope{Branch: "CSE"})
		assert.True(t, core.IsValidation(err))
		_, err = svc.SetEnabled(ctx, scope, "midterm", true)
		assert.Equal(t, round.ErrInvalidRound, err)
	})

	t.Run("toggles", func(t *testing.T) {
		ctrl, err := svc.SetEnabled(ctx, scope, round.Final, true)
		require.NoError(t, err)
		assert.True(t, ctrl.InitialEnabled)
		assert.True(t, ctrl.FinalEnabled)
		assert.NotNil(t, ctrl.FinalEndDate)

		ctrl, err = svc.SetEnabled(ctx, scope, round.Initial, false)
		require.NoError(t, err)
		assert.False(t, ctrl.InitialEnabled)
		assert.NotNil(t, ctrl.InitialEndDate)

		open, err := svc.IsOpen(ctx, scope, round.Initial)
		require.NoError(t, err)
		assert.False(t, open)
	})

	t.Run("ensure initial enabled", func(t *testing.T) {
		require.NoError(t, svc.EnsureInitialEnabled(ctx, scope))
		ctrl, err := svc.Status(ctx, scope)
		require.NoError(t, err)
		assert.True(t, ctrl.InitialEnabled)
		assert.True(t, ctrl.FinalEnabled)

		other := cohort.Scope{Class: "2-1", Branch: "CSE", CohortYear: "2024-2028"}
		require.NoError(t, svc.EnsureInitialEnabled(ctx, other))
		ctrl, err = repo.GetControl(ctx, other)
		require.NoError(t, err)
		assert.True(t, ctrl.InitialEnabled)
		assert.False(t, ctrl.FinalEnabled)
	})
}
