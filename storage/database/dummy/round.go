package dummydb

import (
	"context"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/round"
)

type roundRepository struct {
	db *roundTable
}

var _ round.Repository = (*roundRepository)(nil) // interface compliance check

func NewRoundRepository(db *DB) round.Repository {
	return &roundRepository{db: db.round}
}

func (repo *roundRepository) GetControl(_ context.Context, scope cohort.Scope, _ ...core.DBExecutor) (round.Control, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ctrl, ok := repo.db.table[scope.String()]; ok {
		return *ctrl, nil
	}
	return round.Control{}, round.ErrNotFound
}

func (repo *roundRepository) UpdateControl(_ context.Context, scope cohort.Scope, change round.Change, _ ...core.DBExecutor) (round.Control, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ctrl := round.DefaultControl(scope)
	if saved, ok := repo.db.table[scope.String()]; ok {
		ctrl = *saved
	}
	ctrl = ctrl.Apply(change)
	repo.db.table[scope.String()] = &ctrl
	return ctrl, nil
}
