package sqlxrepos

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/round"
)

const roundControlColumns = "class, branch, cohort_year, initial_enabled, final_enabled, initial_end_date, final_end_date"

type roundControlRow struct {
	Class          string    `db:"class"`
	Branch         string    `db:"branch"`
	CohortYear     string    `db:"cohort_year"`
	InitialEnabled bool      `db:"initial_enabled"`
	FinalEnabled   bool      `db:"final_enabled"`
	InitialEndDate null.Time `db:"initial_end_date"`
	FinalEndDate   null.Time `db:"final_end_date"`
}

func (row roundControlRow) toControl() round.Control {
	return round.Control{
		Scope:          cohort.Scope{Class: row.Class, Branch: row.Branch, CohortYear: row.CohortYear},
		InitialEnabled: row.InitialEnabled,
		FinalEnabled:   row.FinalEnabled,
		InitialEndDate: row.InitialEndDate.Ptr(),
		FinalEndDate:   row.FinalEndDate.Ptr(),
	}
}

type roundRepository struct {
	repository
}

var _ round.Repository = (*roundRepository)(nil) // interface compliance check

func NewRoundRepository(exec core.DBExecutor) round.Repository {
	return &roundRepository{repository{exec: exec}}
}

func (repo roundRepository) GetControl(ctx context.Context, scope cohort.Scope, exec ...core.DBExecutor) (round.Control, error) {
	exe := repo.getExec(exec)
	var row roundControlRow
	q := "SELECT " + roundControlColumns + " FROM round_control WHERE class = ? AND branch = ? AND cohort_year = ?"
	if err := exe.GetContext(ctx, &row, exe.Rebind(q), scope.Class, scope.Branch, scope.CohortYear); err != nil {
		return round.Control{}, trapNoRowsErr(err, round.ErrNotFound, "getting round control")
	}
	return row.toControl(), nil
}

// UpdateControl inserts the default control with the change applied; on conflict only the columns
// of the changed round are overwritten.
func (repo roundRepository) UpdateControl(ctx context.Context, scope cohort.Scope, change round.Change, exec ...core.DBExecutor) (round.Control, error) {
	exe := repo.getExec(exec)
	ctrl := round.DefaultControl(scope).Apply(change)

	var sets []string
	switch change.Round {
	case round.Initial:
		sets = append(sets, "initial_enabled = EXCLUDED.initial_enabled")
		if change.EndDate != nil {
			sets = append(sets, "initial_end_date = EXCLUDED.initial_end_date")
		}
	case round.Final:
		sets = append(sets, "final_enabled = EXCLUDED.final_enabled")
		if change.EndDate != nil {
			sets = append(sets, "final_end_date = EXCLUDED.final_end_date")
		}
	default:
		return round.Control{}, round.ErrInvalidRound
	}

	q := `INSERT INTO round_control (` + roundControlColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (class, branch, cohort_year) DO UPDATE SET ` + strings.Join(sets, ", ") + `
		RETURNING ` + roundControlColumns
	var row roundControlRow
	err := exe.GetContext(ctx, &row, exe.Rebind(q),
		scope.Class, scope.Branch, scope.CohortYear,
		ctrl.InitialEnabled, ctrl.FinalEnabled,
		null.TimeFromPtr(ctrl.InitialEndDate), null.TimeFromPtr(ctrl.FinalEndDate),
	)
	if err != nil {
		return round.Control{}, errors.Wrap(err, "upserting round control")
	}
	return row.toControl(), nil
}
