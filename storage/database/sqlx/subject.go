package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/subject"
)

const subjectColumns = "subject, faculty, class, branch, cohort_year"

type subjectRow struct {
	Subject    string `db:"subject"`
	Faculty    string `db:"faculty"`
	Class      string `db:"class"`
	Branch     string `db:"branch"`
	CohortYear string `db:"cohort_year"`
}

func toSubjects(rows []subjectRow) []subject.Subject {
	subjects := make([]subject.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, subject.Subject(row))
	}
	return subjects
}

type subjectRepository struct {
	repository
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(exec core.DBExecutor) subject.Repository {
	return &subjectRepository{repository{exec: exec}}
}

func (repo subjectRepository) ReplaceSubjects(ctx context.Context, scope cohort.Scope, subjects []subject.Subject, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)

	q := "DELETE FROM subject WHERE class = ? AND branch = ? AND cohort_year = ?"
	if _, err := exe.ExecContext(ctx, exe.Rebind(q), scope.Class, scope.Branch, scope.CohortYear); err != nil {
		return 0, errors.Wrap(err, "deleting subjects")
	}

	insert := `INSERT INTO subject (subject, faculty, class, branch, cohort_year)
		VALUES (:subject, :faculty, :class, :branch, :cohort_year)`
	for _, subj := range subjects {
		if _, err := exe.NamedExecContext(ctx, insert, subjectRow(subj)); err != nil {
			return 0, errors.Wrap(err, "inserting subject")
		}
	}
	return len(subjects), nil
}

func (repo subjectRepository) QuerySubjects(ctx context.Context, filter cohort.Filter, exec ...core.DBExecutor) ([]subject.Subject, error) {
	exe := repo.getExec(exec)
	var w where
	w.scope(filter)

	var rows []subjectRow
	q := "SELECT " + subjectColumns + " FROM subject" + w.String() + " ORDER BY subject, id"
	if err := exe.SelectContext(ctx, &rows, exe.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	return toSubjects(rows), nil
}

func (repo subjectRepository) QuerySubjectsByFaculty(ctx context.Context, faculty string, filter cohort.Filter, exec ...core.DBExecutor) ([]subject.Subject, error) {
	exe := repo.getExec(exec)
	var w where
	w.add("faculty = ?", faculty)
	w.scope(filter)

	var rows []subjectRow
	q := "SELECT " + subjectColumns + " FROM subject" + w.String() + " ORDER BY id"
	if err := exe.SelectContext(ctx, &rows, exe.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying subjects by faculty")
	}
	return toSubjects(rows), nil
}

// subjectDistinctColumns whitelists the columns DistinctSubjectValues may read.
var subjectDistinctColumns = map[string]bool{
	"class":       true,
	"branch":      true,
	"cohort_year": true,
	"faculty":     true,
}

func (repo subjectRepository) DistinctSubjectValues(ctx context.Context, column string, filter cohort.Filter, exec ...core.DBExecutor) ([]string, error) {
	if !subjectDistinctColumns[column] {
		return nil, errors.Errorf("unknown subject column %q", column)
	}
	exe := repo.getExec(exec)
	var w where
	w.scope(filter)

	values := make([]string, 0)
	q := "SELECT DISTINCT " + column + " FROM subject" + w.String() + " ORDER BY " + column
	if err := exe.SelectContext(ctx, &values, exe.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrapf(err, "listing distinct subject %s", column)
	}
	return values, nil
}
