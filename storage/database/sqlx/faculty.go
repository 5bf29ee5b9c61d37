package sqlxrepos

import (
	"context"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/faculty"
)

type facultyRepository struct {
	repository
}

var _ faculty.Repository = (*facultyRepository)(nil) // interface compliance check

func NewFacultyRepository(exec core.DBExecutor) faculty.Repository {
	return &facultyRepository{repository{exec: exec}}
}

func (repo facultyRepository) DistinctFaculties(ctx context.Context, filter cohort.Filter, withFeedbacks bool, exec ...core.DBExecutor) ([]string, error) {
	exe := repo.getExec(exec)
	var w where
	w.scope(filter)

	q := "SELECT DISTINCT faculty FROM subject" + w.String()
	args := w.args
	if withFeedbacks {
		q += " UNION SELECT DISTINCT faculty FROM feedback" + w.String()
		args = append(append([]interface{}{}, w.args...), w.args...)
	}
	q += " ORDER BY 1"

	names := make([]string, 0)
	if err := exe.SelectContext(ctx, &names, exe.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "listing faculties")
	}
	return names, nil
}

func (repo facultyRepository) CountFacultyRecords(ctx context.Context, name string, filter cohort.Filter, exec ...core.DBExecutor) (int, int, error) {
	exe := repo.getExec(exec)
	var w where
	w.add("faculty = ?", name)
	w.scope(filter)

	var subjects, feedbacks int
	if err := exe.GetContext(ctx, &subjects, exe.Rebind("SELECT COUNT(*) FROM subject"+w.String()), w.args...); err != nil {
		return 0, 0, errors.Wrap(err, "counting subjects")
	}
	if err := exe.GetContext(ctx, &feedbacks, exe.Rebind("SELECT COUNT(*) FROM feedback"+w.String()), w.args...); err != nil {
		return 0, 0, errors.Wrap(err, "counting feedbacks")
	}
	return subjects, feedbacks, nil
}

func (repo facultyRepository) RenameFaculty(ctx context.Context, from, to string, filter cohort.Filter, exec ...core.DBExecutor) (int, int, error) {
	exe := repo.getExec(exec)
	var w where
	w.add("faculty = ?", from)
	w.scope(filter)
	args := append([]interface{}{to}, w.args...)

	res, err := exe.ExecContext(ctx, exe.Rebind("UPDATE subject SET faculty = ?"+w.String()), args...)
	if err != nil {
		return 0, 0, errors.Wrap(err, "renaming subjects faculty")
	}
	subjects, err := rowsAffected(res, "renaming subjects faculty")
	if err != nil {
		return 0, 0, err
	}

	res, err = exe.ExecContext(ctx, exe.Rebind("UPDATE feedback SET faculty = ?"+w.String()), args...)
	if err != nil {
		return 0, 0, errors.Wrap(err, "renaming feedbacks faculty")
	}
	feedbacks, err := rowsAffected(res, "renaming feedbacks faculty")
	if err != nil {
		return 0, 0, err
	}
	return subjects, feedbacks, nil
}

func (repo facultyRepository) DeleteFacultyRecords(ctx context.Context, names []string, exec ...core.DBExecutor) (int, int, error) {
	exe := repo.getExec(exec)

	res, err := exe.ExecContext(ctx, exe.Rebind("DELETE FROM subject WHERE faculty = ANY(?)"), pq.Array(names))
	if err != nil {
		return 0, 0, errors.Wrap(err, "deleting subjects")
	}
	subjects, err := rowsAffected(res, "deleting subjects")
	if err != nil {
		return 0, 0, err
	}

	res, err = exe.ExecContext(ctx, exe.Rebind("DELETE FROM feedback WHERE faculty = ANY(?)"), pq.Array(names))
	if err != nil {
		return 0, 0, errors.Wrap(err, "deleting feedbacks")
	}
	feedbacks, err := rowsAffected(res, "deleting feedbacks")
	if err != nil {
		return 0, 0, err
	}
	return subjects, feedbacks, nil
}
