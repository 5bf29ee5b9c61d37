package sqlxrepos

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/student"
)

const studentColumns = "hallticket, cohort_year, name, branch, email, password_hash"

type studentRow struct {
	Hallticket   string      `db:"hallticket"`
	CohortYear   string      `db:"cohort_year"`
	Name         string      `db:"name"`
	Branch       string      `db:"branch"`
	Email        null.String `db:"email"`
	PasswordHash null.Bytes  `db:"password_hash"`
}

func (row studentRow) toStudent() student.Student {
	return student.Student{
		Name:         row.Name,
		Hallticket:   row.Hallticket,
		Branch:       row.Branch,
		CohortYear:   row.CohortYear,
		Email:        row.Email.String,
		PasswordHash: row.PasswordHash.Bytes,
	}
}

func toStudents(rows []studentRow) []student.Student {
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toStudent())
	}
	return students
}

type studentRepository struct {
	repository
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(exec core.DBExecutor) student.Repository {
	return &studentRepository{repository{exec: exec}}
}

func (repo studentRepository) GetStudent(ctx context.Context, hallticket, cohortYear string, exec ...core.DBExecutor) (student.Student, error) {
	exe := repo.getExec(exec)
	var row studentRow
	q := "SELECT " + studentColumns + " FROM student WHERE hallticket = ? AND cohort_year = ?"
	if err := exe.GetContext(ctx, &row, exe.Rebind(q), hallticket, cohortYear); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "getting student")
	}
	return row.toStudent(), nil
}

func (repo studentRepository) QueryStudentsByHallticket(ctx context.Context, hallticket string, exec ...core.DBExecutor) ([]student.Student, error) {
	exe := repo.getExec(exec)
	var rows []studentRow
	q := "SELECT " + studentColumns + " FROM student WHERE hallticket = ? ORDER BY cohort_year DESC"
	if err := exe.SelectContext(ctx, &rows, exe.Rebind(q), hallticket); err != nil {
		return nil, errors.Wrap(err, "querying students by hallticket")
	}
	return toStudents(rows), nil
}

func (repo studentRepository) GetStudentByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (student.Student, error) {
	exe := repo.getExec(exec)
	var row studentRow
	q := "SELECT " + studentColumns + " FROM student WHERE email = ? LIMIT 1"
	if err := exe.GetContext(ctx, &row, exe.Rebind(q), email); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "getting student by email")
	}
	return row.toStudent(), nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, std student.Student, exec ...core.DBExecutor) (student.Student, error) {
	row := studentRow{
		Hallticket:   std.Hallticket,
		CohortYear:   std.CohortYear,
		Name:         std.Name,
		Branch:       std.Branch,
		Email:        null.NewString(std.Email, std.Email != ""),
		PasswordHash: null.NewBytes(std.PasswordHash, len(std.PasswordHash) > 0),
	}
	q := `INSERT INTO student (hallticket, cohort_year, name, branch, email, password_hash)
		VALUES (:hallticket, :cohort_year, :name, :branch, :email, :password_hash)`
	if _, err := repo.getExec(exec).NamedExecContext(ctx, q, row); err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, student.ErrStudentExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return row.toStudent(), nil
}

func (repo studentRepository) UpdateStudentIdentity(ctx context.Context, hallticket, cohortYear, name, branch string, exec ...core.DBExecutor) (student.Student, error) {
	exe := repo.getExec(exec)
	var row studentRow
	q := "UPDATE student SET name = ?, branch = ? WHERE hallticket = ? AND cohort_year = ? RETURNING " + studentColumns
	if err := exe.GetContext(ctx, &row, exe.Rebind(q), name, branch, hallticket, cohortYear); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "updating student")
	}
	return row.toStudent(), nil
}

func (repo studentRepository) SetStudentCredentials(ctx context.Context, hallticket, cohortYear, email string, pwdHash []byte, exec ...core.DBExecutor) (student.Student, error) {
	exe := repo.getExec(exec)
	var row studentRow
	q := "UPDATE student SET email = ?, password_hash = ? WHERE hallticket = ? AND cohort_year = ? RETURNING " + studentColumns
	err := exe.GetContext(ctx, &row, exe.Rebind(q),
		null.NewString(email, email != ""), null.NewBytes(pwdHash, len(pwdHash) > 0), hallticket, cohortYear)
	if err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, core.NewValidationError(student.ErrEmailExists, core.FieldError{Field: "email", Error: student.ErrEmailExists.Error()})
		}
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "updating student credentials")
	}
	return row.toStudent(), nil
}

// studentOrderings maps the sortable fields to their column.
var studentOrderings = map[string]string{
	"branch":      "branch",
	"cohort_year": "cohort_year",
	"email":       "email",
	"hallticket":  "hallticket",
	"name":        "lower(name)",
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter student.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]student.Student, error) {
	exe := repo.getExec(exec)

	var w where
	w.add("branch = ?", filter.Branch)
	w.add("cohort_year = ?", filter.CohortYear)
	if filter.Registered != nil {
		if *filter.Registered {
			w.add("email IS NOT NULL")
		} else {
			w.add("email IS NULL")
		}
	}

	q := "SELECT " + studentColumns + " FROM student" + w.String()
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if col, ok := studentOrderings[ord.Field]; ok {
			orderList = append(orderList, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	if len(orderList) > 0 {
		q += " ORDER BY " + strings.Join(orderList, ", ")
	}

	var rows []studentRow
	if err := exe.SelectContext(ctx, &rows, exe.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return toStudents(rows), nil
}

func (repo studentRepository) CountStudents(ctx context.Context, scope cohort.BranchScope, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	var count int
	q := "SELECT COUNT(*) FROM student WHERE branch = ? AND cohort_year = ?"
	if err := exe.GetContext(ctx, &count, exe.Rebind(q), scope.Branch, scope.CohortYear); err != nil {
		return 0, errors.Wrap(err, "counting students")
	}
	return count, nil
}
