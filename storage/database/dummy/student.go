package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) query() []student.Student {
	students := make([]student.Student, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		students = append(students, *s)
	}
	return students
}

func (repo *studentRepository) GetStudent(_ context.Context, hallticket, cohortYear string, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if std, ok := repo.db.table[studentKey{hallticket, cohortYear}]; ok {
		return *std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudentsByHallticket(_ context.Context, hallticket string, _ ...core.DBExecutor) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var students []student.Student
	for _, std := range repo.query() {
		if std.Hallticket == hallticket {
			students = append(students, std)
		}
	}
	sort.Slice(students, func(i, j int) bool {
		return cohort.StartYear(students[i].CohortYear) > cohort.StartYear(students[j].CohortYear)
	})
	return students, nil
}

func (repo *studentRepository) GetStudentByEmail(_ context.Context, email string, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, std := range repo.query() {
		if std.Email != "" && std.Email == email {
			return std, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) CreateStudent(_ context.Context, std student.Student, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := studentKey{std.Hallticket, std.CohortYear}
	if _, ok := repo.db.table[key]; ok {
		return student.Student{}, student.ErrStudentExists
	}
	repo.db.table[key] = &std
	return std, nil
}

func (repo *studentRepository) UpdateStudentIdentity(_ context.Context, hallticket, cohortYear, name, branch string, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	std, ok := repo.db.table[studentKey{hallticket, cohortYear}]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	std.Name = name
	std.Branch = branch
	return *std, nil
}

func (repo *studentRepository) SetStudentCredentials(_ context.Context, hallticket, cohortYear, email string, pwdHash []byte, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	std, ok := repo.db.table[studentKey{hallticket, cohortYear}]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	std.Email = email
	std.PasswordHash = pwdHash
	return *std, nil
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter student.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var students []student.Student
	for _, std := range repo.query() {
		if std.Branch != filter.Branch || std.CohortYear != filter.CohortYear {
			continue
		}
		if filter.Registered != nil && std.IsRegistered() != *filter.Registered {
			continue
		}
		students = append(students, std)
	}

	sort.SliceStable(students, func(i, j int) bool {
		for _, ord := range ordering {
			a, b := studentField(students[i], ord.Field), studentField(students[j], ord.Field)
			if a == b {
				continue
			}
			if ord.Ascending {
				return a < b
			}
			return a > b
		}
		return false
	})
	return students, nil
}

func (repo *studentRepository) CountStudents(_ context.Context, scope cohort.BranchScope, _ ...core.DBExecutor) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, std := range repo.db.table {
		if std.Branch == scope.Branch && std.CohortYear == scope.CohortYear {
			count++
		}
	}
	return count, nil
}

func studentField(std student.Student, field string) string {
	switch field {
	case "name":
		return strings.ToLower(std.Name)
	case "branch":
		return std.Branch
	case "cohort_year":
		return std.CohortYear
	case "email":
		return std.Email
	}
	return std.Hallticket
}
