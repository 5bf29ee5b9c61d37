package dummydb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/subject"
)

type subjectRepository struct {
	db *subjectTable
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db *DB) subject.Repository {
	return &subjectRepository{db: db.subject}
}

func (repo *subjectRepository) filter(filter cohort.Filter, keep func(subject.Subject) bool) []subject.Subject {
	var subjects []subject.Subject
	for _, subj := range repo.db.rows {
		if filter.Matches(subj.Class, subj.Branch, subj.CohortYear) && (keep == nil || keep(subj)) {
			subjects = append(subjects, subj)
		}
	}
	return subjects
}

func (repo *subjectRepository) ReplaceSubjects(_ context.Context, scope cohort.Scope, subjects []subject.Subject, _ ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	kept := make([]subject.Subject, 0, len(repo.db.rows))
	for _, subj := range repo.db.rows {
		if subj.Scope() != scope {
			kept = append(kept, subj)
		}
	}
	repo.db.rows = append(kept, subjects...)
	return len(subjects), nil
}

func (repo *subjectRepository) QuerySubjects(_ context.Context, filter cohort.Filter, _ ...core.DBExecutor) ([]subject.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subjects := repo.filter(filter, nil)
	sort.SliceStable(subjects, func(i, j int) bool { return subjects[i].Subject < subjects[j].Subject })
	return subjects, nil
}

func (repo *subjectRepository) QuerySubjectsByFaculty(_ context.Context, faculty string, filter cohort.Filter, _ ...core.DBExecutor) ([]subject.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.filter(filter, func(subj subject.Subject) bool { return subj.Faculty == faculty }), nil
}

func (repo *subjectRepository) DistinctSubjectValues(_ context.Context, column string, filter cohort.Filter, _ ...core.DBExecutor) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var get func(subject.Subject) string
	switch column {
	case "class":
		get = func(s subject.Subject) string { return s.Class }
	case "branch":
		get = func(s subject.Subject) string { return s.Branch }
	case "cohort_year":
		get = func(s subject.Subject) string { return s.CohortYear }
	case "faculty":
		get = func(s subject.Subject) string { return s.Faculty }
	default:
		return nil, errors.Errorf("unknown subject column %q", column)
	}
	return distinct(repo.filter(filter, nil), get), nil
}

func distinct(subjects []subject.Subject, get func(subject.Subject) string) []string {
	seen := make(map[string]bool)
	values := make([]string, 0)
	for _, subj := range subjects {
		if v := get(subj); !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	sort.Strings(values)
	return values
}
