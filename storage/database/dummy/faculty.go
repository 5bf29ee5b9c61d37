package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/faculty"
	"github.com/trezcool/feedback/core/subject"
)

type facultyRepository struct {
	subjects  *subjectTable
	feedbacks *feedbackTable
}

var _ faculty.Repository = (*facultyRepository)(nil) // interface compliance check

func NewFacultyRepository(db *DB) faculty.Repository {
	return &facultyRepository{subjects: db.subject, feedbacks: db.feedback}
}

// lock takes the subjects lock before the feedbacks one.
func (repo *facultyRepository) lock() func() {
	repo.subjects.Lock()
	repo.feedbacks.Lock()
	return func() {
		repo.feedbacks.Unlock()
		repo.subjects.Unlock()
	}
}

func (repo *facultyRepository) DistinctFaculties(_ context.Context, filter cohort.Filter, withFeedbacks bool, _ ...core.DBExecutor) ([]string, error) {
	repo.subjects.RLock()
	defer repo.subjects.RUnlock()

	subjects := make([]subject.Subject, 0, len(repo.subjects.rows))
	for _, subj := range repo.subjects.rows {
		if filter.Matches(subj.Class, subj.Branch, subj.CohortYear) {
			subjects = append(subjects, subj)
		}
	}
	names := distinct(subjects, func(s subject.Subject) string { return s.Faculty })
	if !withFeedbacks {
		return names, nil
	}

	repo.feedbacks.RLock()
	defer repo.feedbacks.RUnlock()

	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, fb := range repo.feedbacks.rows {
		if filter.Matches(fb.Class, fb.Branch, fb.CohortYear) && !seen[fb.Faculty] {
			seen[fb.Faculty] = true
			names = append(names, fb.Faculty)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (repo *facultyRepository) CountFacultyRecords(_ context.Context, name string, filter cohort.Filter, _ ...core.DBExecutor) (int, int, error) {
	repo.subjects.RLock()
	defer repo.subjects.RUnlock()
	repo.feedbacks.RLock()
	defer repo.feedbacks.RUnlock()

	var subjects, feedbacks int
	for _, subj := range repo.subjects.rows {
		if subj.Faculty == name && filter.Matches(subj.Class, subj.Branch, subj.CohortYear) {
			subjects++
		}
	}
	for _, fb := range repo.feedbacks.rows {
		if fb.Faculty == name && filter.Matches(fb.Class, fb.Branch, fb.CohortYear) {
			feedbacks++
		}
	}
	return subjects, feedbacks, nil
}

func (repo *facultyRepository) RenameFaculty(_ context.Context, from, to string, filter cohort.Filter, _ ...core.DBExecutor) (int, int, error) {
	defer repo.lock()()

	var subjects, feedbacks int
	for i, subj := range repo.subjects.rows {
		if subj.Faculty == from && filter.Matches(subj.Class, subj.Branch, subj.CohortYear) {
			repo.subjects.rows[i].Faculty = to
			subjects++
		}
	}
	for i, fb := range repo.feedbacks.rows {
		if fb.Faculty == from && filter.Matches(fb.Class, fb.Branch, fb.CohortYear) {
			repo.feedbacks.rows[i].Faculty = to
			feedbacks++
		}
	}
	return subjects, feedbacks, nil
}

func (repo *facultyRepository) DeleteFacultyRecords(_ context.Context, names []string, _ ...core.DBExecutor) (int, int, error) {
	defer repo.lock()()

	doomed := make(map[string]bool, len(names))
	for _, n := range names {
		doomed[n] = true
	}

	keptSubjects := repo.subjects.rows[:0]
	for _, subj := range repo.subjects.rows {
		if !doomed[subj.Faculty] {
			keptSubjects = append(keptSubjects, subj)
		}
	}
	subjects := len(repo.subjects.rows) - len(keptSubjects)
	repo.subjects.rows = keptSubjects

	keptFeedbacks := repo.feedbacks.rows[:0]
	for _, fb := range repo.feedbacks.rows {
		if !doomed[fb.Faculty] {
			keptFeedbacks = append(keptFeedbacks, fb)
		}
	}
	feedbacks := len(repo.feedbacks.rows) - len(keptFeedbacks)
	repo.feedbacks.rows = keptFeedbacks
	return subjects, feedbacks, nil
}
