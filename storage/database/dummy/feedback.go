package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/feedback"
	"github.com/trezcool/feedback/core/round"
)

type feedbackRepository struct {
	submissions *submissionTable
	feedbacks   *feedbackTable
}

var _ feedback.Repository = (*feedbackRepository)(nil) // interface compliance check

func NewFeedbackRepository(db *DB) feedback.Repository {
	return &feedbackRepository{submissions: db.submission, feedbacks: db.feedback}
}

func (repo *feedbackRepository) GetSubmission(_ context.Context, key feedback.SubmissionKey, _ bool, _ ...core.DBExecutor) (feedback.Submission, error) {
	repo.submissions.RLock()
	defer repo.submissions.RUnlock()

	if sub, ok := repo.submissions.table[key.String()]; ok {
		return *sub, nil
	}
	return feedback.Submission{}, feedback.ErrSubmissionNotFound
}

func (repo *feedbackRepository) CreateSubmission(_ context.Context, key feedback.SubmissionKey, _ ...core.DBExecutor) (bool, error) {
	repo.submissions.Lock()
	defer repo.submissions.Unlock()

	if _, ok := repo.submissions.table[key.String()]; ok {
		return false, nil
	}
	sub := feedback.NewSubmission(key)
	repo.submissions.table[key.String()] = &sub
	return true, nil
}

func (repo *feedbackRepository) MarkSubmitted(_ context.Context, key feedback.SubmissionKey, r round.Round, at time.Time, _ ...core.DBExecutor) (bool, error) {
	repo.submissions.Lock()
	defer repo.submissions.Unlock()

	sub, ok := repo.submissions.table[key.String()]
	if !ok {
		s := feedback.NewSubmission(key)
		sub = &s
		repo.submissions.table[key.String()] = sub
	}
	if sub.Submitted(r) {
		return false, nil
	}
	sub.Mark(r, at)
	return true, nil
}

func (repo *feedbackRepository) QuerySubmissions(_ context.Context, scope cohort.Scope, _ ...core.DBExecutor) ([]feedback.Submission, error) {
	repo.submissions.RLock()
	defer repo.submissions.RUnlock()

	subs := make([]feedback.Submission, 0)
	for _, sub := range repo.submissions.table {
		if sub.Key().Scope == scope {
			subs = append(subs, *sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Hallticket < subs[j].Hallticket })
	return subs, nil
}

func (repo *feedbackRepository) CountSubmitted(_ context.Context, scope cohort.Scope, r round.Round, _ ...core.DBExecutor) (int, error) {
	repo.submissions.RLock()
	defer repo.submissions.RUnlock()

	var count int
	for _, sub := range repo.submissions.table {
		if sub.Key().Scope == scope && sub.Submitted(r) {
			count++
		}
	}
	return count, nil
}

// feedbackKey mirrors the unique constraint of the feedbacks table.
type feedbackKey struct {
	hallticket string
	scope      cohort.Scope
	subject    string
	faculty    string
	round      round.Round
}

func keyOf(fb feedback.Feedback) feedbackKey {
	return feedbackKey{fb.Hallticket, fb.Scope(), fb.Subject, fb.Faculty, fb.Round}
}

func (repo *feedbackRepository) CreateFeedbacks(_ context.Context, fbs []feedback.Feedback, _ ...core.DBExecutor) error {
	repo.feedbacks.Lock()
	defer repo.feedbacks.Unlock()

	keys := make(map[feedbackKey]bool, len(repo.feedbacks.rows)+len(fbs))
	for _, fb := range repo.feedbacks.rows {
		keys[keyOf(fb)] = true
	}
	for _, fb := range fbs {
		if keys[keyOf(fb)] {
			return feedback.ErrDuplicateFeedback
		}
		keys[keyOf(fb)] = true
	}
	repo.feedbacks.rows = append(repo.feedbacks.rows, fbs...)
	return nil
}

func (repo *feedbackRepository) QueryFeedbacks(_ context.Context, filter feedback.Filter, _ ...core.DBExecutor) ([]feedback.Feedback, error) {
	repo.feedbacks.RLock()
	defer repo.feedbacks.RUnlock()

	var fbs []feedback.Feedback
	for _, fb := range repo.feedbacks.rows {
		if filter.Matches(fb) {
			fbs = append(fbs, fb)
		}
	}
	return fbs, nil
}
