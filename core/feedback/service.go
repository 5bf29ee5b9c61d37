package feedback

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/round"
	"github.com/trezcool/feedback/core/student"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrSubmissionNotFound = core.NewNotFoundError("feedback submission")
	ErrUnauthorized       = core.NewAuthorizationError("unauthorized to submit feedback for this branch/cohort")
	// ErrDuplicateFeedback is returned by repositories when a feedback of the same student, subject,
	// faculty and round already exists.
	ErrDuplicateFeedback = core.NewStateConflictError("feedback already submitted")
)

func roundClosedError(r round.Round) error {
	return core.NewStateConflictError("%s feedback is not currently accepted", r)
}

func alreadySubmittedError(r round.Round) error {
	return core.NewStateConflictError("feedback already submitted for %s round", r)
}

type (
	Repository interface {
		// GetSubmission may lock the returned row until the end of the transaction (forUpdate).
		GetSubmission(ctx context.Context, key SubmissionKey, forUpdate bool, exec ...core.DBExecutor) (Submission, error)
		// CreateSubmission inserts an unsubmitted record unless one exists; it reports whether it did.
		CreateSubmission(ctx context.Context, key SubmissionKey, exec ...core.DBExecutor) (bool, error)
		// MarkSubmitted sets the flag of round r unless it is already set. It reports whether the flag was claimed.
		MarkSubmitted(ctx context.Context, key SubmissionKey, r round.Round, at time.Time, exec ...core.DBExecutor) (bool, error)
		QuerySubmissions(ctx context.Context, scope cohort.Scope, exec ...core.DBExecutor) ([]Submission, error)
		CountSubmitted(ctx context.Context, scope cohort.Scope, r round.Round, exec ...core.DBExecutor) (int, error)

		CreateFeedbacks(ctx context.Context, fbs []Feedback, exec ...core.DBExecutor) error
		QueryFeedbacks(ctx context.Context, filter Filter, exec ...core.DBExecutor) ([]Feedback, error)
	}

	// StudentLookup is satisfied by student.Repository.
	StudentLookup interface {
		GetStudent(ctx context.Context, hallticket, cohortYear string, exec ...core.DBExecutor) (student.Student, error)
		CountStudents(ctx context.Context, scope cohort.BranchScope, exec ...core.DBExecutor) (int, error)
	}

	RoundGate interface {
		IsOpen(ctx context.Context, scope cohort.Scope, r round.Round) (bool, error)
	}

	Service struct {
		db       core.DB
		repo     Repository
		students StudentLookup
		rounds   RoundGate
		locks    *KeyedMutex
	}
)

var _ student.SubmissionStubber = (*Service)(nil)

func NewService(db core.DB, repo Repository, students StudentLookup, rounds RoundGate) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		students: students,
		rounds:   rounds,
		locks:    NewKeyedMutex(),
	}
}

// Submit records the ratings of a student for one class and round.
// At most one submission per (student, class, round) ever succeeds, concurrent attempts included:
// the check and the writes run under a per-key lock inside one transaction, and the flag
// is claimed with a conditional update.
func (svc *Service) Submit(ctx context.Context, id Identity, req SubmitRequest) (SubmitResult, error) {
	r, err := round.Parse(req.Round)
	if err != nil {
		return SubmitResult{}, err
	}
	if err = checkAnswers(req.Feedbacks); err != nil {
		return SubmitResult{}, err
	}

	scope := cohort.Scope{Class: core.CleanString(req.Class), Branch: id.Branch, CohortYear: id.CohortYear}
	if err = scope.Validate(); err != nil {
		return SubmitResult{}, err
	}

	open, err := svc.rounds.IsOpen(ctx, scope, r)
	if err != nil {
		return SubmitResult{}, errors.Wrap(err, "checking round status")
	}
	if !open {
		return SubmitResult{}, roundClosedError(r)
	}

	std, err := svc.students.GetStudent(ctx, id.Hallticket, id.CohortYear)
	if err != nil {
		if core.IsNotFound(err) {
			return SubmitResult{}, ErrUnauthorized
		}
		return SubmitResult{}, errors.Wrap(err, "finding student")
	}
	if std.Branch != id.Branch || std.CohortYear != id.CohortYear {
		return SubmitResult{}, ErrUnauthorized
	}

	key := SubmissionKey{Hallticket: id.Hallticket, Scope: scope}
	unlock := svc.locks.Lock(key.String() + "/" + r.String())
	defer unlock()

	now := NowFunc().UTC()
	fbs := make([]Feedback, 0, len(req.Feedbacks))
	for _, sa := range req.Feedbacks {
		fbs = append(fbs, Feedback{
			ID:          uuid.New().String(),
			Hallticket:  id.Hallticket,
			Class:       scope.Class,
			Branch:      scope.Branch,
			CohortYear:  scope.CohortYear,
			Subject:     core.CleanString(sa.Subject),
			Faculty:     core.CleanString(sa.Faculty),
			Round:       r,
			Answers:     sa.Answers,
			Suggestion:  core.CleanString(req.Suggestion),
			SubmittedAt: now,
		})
	}

	err = core.InTx(ctx, svc.db, func(exec ...core.DBExecutor) error {
		sub, err := svc.repo.GetSubmission(ctx, key, true /* forUpdate */, exec...)
		switch {
		case err == nil:
			if sub.Submitted(r) {
				return alreadySubmittedError(r)
			}
		case errors.Cause(err) == ErrSubmissionNotFound:
			if _, err = svc.repo.CreateSubmission(ctx, key, exec...); err != nil {
				return errors.Wrap(err, "creating submission record")
			}
		default:
			return errors.Wrap(err, "getting submission record")
		}

		if err = svc.repo.CreateFeedbacks(ctx, fbs, exec...); err != nil {
			if errors.Cause(err) == ErrDuplicateFeedback {
				return alreadySubmittedError(r)
			}
			return errors.Wrap(err, "saving feedbacks")
		}

		claimed, err := svc.repo.MarkSubmitted(ctx, key, r, now, exec...)
		if err != nil {
			return errors.Wrap(err, "marking submission")
		}
		if !claimed {
			return alreadySubmittedError(r)
		}
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}

	return SubmitResult{
		Accepted: true,
		Count:    len(fbs),
		Message:  "Feedback for " + r.String() + " round submitted successfully",
	}, nil
}

func checkAnswers(sas []SubjectAnswers) error {
	if len(sas) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "feedbacks", Error: "this field is required"})
	}
	for _, sa := range sas {
		if core.CleanString(sa.Subject) == "" || core.CleanString(sa.Faculty) == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "feedbacks", Error: "subject and faculty are required"})
		}
		if len(sa.Answers) == 0 {
			return core.NewValidationError(nil, core.FieldError{Field: "answers", Error: "this field is required"})
		}
		for _, ans := range sa.Answers {
			if ans.Score < core.MinScore || ans.Score > core.MaxScore {
				return core.NewValidationError(nil, core.FieldError{Field: "score", Error: "score must be between 1 and 5"})
			}
		}
	}
	return checkDuplicates(sas)
}

// checkDuplicates rejects a request rating the same subject and faculty twice.
func checkDuplicates(sas []SubjectAnswers) error {
	seen := make(map[[2]string]struct{}, len(sas))
	for _, sa := range sas {
		key := [2]string{core.CleanString(sa.Subject), core.CleanString(sa.Faculty)}
		if _, ok := seen[key]; ok {
			return core.NewValidationError(nil, core.FieldError{
				Field: "feedbacks",
				Error: "subject " + key[0] + " of " + key[1] + " is rated more than once",
			})
		}
		seen[key] = struct{}{}
	}
	return nil
}

// EnsureSubmission creates the unsubmitted record of a student for a class, if missing.
func (svc *Service) EnsureSubmission(ctx context.Context, hallticket string, scope cohort.Scope, exec ...core.DBExecutor) error {
	_, err := svc.repo.CreateSubmission(ctx, SubmissionKey{Hallticket: hallticket, Scope: scope}, exec...)
	return err
}

// Check reports whether the student already rated round r of a class.
func (svc *Service) Check(ctx context.Context, id Identity, class string, r round.Round) (bool, error) {
	key := SubmissionKey{
		Hallticket: id.Hallticket,
		Scope:      cohort.Scope{Class: core.CleanString(class), Branch: id.Branch, CohortYear: id.CohortYear},
	}
	sub, err := svc.repo.GetSubmission(ctx, key, false)
	if err != nil {
		if errors.Cause(err) == ErrSubmissionNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "getting submission record")
	}
	return sub.Submitted(r), nil
}

// Submissions lists the submission records of a class.
func (svc *Service) Submissions(ctx context.Context, scope cohort.Scope) ([]Submission, error) {
	scope.Clean()
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return svc.repo.QuerySubmissions(ctx, scope)
}

// Counts compares the submissions of a class, per round, to the number of students of the branch/cohort.
func (svc *Service) Counts(ctx context.Context, scope cohort.Scope) (Counts, error) {
	scope.Clean()
	if err := scope.Validate(); err != nil {
		return Counts{}, err
	}

	var (
		counts Counts
		err    error
	)
	if counts.Initial.Submitted, err = svc.repo.CountSubmitted(ctx, scope, round.Initial); err != nil {
		return Counts{}, errors.Wrap(err, "counting initial submissions")
	}
	if counts.Final.Submitted, err = svc.repo.CountSubmitted(ctx, scope, round.Final); err != nil {
		return Counts{}, errors.Wrap(err, "counting final submissions")
	}
	total, err := svc.students.CountStudents(ctx, cohort.BranchScope{Branch: scope.Branch, CohortYear: scope.CohortYear})
	if err != nil {
		return Counts{}, errors.Wrap(err, "counting students")
	}
	counts.Initial.Total, counts.Final.Total = total, total
	return counts, nil
}

// Query returns raw feedbacks.
func (svc *Service) Query(ctx context.Context, filter Filter) ([]Feedback, error) {
	filter.Filter.Clean()
	return svc.repo.QueryFeedbacks(ctx, filter)
}
