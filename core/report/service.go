package report

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/feedback"
	"github.com/trezcool/feedback/core/round"
	"github.com/trezcool/feedback/core/subject"
)

var ErrFacultyRequired = core.NewValidationError(
	errors.New("faculty name is required"),
	core.FieldError{Field: "faculty", Error: "this field is required"},
)

type (
	FeedbackReader interface {
		QueryFeedbacks(ctx context.Context, filter feedback.Filter, exec ...core.DBExecutor) ([]feedback.Feedback, error)
	}

	SubjectReader interface {
		QuerySubjectsByFaculty(ctx context.Context, faculty string, filter cohort.Filter, exec ...core.DBExecutor) ([]subject.Subject, error)
	}

	Service struct {
		feedbacks FeedbackReader
		subjects  SubjectReader
		logger    core.Logger
	}
)

func NewService(feedbacks FeedbackReader, subjects SubjectReader, logger core.Logger) *Service {
	return &Service{feedbacks: feedbacks, subjects: subjects, logger: logger}
}

// FacultyPerformance rates a faculty per subject and round within a class; all rounds when r is empty.
func (svc *Service) FacultyPerformance(ctx context.Context, fac string, scope cohort.Scope, r round.Round) ([]FacultyPerformance, error) {
	if fac = core.CleanString(fac); fac == "" {
		return nil, ErrFacultyRequired
	}
	scope.Clean()
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	fbs, err := svc.feedbacks.QueryFeedbacks(ctx, feedback.Filter{Filter: cohort.Filter(scope), Faculty: fac, Round: r})
	if err != nil {
		return nil, errors.Wrap(err, "querying feedbacks")
	}
	return AggregateFacultyPerformance(fbs), nil
}

// Class rates every (subject, faculty) of a class.
func (svc *Service) Class(ctx context.Context, scope cohort.Scope, r round.Round) ([]ClassReportRow, error) {
	scope.Clean()
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	fbs, err := svc.feedbacks.QueryFeedbacks(ctx, feedback.Filter{Filter: cohort.Filter(scope), Round: r})
	if err != nil {
		return nil, errors.Wrap(err, "querying feedbacks")
	}
	return AggregateClass(fbs), nil
}

// Department rates every class of a branch/cohort.
func (svc *Service) Department(ctx context.Context, scope cohort.BranchScope, r round.Round) ([]DepartmentReportRow, error) {
	scope.Clean()
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	filter := feedback.Filter{Filter: cohort.Filter{Branch: scope.Branch, CohortYear: scope.CohortYear}, Round: r}
	fbs, err := svc.feedbacks.QueryFeedbacks(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying feedbacks")
	}
	return AggregateDepartment(fbs), nil
}

// FacultyHistory rates every subject a faculty taught, within the optional filter.
// A subject whose feedbacks cannot be read is listed with the "error" round.
func (svc *Service) FacultyHistory(ctx context.Context, fac string, filter cohort.Filter) ([]HistoryEntry, error) {
	if fac = core.CleanString(fac); fac == "" {
		return nil, ErrFacultyRequired
	}
	filter.Clean()

	subjects, err := svc.subjects.QuerySubjectsByFaculty(ctx, fac, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}

	entries := make([]HistoryEntry, 0, len(subjects))
	for _, subj := range subjects {
		fbs, err := svc.feedbacks.QueryFeedbacks(ctx, feedback.Filter{
			Filter:  cohort.Filter{Class: subj.Class, Branch: subj.Branch, CohortYear: subj.CohortYear},
			Subject: subj.Subject,
			Faculty: subj.Faculty,
		})
		if err != nil {
			svc.logger.Error("reading subject feedbacks", err, map[string]interface{}{
				"faculty": subj.Faculty,
				"subject": subj.Subject,
				"scope":   subj.Scope().String(),
			})
			entries = append(entries, errorHistoryEntry(subj))
			continue
		}
		entries = append(entries, HistoryEntryFor(subj, fbs))
	}
	SortHistory(entries)
	return entries, nil
}
