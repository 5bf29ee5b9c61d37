package faculty

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
)

const cleanupSampleSize = 10

var (
	// errors
	ErrNamesRequired = core.NewValidationError(
		errors.New("original name and new name are required"),
		core.FieldError{Field: "original_name", Error: "this field is required"},
		core.FieldError{Field: "new_name", Error: "this field is required"},
	)
	ErrSameNames = core.NewStateConflictError("original and new names are the same")
)

type (
	RenameRequest struct {
		OriginalName string `json:"original_name"`
		NewName      string `json:"new_name"`
		// optional; an empty filter renames everywhere
		Scope cohort.Filter `json:"scope"`
	}

	RenameResult struct {
		SubjectsUpdated  int    `json:"subjects_updated"`
		FeedbacksUpdated int    `json:"feedbacks_updated"`
		TotalUpdated     int    `json:"total_updated"`
		Message          string `json:"message"`
	}

	CleanupResult struct {
		DeletedSubjects    int      `json:"deleted_subjects"`
		DeletedFeedbacks   int      `json:"deleted_feedbacks"`
		RemainingFaculties int      `json:"remaining_faculties"`
		SampleFaculties    []string `json:"sample_faculties"`
		Message            string   `json:"message"`
	}
)

func (req *RenameRequest) Clean() {
	// names are matched exactly, only surrounding blanks are dropped
	req.OriginalName = core.CleanString(req.OriginalName)
	req.NewName = core.CleanString(req.NewName)
	req.Scope.Clean()
}

type (
	Repository interface {
		// DistinctFaculties returns the distinct faculties of the subjects within filter,
		// plus those of the feedbacks when withFeedbacks is set.
		DistinctFaculties(ctx context.Context, filter cohort.Filter, withFeedbacks bool, exec ...core.DBExecutor) ([]string, error)
		CountFacultyRecords(ctx context.Context, faculty string, filter cohort.Filter, exec ...core.DBExecutor) (subjects, feedbacks int, err error)
		// RenameFaculty sets the faculty of the subjects and feedbacks exactly named from, within filter.
		RenameFaculty(ctx context.Context, from, to string, filter cohort.Filter, exec ...core.DBExecutor) (subjects, feedbacks int, err error)
		DeleteFacultyRecords(ctx context.Context, faculties []string, exec ...core.DBExecutor) (subjects, feedbacks int, err error)
	}

	Service struct {
		db   core.DB
		repo Repository
	}
)

func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

// All returns every listable faculty, sorted.
func (svc *Service) All(ctx context.Context) ([]string, error) {
	names, err := svc.repo.DistinctFaculties(ctx, cohort.Filter{}, false)
	if err != nil {
		return nil, errors.Wrap(err, "listing faculties")
	}
	return Listable(names), nil
}

// ForScope returns the faculties teaching a class.
func (svc *Service) ForScope(ctx context.Context, scope cohort.Scope) ([]string, error) {
	scope.Clean()
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	names, err := svc.repo.DistinctFaculties(ctx, cohort.Filter(scope), false)
	if err != nil {
		return nil, errors.Wrap(err, "listing faculties")
	}
	sort.Strings(names)
	return names, nil
}

// Variations returns the groups of spellings that likely name the same faculty.
func (svc *Service) Variations(ctx context.Context) ([]VariationGroup, error) {
	names, err := svc.repo.DistinctFaculties(ctx, cohort.Filter{}, false)
	if err != nil {
		return nil, errors.Wrap(err, "listing faculties")
	}
	return GroupVariations(names), nil
}

func checkRename(req RenameRequest) error {
	if req.OriginalName == "" || req.NewName == "" {
		return ErrNamesRequired
	}
	if req.OriginalName == req.NewName {
		return ErrSameNames
	}
	return nil
}

// Preview counts the records a Rename would touch.
func (svc *Service) Preview(ctx context.Context, req RenameRequest) (RenameResult, error) {
	req.Clean()
	if err := checkRename(req); err != nil {
		return RenameResult{}, err
	}
	subjects, feedbacks, err := svc.repo.CountFacultyRecords(ctx, req.OriginalName, req.Scope)
	if err != nil {
		return RenameResult{}, errors.Wrap(err, "counting faculty records")
	}
	return RenameResult{
		SubjectsUpdated:  subjects,
		FeedbacksUpdated: feedbacks,
		TotalUpdated:     subjects + feedbacks,
		Message:          fmt.Sprintf("%d records would be renamed", subjects+feedbacks),
	}, nil
}

// Rename renames a faculty on the subjects and feedbacks exactly matching the original name,
// within the optional scope. A scoped rename may leave the old spelling elsewhere.
func (svc *Service) Rename(ctx context.Context, req RenameRequest) (RenameResult, error) {
	req.Clean()
	if err := checkRename(req); err != nil {
		return RenameResult{}, err
	}

	var res RenameResult
	err := core.InTx(ctx, svc.db, func(exec ...core.DBExecutor) error {
		subjects, feedbacks, err := svc.repo.RenameFaculty(ctx, req.OriginalName, req.NewName, req.Scope, exec...)
		if err != nil {
			return errors.Wrap(err, "renaming faculty")
		}
		res.SubjectsUpdated, res.FeedbacksUpdated = subjects, feedbacks
		return nil
	})
	if err != nil {
		return RenameResult{}, err
	}
	res.TotalUpdated = res.SubjectsUpdated + res.FeedbacksUpdated
	res.Message = fmt.Sprintf("Successfully renamed %q to %q", req.OriginalName, req.NewName)
	return res, nil
}

// Cleanup deletes the subjects and feedbacks whose faculty is a hallticket.
func (svc *Service) Cleanup(ctx context.Context) (CleanupResult, error) {
	names, err := svc.repo.DistinctFaculties(ctx, cohort.Filter{}, true)
	if err != nil {
		return CleanupResult{}, errors.Wrap(err, "listing faculties")
	}
	var halltickets []string
	for _, n := range names {
		if IsHallticket(n) {
			halltickets = append(halltickets, n)
		}
	}

	var res CleanupResult
	if len(halltickets) > 0 {
		err = core.InTx(ctx, svc.db, func(exec ...core.DBExecutor) error {
			subjects, feedbacks, err := svc.repo.DeleteFacultyRecords(ctx, halltickets, exec...)
			if err != nil {
				return errors.Wrap(err, "deleting faculty records")
			}
			res.DeletedSubjects, res.DeletedFeedbacks = subjects, feedbacks
			return nil
		})
		if err != nil {
			return CleanupResult{}, err
		}
	}

	if names, err = svc.repo.DistinctFaculties(ctx, cohort.Filter{}, false); err != nil {
		return CleanupResult{}, errors.Wrap(err, "listing faculties")
	}
	remaining := make([]string, 0, len(names))
	for _, n := range names {
		if n = core.CleanString(n); n != "" && !core.IsDigits(n) && !IsHallticket(n) {
			remaining = append(remaining, n)
		}
	}
	sort.Strings(remaining)

	res.RemainingFaculties = len(remaining)
	if len(remaining) > cleanupSampleSize {
		remaining = remaining[:cleanupSampleSize]
	}
	res.SampleFaculties = remaining
	res.Message = fmt.Sprintf("Cleaned up %d subject records and %d feedback records", res.DeletedSubjects, res.DeletedFeedbacks)
	return res, nil
}
