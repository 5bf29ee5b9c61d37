// Package subject manages the subjects (and their faculty) taught to each cohort scope.
package subject

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
)

var ErrUnauthorized = core.NewAuthorizationError("unauthorized to access these subjects")

// Subject is one (subject, faculty) pair taught to a cohort scope.
type Subject struct {
	Subject    string `json:"subject"`
	Faculty    string `json:"faculty"`
	Class      string `json:"class"`
	Branch     string `json:"branch"`
	CohortYear string `json:"cohort_year"`
}

func (s Subject) Scope() cohort.Scope {
	return cohort.Scope{Class: s.Class, Branch: s.Branch, CohortYear: s.CohortYear}
}

// Row is one line of a subjects file.
type Row struct {
	Line    int    `json:"line"`
	Subject string `json:"subject"`
	Faculty string `json:"faculty"`
}

func (r Row) IsValid() bool {
	return core.CleanString(r.Subject) != "" && core.CleanString(r.Faculty) != ""
}

// ReplaceResult is the outcome of a subjects upload.
type ReplaceResult struct {
	Processed int `json:"processed"`
	Inserted  int `json:"inserted"`
}

// Catalog lists the distinct scopes values known from the subjects.
type Catalog struct {
	Classes     []string `json:"classes"`
	Branches    []string `json:"branches"`
	CohortYears []string `json:"cohort_years"`
}

type (
	Repository interface {
		// ReplaceSubjects deletes the subjects of the scope then inserts the given ones.
		ReplaceSubjects(ctx context.Context, scope cohort.Scope, subjects []Subject, exec ...core.DBExecutor) (int, error)
		QuerySubjects(ctx context.Context, filter cohort.Filter, exec ...core.DBExecutor) ([]Subject, error)
		// QuerySubjectsByFaculty returns the subjects taught by faculty (exact match), within the filter.
		QuerySubjectsByFaculty(ctx context.Context, faculty string, filter cohort.Filter, exec ...core.DBExecutor) ([]Subject, error)
		// DistinctSubjectValues returns the sorted distinct values of a column
		// (one of "class", "branch", "cohort_year", "faculty") within the filter.
		DistinctSubjectValues(ctx context.Context, column string, filter cohort.Filter, exec ...core.DBExecutor) ([]string, error)
	}

	// RoundOpener opens the initial round of a scope.
	RoundOpener interface {
		EnsureInitialEnabled(ctx context.Context, scope cohort.Scope, exec ...core.DBExecutor) error
	}

	// Identity is the caller's own branch and cohort, as authenticated.
	Identity struct {
		Branch     string
		CohortYear string
	}

	Service struct {
		db     core.DB
		repo   Repository
		rounds RoundOpener
	}
)

func NewService(db core.DB, repo Repository, rounds RoundOpener) *Service {
	return &Service{db: db, repo: repo, rounds: rounds}
}

// Replace swaps the whole subject set of the scope for the given rows (rows without a subject or a
// faculty are skipped) and opens the initial round of the scope.
func (svc *Service) Replace(ctx context.Context, scope cohort.Scope, rows []Row) (ReplaceResult, error) {
	scope.Clean()
	if err := scope.Validate(); err != nil {
		return ReplaceResult{}, err
	}

	res := ReplaceResult{Processed: len(rows)}
	subjects := make([]Subject, 0, len(rows))
	for _, row := range rows {
		if !row.IsValid() {
			continue
		}
		subjects = append(subjects, Subject{
			Subject:    core.CleanString(row.Subject),
			Faculty:    core.CleanString(row.Faculty),
			Class:      scope.Class,
			Branch:     scope.Branch,
			CohortYear: scope.CohortYear,
		})
	}
	if len(subjects) == 0 {
		return ReplaceResult{}, core.NewValidationError(errors.New("no valid subject data found in CSV"))
	}

	err := core.InTx(ctx, svc.db, func(exec ...core.DBExecutor) error {
		n, err := svc.repo.ReplaceSubjects(ctx, scope, subjects, exec...)
		if err != nil {
			return errors.Wrap(err, "replacing subjects")
		}
		res.Inserted = n
		return svc.rounds.EnsureInitialEnabled(ctx, scope, exec...)
	})
	if err != nil {
		return ReplaceResult{}, err
	}
	return res, nil
}

// Query returns the subjects of a scope.
func (svc *Service) Query(ctx context.Context, scope cohort.Scope) ([]Subject, error) {
	scope.Clean()
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return svc.repo.QuerySubjects(ctx, cohort.Filter(scope))
}

// ForStudent returns the subjects of a scope, provided it is the caller's own branch and cohort.
func (svc *Service) ForStudent(ctx context.Context, id Identity, scope cohort.Scope) ([]Subject, error) {
	scope.Clean()
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if id.Branch != scope.Branch || id.CohortYear != scope.CohortYear {
		return nil, ErrUnauthorized
	}
	return svc.repo.QuerySubjects(ctx, cohort.Filter(scope))
}

// ByFaculty returns the subjects taught by a faculty (exact name) within the filter.
func (svc *Service) ByFaculty(ctx context.Context, faculty string, filter cohort.Filter) ([]Subject, error) {
	filter.Clean()
	return svc.repo.QuerySubjectsByFaculty(ctx, core.CleanString(faculty), filter)
}

// Semesters returns the classes having subjects for a branch/cohort.
func (svc *Service) Semesters(ctx context.Context, scope cohort.BranchScope) ([]string, error) {
	scope.Clean()
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	return svc.repo.DistinctSubjectValues(ctx, "class", cohort.Filter{Branch: scope.Branch, CohortYear: scope.CohortYear})
}

// Faculties returns the distinct faculties of a scope.
func (svc *Service) Faculties(ctx context.Context, filter cohort.Filter) ([]string, error) {
	filter.Clean()
	return svc.repo.DistinctSubjectValues(ctx, "faculty", filter)
}

// Catalog lists every class, branch and cohort year having subjects.
func (svc *Service) Catalog(ctx context.Context) (Catalog, error) {
	var (
		cat Catalog
		err error
	)
	if cat.Classes, err = svc.repo.DistinctSubjectValues(ctx, "class", cohort.Filter{}); err != nil {
		return Catalog{}, errors.Wrap(err, "listing classes")
	}
	if cat.Branches, err = svc.repo.DistinctSubjectValues(ctx, "branch", cohort.Filter{}); err != nil {
		return Catalog{}, errors.Wrap(err, "listing branches")
	}
	if cat.CohortYears, err = svc.repo.DistinctSubjectValues(ctx, "cohort_year", cohort.Filter{}); err != nil {
		return Catalog{}, errors.Wrap(err, "listing cohort years")
	}
	return cat, nil
}
