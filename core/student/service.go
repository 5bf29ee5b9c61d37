package student

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("student")
	ErrStudentExists      = errors.New("a student with this hallticket already exists in this cohort")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = core.NewValidationError(errors.New("invalid credentials"))
	ErrNotRegistered      = core.NewValidationError(errors.New("student is not registered yet"))
	ErrAlreadyRegistered  = core.NewStateConflictError("this hallticket is already registered")
	ErrUnknownHallticket  = core.NewValidationError(
		errors.New("hallticket not found in system"),
		core.FieldError{Field: "hallticket", Error: "hallticket not found in system"},
	)
)

type (
	Repository interface {
		GetStudent(ctx context.Context, hallticket, cohortYear string, exec ...core.DBExecutor) (Student, error)
		// QueryStudentsByHallticket returns every cohort record of a hallticket, latest cohort first.
		QueryStudentsByHallticket(ctx context.Context, hallticket string, exec ...core.DBExecutor) ([]Student, error)
		GetStudentByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (Student, error)
		// CreateStudent fails with ErrStudentExists when (hallticket, cohortYear) is taken.
		CreateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		UpdateStudentIdentity(ctx context.Context, hallticket, cohortYear, name, branch string, exec ...core.DBExecutor) (Student, error)
		// SetStudentCredentials sets (or clears, with "" and nil) the registration state.
		SetStudentCredentials(ctx context.Context, hallticket, cohortYear, email string, pwdHash []byte, exec ...core.DBExecutor) (Student, error)
		QueryStudents(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
		CountStudents(ctx context.Context, scope cohort.BranchScope, exec ...core.DBExecutor) (int, error)
	}

	// SubmissionStubber creates the (unsubmitted) submission record of a student for a class,
	// leaving an existing one untouched.
	SubmissionStubber interface {
		EnsureSubmission(ctx context.Context, hallticket string, scope cohort.Scope, exec ...core.DBExecutor) error
	}

	Service struct {
		repo    Repository
		stubber SubmissionStubber
		opts    IngestOptions
	}
)

func NewService(repo Repository, stubber SubmissionStubber, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		stubber: stubber,
		opts:    ingestOptionsFrom(conf),
	}
}

// Get returns the Student of a cohort.
func (svc *Service) Get(ctx context.Context, hallticket, cohortYear string) (Student, error) {
	return svc.repo.GetStudent(ctx, core.CleanString(hallticket), core.CleanString(cohortYear))
}

// Latest returns the record of the most recent cohort of a hallticket.
func (svc *Service) Latest(ctx context.Context, hallticket string) (Student, error) {
	students, err := svc.repo.QueryStudentsByHallticket(ctx, core.CleanString(hallticket))
	if err != nil {
		return Student{}, errors.Wrap(err, "querying students by hallticket")
	}
	if len(students) == 0 {
		return Student{}, ErrNotFound
	}
	return students[0], nil
}

// Register completes the self-registration of an imported student.
// Without a cohort year, the latest cohort record of the hallticket is registered.
func (svc *Service) Register(ctx context.Context, nr NewRegistration) (Student, error) {
	var (
		std Student
		err error
	)
	if nr.CohortYear != "" {
		std, err = svc.Get(ctx, nr.Hallticket, nr.CohortYear)
	} else {
		std, err = svc.Latest(ctx, nr.Hallticket)
	}
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Student{}, ErrUnknownHallticket
		}
		return Student{}, errors.Wrap(err, "finding student")
	}
	if std.IsRegistered() {
		return Student{}, ErrAlreadyRegistered
	}

	email := core.CleanString(nr.Email, true /* lower */)
	if _, err = svc.repo.GetStudentByEmail(ctx, email); err == nil {
		return Student{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return Student{}, errors.Wrap(err, "finding student by email")
	}

	if err = std.SetPassword(nr.Password); err != nil {
		return Student{}, errors.Wrap(err, "hashing password")
	}
	std, err = svc.repo.SetStudentCredentials(ctx, std.Hallticket, std.CohortYear, email, std.PasswordHash)
	if err != nil {
		return Student{}, errors.Wrap(err, "saving student credentials")
	}
	return std, nil
}

// Authenticate checks a hallticket/password pair against the cohort records of the hallticket,
// latest cohort first.
func (svc *Service) Authenticate(ctx context.Context, hallticket, pwd string) (Student, error) {
	students, err := svc.repo.QueryStudentsByHallticket(ctx, core.CleanString(hallticket))
	if err != nil {
		return Student{}, errors.Wrap(err, "querying students by hallticket")
	}
	for _, std := range students {
		if len(std.PasswordHash) == 0 {
			continue
		}
		if std.CheckPassword(pwd) == nil {
			return std, nil
		}
	}
	return Student{}, ErrInvalidCredentials
}

func (svc *Service) CheckHallticket(ctx context.Context, hallticket string) (HallticketStatus, error) {
	std, err := svc.Latest(ctx, hallticket)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return HallticketStatus{Message: "Hallticket not found in system"}, nil
		}
		return HallticketStatus{}, err
	}
	if std.IsRegistered() {
		return HallticketStatus{Exists: true, Registered: true, Message: "Hallticket already registered"}, nil
	}
	return HallticketStatus{Exists: true, Message: "Hallticket available for registration"}, nil
}

func (svc *Service) CheckEmail(ctx context.Context, email string) (EmailStatus, error) {
	_, err := svc.repo.GetStudentByEmail(ctx, core.CleanString(email, true /* lower */))
	switch {
	case err == nil:
		return EmailStatus{Message: "Email already registered"}, nil
	case errors.Cause(err) == ErrNotFound:
		return EmailStatus{Available: true, Message: "Email available"}, nil
	}
	return EmailStatus{}, errors.Wrap(err, "finding student by email")
}

// ResetRegistration clears the email and credential of a registered student so they can register again.
func (svc *Service) ResetRegistration(ctx context.Context, hallticket, cohortYear string) (Student, error) {
	hallticket = core.CleanString(hallticket)
	cohortYear = core.CleanString(cohortYear)
	if hallticket == "" || cohortYear == "" {
		return Student{}, core.NewValidationError(errors.New("hallticket and cohort year are required"))
	}

	std, err := svc.repo.GetStudent(ctx, hallticket, cohortYear)
	if err != nil {
		return Student{}, err
	}
	if !std.IsRegistered() {
		return Student{}, ErrNotRegistered
	}
	std, err = svc.repo.SetStudentCredentials(ctx, hallticket, cohortYear, "", nil)
	if err != nil {
		return Student{}, errors.Wrap(err, "clearing student credentials")
	}
	return std, nil
}

// QueryWithStatus lists the students of a branch/cohort with their registration status.
func (svc *Service) QueryWithStatus(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]WithStatus, error) {
	filter.Clean()
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	students, err := svc.repo.QueryStudents(ctx, filter, cleanOrdering(ordering))
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	list := make([]WithStatus, 0, len(students))
	for _, std := range students {
		list = append(list, std.WithStatus())
	}
	return list, nil
}

// Count returns how many students belong to a branch/cohort.
func (svc *Service) Count(ctx context.Context, scope cohort.BranchScope) (int, error) {
	return svc.repo.CountStudents(ctx, scope)
}

var orderingFields = []string{"branch", "cohort_year", "email", "hallticket", "name"}

// cleanOrdering drops unknown fields; the default ordering is by hallticket.
func cleanOrdering(ordering []core.DBOrdering) []core.DBOrdering {
	cleaned := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if i := sort.SearchStrings(orderingFields, ord.Field); i < len(orderingFields) && orderingFields[i] == ord.Field {
			cleaned = append(cleaned, ord)
		}
	}
	if len(cleaned) == 0 {
		cleaned = append(cleaned, core.DBOrdering{Field: "hallticket", Ascending: true})
	}
	return cleaned
}
