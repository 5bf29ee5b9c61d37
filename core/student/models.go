package student

import (
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
)

// Student is an identity record of one cohort. The same hallticket may exist under several cohorts.
type Student struct {
	Name         string `json:"name"`
	Hallticket   string `json:"hallticket"`
	Branch       string `json:"branch"`
	CohortYear   string `json:"cohort_year"`
	Email        string `json:"email,omitempty"`
	PasswordHash []byte `json:"-"`
}

func (s *Student) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.PasswordHash = hash
	return nil
}

func (s *Student) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(s.PasswordHash, []byte(pwd))
}

// IsRegistered reports whether the student completed self-registration.
func (s Student) IsRegistered() bool {
	return s.Email != ""
}

// WithStatus is the admin view of a Student.
type WithStatus struct {
	Name       string  `json:"name"`
	Hallticket string  `json:"hallticket"`
	Branch     string  `json:"branch"`
	CohortYear string  `json:"cohort_year"`
	Registered bool    `json:"registered"`
	Email      *string `json:"email"`
}

func (s Student) WithStatus() WithStatus {
	ws := WithStatus{
		Name:       s.Name,
		Hallticket: s.Hallticket,
		Branch:     s.Branch,
		CohortYear: s.CohortYear,
		Registered: s.IsRegistered(),
	}
	if s.IsRegistered() {
		email := s.Email
		ws.Email = &email
	}
	return ws
}

// Row is one line of a students file.
type Row struct {
	Line       int    `json:"line"`
	Name       string `json:"name" validate:"required"`
	Hallticket string `json:"hallticket" validate:"required"`
	Branch     string `json:"branch" validate:"required"`
}

func (r *Row) Clean() {
	r.Name = core.CleanString(r.Name)
	r.Hallticket = core.CleanString(r.Hallticket)
	r.Branch = core.CleanString(r.Branch)
}

// Validate checks the row without any validator instance (the ingestion also runs from the CLI).
func (r Row) Validate() error {
	var flds []core.FieldError
	if r.Name == "" {
		flds = append(flds, core.FieldError{Field: "name", Error: "this field is required"})
	}
	if r.Hallticket == "" {
		flds = append(flds, core.FieldError{Field: "hallticket", Error: "this field is required"})
	}
	if r.Branch == "" {
		flds = append(flds, core.FieldError{Field: "branch", Error: "this field is required"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// NewRegistration contains information needed to register a Student.
type NewRegistration struct {
	Hallticket string `json:"hallticket" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	CohortYear string `json:"cohort_year" validate:"omitempty,yearrange"`
}

func (nr *NewRegistration) Validate(validate *validator.Validate) error {
	nr.Hallticket = core.CleanString(nr.Hallticket)
	nr.Email = core.CleanString(nr.Email, true /* lower */)
	nr.CohortYear = core.CleanString(nr.CohortYear)
	return validate.Struct(nr)
}

// QueryFilter selects the students of a branch within a cohort.
type QueryFilter struct {
	cohort.BranchScope
	Registered *bool `query:"registered"`
}

// HallticketStatus answers "may this hallticket register?".
type HallticketStatus struct {
	Exists     bool   `json:"exists"`
	Registered bool   `json:"registered"`
	Message    string `json:"message"`
}

// EmailStatus answers "is this email still free?".
type EmailStatus struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}
