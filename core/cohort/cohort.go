// Package cohort derives the scoping key shared by students, subjects, submissions and round state.
//
// A cohort window ("entry-year-graduation-year") is computed once from the calendar academic year
// shown to users and the class/semester code. Every other package receives the derived window.
package cohort

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kat-co/vala"

	"github.com/trezcool/feedback/core"
)

// StudyYears is the length of a programme.
const StudyYears = 4

// Resolve derives the cohort window from a calendar academic year "Y1-Y2" and a class code "N-M".
// grad = Y1 + (4 - N); without a class code (or with an unparseable N) grad = Y1 + 4.
// When Y1 itself cannot be parsed the academic year is returned as is.
func Resolve(academicYear, class string) string {
	academicYear = strings.TrimSpace(academicYear)
	start, err := strconv.Atoi(strings.TrimSpace(strings.SplitN(academicYear, "-", 2)[0]))
	if err != nil {
		return academicYear
	}

	grad := start + StudyYears
	if year, ok := ClassYear(class); ok {
		grad = start + (StudyYears - year)
	}
	return fmt.Sprintf("%d-%d", start, grad)
}

// ClassYear returns N (the year of study) of a "N-M" class code.
func ClassYear(class string) (int, bool) {
	class = strings.TrimSpace(class)
	if class == "" {
		return 0, false
	}
	year, err := strconv.Atoi(strings.SplitN(class, "-", 2)[0])
	if err != nil {
		return 0, false
	}
	return year, true
}

// StartYear returns the entry year of a cohort window, or -1 if it cannot be parsed.
func StartYear(cohortYear string) int {
	start, err := strconv.Atoi(strings.SplitN(cohortYear, "-", 2)[0])
	if err != nil {
		return -1
	}
	return start
}

// Scope is the (class, branch, cohortYear) key scoping every record.
type Scope struct {
	Class      string `json:"class"`
	Branch     string `json:"branch"`
	CohortYear string `json:"cohort_year"`
}

// NewScope builds a Scope from a calendar academic year.
func NewScope(class, branch, academicYear string) Scope {
	class = core.CleanString(class)
	return Scope{
		Class:      class,
		Branch:     core.CleanString(branch),
		CohortYear: Resolve(academicYear, class),
	}
}

func (s *Scope) Clean() {
	s.Class = core.CleanString(s.Class)
	s.Branch = core.CleanString(s.Branch)
	s.CohortYear = core.CleanString(s.CohortYear)
}

// Validate reports every missing field of the Scope as a *core.ValidationError.
func (s Scope) Validate() error {
	return checkFields(
		field{"class", s.Class},
		field{"branch", s.Branch},
		field{"cohort_year", s.CohortYear},
	)
}

func (s Scope) String() string {
	return fmt.Sprintf("%s/%s/%s", s.Class, s.Branch, s.CohortYear)
}

// BranchScope is the department-level key: every class of a branch within one cohort window.
type BranchScope struct {
	Branch     string `json:"branch"`
	CohortYear string `json:"cohort_year"`
}

func (s *BranchScope) Clean() {
	s.Branch = core.CleanString(s.Branch)
	s.CohortYear = core.CleanString(s.CohortYear)
}

func (s BranchScope) Validate() error {
	return checkFields(
		field{"branch", s.Branch},
		field{"cohort_year", s.CohortYear},
	)
}

// Filter is a Scope where every field is optional (empty means "any").
type Filter struct {
	Class      string `json:"class,omitempty"`
	Branch     string `json:"branch,omitempty"`
	CohortYear string `json:"cohort_year,omitempty"`
}

func (f *Filter) Clean() {
	f.Class = core.CleanString(f.Class)
	f.Branch = core.CleanString(f.Branch)
	f.CohortYear = core.CleanString(f.CohortYear)
}

func (f Filter) IsEmpty() bool {
	return f.Class == "" && f.Branch == "" && f.CohortYear == ""
}

// Matches reports whether the given record scope fits the filter.
func (f Filter) Matches(class, branch, cohortYear string) bool {
	return (f.Class == "" || f.Class == class) &&
		(f.Branch == "" || f.Branch == branch) &&
		(f.CohortYear == "" || f.CohortYear == cohortYear)
}

type field struct {
	name  string
	value string
}

func checkFields(flds ...field) error {
	var errs []core.FieldError
	for _, f := range flds {
		if err := vala.BeginValidation().Validate(vala.StringNotEmpty(f.value, f.name)).Check(); err != nil {
			errs = append(errs, core.FieldError{Field: f.name, Error: "this field is required"})
		}
	}
	if len(errs) > 0 {
		return core.NewValidationError(nil, errs...)
	}
	return nil
}
