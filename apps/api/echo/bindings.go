package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/round"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// ScopeParams locates a cohort scope. The cohort is either given as is (cohort_year) or derived
// from the calendar academic year and the class (academic_year).
type ScopeParams struct {
	Class        string `json:"class" form:"class" query:"class"`
	Branch       string `json:"branch" form:"branch" query:"branch"`
	CohortYear   string `json:"cohort_year" form:"cohort_year" query:"cohort_year"`
	AcademicYear string `json:"academic_year" form:"academic_year" query:"academic_year"`
}

// Bind reads the scope from the query string or the (multipart) form.
func (p *ScopeParams) Bind(ctx echo.Context) {
	p.Class = ctx.FormValue("class")
	p.Branch = ctx.FormValue("branch")
	p.CohortYear = ctx.FormValue("cohort_year")
	p.AcademicYear = ctx.FormValue("academic_year")
}

func (p ScopeParams) cohortYear() string {
	if cy := core.CleanString(p.CohortYear); cy != "" {
		return cy
	}
	if ay := core.CleanString(p.AcademicYear); ay != "" {
		return cohort.Resolve(ay, p.Class)
	}
	return ""
}

func (p ScopeParams) Scope() cohort.Scope {
	s := cohort.Scope{Class: p.Class, Branch: p.Branch, CohortYear: p.cohortYear()}
	s.Clean()
	return s
}

// BranchScope drops the class, which still pins the cohort derived from an academic year.
func (p ScopeParams) BranchScope() cohort.BranchScope {
	s := cohort.BranchScope{Branch: p.Branch, CohortYear: p.cohortYear()}
	s.Clean()
	return s
}

func (p ScopeParams) Filter() cohort.Filter {
	f := cohort.Filter(p.Scope())
	f.Clean()
	return f
}

// bindRound reads the optional `round` query parameter ("" means every round).
func bindRound(ctx echo.Context) (round.Round, error) {
	return round.ParseOptional(ctx.QueryParam("round"))
}
