package cohort

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/feedback/core"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name         string
		academicYear string
		class        string
		want         string
	}{
		{name: "first year", academicYear: "2025-2026", class: "1-1", want: "2025-2028"},
		{name: "second year", academicYear: "2025-2026", class: "2-1", want: "2025-2027"},
		{name: "third year", academicYear: "2025-2026", class: "3-2", want: "2025-2026"},
		{name: "fourth year", academicYear: "2025-2026", class: "4-2", want: "2025-2025"},
		{name: "no class", academicYear: "2025-2026", want: "2025-2029"},
		{name: "unparseable class", academicYear: "2025-2026", class: "x-1", want: "2025-2029"},
		{name: "whitespace", academicYear: " 2024-2025 ", class: " 1-2 ", want: "2024-2027"},
		{name: "unparseable year", academicYear: "lol", class: "1-1", want: "lol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.academicYear, tt.class))
		})
	}
}

func TestResolveIsPure(t *testing.T) {
	first := Resolve("2025-2026", "1-1")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Resolve("2025-2026", "1-1"))
	}
}

func TestNewScope(t *testing.T) {
	s := NewScope(" 1-1 ", " CSE-A", "2025-2026")
	assert.Equal(t, Scope{Class: "1-1", Branch: "CSE-A", CohortYear: "2025-2028"}, s)
	assert.NoError(t, s.Validate())
}

func TestScopeValidate(t *testing.T) {
	err := Scope{Class: "1-1"}.Validate()
	if assert.Error(t, err) {
		vErr, ok := err.(*core.ValidationError)
		if assert.True(t, ok) {
			assert.ElementsMatch(t, []core.FieldError{
				{Field: "branch", Error: "this field is required"},
				{Field: "cohort_year", Error: "this field is required"},
			}, vErr.Fields)
		}
	}

	assert.True(t, core.IsValidation(BranchScope{}.Validate()))
	assert.NoError(t, BranchScope{Branch: "CSE-A", CohortYear: "2025-2029"}.Validate())
}

func TestFilterMatches(t *testing.T) {
	f := Filter{Branch: "CSE-A"}
	assert.True(t, f.Matches("1-1", "CSE-A", "2025-2029"))
	assert.False(t, f.Matches("1-1", "CSE-B", "2025-2029"))
	assert.True(t, Filter{}.Matches("x", "y", "z"))
	assert.True(t, Filter{}.IsEmpty())
}

func TestStartYear(t *testing.T) {
	assert.Equal(t, 2025, StartYear("2025-2029"))
	assert.Equal(t, -1, StartYear("lol"))
}
