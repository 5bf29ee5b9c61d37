// Package report turns raw feedback ratings into faculty, class and department percentages.
//
// A percentage is the average score on the 1-5 scale times 20. Empty groups score 0 and
// groups holding malformed ratings (score out of scale, no answers) score 0 but stay listed.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/faculty"
	"github.com/trezcool/feedback/core/feedback"
	"github.com/trezcool/feedback/core/round"
	"github.com/trezcool/feedback/core/subject"
)

// Round values of history entries without usable ratings.
const (
	RoundNoData = "no-data"
	RoundError  = "error"
)

var (
	hundred  = decimal.NewFromInt(100)
	maxScore = decimal.NewFromInt(core.MaxScore)
)

// Percentage converts a sum of scores over a number of responses to a 2 decimals percentage.
func Percentage(totalScore, responses int) float64 {
	if responses <= 0 {
		return 0
	}
	pct, _ := decimal.NewFromInt(int64(totalScore)).
		Div(decimal.NewFromInt(int64(responses)).Mul(maxScore)).
		Mul(hundred).
		Round(2).
		Float64()
	return pct
}

// Average is totalScore / responses with 2 decimals; 0 without responses.
func Average(totalScore, responses int) float64 {
	if responses <= 0 {
		return 0
	}
	avg, _ := decimal.NewFromInt(int64(totalScore)).Div(decimal.NewFromInt(int64(responses))).Round(2).Float64()
	return avg
}

// tally accumulates the ratings of one group.
type tally struct {
	total     int
	responses int
	malformed bool
	students  map[string]struct{}
}

func newTally() *tally {
	return &tally{students: make(map[string]struct{})}
}

func (t *tally) add(fb feedback.Feedback) {
	t.students[fb.Hallticket] = struct{}{}
	if len(fb.Answers) == 0 {
		t.malformed = true
		return
	}
	for _, ans := range fb.Answers {
		t.addScore(ans.Score)
	}
}

func (t *tally) addScore(score int) {
	if score < core.MinScore || score > core.MaxScore {
		t.malformed = true
		return
	}
	t.total += score
	t.responses++
}

func (t *tally) percentage() float64 {
	if t.malformed {
		return 0
	}
	return Percentage(t.total, t.responses)
}

func (t *tally) average() float64 {
	if t.malformed {
		return 0
	}
	return Average(t.total, t.responses)
}

type (
	ParameterScore struct {
		Question   string  `json:"question"`
		AvgScore   float64 `json:"avg_score"`
		Percentage float64 `json:"percentage"`
	}

	// FacultyPerformance is the rating of one faculty for one subject and round, per question.
	FacultyPerformance struct {
		Faculty           string             `json:"faculty"`
		Subject           string             `json:"subject"`
		Class             string             `json:"class"`
		Branch            string             `json:"branch"`
		CohortYear        string             `json:"cohort_year"`
		Round             round.Round        `json:"round"`
		AvgScores         map[string]float64 `json:"avg_scores"`
		Parameters        []ParameterScore   `json:"parameters"`
		OverallPercentage float64            `json:"overall_percentage"`
		StudentCount      int                `json:"student_count"`
	}

	ClassReportRow struct {
		Subject           string  `json:"subject"`
		Faculty           string  `json:"faculty"`
		OverallPercentage float64 `json:"overall_percentage"`
		StudentCount      int     `json:"student_count"`
	}

	DepartmentReportRow struct {
		Class             string  `json:"class"`
		OverallPercentage float64 `json:"overall_percentage"`
		StudentCount      int     `json:"student_count"`
	}

	HistoryEntry struct {
		Faculty           string   `json:"faculty"`
		Subject           string   `json:"subject"`
		Class             string   `json:"class"`
		Branch            string   `json:"branch"`
		CohortYear        string   `json:"cohort_year"`
		OverallPercentage float64  `json:"overall_percentage"`
		StudentCount      int      `json:"student_count"`
		Round             string   `json:"round"`
		IsLab             bool     `json:"is_lab"`
		Labs              []string `json:"labs"`
		SubjectsHandled   []string `json:"subjects_handled"`
		TotalSuggestions  int      `json:"total_suggestions"`
	}
)

// AggregateFacultyPerformance groups the feedbacks by (subject, faculty, round).
// Questions keep the order they first appear in.
func AggregateFacultyPerformance(fbs []feedback.Feedback) []FacultyPerformance {
	type groupKey struct {
		subject, faculty string
		round            round.Round
	}
	type group struct {
		perf      FacultyPerformance
		overall   *tally
		questions []string
		byQ       map[string]*tally
	}

	var order []groupKey
	groups := make(map[groupKey]*group)
	for _, fb := range fbs {
		key := groupKey{fb.Subject, fb.Faculty, fb.Round}
		g, ok := groups[key]
		if !ok {
			g = &group{
				perf: FacultyPerformance{
					Faculty:    fb.Faculty,
					Subject:    fb.Subject,
					Class:      fb.Class,
					Branch:     fb.Branch,
					CohortYear: fb.CohortYear,
					Round:      fb.Round,
				},
				overall: newTally(),
				byQ:     make(map[string]*tally),
			}
			groups[key] = g
			order = append(order, key)
		}
		g.overall.add(fb)
		for _, ans := range fb.Answers {
			t, ok := g.byQ[ans.Question]
			if !ok {
				t = newTally()
				g.byQ[ans.Question] = t
				g.questions = append(g.questions, ans.Question)
			}
			t.students[fb.Hallticket] = struct{}{}
			t.addScore(ans.Score)
		}
	}

	perfs := make([]FacultyPerformance, 0, len(order))
	for _, key := range order {
		g := groups[key]
		perf := g.perf
		perf.AvgScores = make(map[string]float64, len(g.questions))
		perf.Parameters = make([]ParameterScore, 0, len(g.questions))
		for _, q := range g.questions {
			t := g.byQ[q]
			perf.AvgScores[q] = t.average()
			perf.Parameters = append(perf.Parameters, ParameterScore{Question: q, AvgScore: t.average(), Percentage: t.percentage()})
		}
		perf.OverallPercentage = g.overall.percentage()
		perf.StudentCount = len(g.overall.students)
		perfs = append(perfs, perf)
	}
	sort.SliceStable(perfs, func(i, j int) bool {
		if perfs[i].Subject != perfs[j].Subject {
			return perfs[i].Subject < perfs[j].Subject
		}
		return perfs[i].Round < perfs[j].Round
	})
	return perfs
}

// AggregateClass groups the feedbacks of a class by (subject, faculty).
func AggregateClass(fbs []feedback.Feedback) []ClassReportRow {
	type groupKey struct{ subject, faculty string }
	var order []groupKey
	tallies := make(map[groupKey]*tally)
	for _, fb := range fbs {
		key := groupKey{fb.Subject, fb.Faculty}
		t, ok := tallies[key]
		if !ok {
			t = newTally()
			tallies[key] = t
			order = append(order, key)
		}
		t.add(fb)
	}

	rows := make([]ClassReportRow, 0, len(order))
	for _, key := range order {
		t := tallies[key]
		rows = append(rows, ClassReportRow{
			Subject:           key.subject,
			Faculty:           key.faculty,
			OverallPercentage: t.percentage(),
			StudentCount:      len(t.students),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Subject != rows[j].Subject {
			return rows[i].Subject < rows[j].Subject
		}
		return rows[i].Faculty < rows[j].Faculty
	})
	return rows
}

// AggregateDepartment groups the feedbacks of a branch/cohort by class.
func AggregateDepartment(fbs []feedback.Feedback) []DepartmentReportRow {
	var order []string
	tallies := make(map[string]*tally)
	for _, fb := range fbs {
		t, ok := tallies[fb.Class]
		if !ok {
			t = newTally()
			tallies[fb.Class] = t
			order = append(order, fb.Class)
		}
		t.add(fb)
	}

	rows := make([]DepartmentReportRow, 0, len(order))
	for _, class := range order {
		t := tallies[class]
		rows = append(rows, DepartmentReportRow{
			Class:             class,
			OverallPercentage: t.percentage(),
			StudentCount:      len(t.students),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Class < rows[j].Class })
	return rows
}

func newHistoryEntry(subj subject.Subject) HistoryEntry {
	entry := HistoryEntry{
		Faculty:         subj.Faculty,
		Subject:         subj.Subject,
		Class:           subj.Class,
		Branch:          subj.Branch,
		CohortYear:      subj.CohortYear,
		Round:           RoundNoData,
		IsLab:           faculty.IsLab(subj.Subject),
		Labs:            []string{},
		SubjectsHandled: []string{subj.Subject},
	}
	if entry.IsLab {
		entry.Labs = append(entry.Labs, subj.Subject)
	}
	return entry
}

// errorHistoryEntry lists a subject whose ratings could not be read.
func errorHistoryEntry(subj subject.Subject) HistoryEntry {
	entry := newHistoryEntry(subj)
	entry.Round = RoundError
	entry.Labs = []string{}
	return entry
}

// HistoryEntryFor rates one taught subject from its feedbacks of both rounds:
// the final round wins over the initial one, and a subject nobody rated is still listed.
func HistoryEntryFor(subj subject.Subject, fbs []feedback.Feedback) HistoryEntry {
	entry := newHistoryEntry(subj)
	if len(fbs) == 0 {
		return entry
	}

	var initial, final []feedback.Feedback
	for _, fb := range fbs {
		switch fb.Round {
		case round.Final:
			final = append(final, fb)
		case round.Initial:
			initial = append(initial, fb)
		}
		if core.CleanString(fb.Suggestion) != "" {
			entry.TotalSuggestions++
		}
	}

	picked := initial
	entry.Round = string(round.Initial)
	if len(final) > 0 {
		picked = final
		entry.Round = string(round.Final)
	} else if len(initial) == 0 {
		entry.Round = RoundNoData
		return entry
	}

	t := newTally()
	for _, fb := range picked {
		t.add(fb)
	}
	if t.malformed {
		return errorHistoryEntry(subj)
	}
	entry.OverallPercentage = t.percentage()
	entry.StudentCount = len(t.students)
	return entry
}

// SortHistory orders entries by cohort (latest first) then class.
func SortHistory(entries []HistoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CohortYear != entries[j].CohortYear {
			return entries[i].CohortYear > entries[j].CohortYear
		}
		return entries[i].Class < entries[j].Class
	})
}
