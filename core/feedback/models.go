// Package feedback records student ratings, at most once per student, class and round.
package feedback

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/round"
)

// Questions is the fixed, ordered set of rated parameters.
var Questions = []string{
	"Punctuality of teacher",
	"Explanation of the topic/concepts",
	"Clarification of doubts",
	"Utilization of time",
	"Completion of syllabus in time",
	"Communication skills",
	"Teacher's commands and control of the class",
	"Attitude of the teacher towards the students",
	"Use of board & audio visual aids by the teacher",
	"Your opinion about the teacher",
}

type Answer struct {
	Question string `json:"question" validate:"required"`
	Score    int    `json:"score" validate:"score"`
}

// Feedback is the raw rating of one subject/faculty by one student for one round.
type Feedback struct {
	ID          string      `json:"id"`
	Hallticket  string      `json:"hallticket"`
	Class       string      `json:"class"`
	Branch      string      `json:"branch"`
	CohortYear  string      `json:"cohort_year"`
	Subject     string      `json:"subject"`
	Faculty     string      `json:"faculty"`
	Round       round.Round `json:"round"`
	Answers     []Answer    `json:"answers"`
	Suggestion  string      `json:"suggestion"`
	SubmittedAt time.Time   `json:"submitted_at"`
}

func (fb Feedback) Scope() cohort.Scope {
	return cohort.Scope{Class: fb.Class, Branch: fb.Branch, CohortYear: fb.CohortYear}
}

// SubmissionKey identifies the submission record of a student for a class.
type SubmissionKey struct {
	Hallticket string
	cohort.Scope
}

func (k SubmissionKey) String() string {
	return k.Hallticket + "@" + k.Scope.String()
}

// Submission tracks which rounds a student already rated for a class.
// Both flags only ever go from false to true.
type Submission struct {
	Hallticket       string     `json:"hallticket"`
	Class            string     `json:"class"`
	Branch           string     `json:"branch"`
	CohortYear       string     `json:"cohort_year"`
	InitialSubmitted bool       `json:"initial"`
	FinalSubmitted   bool       `json:"final"`
	InitialDate      *time.Time `json:"initial_date"`
	FinalDate        *time.Time `json:"final_date"`
}

func NewSubmission(key SubmissionKey) Submission {
	return Submission{
		Hallticket: key.Hallticket,
		Class:      key.Class,
		Branch:     key.Branch,
		CohortYear: key.CohortYear,
	}
}

func (s Submission) Key() SubmissionKey {
	return SubmissionKey{
		Hallticket: s.Hallticket,
		Scope:      cohort.Scope{Class: s.Class, Branch: s.Branch, CohortYear: s.CohortYear},
	}
}

// Submitted reports whether round r was already rated.
func (s Submission) Submitted(r round.Round) bool {
	switch r {
	case round.Initial:
		return s.InitialSubmitted
	case round.Final:
		return s.FinalSubmitted
	}
	return false
}

// Mark sets the flag and the date of round r.
func (s *Submission) Mark(r round.Round, at time.Time) {
	switch r {
	case round.Initial:
		s.InitialSubmitted = true
		s.InitialDate = &at
	case round.Final:
		s.FinalSubmitted = true
		s.FinalDate = &at
	}
}

// Identity is the authenticated student submitting feedback.
type Identity struct {
	Hallticket string
	Branch     string
	CohortYear string
}

type (
	SubjectAnswers struct {
		Subject string   `json:"subject" validate:"required"`
		Faculty string   `json:"faculty" validate:"required"`
		Answers []Answer `json:"answers" validate:"required,min=1,dive"`
	}

	SubmitRequest struct {
		Class      string           `json:"class" validate:"required,classcode"`
		Round      string           `json:"round" validate:"required,round"`
		Feedbacks  []SubjectAnswers `json:"feedbacks" validate:"required,min=1,dive"`
		Suggestion string           `json:"suggestion"`
	}

	SubmitResult struct {
		Accepted bool   `json:"success"`
		Count    int    `json:"count"`
		Message  string `json:"message"`
	}
)

func (req *SubmitRequest) Validate(validate *validator.Validate) error {
	req.Class = core.CleanString(req.Class)
	req.Round = core.CleanString(req.Round, true /* lower */)
	req.Suggestion = core.CleanString(req.Suggestion)
	for i := range req.Feedbacks {
		req.Feedbacks[i].Subject = core.CleanString(req.Feedbacks[i].Subject)
		req.Feedbacks[i].Faculty = core.CleanString(req.Feedbacks[i].Faculty)
	}
	if err := validate.Struct(req); err != nil {
		return err
	}
	return checkDuplicates(req.Feedbacks)
}

// Filter selects raw feedbacks. Empty fields match anything.
type Filter struct {
	cohort.Filter
	Subject string
	Faculty string
	Round   round.Round
}

func (f Filter) Matches(fb Feedback) bool {
	return f.Filter.Matches(fb.Class, fb.Branch, fb.CohortYear) &&
		(f.Subject == "" || f.Subject == fb.Subject) &&
		(f.Faculty == "" || f.Faculty == fb.Faculty) &&
		(f.Round == "" || f.Round == fb.Round)
}

type (
	RoundCount struct {
		Submitted int `json:"submitted"`
		Total     int `json:"total"`
	}

	// Counts compares the submissions of a class to the students of its branch.
	Counts struct {
		Initial RoundCount `json:"initial"`
		Final   RoundCount `json:"final"`
	}
)
