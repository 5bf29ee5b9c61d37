package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/feedback"
	"github.com/trezcool/feedback/core/round"
)

const (
	submissionColumns = "hallticket, class, branch, cohort_year, initial_submitted, final_submitted, initial_date, final_date"
	feedbackColumns   = "id, hallticket, class, branch, cohort_year, subject, faculty, round, answers, suggestion, submitted_at"
)

type submissionRow struct {
	Hallticket       string    `db:"hallticket"`
	Class            string    `db:"class"`
	Branch           string    `db:"branch"`
	CohortYear       string    `db:"cohort_year"`
	InitialSubmitted bool      `db:"initial_submitted"`
	FinalSubmitted   bool      `db:"final_submitted"`
	InitialDate      null.Time `db:"initial_date"`
	FinalDate        null.Time `db:"final_date"`
}

func (row submissionRow) toSubmission() feedback.Submission {
	return feedback.Submission{
		Hallticket:       row.Hallticket,
		Class:            row.Class,
		Branch:           row.Branch,
		CohortYear:       row.CohortYear,
		InitialSubmitted: row.InitialSubmitted,
		FinalSubmitted:   row.FinalSubmitted,
		InitialDate:      row.InitialDate.Ptr(),
		FinalDate:        row.FinalDate.Ptr(),
	}
}

type feedbackRow struct {
	ID          string    `db:"id"`
	Hallticket  string    `db:"hallticket"`
	Class       string    `db:"class"`
	Branch      string    `db:"branch"`
	CohortYear  string    `db:"cohort_year"`
	Subject     string    `db:"subject"`
	Faculty     string    `db:"faculty"`
	Round       string    `db:"round"`
	Answers     null.JSON `db:"answers"`
	Suggestion  string    `db:"suggestion"`
	SubmittedAt time.Time `db:"submitted_at"`
}

func newFeedbackRow(fb feedback.Feedback) (feedbackRow, error) {
	answers, err := json.Marshal(fb.Answers)
	if err != nil {
		return feedbackRow{}, errors.Wrap(err, "encoding answers")
	}
	return feedbackRow{
		ID:          fb.ID,
		Hallticket:  fb.Hallticket,
		Class:       fb.Class,
		Branch:      fb.Branch,
		CohortYear:  fb.CohortYear,
		Subject:     fb.Subject,
		Faculty:     fb.Faculty,
		Round:       fb.Round.String(),
		Answers:     null.JSONFrom(answers),
		Suggestion:  fb.Suggestion,
		SubmittedAt: fb.SubmittedAt.UTC(),
	}, nil
}

// toFeedback decodes the answers leniently: malformed answers come back empty
// and are reported by the aggregations.
func (row feedbackRow) toFeedback() feedback.Feedback {
	var answers []feedback.Answer
	if row.Answers.Valid {
		_ = row.Answers.Unmarshal(&answers)
	}
	return feedback.Feedback{
		ID:          row.ID,
		Hallticket:  row.Hallticket,
		Class:       row.Class,
		Branch:      row.Branch,
		CohortYear:  row.CohortYear,
		Subject:     row.Subject,
		Faculty:     row.Faculty,
		Round:       round.Round(row.Round),
		Answers:     answers,
		Suggestion:  row.Suggestion,
		SubmittedAt: row.SubmittedAt,
	}
}

// submittedColumns maps a round to its flag and date columns.
var submittedColumns = map[round.Round][2]string{
	round.Initial: {"initial_submitted", "initial_date"},
	round.Final:   {"final_submitted", "final_date"},
}

type feedbackRepository struct {
	repository
}

var _ feedback.Repository = (*feedbackRepository)(nil) // interface compliance check

func NewFeedbackRepository(exec core.DBExecutor) feedback.Repository {
	return &feedbackRepository{repository{exec: exec}}
}

func keyArgs(key feedback.SubmissionKey) []interface{} {
	return []interface{}{key.Hallticket, key.Class, key.Branch, key.CohortYear}
}

const submissionKeyClause = "hallticket = ? AND class = ? AND branch = ? AND cohort_year = ?"

func (repo feedbackRepository) GetSubmission(ctx context.Context, key feedback.SubmissionKey, forUpdate bool, exec ...core.DBExecutor) (feedback.Submission, error) {
	exe := repo.getExec(exec)
	q := "SELECT " + submissionColumns + " FROM feedback_submission WHERE " + submissionKeyClause
	if forUpdate {
		q += " FOR UPDATE"
	}
	var row submissionRow
	if err := exe.GetContext(ctx, &row, exe.Rebind(q), keyArgs(key)...); err != nil {
		return feedback.Submission{}, trapNoRowsErr(err, feedback.ErrSubmissionNotFound, "getting submission")
	}
	return row.toSubmission(), nil
}

func (repo feedbackRepository) CreateSubmission(ctx context.Context, key feedback.SubmissionKey, exec ...core.DBExecutor) (bool, error) {
	exe := repo.getExec(exec)
	q := `INSERT INTO feedback_submission (hallticket, class, branch, cohort_year)
		VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`
	res, err := exe.ExecContext(ctx, exe.Rebind(q), keyArgs(key)...)
	if err != nil {
		return false, errors.Wrap(err, "inserting submission")
	}
	n, err := rowsAffected(res, "inserting submission")
	return n > 0, err
}

func (repo feedbackRepository) MarkSubmitted(ctx context.Context, key feedback.SubmissionKey, r round.Round, at time.Time, exec ...core.DBExecutor) (bool, error) {
	cols, ok := submittedColumns[r]
	if !ok {
		return false, round.ErrInvalidRound
	}
	exe := repo.getExec(exec)
	q := "UPDATE feedback_submission SET " + cols[0] + " = true, " + cols[1] + " = ? WHERE " +
		submissionKeyClause + " AND NOT " + cols[0]
	args := append([]interface{}{at.UTC()}, keyArgs(key)...)
	res, err := exe.ExecContext(ctx, exe.Rebind(q), args...)
	if err != nil {
		return false, errors.Wrap(err, "marking submission")
	}
	n, err := rowsAffected(res, "marking submission")
	return n == 1, err
}

func (repo feedbackRepository) QuerySubmissions(ctx context.Context, scope cohort.Scope, exec ...core.DBExecutor) ([]feedback.Submission, error) {
	exe := repo.getExec(exec)
	var rows []submissionRow
	q := "SELECT " + submissionColumns + " FROM feedback_submission WHERE class = ? AND branch = ? AND cohort_year = ? ORDER BY hallticket"
	if err := exe.SelectContext(ctx, &rows, exe.Rebind(q), scope.Class, scope.Branch, scope.CohortYear); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]feedback.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.toSubmission())
	}
	return subs, nil
}

func (repo feedbackRepository) CountSubmitted(ctx context.Context, scope cohort.Scope, r round.Round, exec ...core.DBExecutor) (int, error) {
	cols, ok := submittedColumns[r]
	if !ok {
		return 0, round.ErrInvalidRound
	}
	exe := repo.getExec(exec)
	var count int
	q := "SELECT COUNT(*) FROM feedback_submission WHERE class = ? AND branch = ? AND cohort_year = ? AND " + cols[0]
	if err := exe.GetContext(ctx, &count, exe.Rebind(q), scope.Class, scope.Branch, scope.CohortYear); err != nil {
		return 0, errors.Wrap(err, "counting submissions")
	}
	return count, nil
}

func (repo feedbackRepository) CreateFeedbacks(ctx context.Context, fbs []feedback.Feedback, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	q := `INSERT INTO feedback (` + feedbackColumns + `)
		VALUES (:id, :hallticket, :class, :branch, :cohort_year, :subject, :faculty, :round, :answers, :suggestion, :submitted_at)`
	for _, fb := range fbs {
		row, err := newFeedbackRow(fb)
		if err != nil {
			return err
		}
		if _, err = exe.NamedExecContext(ctx, q, row); err != nil {
			if isUniqueViolation(err) {
				return feedback.ErrDuplicateFeedback
			}
			return errors.Wrap(err, "inserting feedback")
		}
	}
	return nil
}

func (repo feedbackRepository) QueryFeedbacks(ctx context.Context, filter feedback.Filter, exec ...core.DBExecutor) ([]feedback.Feedback, error) {
	exe := repo.getExec(exec)
	var w where
	w.scope(filter.Filter)
	w.addIf(filter.Subject != "", "subject = ?", filter.Subject)
	w.addIf(filter.Faculty != "", "faculty = ?", filter.Faculty)
	w.addIf(filter.Round != "", "round = ?", filter.Round.String())

	var rows []feedbackRow
	q := "SELECT " + feedbackColumns + " FROM feedback" + w.String() + " ORDER BY submitted_at, id"
	if err := exe.SelectContext(ctx, &rows, exe.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying feedbacks")
	}
	fbs := make([]feedback.Feedback, 0, len(rows))
	for _, row := range rows {
		fbs = append(fbs, row.toFeedback())
	}
	return fbs, nil
}
