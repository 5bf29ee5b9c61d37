package student

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/cohort"
)

type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeFailed  Outcome = "failed"
)

// IngestOptions throttles bulk ingestion.
type IngestOptions struct {
	Workers    int
	BatchSize  int
	BatchPause time.Duration
}

func ingestOptionsFrom(conf *core.Config) IngestOptions {
	opts := IngestOptions{Workers: 4, BatchSize: 25, BatchPause: 50 * time.Millisecond}
	if conf == nil {
		return opts
	}
	if conf.Ingest.Workers > 0 {
		opts.Workers = conf.Ingest.Workers
	}
	if conf.Ingest.BatchSize > 0 {
		opts.BatchSize = conf.Ingest.BatchSize
	}
	if conf.Ingest.BatchPause >= 0 {
		opts.BatchPause = conf.Ingest.BatchPause
	}
	return opts
}

// RowResult is the outcome of one ingested row.
type RowResult struct {
	Line       int     `json:"line"`
	Hallticket string  `json:"hallticket"`
	Outcome    Outcome `json:"outcome"`
	// Returning is set when the hallticket was already known under another cohort.
	Returning bool   `json:"returning,omitempty"`
	Err       error  `json:"-"`
	Error     string `json:"error,omitempty"`
}

func failed(row Row, err error) RowResult {
	return RowResult{Line: row.Line, Hallticket: row.Hallticket, Outcome: OutcomeFailed, Err: err, Error: err.Error()}
}

// IngestSummary aggregates the RowResults of a batch.
type IngestSummary struct {
	Processed int         `json:"processed"`
	New       int         `json:"new"`
	Updated   int         `json:"updated"`
	Errors    int         `json:"errors"`
	Failures  []RowResult `json:"failures,omitempty"`
}

// Successful is the number of rows that were created or updated.
func (s IngestSummary) Successful() int { return s.New + s.Updated }

// Err returns a *core.PartialBatchFailure when some rows failed.
func (s IngestSummary) Err() error {
	if s.Errors == 0 {
		return nil
	}
	return &core.PartialBatchFailure{Total: s.Processed, Failed: s.Errors}
}

func summarize(results []RowResult) IngestSummary {
	var sum IngestSummary
	for _, res := range results {
		sum.Processed++
		switch res.Outcome {
		case OutcomeCreated:
			sum.New++
		case OutcomeUpdated:
			sum.Updated++
		default:
			sum.Errors++
			sum.Failures = append(sum.Failures, res)
		}
	}
	return sum
}

// Ingest upserts the students of a file into the cohort of the scope.
// Rows run on a bounded worker pool, batch by batch; a failing row never aborts the batch.
// The returned error is only set when the whole ingestion could not run (invalid scope, cancelled context).
func (svc *Service) Ingest(ctx context.Context, rows []Row, scope cohort.Scope) (IngestSummary, error) {
	scope.Clean()
	if err := scope.Validate(); err != nil {
		return IngestSummary{}, err
	}

	results := make([]RowResult, len(rows))
	for start := 0; start < len(rows); start += svc.opts.BatchSize {
		end := start + svc.opts.BatchSize
		if end > len(rows) {
			end = len(rows)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(svc.opts.Workers)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				results[i] = svc.ingestRow(gctx, rows[i], scope)
				return nil
			})
		}
		_ = g.Wait() // row errors live in results

		if end < len(rows) && svc.opts.BatchPause > 0 {
			select {
			case <-ctx.Done():
				return summarize(results[:end]), errors.Wrap(ctx.Err(), "ingesting students")
			case <-time.After(svc.opts.BatchPause):
			}
		}
	}
	return summarize(results), nil
}

func (svc *Service) ingestRow(ctx context.Context, row Row, scope cohort.Scope) RowResult {
	row.Clean()
	if err := row.Validate(); err != nil {
		return failed(row, err)
	}

	res := RowResult{Line: row.Line, Hallticket: row.Hallticket}
	outcome, returning, err := svc.upsert(ctx, row, scope.CohortYear)
	if err != nil {
		return failed(row, err)
	}
	res.Outcome = outcome
	res.Returning = returning

	if err = svc.stubber.EnsureSubmission(ctx, row.Hallticket, scope); err != nil {
		return failed(row, errors.Wrap(err, "creating submission record"))
	}
	return res
}

// upsert applies the identity rules of one row: same (hallticket, cohort) => update the identity
// fields and keep the credentials; otherwise create a fresh, unregistered record for this cohort,
// whether or not the hallticket is known under another cohort.
func (svc *Service) upsert(ctx context.Context, row Row, cohortYear string) (Outcome, bool, error) {
	_, err := svc.repo.GetStudent(ctx, row.Hallticket, cohortYear)
	switch {
	case err == nil:
		if _, err = svc.repo.UpdateStudentIdentity(ctx, row.Hallticket, cohortYear, row.Name, row.Branch); err != nil {
			return OutcomeFailed, false, errors.Wrap(err, "updating student")
		}
		return OutcomeUpdated, false, nil
	case errors.Cause(err) != ErrNotFound:
		return OutcomeFailed, false, errors.Wrap(err, "finding student")
	}

	others, err := svc.repo.QueryStudentsByHallticket(ctx, row.Hallticket)
	if err != nil {
		return OutcomeFailed, false, errors.Wrap(err, "finding student in other cohorts")
	}

	std := Student{
		Name:       row.Name,
		Hallticket: row.Hallticket,
		Branch:     row.Branch,
		CohortYear: cohortYear,
	}
	// imported students may log in with their hallticket until they register
	if err = std.SetPassword(row.Hallticket); err != nil {
		return OutcomeFailed, false, errors.Wrap(err, "hashing default password")
	}
	if _, err = svc.repo.CreateStudent(ctx, std); err != nil {
		if errors.Cause(err) == ErrStudentExists {
			// the same hallticket appeared twice in the file and the other row won the race
			if _, err = svc.repo.UpdateStudentIdentity(ctx, row.Hallticket, cohortYear, row.Name, row.Branch); err != nil {
				return OutcomeFailed, false, errors.Wrap(err, "updating student")
			}
			return OutcomeUpdated, false, nil
		}
		return OutcomeFailed, false, errors.Wrap(err, "creating student")
	}
	return OutcomeCreated, len(others) > 0, nil
}
