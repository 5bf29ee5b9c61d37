package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/csvimport"
)

func (cli *commandLine) resetRegistration(ctx context.Context, hallticket, cohortYear string) error {
	std, err := cli.students.ResetRegistration(ctx, hallticket, cohortYear)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Registration of %s (%s) reset: they may register again.\n", std.Hallticket, std.CohortYear)
	return nil
}

func (cli *commandLine) importStudents(ctx context.Context, path string, scope cohort.Scope) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening students file")
	}
	defer func() { _ = f.Close() }()

	rows, err := csvimport.ParseStudents(f)
	if err != nil {
		return err
	}
	summary, err := cli.students.Ingest(ctx, rows, scope)
	if err != nil {
		return describeValidation(err, cli.translator)
	}

	fmt.Fprintf(cli.out, "Processed %d students: %d new, %d updated\n", summary.Processed, summary.New, summary.Updated)
	for _, res := range summary.Failures {
		fmt.Fprintf(cli.out, "  line %d (%s): %s\n", res.Line, res.Hallticket, res.Error)
	}
	return summary.Err()
}
