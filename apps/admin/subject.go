package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/csvimport"
)

func (cli *commandLine) importSubjects(ctx context.Context, path string, scope cohort.Scope) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening subjects file")
	}
	defer func() { _ = f.Close() }()

	rows, err := csvimport.ParseSubjects(f)
	if err != nil {
		return err
	}
	res, err := cli.subjects.Replace(ctx, scope, rows)
	if err != nil {
		return describeValidation(err, cli.translator)
	}
	fmt.Fprintf(cli.out, "Subjects of %s %s (%s) replaced: %d processed, %d inserted.\n",
		scope.Branch, scope.Class, scope.CohortYear, res.Processed, res.Inserted)
	return nil
}

func (cli *commandLine) cleanupFaculty(ctx context.Context) error {
	res, err := cli.faculties.Cleanup(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, res.Message)
	for _, name := range res.SampleFaculties {
		fmt.Fprintf(cli.out, "  %s\n", name)
	}
	return nil
}
