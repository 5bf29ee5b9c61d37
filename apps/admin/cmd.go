package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/feedback/core/admin"
	"github.com/trezcool/feedback/core/cohort"
	"github.com/trezcool/feedback/core/faculty"
	"github.com/trezcool/feedback/core/student"
	"github.com/trezcool/feedback/core/subject"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	out        io.Writer
	db         *sql.DB
	validate   *validator.Validate
	translator ut.Translator

	admins    *admin.Service
	students  *student.Service
	subjects  *subject.Service
	faculties *faculty.Service
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...] - run a goose command (up, down, status, redo...) with the embedded migrations")
	fmt.Fprintln(cli.out, "  createadmin -username USERNAME -email EMAIL [-role admin|owner] - create an admin, the password is prompted")
	fmt.Fprintln(cli.out, "  resetregistration -hallticket HALLTICKET -cohort COHORT_YEAR - let a student register again")
	fmt.Fprintln(cli.out, "  importstudents -file FILE -class CLASS -branch BRANCH -year ACADEMIC_YEAR - upsert the students of a CSV file")
	fmt.Fprintln(cli.out, "  importsubjects -file FILE -class CLASS -branch BRANCH -year ACADEMIC_YEAR - replace the subjects of a class")
	fmt.Fprintln(cli.out, "  cleanupfaculty - delete the subjects and feedbacks filed under a hallticket instead of a faculty")
}

// scopeFlags registers the flags locating a class.
type scopeFlags struct {
	class, branch, academicYear, cohortYear *string
}

func newScopeFlags(fs *flag.FlagSet) scopeFlags {
	return scopeFlags{
		class:        fs.String("class", "", "The class code, YEAR-SEMESTER (e.g. 3-2)."),
		branch:       fs.String("branch", "", "The branch (e.g. CSE)."),
		academicYear: fs.String("year", "", "The calendar academic year (e.g. 2025-2026)."),
		cohortYear:   fs.String("cohort", "", "The cohort window (e.g. 2023-2027). Takes precedence over -year."),
	}
}

func (f scopeFlags) scope() cohort.Scope {
	if *f.cohortYear != "" {
		s := cohort.Scope{Class: *f.class, Branch: *f.branch, CohortYear: *f.cohortYear}
		s.Clean()
		return s
	}
	if *f.academicYear == "" {
		return cohort.Scope{Class: *f.class, Branch: *f.branch}
	}
	return cohort.NewScope(*f.class, *f.branch, *f.academicYear)
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	createAdminCmd := flag.NewFlagSet("createadmin", flag.ExitOnError)
	createAdminUname := createAdminCmd.String("username", "", "The admin's username.")
	createAdminEmail := createAdminCmd.String("email", "", "The admin's email.")
	createAdminRole := createAdminCmd.String("role", admin.RoleAdmin, "The admin's role: admin or owner.")

	resetRegCmd := flag.NewFlagSet("resetregistration", flag.ExitOnError)
	resetRegHallticket := resetRegCmd.String("hallticket", "", "The student's hallticket.")
	resetRegCohort := resetRegCmd.String("cohort", "", "The student's cohort window (e.g. 2023-2027).")

	importStudentsCmd := flag.NewFlagSet("importstudents", flag.ExitOnError)
	importStudentsFile := importStudentsCmd.String("file", "", "The CSV file: name, hallticket, branch.")
	importStudentsScope := newScopeFlags(importStudentsCmd)

	importSubjectsCmd := flag.NewFlagSet("importsubjects", flag.ExitOnError)
	importSubjectsFile := importSubjectsCmd.String("file", "", "The CSV file: subject, faculty.")
	importSubjectsScope := newScopeFlags(importSubjectsCmd)

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "createadmin":
		if err := createAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createAdminUname == "" || *createAdminEmail == "" {
			createAdminCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			createAdminCmd.Usage()
			return errHelp
		}
		return cli.createAdmin(ctx, admin.NewAdmin{
			Username: *createAdminUname,
			Email:    *createAdminEmail,
			Password: string(pwd),
			Role:     *createAdminRole,
		})

	case "resetregistration":
		if err := resetRegCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetRegHallticket == "" || *resetRegCohort == "" {
			resetRegCmd.Usage()
			return errHelp
		}
		return cli.resetRegistration(ctx, *resetRegHallticket, *resetRegCohort)

	case "importstudents":
		if err := importStudentsCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importStudentsFile == "" {
			importStudentsCmd.Usage()
			return errHelp
		}
		return cli.importStudents(ctx, *importStudentsFile, importStudentsScope.scope())

	case "importsubjects":
		if err := importSubjectsCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importSubjectsFile == "" {
			importSubjectsCmd.Usage()
			return errHelp
		}
		return cli.importSubjects(ctx, *importSubjectsFile, importSubjectsScope.scope())

	case "cleanupfaculty":
		return cli.cleanupFaculty(ctx)

	default:
		cli.printUsage()
		return errHelp
	}
}
