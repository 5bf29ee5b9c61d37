package main

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/admin"
	"github.com/trezcool/feedback/core/faculty"
	"github.com/trezcool/feedback/core/feedback"
	"github.com/trezcool/feedback/core/round"
	"github.com/trezcool/feedback/core/student"
	"github.com/trezcool/feedback/core/subject"
	"github.com/trezcool/feedback/storage/database"
	sqlxrepos "github.com/trezcool/feedback/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()
	if conf.StorageDriver != core.StoragePostgres {
		logger.Fatalf("the admin CLI needs the %q storage, got %q", core.StoragePostgres, conf.StorageDriver)
	}

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	// set up services
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	student.InitValidators(validate, translator)

	roundSvc := round.NewService(sqlxrepos.NewRoundRepository(db))
	stdRepo := sqlxrepos.NewStudentRepository(db)
	feedbackSvc := feedback.NewService(db, sqlxrepos.NewFeedbackRepository(db), stdRepo, roundSvc)

	// start CLI
	cli := commandLine{
		out:        os.Stdout,
		db:         db.DB,
		validate:   validate,
		translator: translator,
		admins:     admin.NewService(sqlxrepos.NewAdminRepository(db)),
		students:   student.NewService(stdRepo, feedbackSvc, conf),
		subjects:   subject.NewService(db, sqlxrepos.NewSubjectRepository(db), roundSvc),
		faculties:  faculty.NewService(db, sqlxrepos.NewFacultyRepository(db)),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

// describeValidation flattens validation failures into a readable "field: message" list.
func describeValidation(err error, translator ut.Translator) error {
	var msgs []string
	switch e := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		for _, vErr := range e {
			msgs = append(msgs, fmt.Sprintf("%s: %s", vErr.Field(), vErr.Translate(translator)))
		}
	case *core.ValidationError:
		for _, fErr := range e.Fields {
			msgs = append(msgs, fmt.Sprintf("%s: %s", fErr.Field, fErr.Error))
		}
	}
	if len(msgs) == 0 {
		return err
	}
	sort.Strings(msgs)
	return errors.New(strings.Join(msgs, "; "))
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
