package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/feedback/apps/api/echo"
	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/admin"
	"github.com/trezcool/feedback/core/faculty"
	"github.com/trezcool/feedback/core/feedback"
	"github.com/trezcool/feedback/core/report"
	"github.com/trezcool/feedback/core/round"
	"github.com/trezcool/feedback/core/student"
	"github.com/trezcool/feedback/core/subject"
	logsvc "github.com/trezcool/feedback/services/logger"
	"github.com/trezcool/feedback/storage/database"
	"github.com/trezcool/feedback/storage/database/dummy"
	sqlxrepos "github.com/trezcool/feedback/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Storage is the storage selected by the `storageDriver` setting.
type Storage struct {
	Driver string
	Check  echoapi.StatusChecker
	close  func() error
}

func (s *Storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

type storageResult struct {
	dig.Out

	Storage *Storage
	DB      core.DB // nil with the memory driver

	Students  student.Repository
	Subjects  subject.Repository
	Rounds    round.Repository
	Feedbacks feedback.Repository
	Faculties faculty.Repository
	Admins    admin.Repository
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) storageResult {
	switch conf.StorageDriver {
	case core.StorageMemory:
		db, err := dummydb.Open()
		if err != nil {
			loggerParam.Logger.Fatal(fmt.Sprintf("opening memory storage: %v", err), err)
		}
		loggerParam.Logger.Warn("using the memory storage: data is lost on shutdown")
		return storageResult{
			Storage:   &Storage{Driver: core.StorageMemory},
			Students:  dummydb.NewStudentRepository(db),
			Subjects:  dummydb.NewSubjectRepository(db),
			Rounds:    dummydb.NewRoundRepository(db),
			Feedbacks: dummydb.NewFeedbackRepository(db),
			Faculties: dummydb.NewFacultyRepository(db),
			Admins:    dummydb.NewAdminRepository(db),
		}

	case core.StoragePostgres:
		setUp := func() (*sqlx.DB, error) {
			if err := database.CreateIfNotExist(conf); err != nil {
				return nil, err
			}

			db, err := database.Open(conf)
			if err != nil {
				return nil, err
			}

			if err = database.Migrate(db.DB, "up"); err != nil {
				return nil, err
			}
			return db, nil
		}

		db, err := setUp()
		if err != nil {
			loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		return storageResult{
			Storage: &Storage{
				Driver: core.StoragePostgres,
				Check:  func(ctx context.Context) error { return database.StatusCheck(ctx, db) },
				close:  db.Close,
			},
			DB:        db,
			Students:  sqlxrepos.NewStudentRepository(db),
			Subjects:  sqlxrepos.NewSubjectRepository(db),
			Rounds:    sqlxrepos.NewRoundRepository(db),
			Feedbacks: sqlxrepos.NewFeedbackRepository(db),
			Faculties: sqlxrepos.NewFacultyRepository(db),
			Admins:    sqlxrepos.NewAdminRepository(db),
		}
	}

	err := errors.Errorf("unknown storage driver %q", conf.StorageDriver)
	loggerParam.Logger.Fatal(err.Error(), err)
	return storageResult{}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// narrow views of the services and repositories, as the services consume them

func studentLookup(repo student.Repository) feedback.StudentLookup { return repo }

func roundGate(svc *round.Service) feedback.RoundGate { return svc }

func roundOpener(svc *round.Service) subject.RoundOpener { return svc }

func submissionStubber(svc *feedback.Service) student.SubmissionStubber { return svc }

func feedbackReader(repo feedback.Repository) report.FeedbackReader { return repo }

func subjectReader(repo subject.Repository) report.SubjectReader { return repo }

type serverParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Storage    *Storage

	StudentSvc  *student.Service
	SubjectSvc  *subject.Service
	RoundSvc    *round.Service
	FeedbackSvc *feedback.Service
	FacultySvc  *faculty.Service
	ReportSvc   *report.Service
	AdminSvc    *admin.Service
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.Options{
		Conf:        p.Conf,
		Logger:      p.Logger,
		Validate:    p.Validate,
		Translator:  p.Translator,
		Storage:     p.Storage.Driver,
		StorageFunc: p.Storage.Check,
		StudentSvc:  p.StudentSvc,
		SubjectSvc:  p.SubjectSvc,
		RoundSvc:    p.RoundSvc,
		FeedbackSvc: p.FeedbackSvc,
		FacultySvc:  p.FacultySvc,
		ReportSvc:   p.ReportSvc,
		AdminSvc:    p.AdminSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))

	must(c.Provide(studentLookup))
	must(c.Provide(roundGate))
	must(c.Provide(roundOpener))
	must(c.Provide(submissionStubber))
	must(c.Provide(feedbackReader))
	must(c.Provide(subjectReader))

	must(c.Provide(round.NewService))
	must(c.Provide(feedback.NewService))
	must(c.Provide(student.NewService))
	must(c.Provide(subject.NewService))
	must(c.Provide(faculty.NewService))
	must(c.Provide(report.NewService))
	must(c.Provide(admin.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
