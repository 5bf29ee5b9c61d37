package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/bytes"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/feedback/core"
	"github.com/trezcool/feedback/core/admin"
	"github.com/trezcool/feedback/core/faculty"
	"github.com/trezcool/feedback/core/feedback"
	"github.com/trezcool/feedback/core/report"
	"github.com/trezcool/feedback/core/round"
	"github.com/trezcool/feedback/core/student"
	"github.com/trezcool/feedback/core/subject"
)

type (
	// StatusChecker reports whether the storage can be reached.
	StatusChecker func(ctx context.Context) error

	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool

		Storage     string
		StorageFunc StatusChecker

		StudentSvc  *student.Service
		SubjectSvc  *subject.Service
		RoundSvc    *round.Service
		FeedbackSvc *feedback.Service
		FacultySvc  *faculty.Service
		ReportSvc   *report.Service
		AdminSvc    *admin.Service
	}

	Server struct {
		opts     Options
		app      *echo.Echo
		auth     *authenticator
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = core.NopLogger{}
	}
	s := &Server{
		opts:     opts,
		app:      echo.New(),
		auth:     newAuthenticator(opts.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.BodyLimit(bodyLimit(conf.Server.MaxUploadSize)))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug && !conf.TestMode
	s.app.Logger.SetLevel(log.INFO)

	s.app.GET("/", home(conf))
	s.app.GET("/health", health(s.opts.Storage, s.opts.StorageFunc))

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.auth.jwtConfig())
	adminOnly := []echo.MiddlewareFunc{jwt, adminMiddleware()}
	ownerOnly := []echo.MiddlewareFunc{jwt, adminMiddleware(admin.RoleOwner)}

	registerAdminAPI(v1, adminOnly, s.auth, s.opts.AdminSvc, s.opts.Validate)
	registerStudentAPI(v1, adminOnly, s.auth, s.opts.StudentSvc, s.opts.Validate)
	registerMeAPI(v1, jwt, s.opts.StudentSvc, s.opts.SubjectSvc, s.opts.FeedbackSvc, s.opts.Validate)
	registerUploadAPI(v1, adminOnly, conf.Server.MaxUploadSize, s.opts.StudentSvc, s.opts.SubjectSvc)
	registerRoundAPI(v1, adminOnly, s.opts.RoundSvc, s.opts.SubjectSvc)
	registerSubmissionAPI(v1, adminOnly, s.opts.FeedbackSvc)
	registerFacultyAPI(v1, adminOnly, ownerOnly, s.opts.FacultySvc)
	registerReportAPI(v1, adminOnly, s.opts.ReportSvc)
}

func (s *Server) Start() {
	if err := s.app.Start(s.opts.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

// Shutdown stops accepting requests and waits for the outstanding ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

// Errors receives the error that stopped the listener.
func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal receives SIGINT, SIGTERM and shutdown requests raised by handlers.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

// bodyLimit leaves room for the multipart envelope around an upload.
func bodyLimit(maxUpload int64) string {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadSize
	}
	return bytes.Format(maxUpload + 1<<20)
}
