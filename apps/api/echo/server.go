package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
	"github.com/trezcool/escola/core/announcement"
	"github.com/trezcool/escola/core/attendance"
	"github.com/trezcool/escola/core/dashboard"
	"github.com/trezcool/escola/core/grade"
	"github.com/trezcool/escola/core/lessonplan"
	"github.com/trezcool/escola/core/subject"
	"github.com/trezcool/escola/core/user"
)

type (
	Options struct {
		Conf       *core.Config
		Logger     core.Logger
		Translator ut.Translator

		// optional: NewSessionStore(Conf) and JSON views
		SessionStore sessions.Store
		Renderer     echo.Renderer

		UserSvc         user.Service
		SubjectSvc      subject.Service
		GradeSvc        grade.Service
		AttendanceSvc   attendance.Service
		LessonPlanSvc   lessonplan.Service
		AnnouncementSvc announcement.Service
		DashboardSvc    dashboard.Service
	}

	Server struct {
		opts *Options
		app  *echo.Echo

		errors       chan error
		shutdown     chan os.Signal
		shutdownOnce sync.Once
	}
)

func NewServer(opts *Options) (*Server, error) {
	if opts.Conf == nil || opts.Logger == nil || opts.Translator == nil || opts.UserSvc == nil {
		return nil, errors.New("server options: Conf, Logger, Translator and UserSvc are required")
	}
	if opts.SessionStore == nil {
		opts.SessionStore = NewSessionStore(opts.Conf)
	}
	if opts.Renderer == nil && opts.Conf.Server.TemplatesDir != "" {
		r, err := NewTemplateRenderer(os.DirFS(opts.Conf.Server.TemplatesDir))
		if err != nil {
			return nil, errors.Wrap(err, "loading templates")
		}
		opts.Renderer = r
	}

	s := &Server{
		opts:     opts,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s, nil
}

func (s *Server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(session.Middleware(s.opts.SessionStore))
	s.app.Use(refreshIdentity(s.opts.UserSvc))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)
	s.app.Renderer = s.opts.Renderer
	s.app.Debug = conf.Debug

	registerAuthRoutes(s.app, s.opts)
	registerManagerRoutes(s.app, s.opts)
	registerTeacherRoutes(s.app, s.opts)
	registerStudentRoutes(s.app, s.opts)
	registerProfileRoutes(s.app, s.opts)
}

// Start listens on the configured address; failures are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.opts.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal receives on SIGINT, SIGTERM, or when a request hit a shutdown error.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	return s.shutdown
}

func (s *Server) signalShutdown() {
	s.shutdownOnce.Do(func() {
		s.shutdown <- syscall.SIGTERM
	})
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
