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
	"github.com/labstack/gommon/log"

	"github.com/educonnect/backend/core"
	"github.com/educonnect/backend/core/announcement"
	"github.com/educonnect/backend/core/assignment"
	"github.com/educonnect/backend/core/class"
	"github.com/educonnect/backend/core/user"
)

type (
	ServerDeps struct {
		Conf            *core.Config
		Logger          core.Logger
		UserSvc         user.Service
		ClassSvc        class.Service
		AssignmentSvc   assignment.Service
		AnnouncementSvc announcement.Service
		Validate        *validator.Validate
		Translator      ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps         ServerDeps
		app          *echo.Echo
		errChan      chan error
		shutdownChan chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	initAuth(deps.Conf)

	s := &server{
		deps:         deps,
		app:          echo.New(),
		errChan:      make(chan error, 1),
		shutdownChan: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdownChan, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	if len(conf.Server.AllowedOrigins) > 0 {
		s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: conf.Server.AllowedOrigins}))
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	api := s.app.Group("/api")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerAuthAPI(api, jwt, s.deps.UserSvc, s.deps.Validate)
	registerClassAPI(api, jwt, s.deps.ClassSvc, s.deps.UserSvc, s.deps.Validate)
	registerAssignmentAPI(api, jwt, s.deps.AssignmentSvc, s.deps.ClassSvc, s.deps.UserSvc, s.deps.Validate)
	registerAnnouncementAPI(api, jwt, s.deps.AnnouncementSvc, s.deps.ClassSvc, s.deps.UserSvc, s.deps.Validate)
	registerStudentAPI(api, jwt, s.deps.UserSvc, s.deps.AssignmentSvc)
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Addr()); err != nil && err != http.ErrServerClosed {
		s.errChan <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errChan
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdownChan
}

// signalShutdown is handed to the error handler so integrity errors can
// trigger a graceful stop.
func (s *server) signalShutdown() {
	s.shutdownChan <- syscall.SIGTERM
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to EduConnect API!")
}
