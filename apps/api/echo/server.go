package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/class"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/curriculum"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/progress"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/report"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/user"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/services/tokenstore"
)

type (
	// Deps holds everything the API needs to serve requests.
	Deps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		TokenStore     tokenstore.Store
		DisableReqLogs bool

		UserSvc       *user.Service
		CurriculumSvc *curriculum.Service
		ClassSvc      *class.Service
		ProgressSvc   *progress.Service
		ReportSvc     *report.Service
	}

	Server struct {
		addr     string
		app      *echo.Echo
		deps     *Deps
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ http.Handler = (*Server)(nil)

// NewServer sets up the API. shutdown receives the signals that stop the server; it may be nil in tests.
func NewServer(addr string, shutdown chan os.Signal, deps *Deps) *Server {
	if shutdown == nil {
		shutdown = make(chan os.Signal, 1)
	}
	s := &Server{
		addr:     addr,
		app:      echo.New(),
		deps:     deps,
		errors:   make(chan error, 1),
		shutdown: shutdown,
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: conf.Server.AllowOrigins}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)

	s.app.GET("/health", health)

	v1 := s.app.Group("/v1")
	authed := []echo.MiddlewareFunc{
		middleware.JWTWithConfig(newJWTConfig(conf)),
		sessionMiddleware(s.deps.TokenStore, s.deps.UserSvc),
	}

	registerUserAPI(v1, authed, s.deps)
	registerCurriculumAPI(v1.Group("", authed...), s.deps)
	registerClassAPI(v1.Group("/classes", authed...), s.deps)
	registerProgressAPI(v1.Group("/progress", authed...), s.deps)
	registerReportAPI(v1.Group("/reports", authed...), s.deps)
}

// Start blocks until the server stops. Listening errors are sent on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.addr); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
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

type HealthResponse struct {
	Status string `json:"status"`
}

func health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
