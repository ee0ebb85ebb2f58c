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

	"github.com/secmun/podium/core"
	"github.com/secmun/podium/core/attendance"
	"github.com/secmun/podium/core/event"
	"github.com/secmun/podium/core/finance"
	"github.com/secmun/podium/core/member"
	"github.com/secmun/podium/core/notification"
)

type (
	// ServerDeps carries everything the API server needs; all fields are
	// required unless noted.
	ServerDeps struct {
		Conf            *core.Config
		Logger          core.Logger
		MemberSvc       member.Service
		AttendanceSvc   attendance.Service
		EventSvc        event.Service
		FinanceSvc      finance.Service
		NotificationSvc notification.Service
		Validate        *validator.Validate
		Translator      ut.Translator
		DisableReqLogs  bool
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errs     chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf
	initAuth(conf)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	s.app.Use(metricsMiddleware())
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home(conf))

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerMemberAPI(v1, jwt, s.deps)
	registerAttendanceAPI(v1, jwt, s.deps)
	registerEventAPI(v1, jwt, s.deps)
	registerFinanceAPI(v1, jwt, s.deps)
	registerNotificationAPI(v1, jwt, s.deps)
}

func (s *Server) Start() {
	s.errs <- s.app.Start(s.deps.Conf.Server.Addr)
}

func (s *Server) Errors() <-chan error { return s.errs }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown triggers a graceful shutdown; used when a non-recoverable
// integrity error is caught.
func (s *Server) SignalShutdown() {
	s.shutdown <- syscall.SIGTERM
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

func home(conf *core.Config) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.String(http.StatusOK, "Welcome to "+conf.AppName+" API!")
	}
}
