package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/agileview/reporting/go/internal/application/services"
	"github.com/agileview/reporting/go/internal/core/ports"
	customMiddleware "github.com/agileview/reporting/go/internal/infrastructure/httpserver/middleware"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
}

type ServerDeps struct {
	Analytics      ports.Analytics
	Orchestrator   ports.Orchestrator
	Snapshots      *services.SnapshotService
	HealthCheckers []ports.HealthChecker
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	analytics      ports.Analytics
	orchestrator   ports.Orchestrator
	snapshots      *services.SnapshotService
	healthCheckers []ports.HealthChecker
	logging        *customMiddleware.LoggingMiddleware
	metrics        *customMiddleware.MetricsMiddleware
	auth           *customMiddleware.AuthMiddleware
}

func NewServer(serverConfig *ServerConfig, adminJWTSecret string, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		analytics:      deps.Analytics,
		orchestrator:   deps.Orchestrator,
		snapshots:      deps.Snapshots,
		healthCheckers: deps.HealthCheckers,
		logging:        customMiddleware.NewLoggingMiddleware(logger),
		metrics:        customMiddleware.NewMetricsMiddleware(GetRequestsTotal(), GetRequestDuration()),
		auth:           customMiddleware.NewAuthMiddleware(adminJWTSecret, logger),
	}

	server.setupMiddleware()
	server.setupRoutes()
	return server
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echoMiddleware.Recover())
	s.echo.Use(s.logging.RequestLogging())
	s.echo.Use(s.metrics.CollectHTTPMetrics())
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.Host, s.config.Port)

	server := &http.Server{
		Addr:         addr,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	if s.config.TLSCertFile != "" && s.config.TLSKeyFile != "" {
		s.logger.Infof("Starting HTTPS server on %s", addr)
		return s.echo.StartTLS(addr, s.config.TLSCertFile, s.config.TLSKeyFile)
	}
	s.logger.Infof("Starting HTTP server on %s", addr)
	return s.echo.StartServer(server)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}
