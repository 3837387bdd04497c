package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aescanero/wfdiag/internal/application/workers"
	"github.com/aescanero/wfdiag/pkg/domain"
)

// Orchestrator is the session facade the REST API drives.
type Orchestrator interface {
	ListTasks() []domain.TaskDescriptor
	SystemInfo(ctx context.Context) domain.SystemInfo
	StartSession(ctx context.Context, req domain.SessionRequest) (domain.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (domain.Session, error)
	CancelSession(ctx context.Context, id uuid.UUID) error
	OutputPath(ctx context.Context, id uuid.UUID) (string, error)
	SessionCounts() map[string]int
}

// HealthReporter exposes worker pool health.
type HealthReporter interface {
	GetStatus() *workers.HealthStatus
}

// Server represents the HTTP API server
type Server struct {
	router       *gin.Engine
	server       *http.Server
	orchestrator Orchestrator
	health       HealthReporter
	logger       *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Addr         string
	Orchestrator Orchestrator
	// Health is optional.
	Health HealthReporter
	// Metrics serves /metrics; promhttp.Handler() when nil.
	Metrics http.Handler
	Logger  *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(cfg.Logger))
	router.Use(corsMiddleware())

	s := &Server{
		router:       router,
		orchestrator: cfg.Orchestrator,
		health:       cfg.Health,
		logger:       cfg.Logger,
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	s.setupRoutes(metrics)

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes(metrics http.Handler) {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(metrics))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/system", s.handleSystemInfo)
		v1.GET("/tasks", s.handleListTasks)

		v1.POST("/diagnostics", s.handleStartDiagnostics)
		v1.GET("/diagnostics/:id", s.handleGetSession)
		v1.POST("/diagnostics/:id/cancel", s.handleCancelSession)
		v1.GET("/diagnostics/:id/download", s.handleDownload)
	}
}

// SetupWebSocket adds the progress stream endpoint.
func (s *Server) SetupWebSocket(handler interface {
	HandleSessionStream(*gin.Context)
}) {
	s.router.GET("/api/v1/diagnostics/:id/ws", handler.HandleSessionStream)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}
