package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
	"github.com/grantlab/grantlab-core/internal/core/ports/driving"
	"github.com/grantlab/grantlab-core/internal/runtime"
	"github.com/grantlab/grantlab-core/internal/worker"
)

// JanitorHealth reports the background sweeper's state for readiness.
type JanitorHealth interface {
	Health() worker.Health
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	flowService         driving.FlowService
	preflightService    driving.PreflightService
	authorizeService    driving.AuthorizeService
	tokenService        driving.TokenService
	deviceService       driving.DeviceService
	redirectlessService driving.RedirectlessService

	// Infrastructure
	overrides *runtime.Overrides
	backends  []driven.ArtifactBackend
	janitor   JanitorHealth
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// CORSOrigins allows the playground UI origin; empty disables CORS
	CORSOrigins []string

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	flowService driving.FlowService,
	preflightService driving.PreflightService,
	authorizeService driving.AuthorizeService,
	tokenService driving.TokenService,
	deviceService driving.DeviceService,
	redirectlessService driving.RedirectlessService,
	overrides *runtime.Overrides,
	backends []driven.ArtifactBackend,
	janitor JanitorHealth, // can be nil
) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		router:              http.NewServeMux(),
		version:             cfg.Version,
		logger:              logger,
		flowService:         flowService,
		preflightService:    preflightService,
		authorizeService:    authorizeService,
		tokenService:        tokenService,
		deviceService:       deviceService,
		redirectlessService: redirectlessService,
		overrides:           overrides,
		backends:            backends,
		janitor:             janitor,
	}

	s.setupRoutes()

	var handler http.Handler = s.router
	handler = NewLoggingMiddleware(logger).Handler(handler)
	handler = NewRecoveryMiddleware(logger).Handler(handler)
	if len(cfg.CORSOrigins) > 0 {
		handler = NewCORSMiddleware(cfg.CORSOrigins).Handler(handler)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Generated OpenAPI document
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwaggerDoc)

	// Flow session lifecycle and navigation
	s.router.HandleFunc("POST /api/v1/flows", s.handleCreateFlow)
	s.router.HandleFunc("GET /api/v1/flows/{id}", s.handleGetFlow)
	s.router.HandleFunc("DELETE /api/v1/flows/{id}", s.handleDeleteFlow)
	s.router.HandleFunc("POST /api/v1/flows/{id}/next", s.handleGoNext)
	s.router.HandleFunc("POST /api/v1/flows/{id}/previous", s.handleGoPrevious)
	s.router.HandleFunc("POST /api/v1/flows/{id}/steps/{index}", s.handleGoToStep)
	s.router.HandleFunc("POST /api/v1/flows/{id}/complete", s.handleMarkStepComplete)
	s.router.HandleFunc("POST /api/v1/flows/{id}/reset", s.handleResetFlow)
	s.router.HandleFunc("PUT /api/v1/flows/{id}/flow-type", s.handleChangeFlowType)
	s.router.HandleFunc("PUT /api/v1/flows/{id}/credentials", s.handleUpdateCredentials)

	// Pre-flight validation
	s.router.HandleFunc("POST /api/v1/flows/{id}/validate", s.handleValidate)
	s.router.HandleFunc("POST /api/v1/flows/{id}/fixes", s.handleApplyFix)

	// Front-channel authorization
	s.router.HandleFunc("POST /api/v1/flows/{id}/pkce", s.handleGeneratePKCE)
	s.router.HandleFunc("POST /api/v1/flows/{id}/authorization-url", s.handleBuildAuthorizationURL)
	s.router.HandleFunc("POST /api/v1/flows/{id}/callback", s.handleIngestCallback)
	s.router.HandleFunc("POST /api/v1/flows/{id}/fragment", s.handleIngestFragment)

	// Back-channel token operations
	s.router.HandleFunc("POST /api/v1/flows/{id}/token", s.handleExchangeCode)
	s.router.HandleFunc("POST /api/v1/flows/{id}/token/refresh", s.handleRefreshToken)
	s.router.HandleFunc("POST /api/v1/flows/{id}/token/client-credentials", s.handleClientCredentials)
	s.router.HandleFunc("POST /api/v1/flows/{id}/token/verify", s.handleVerifyIDToken)
	s.router.HandleFunc("POST /api/v1/flows/{id}/introspect", s.handleIntrospect)
	s.router.HandleFunc("POST /api/v1/flows/{id}/userinfo", s.handleUserInfo)

	// Device authorization grant
	s.router.HandleFunc("POST /api/v1/flows/{id}/device/code", s.handleRequestDeviceCode)
	s.router.HandleFunc("POST /api/v1/flows/{id}/device/poll", s.handleStartPolling)
	s.router.HandleFunc("DELETE /api/v1/flows/{id}/device/poll", s.handleStopPolling)
	s.router.HandleFunc("GET /api/v1/flows/{id}/device/poll", s.handlePollingStatus)

	// Redirectless authorization
	s.router.HandleFunc("POST /api/v1/flows/{id}/redirectless/start", s.handleRedirectlessStart)
	s.router.HandleFunc("POST /api/v1/flows/{id}/redirectless/credentials", s.handleRedirectlessCredentials)
	s.router.HandleFunc("POST /api/v1/flows/{id}/redirectless/resume", s.handleRedirectlessResume)

	// Environment endpoint overrides
	s.router.HandleFunc("GET /api/v1/environments/overrides", s.handleListOverrides)
	s.router.HandleFunc("PUT /api/v1/environments/{id}/overrides", s.handleSetOverride)
	s.router.HandleFunc("DELETE /api/v1/environments/{id}/overrides", s.handleRemoveOverride)
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
