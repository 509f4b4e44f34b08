package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"

	"github.com/custodia-labs/sercha-connect/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-connect/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	connectors driving.ConnectorService
	auth       driven.AuthAdapter

	// Readiness checks, keyed by name. Nil entries are skipped.
	checks map[string]Pinger
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	AllowedOrigins []string
	Logger         *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		AllowedOrigins: []string{"http://localhost:3000"},
	}
}

// NewServer creates a new HTTP server. checks are consulted by /ready.
func NewServer(cfg Config, connectors driving.ConnectorService, auth driven.AuthAdapter, checks map[string]Pinger) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:     http.NewServeMux(),
		version:    cfg.Version,
		logger:     logger,
		connectors: connectors,
		auth:       auth,
		checks:     checks,
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.wrap(s.router, cfg.AllowedOrigins),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // token validation waits for every provider
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// wrap applies recovery, CORS and request logging.
func (s *Server) wrap(h http.Handler, origins []string) http.Handler {
	h = NewLoggingMiddleware(s.logger).Handler(h)
	h = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.MaxAge(86400),
	)(h)
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
	)(h)
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.auth)
	protect := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(h)
	}

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwaggerDoc)

	// Connector endpoints
	s.router.Handle("GET /api/v1/connectors", protect(s.handleListConnectors))
	s.router.Handle("POST /api/v1/connectors", protect(s.handleCreateConnector))
	s.router.Handle("POST /api/v1/connectors/reload", protect(s.handleReloadConnectors))
	s.router.Handle("POST /api/v1/connectors/validate", protect(s.handleValidateTokens))
	s.router.Handle("GET /api/v1/connectors/{id}", protect(s.handleGetConnector))
	s.router.Handle("PATCH /api/v1/connectors/{id}", protect(s.handleUpdateConnector))
	s.router.Handle("DELETE /api/v1/connectors/{id}", protect(s.handleDeleteConnector))
	s.router.Handle("PUT /api/v1/connectors/{id}/status", protect(s.handleSetStatus))
	s.router.Handle("POST /api/v1/connectors/{id}/refresh-token", protect(s.handleRefreshToken))

	// Sync state endpoints
	s.router.Handle("GET /api/v1/connectors/{id}/sync", protect(s.handleGetSyncState))
	s.router.Handle("PATCH /api/v1/connectors/{id}/sync", protect(s.handleUpdateSyncState))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err == nil {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
