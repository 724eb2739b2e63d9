package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/mattjoyce/tfboot/internal/result"
	"github.com/mattjoyce/tfboot/internal/service"
)

// BasePath prefixes every terraform route.
const BasePath = "/terraform-boot"

// DefaultMaxBodySize caps request bodies when unset.
const DefaultMaxBodySize int64 = 10 << 20

// DirectoryExecutor runs terraform against existing workspaces.
type DirectoryExecutor interface {
	Validate(ctx context.Context, id string) (*result.ValidationResult, error)
	Deploy(ctx context.Context, req service.DeployRequest, id string) (*result.ExecutionResult, error)
	Destroy(ctx context.Context, req service.DestroyRequest, id string) (*result.ExecutionResult, error)
}

// ScriptExecutor runs terraform against inline scripts.
type ScriptExecutor interface {
	DeployWithScripts(ctx context.Context, req service.ScriptDeployRequest) (*result.ExecutionResult, error)
	DestroyWithScripts(ctx context.Context, req service.ScriptDestroyRequest) (*result.ExecutionResult, error)
	AsyncDeployWithScripts(ctx context.Context, req service.AsyncScriptDeployRequest) (string, error)
	AsyncDestroyWithScripts(ctx context.Context, req service.AsyncScriptDestroyRequest) (string, error)
}

// HealthChecker reports whether terraform can validate a trivial configuration.
type HealthChecker interface {
	Check(ctx context.Context) service.SystemStatus
}

// Config holds API server configuration
type Config struct {
	Listen string
	// APIKey is the bearer token required on terraform routes. Empty disables auth.
	APIKey      string
	MaxBodySize int64
	// WriteTimeout must outlast the longest synchronous terraform command.
	WriteTimeout time.Duration
}

// Server represents the HTTP API server
type Server struct {
	config    Config
	directory DirectoryExecutor
	scripts   ScriptExecutor
	health    HealthChecker
	metrics   http.Handler
	validate  *validator.Validate
	logger    *slog.Logger
	server    *http.Server
}

// New creates a new API server instance. metrics may be nil.
func New(
	config Config,
	directory DirectoryExecutor,
	scripts ScriptExecutor,
	health HealthChecker,
	metrics http.Handler,
	logger *slog.Logger,
) *Server {
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = time.Hour
	}
	return &Server{
		config:    config,
		directory: directory,
		scripts:   scripts,
		health:    health,
		metrics:   metrics,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
}

// Start starts the HTTP server (blocking)
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.config.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen, "auth", s.config.APIKey != "")

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/openapi.json", s.handleOpenAPI)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route(BasePath, func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Use(s.limitBody)

			r.Get("/directory/validate/{workspace_id}", s.handleValidate)
			r.Post("/directory/deploy/{workspace_id}", s.handleDeploy)
			r.Post("/directory/destroy/{workspace_id}", s.handleDestroy)

			r.Post("/script/deploy", s.handleScriptDeploy)
			r.Post("/script/destroy", s.handleScriptDestroy)
			r.Post("/script/deploy/async", s.handleAsyncDeploy)
			r.Post("/script/destroy/async", s.handleAsyncDestroy)
		})
	})

	return r
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodySize)
		next.ServeHTTP(w, r)
	})
}
