package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/grcmmap/api/internal/config"
	"github.com/grcmmap/api/internal/infra/http/middleware"
	"github.com/grcmmap/api/pkg/logger"
)

// UploadPathPrefix is the path prefix of CSV uploads, which get the larger
// upload body limit.
const UploadPathPrefix = "/findings/upload_csv/"

// Server represents the HTTP server.
type Server struct {
	httpServer   *http.Server
	router       Router
	config       *config.Config
	logger       *logger.Logger
	cleanupFuncs []func()
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithRouter sets a custom router implementation.
func WithRouter(r Router) ServerOption {
	return func(s *Server) {
		s.router = r
	}
}

// NewServer creates the HTTP server and installs the global middleware
// chain. Routes are registered afterwards on Router().
func NewServer(cfg *config.Config, log *logger.Logger, opts ...ServerOption) *Server {
	s := &Server{
		config: cfg,
		logger: log,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.router == nil {
		s.router = NewChiRouter()
	}

	rateLimitMw, rateLimitStop := middleware.RateLimitWithStop(&cfg.RateLimit, log)
	s.cleanupFuncs = append(s.cleanupFuncs, rateLimitStop)

	decompressCfg := middleware.DefaultDecompressConfig()
	decompressCfg.MaxCompressedSize = cfg.Server.MaxUploadSize
	decompressCfg.MaxDecompressedSize = cfg.Server.MaxUploadSize

	// Order matters: recovery outermost, body limits innermost so they
	// apply to the decoded body.
	s.router.Use(
		middleware.RecoveryWithConfig(log, cfg.IsProduction()),
		middleware.RequestID(),
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{
			HSTSEnabled:           cfg.IsProduction(),
			HSTSIncludeSubdomains: true,
		}),
		middleware.CORS(&cfg.CORS),
		rateLimitMw,
		middleware.Metrics(),
		middleware.LoggerWithConfig(log, middleware.LoggerConfig{
			SkipPaths:            middleware.DefaultLoggerConfig().SkipPaths,
			SlowRequestThreshold: time.Duration(cfg.Log.SlowRequestSeconds) * time.Second,
		}),
		middleware.Timeout(cfg.Server.RequestTimeout),
		middleware.Decompress(decompressCfg),
		middleware.BodyLimit(middleware.BodyLimitConfig{
			MaxBytes:  cfg.Server.MaxBodySize,
			Overrides: map[string]int64{UploadPathPrefix: cfg.Server.MaxUploadSize},
		}),
	)

	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           s.router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       time.Minute,
	}

	return s
}

// Router returns the router for registering handlers.
func (s *Server) Router() Router {
	return s.router
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// LogRoutes logs every registered route at debug level.
func (s *Server) LogRoutes() {
	count := 0
	_ = s.router.Walk(func(method, path string) error {
		count++
		s.logger.Debug("route registered", "method", method, "path", path)
		return nil
	})
	s.logger.Info("routes registered", "count", count)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.config.Server.Addr())

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	for _, cleanup := range s.cleanupFuncs {
		cleanup()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}
