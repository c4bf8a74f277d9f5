package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/githubixx/mythrecordings-go/internal/infrastructure/config"
	"github.com/githubixx/mythrecordings-go/internal/infrastructure/metrics"
)

// Server represents the HTTP server
type Server struct {
	config *config.ServerConfig
	logger *slog.Logger
	server *http.Server
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.ServerConfig, logger *slog.Logger, mux http.Handler) *Server {
	return &Server{
		config: cfg,
		logger: logger,
		server: &http.Server{
			Addr:           fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:        mux,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
		},
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server",
		slog.String("addr", s.server.Addr),
		slog.Bool("tls", s.config.TLS.Enabled),
	)

	if s.config.TLS.Enabled {
		return s.server.ListenAndServeTLS(s.config.TLS.CertFile, s.config.TLS.KeyFile)
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// SetupRoutes configures all HTTP routes using Go 1.22+ routing
func SetupRoutes(handler *Handler, authCfg *config.AuthConfig, rateCfg *config.RateLimitConfig, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Apply middleware chain
	chain := func(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			h = middlewares[i](h)
		}
		return h
	}

	// Probes stay outside auth and rate limiting.
	probeMiddleware := []func(http.Handler) http.Handler{
		RequestIDMiddleware(),
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
	}

	apiMiddleware := []func(http.Handler) http.Handler{
		RequestIDMiddleware(),
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		SecurityHeadersMiddleware(),
		AuthMiddleware(authCfg),
	}
	if rateCfg != nil && rateCfg.Enabled {
		apiMiddleware = append(apiMiddleware, RateLimitMiddleware(rateCfg.Requests, rateCfg.Window))
	}
	apiMiddleware = append(apiMiddleware, CompressionMiddleware())

	mux.Handle("GET /healthz", chain(http.HandlerFunc(handler.Health), probeMiddleware...))
	mux.Handle("GET /metrics", chain(metrics.Handler(), probeMiddleware...))

	mux.Handle("GET /api/menu", chain(http.HandlerFunc(handler.Menu), apiMiddleware...))
	mux.Handle("GET /api/browse", chain(http.HandlerFunc(handler.Browse), apiMiddleware...))
	mux.Handle("POST /api/recordings/refresh", chain(http.HandlerFunc(handler.RecordingRefresh), apiMiddleware...))
	mux.Handle("GET /api/validate", chain(http.HandlerFunc(handler.Validate), apiMiddleware...))

	return mux
}
