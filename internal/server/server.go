// Package server exposes read-only diagnostics for a running host over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leslieo2/go-asset-reload/internal/asset"
	"github.com/leslieo2/go-asset-reload/internal/config"
	"github.com/leslieo2/go-asset-reload/internal/constants"
	"github.com/leslieo2/go-asset-reload/internal/hotreload"
	"github.com/leslieo2/go-asset-reload/internal/observability"
)

// AssetSource reports registry state
type AssetSource interface {
	IsInitialized() bool
	Snapshot() []asset.Asset
	TotalMemoryUsage() int64
}

// ReloadSource reports hot reload state
type ReloadSource interface {
	Status() hotreload.Status
	WatchedFiles() []hotreload.WatchedFile
}

type Server struct {
	config  config.ServerConfig
	assets  AssetSource
	reloads ReloadSource
	version string

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener

	logger    *zap.Logger
	metrics   *observability.Metrics
	tracer    *observability.Tracer
	startTime time.Time
}

// Option configures a Server
type Option func(*Server)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func WithTracer(t *observability.Tracer) Option {
	return func(s *Server) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithReloads adds hot reload status to /assets and /health
func WithReloads(r ReloadSource) Option {
	return func(s *Server) { s.reloads = r }
}

func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

func New(cfg config.ServerConfig, assets AssetSource, opts ...Option) (*Server, error) {
	if assets == nil {
		return nil, errors.New("asset source is required")
	}
	s := &Server{
		config:    cfg,
		assets:    assets,
		version:   "dev",
		logger:    zap.NewNop(),
		tracer:    observability.NewNopTracer(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the diagnostics routes wrapped in middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(constants.PathHealth, s.healthHandler)
	mux.HandleFunc(constants.PathReady, s.readinessHandler)
	mux.HandleFunc(constants.PathAssets, s.assetsHandler)
	if s.metrics != nil {
		mux.Handle(constants.PathMetrics, s.metrics.Handler())
	}
	return s.applyMiddleware(mux)
}

// Start serves until ctx is cancelled, then shuts down within the configured timeout
func (s *Server) Start(ctx context.Context) error {
	addr := s.config.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("Starting diagnostics server", zap.String("addr", ln.Addr().String()))
	s.metrics.SetHealthStatus(true)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.logger.Error("Diagnostics server failed", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down diagnostics server...")
	s.metrics.SetHealthStatus(false)

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Failed to shutdown diagnostics server", zap.Error(err))
		return fmt.Errorf("diagnostics server shutdown: %w", err)
	}
	return nil
}

// Addr returns the bound address once serving, or "" before
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
