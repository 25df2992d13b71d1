// Package server exposes the analysis pipeline over HTTP with the same
// request and response shapes as the lab's web front end expects.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/san-kum/fiberpol/internal/config"
	"github.com/san-kum/fiberpol/internal/metrics"
	"github.com/san-kum/fiberpol/internal/storage"
)

const (
	EnvCORSOrigins = "CORS_ORIGINS"
	EnvAddr        = "FIBERPOL_ADDR"
)

type Server struct {
	cfg     *config.Config
	log     *zap.Logger
	stats   *metrics.Collector
	store   *storage.Store
	origins map[string]bool
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithStore records every analysis served as a run.
func WithStore(st *storage.Store) Option {
	return func(s *Server) { s.store = st }
}

func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) {
		if c != nil {
			s.stats = c
		}
	}
}

// New validates cfg and builds a server. CORS origins come from
// cfg.Server.CORSOrigins.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		log:     zap.NewNop(),
		stats:   metrics.New(),
		origins: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, o := range cfg.Server.CORSOrigins {
		s.origins[o] = true
	}
	return s, nil
}

// LoadEnv reads .env (if present) and applies CORS_ORIGINS and FIBERPOL_ADDR
// over cfg. An empty CORS_ORIGINS keeps the configured origins.
func LoadEnv(cfg *config.Config, files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	if raw := os.Getenv(EnvCORSOrigins); strings.TrimSpace(raw) != "" {
		var origins []string
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) > 0 {
			cfg.Server.CORSOrigins = origins
		}
	}
	if addr := strings.TrimSpace(os.Getenv(EnvAddr)); addr != "" {
		cfg.Server.Addr = addr
	}
	return nil
}

// Router wires the routes:
//   - GET  /default-values  form defaults for the front end
//   - POST /calculate       monitor exports → FDTD state, simulation, fit
//   - GET  /healthz         liveness
//   - GET  /metrics         Prometheus
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/metrics", s.stats.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.HealthHandler).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(s.StatsMiddleware, s.CORSMiddleware)
	api.HandleFunc("/default-values", s.DefaultValuesHandler).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/calculate", s.CalculateHandler).Methods(http.MethodPost, http.MethodOptions)

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening",
			zap.String("addr", srv.Addr),
			zap.Strings("cors_origins", s.cfg.Server.CORSOrigins))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
