package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/itsmrshow/foreman/internal/logging"
	"github.com/itsmrshow/foreman/internal/observe"
	"github.com/itsmrshow/foreman/internal/state"
)

// Config holds HTTP server configuration.
type Config struct {
	Addr           string
	ReadOnly       bool
	Token          string
	WriteRateRPS   float64
	WriteRateBurst int
}

// CacheAdmin is the administrative surface of the planning job.
type CacheAdmin interface {
	ClearCache()
	CacheStats() observe.Stats
}

// Server exposes persisted plans, cache administration and metrics.
type Server struct {
	cfg          Config
	logger       *logging.Logger
	store        state.Store
	cache        CacheAdmin
	writeLimiter *rate.Limiter
}

// NewServer constructs a new API server.
func NewServer(cfg Config, store state.Store, cache CacheAdmin, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}

	var limiter *rate.Limiter
	if cfg.WriteRateRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.WriteRateRPS), cfg.WriteRateBurst)
	}

	return &Server{
		cfg:          cfg,
		logger:       logger.WithComponent("api"),
		store:        store,
		cache:        cache,
		writeLimiter: limiter,
	}
}

// Handler returns the http.Handler with routes configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.methodOnly(http.MethodGet, s.handleHealth))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/plans", s.methodOnly(http.MethodGet, s.handlePlans))
	mux.HandleFunc("/api/plans/", s.methodOnly(http.MethodGet, s.handlePlan))
	mux.HandleFunc("/api/cache/stats", s.methodOnly(http.MethodGet, s.handleCacheStats))
	mux.Handle("/api/cache/clear", s.methodOnly(http.MethodPost, s.requireWrite(http.HandlerFunc(s.handleCacheClear)).ServeHTTP))

	return loggingMiddleware(mux, s.logger)
}

// HTTPServer returns an http.Server bound to the configured address.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
