package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/t0mer/wa-llm-exporter/errors"
	"github.com/t0mer/wa-llm-exporter/health"
	"github.com/t0mer/wa-llm-exporter/metric"
	"github.com/t0mer/wa-llm-exporter/scrape"
)

// Defaults
const (
	DefaultPort         = 9100
	DefaultReadyTimeout = 2 * time.Second
	DefaultSystemName   = "wa-exporter"
)

// MetricsSource runs one scrape and renders it
type MetricsSource interface {
	Scrape(ctx context.Context) ([]byte, *scrape.Outcome, error)
}

// Pinger checks that the database is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusSource holds the health of the collectors. *health.Monitor
// implements it.
type StatusSource interface {
	AggregateHealth(systemName string) health.Status
	Get(name string) (health.Status, bool)
	Names() []string
}

// Config holds the HTTP settings
type Config struct {
	Port         int
	ReadyTimeout time.Duration
	SystemName   string
}

// DefaultConfig returns the defaults
func DefaultConfig() Config {
	return Config{
		Port:         DefaultPort,
		ReadyTimeout: DefaultReadyTimeout,
		SystemName:   DefaultSystemName,
	}
}

// Server serves the exporter endpoints
type Server struct {
	cfg     Config
	metrics MetricsSource
	db      Pinger
	status  StatusSource
	logger  *slog.Logger

	mu       sync.Mutex // protects server and listener
	server   *http.Server
	listener net.Listener
	errs     chan error
}

// New creates a server. Zero config values fall back to the defaults.
func New(cfg Config, metrics MetricsSource, db Pinger, status StatusSource, logger *slog.Logger) *Server {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = DefaultReadyTimeout
	}
	if cfg.SystemName == "" {
		cfg.SystemName = DefaultSystemName
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		cfg:     cfg,
		metrics: metrics,
		db:      db,
		status:  status,
		logger:  logger.With("component", "server"),
		errs:    make(chan error, 1),
	}
}

// Handler returns the routes of the exporter
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /health", s.handleLiveness)
	mux.HandleFunc("GET /healthz", s.handleLiveness)
	mux.HandleFunc("GET /ready", s.handleReadiness)
	mux.HandleFunc("GET /readyz", s.handleReadiness)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /status/{collector}", s.handleCollectorStatus)
	return mux
}

// Start binds the port and serves in the background. Serve errors after
// startup are delivered on Errors.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.WrapInvalid(
			fmt.Errorf("server already running"),
			"Server", "Start", "start listener")
	}

	listener, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(s.cfg.Port)))
	if err != nil {
		return errors.WrapConnection(err, "Server", "Start",
			fmt.Sprintf("listen on port %d", s.cfg.Port))
	}

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.server = server
	s.listener = listener

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server stopped", "error", err)
			select {
			case s.errs <- errors.WrapConnection(err, "Server", "Start", "serve"):
			default:
			}
		}
	}()

	s.logger.Info("HTTP server listening", "address", listener.Addr().String())
	return nil
}

// Errors delivers a serve failure after Start returned
func (s *Server) Errors() <-chan error {
	return s.errs
}

// Addr returns the bound address, or "" before Start
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop waits for in-flight requests until ctx is done
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}

	err := s.server.Shutdown(ctx)
	s.server = nil
	s.listener = nil
	if err != nil {
		return errors.WrapTimeout(err, "Server", "Stop", "shutdown HTTP server")
	}
	return nil
}

// handleMetrics answers 200 whenever something could be rendered; failed
// collectors only show up in the error counters
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	body, _, err := s.metrics.Scrape(r.Context())
	if err != nil {
		s.logger.Error("Render metrics failed", "error", err)
		http.Error(w, "failed to render metrics", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", metric.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadiness pings the database only; the WhatsApp API does not gate
// readiness
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ReadyTimeout)
	defer cancel()

	status := health.FromError("database", s.db.Ping(ctx))
	if !status.IsHealthy() {
		s.logger.Warn("Readiness check failed", "message", status.Message)
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status.AggregateHealth(s.cfg.SystemName))
}

// handleCollectorStatus reports one collector; an unknown name lists the
// collectors that have run
func (s *Server) handleCollectorStatus(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("collector")
	status, ok := s.status.Get(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":      fmt.Sprintf("unknown collector %q", name),
			"collectors": s.status.Names(),
		})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
