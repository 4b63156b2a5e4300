// Package health serves the liveness and readiness probes of the odds tracker.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/odds-tracker/internal/logger"
)

const (
	statusOK       = "ok"
	statusNotReady = "not_ready"
	pingTimeout    = 3 * time.Second
)

// StorePinger checks that the snapshot store is reachable.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// LedgerReporter exposes the key of the newest snapshot in live state.
type LedgerReporter interface {
	LatestSnapshot() string
}

// HealthResponse is the body of /health and /live.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
}

// ReadyResponse is the body of /ready.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// Config holds the configuration for the health server.
type Config struct {
	ServiceName string
	Version     string
	Commit      string
	Port        string
	Logger      *logrus.Logger
	Store       StorePinger
	Ledger      LedgerReporter
}

// Server answers container probes. It reports not ready until the ledger replay
// has finished and SetReady(true) is called.
type Server struct {
	cfg    Config
	server *http.Server
	ready  atomic.Bool
}

// NewServer creates a health server. The port falls back to HEALTH_PORT, then 8081.
func NewServer(cfg Config) *Server {
	if cfg.Port == "" {
		cfg.Port = os.Getenv("HEALTH_PORT")
	}
	if cfg.Port == "" {
		cfg.Port = "8081"
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	return &Server{cfg: cfg}
}

// SetReady marks the service as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether SetReady(true) is in effect.
func (s *Server) IsReady() bool {
	return s.ready.Load()
}

// Handler returns the probe routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/live", s.handleLive)
	mux.HandleFunc("/ready", s.handleReady)
	return mux
}

// Start serves the probes in the background until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log := s.cfg.Logger.WithFields(logrus.Fields{"port": s.cfg.Port, "service": s.cfg.ServiceName})
	go func() {
		log.Info("Health check server starting")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Health check server error")
		}
	}()

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()
	return nil
}

// Shutdown clears readiness and stops the listener.
func (s *Server) Shutdown() error {
	s.SetReady(false)
	if s.server == nil {
		return nil
	}

	s.cfg.Logger.Info("Health check server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeProbe(w, http.StatusOK, HealthResponse{
		Status:    statusOK,
		Service:   s.cfg.ServiceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.cfg.Version,
		Commit:    s.cfg.Commit,
	})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeProbe(w, http.StatusOK, HealthResponse{Status: statusOK, Service: s.cfg.ServiceName})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	checks, healthy := s.runChecks(r.Context())

	resp := ReadyResponse{
		Status:   statusOK,
		Service:  s.cfg.ServiceName,
		Checks:   checks,
		Duration: time.Since(start).String(),
	}
	code := http.StatusOK
	if !healthy {
		resp.Status = statusNotReady
		code = http.StatusServiceUnavailable
	}
	writeProbe(w, code, resp)
}

// runChecks reports replay completion, store reachability and the newest snapshot key.
// The snapshot key is informational; an empty ledger is still ready.
func (s *Server) runChecks(ctx context.Context) (map[string]string, bool) {
	checks := map[string]string{"service": statusOK}
	healthy := true

	if !s.IsReady() {
		checks["service"] = statusNotReady
		healthy = false
	}

	if s.cfg.Store != nil {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := s.cfg.Store.Ping(pingCtx); err != nil {
			checks["storage"] = "error: " + err.Error()
			healthy = false
		} else {
			checks["storage"] = statusOK
		}
	}

	if s.cfg.Ledger != nil {
		checks["latest_snapshot"] = "none"
		if key := s.cfg.Ledger.LatestSnapshot(); key != "" {
			checks["latest_snapshot"] = key
		}
	}
	return checks, healthy
}

func writeProbe(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
