package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/strikefeed/strikefeed/internal/store"
)

// Pinger is the slice of the keyed store the health check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServerConfig configures the health and metrics HTTP server.
type ServerConfig struct {
	Port        int
	MetricsPath string
}

// Server exposes /health plus the Prometheus endpoint.
type Server struct {
	cfg      ServerConfig
	runID    string // distinguishes restarts of the same instance
	tracker  *Tracker
	st       *store.Store
	kv       Pinger
	counters func() map[string]int64 // pipeline counters, may be nil
	logger   *slog.Logger

	srv *http.Server
}

// NewServer creates the health server. kv and counters may be nil.
func NewServer(cfg ServerConfig, tracker *Tracker, st *store.Store, kv Pinger, counters func() map[string]int64, logger *slog.Logger) *Server {
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		runID:    uuid.NewString(),
		tracker:  tracker,
		st:       st,
		kv:       kv,
		counters: counters,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle(cfg.MetricsPath, promhttp.Handler())
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}
	return s
}

// Start begins serving in the background.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		s.logger.Info("health server started", "port", s.cfg.Port, "metrics_path", s.cfg.MetricsPath, "run_id", s.runID)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("health server error", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type epochStatus struct {
	Underlying string  `json:"underlying"`
	Expiration string  `json:"expiration"`
	EpochID    int64   `json:"epoch_id"`
	Version    int64   `json:"version"`
	AgeSeconds float64 `json:"age_seconds"`
	Contracts  int     `json:"contracts"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := struct {
		Status     string             `json:"status"`
		RunID      string             `json:"run_id"`
		Components map[string]any     `json:"components"`
		Heartbeats map[string]float64 `json:"heartbeats"` // seconds since last beat
		Epochs     []epochStatus      `json:"epochs"`
		Counters   map[string]int64   `json:"counters,omitempty"`
	}{
		Status:     "healthy",
		RunID:      s.runID,
		Components: make(map[string]any),
	}

	if s.kv != nil {
		if err := s.kv.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["kv"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["kv"] = "connected"
		}
	}

	if s.tracker != nil {
		health.Heartbeats = s.tracker.Ages()
	}

	now := time.Now()
	for _, key := range s.st.Keys() {
		epoch, ok := s.st.Current(key.Underlying, key.Expiration)
		if !ok {
			continue
		}
		health.Epochs = append(health.Epochs, epochStatus{
			Underlying: key.Underlying,
			Expiration: key.Expiration,
			EpochID:    epoch.ID(),
			Version:    epoch.Version(),
			AgeSeconds: now.Sub(epoch.CreatedAt()).Seconds(),
			Contracts:  epoch.Len(),
		})
	}
	if len(health.Epochs) == 0 && health.Status == "healthy" {
		health.Status = "degraded"
	}

	if s.counters != nil {
		health.Counters = s.counters()
	}

	w.Header().Set("Content-Type", "application/json")
	if health.Status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(health)
}
