// Package health hosts the liveness boundary: workers emit periodic
// heartbeats to a collaborator that owns all alerting logic, and an HTTP
// server exposes component freshness, pipeline counters, and Prometheus
// metrics.
package health

import (
	"log/slog"
	"sync"
	"time"
)

// Heartbeat receives periodic alive signals per worker. The hydration core
// only emits; alerting decisions live with the collaborator.
type Heartbeat interface {
	Beat(component string)
}

// Nop discards heartbeats.
type Nop struct{}

func (Nop) Beat(component string) {}

// Tracker records the last beat per component, for the health endpoint.
type Tracker struct {
	logger *slog.Logger

	mu    sync.Mutex
	beats map[string]time.Time
}

// NewTracker creates a heartbeat tracker.
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		logger: logger,
		beats:  make(map[string]time.Time),
	}
}

// Beat records an alive signal for a component.
func (t *Tracker) Beat(component string) {
	t.mu.Lock()
	t.beats[component] = time.Now()
	t.mu.Unlock()
}

// Ages returns seconds since the last beat per component.
func (t *Tracker) Ages() map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]float64, len(t.beats))
	now := time.Now()
	for component, at := range t.beats {
		out[component] = now.Sub(at).Seconds()
	}
	return out
}
