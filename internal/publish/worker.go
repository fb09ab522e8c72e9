package publish

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/strikefeed/strikefeed/internal/health"
	"github.com/strikefeed/strikefeed/internal/store"
)

// WorkerConfig configures the periodic republisher.
type WorkerConfig struct {
	Interval time.Duration // Republish cadence (default 1s)
}

// DefaultWorkerConfig returns sensible defaults.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{Interval: time.Second}
}

// Worker republishes snapshots for epochs whose version advanced since the
// last publish, keeping pointers fresh between full chain fetches without
// redundant writes.
type Worker struct {
	cfg    WorkerConfig
	st     *store.Store
	pub    *Publisher
	beat   health.Heartbeat
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Last published (epoch ID, version) per key; worker-goroutine only.
	published map[store.Key]publishedAt
}

type publishedAt struct {
	epochID int64
	version int64
}

// NewWorker creates a republish worker.
func NewWorker(cfg WorkerConfig, st *store.Store, pub *Publisher, beat health.Heartbeat, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if beat == nil {
		beat = health.Nop{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultWorkerConfig().Interval
	}
	return &Worker{
		cfg:       cfg,
		st:        st,
		pub:       pub,
		beat:      beat,
		logger:    logger,
		published: make(map[store.Key]publishedAt),
	}
}

// Start begins the republish loop.
func (w *Worker) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.run()

	w.logger.Info("snapshot republisher started", "interval", w.cfg.Interval)
	return nil
}

// Stop gracefully shuts down.
func (w *Worker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("snapshot republisher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.beat.Beat("snapshot_republisher")
			w.sweep()
		}
	}
}

// sweep publishes every tracked pair whose epoch state changed.
func (w *Worker) sweep() {
	for _, key := range w.st.Keys() {
		epoch, ok := w.st.Current(key.Underlying, key.Expiration)
		if !ok {
			continue
		}

		last, seen := w.published[key]
		version := epoch.Version()
		if seen && last.epochID == epoch.ID() && last.version == version {
			continue
		}

		if _, err := w.pub.PublishEpoch(w.ctx, epoch); err != nil {
			// Previous pointer stays intact; it goes stale per TTL.
			w.logger.Warn("republish failed",
				"underlying", key.Underlying,
				"expiration", key.Expiration,
				"error", err,
			)
			continue
		}
		w.published[key] = publishedAt{epochID: epoch.ID(), version: version}
	}
}
