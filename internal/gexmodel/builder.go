package gexmodel

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/strikefeed/strikefeed/internal/health"
	"github.com/strikefeed/strikefeed/internal/metrics"
	"github.com/strikefeed/strikefeed/internal/publish"
	"github.com/strikefeed/strikefeed/internal/spot"
	"github.com/strikefeed/strikefeed/internal/store"
)

// BuilderConfig configures the model build loop.
type BuilderConfig struct {
	Interval time.Duration // recompute cadence (default 1s)
}

// DefaultBuilderConfig returns sensible defaults.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{Interval: time.Second}
}

// Builder derives gamma exposure profiles from epoch state on a fixed
// interval. A pair is recomputed only when its epoch version advanced; a
// computation that spans an epoch swap is discarded, never published.
type Builder struct {
	cfg    BuilderConfig
	st     *store.Store
	spots  spot.Provider
	pub    *publish.Publisher
	beat   health.Heartbeat
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Last published (epoch ID, version) per key; builder-goroutine only.
	built map[store.Key]builtAt
}

type builtAt struct {
	epochID int64
	version int64
}

// NewBuilder creates a model builder.
func NewBuilder(cfg BuilderConfig, st *store.Store, spots spot.Provider, pub *publish.Publisher, beat health.Heartbeat, logger *slog.Logger) *Builder {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultBuilderConfig().Interval
	}
	if beat == nil {
		beat = health.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		cfg:    cfg,
		st:     st,
		spots:  spots,
		pub:    pub,
		beat:   beat,
		logger: logger,
		built:  make(map[store.Key]builtAt),
	}
}

// Start begins the build loop.
func (b *Builder) Start(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	b.wg.Add(1)
	go b.run()

	b.logger.Info("model builder started", "interval", b.cfg.Interval)
	return nil
}

// Stop gracefully shuts down.
func (b *Builder) Stop(ctx context.Context) error {
	if b.cancel != nil {
		b.cancel()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("model builder stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Builder) run() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			b.beat.Beat("model_builder")
			b.sweep()
		}
	}
}

// sweep recomputes every pair whose epoch version advanced.
func (b *Builder) sweep() {
	for _, key := range b.st.Keys() {
		epoch, ok := b.st.Current(key.Underlying, key.Expiration)
		if !ok {
			continue
		}

		last, seen := b.built[key]
		if seen && last.epochID == epoch.ID() && last.version == epoch.Version() {
			continue
		}

		if version, ok := b.build(key, epoch); ok {
			b.built[key] = builtAt{epochID: epoch.ID(), version: version}
		}
	}
}

// build computes and publishes one profile. Returns the captured version
// and whether the publish landed.
func (b *Builder) build(key store.Key, epoch *store.Epoch) (int64, bool) {
	recs, version := epoch.Capture()

	sc, err := b.spots.Spot(b.ctx, key.Underlying)
	if err != nil {
		b.logger.Warn("spot context unavailable, model skipped",
			"underlying", key.Underlying,
			"error", err,
		)
		return 0, false
	}

	profile, err := BuildProfile(recs, key.Underlying, key.Expiration, epoch.ID(), version, sc.Price, sc.Vol, time.Now())
	if err != nil {
		b.logger.Warn("model build failed",
			"underlying", key.Underlying,
			"expiration", key.Expiration,
			"error", err,
		)
		return 0, false
	}

	// An epoch swap mid-computation would publish a profile mixing two
	// epochs' meanings; discard and let the next tick rebuild.
	cur, ok := b.st.Current(key.Underlying, key.Expiration)
	if !ok || cur.ID() != epoch.ID() || epoch.Retired() {
		metrics.ModelsDiscarded.Inc()
		b.logger.Debug("model discarded, epoch swapped during build",
			"underlying", key.Underlying,
			"expiration", key.Expiration,
			"epoch", epoch.ID(),
		)
		return 0, false
	}

	if err := b.pub.PublishModel(b.ctx, profile); err != nil {
		b.logger.Warn("model publish failed",
			"underlying", key.Underlying,
			"expiration", key.Expiration,
			"error", err,
		)
		return 0, false
	}

	metrics.ModelsBuilt.Inc()
	return version, true
}
