package chain

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/strikefeed/strikefeed/internal/health"
	"github.com/strikefeed/strikefeed/internal/metrics"
	"github.com/strikefeed/strikefeed/internal/publish"
	"github.com/strikefeed/strikefeed/internal/spot"
	"github.com/strikefeed/strikefeed/internal/store"
)

// RefresherConfig configures epoch refresh behavior.
type RefresherConfig struct {
	Underlyings     []string
	Expirations     int           // next-N tradable expirations per underlying
	Stddevs         float64       // strike window half-width in standard deviations
	RefreshInterval time.Duration // full refetch cadence per underlying
	RetryBackoff    time.Duration // delay before reattempting a failed refresh
	FetchTimeout    time.Duration // bound on one underlying's full refresh
}

// DefaultRefresherConfig returns sensible defaults.
func DefaultRefresherConfig() RefresherConfig {
	return RefresherConfig{
		Expirations:     6,
		Stddevs:         DefaultStddevs,
		RefreshInterval: 5 * time.Minute,
		RetryBackoff:    15 * time.Second,
		FetchTimeout:    2 * time.Minute,
	}
}

// Refresher rebuilds epochs from full chain fetches, one worker per
// underlying. A failed refresh leaves the previous epoch and pointer
// untouched and retries on a shorter backoff.
type Refresher struct {
	cfg    RefresherConfig
	src    Source
	spots  spot.Provider
	st     *store.Store
	pub    *publish.Publisher
	beat   health.Heartbeat
	logger *slog.Logger

	now func() time.Time // injectable for window math in tests

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRefresher creates an epoch refresher.
func NewRefresher(cfg RefresherConfig, src Source, spots spot.Provider, st *store.Store, pub *publish.Publisher, beat health.Heartbeat, logger *slog.Logger) *Refresher {
	def := DefaultRefresherConfig()
	if cfg.Expirations <= 0 {
		cfg.Expirations = def.Expirations
	}
	if cfg.Stddevs <= 0 {
		cfg.Stddevs = def.Stddevs
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = def.RefreshInterval
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	if beat == nil {
		beat = health.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		cfg:    cfg,
		src:    src,
		spots:  spots,
		st:     st,
		pub:    pub,
		beat:   beat,
		logger: logger,
		now:    time.Now,
	}
}

// Start launches one refresh worker per underlying. Each performs an
// immediate initial refresh, then runs on the configured interval.
func (r *Refresher) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	for _, underlying := range r.cfg.Underlyings {
		r.wg.Add(1)
		go r.run(underlying)
	}

	r.logger.Info("chain refresher started",
		"underlyings", len(r.cfg.Underlyings),
		"expirations", r.cfg.Expirations,
		"interval", r.cfg.RefreshInterval,
	)
	return nil
}

// Stop gracefully shuts down all refresh workers.
func (r *Refresher) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("chain refresher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Refresher) run(underlying string) {
	defer r.wg.Done()

	timer := time.NewTimer(0) // immediate first refresh
	defer timer.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-timer.C:
		}

		r.beat.Beat("chain_refresher_" + underlying)

		if err := r.refresh(underlying); err != nil {
			r.logger.Warn("chain refresh failed, previous epochs kept",
				"underlying", underlying,
				"retry_in", r.cfg.RetryBackoff,
				"error", err,
			)
			timer.Reset(r.cfg.RetryBackoff)
			continue
		}
		timer.Reset(r.cfg.RefreshInterval)
	}
}

// refresh rebuilds epochs for the next-N expirations of one underlying.
// Expirations fetch in parallel; a per-expiration failure aborts the batch
// but already-swapped epochs stay current.
func (r *Refresher) refresh(underlying string) error {
	ctx, cancel := context.WithTimeout(r.ctx, r.cfg.FetchTimeout)
	defer cancel()

	start := time.Now()

	sc, err := r.spots.Spot(ctx, underlying)
	if err != nil {
		metrics.ChainFetchFailures.Inc()
		return err
	}

	expirations, err := r.src.Expirations(ctx, underlying)
	if err != nil {
		metrics.ChainFetchFailures.Inc()
		return err
	}
	if len(expirations) > r.cfg.Expirations {
		expirations = expirations[:r.cfg.Expirations]
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, expiration := range expirations {
		g.Go(func() error {
			return r.refreshExpiration(gctx, underlying, expiration, sc)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.logger.Info("chain refresh complete",
		"underlying", underlying,
		"expirations", len(expirations),
		"spot", sc.Price,
		"duration", time.Since(start),
	)
	return nil
}

func (r *Refresher) refreshExpiration(ctx context.Context, underlying, expiration string, sc spot.Context) error {
	window, err := ComputeWindow(sc, expiration, r.now(), r.cfg.Stddevs)
	if err != nil {
		metrics.ChainFetchFailures.Inc()
		return err
	}

	seeds, err := r.src.Chain(ctx, underlying, expiration, window)
	if err != nil {
		metrics.ChainFetchFailures.Inc()
		return err
	}
	if len(seeds) == 0 {
		// An empty chain would retire a live epoch for nothing.
		r.logger.Warn("empty chain fetch skipped",
			"underlying", underlying,
			"expiration", expiration,
		)
		return nil
	}

	meta := store.Meta{
		ATM:         window.ATM,
		RangePoints: window.RangePoints,
		Spot:        sc.Price,
	}
	epoch := r.st.CreateEpoch(underlying, expiration, meta, seeds)
	metrics.EpochsCreated.Inc()

	// Baseline snapshot so consumers see the fresh epoch immediately.
	if _, err := r.pub.PublishEpoch(ctx, epoch); err != nil {
		r.logger.Warn("baseline publish failed",
			"underlying", underlying,
			"expiration", expiration,
			"error", err,
		)
	}

	r.logger.Debug("epoch created",
		"underlying", underlying,
		"expiration", expiration,
		"contracts", epoch.Len(),
		"strike_low", window.Low,
		"strike_high", window.High,
	)
	return nil
}
