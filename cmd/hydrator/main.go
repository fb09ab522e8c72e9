package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/strikefeed/strikefeed/internal/archive"
	"github.com/strikefeed/strikefeed/internal/chain"
	"github.com/strikefeed/strikefeed/internal/chainapi"
	"github.com/strikefeed/strikefeed/internal/config"
	"github.com/strikefeed/strikefeed/internal/database"
	"github.com/strikefeed/strikefeed/internal/gexmodel"
	"github.com/strikefeed/strikefeed/internal/health"
	"github.com/strikefeed/strikefeed/internal/hydrator"
	"github.com/strikefeed/strikefeed/internal/publish"
	"github.com/strikefeed/strikefeed/internal/spot"
	"github.com/strikefeed/strikefeed/internal/store"
	"github.com/strikefeed/strikefeed/internal/stream"
	"github.com/strikefeed/strikefeed/internal/version"
)

const stopTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "configs/hydrator.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting hydrator",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"underlyings", cfg.Chains.Underlyings,
		"feed_mode", cfg.Feed.Mode,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to the keyed store
	kv := publish.NewRedisKV(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer kv.Close()
	if err := kv.Ping(ctx); err != nil {
		logger.Error("failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
		os.Exit(1)
	}
	logger.Info("keyed store connected", "addr", cfg.Redis.Addr)

	// Reference API client
	apiClient := chainapi.NewClient(
		cfg.API.BaseURL,
		cfg.API.APIKey,
		chainapi.WithLogger(logger),
		chainapi.WithTimeout(cfg.API.Timeout),
		chainapi.WithRetries(cfg.API.MaxRetries, time.Second),
		chainapi.WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst),
	)

	// Core shared state
	st := store.New(cfg.Store.GracePeriod)
	tracker := health.NewTracker(logger)
	pub := publish.New(kv, cfg.Publish.TTL, logger)

	// Archival, when enabled
	var (
		tradeSink hydrator.Sink
		workers   []worker
	)
	if cfg.Archive.Enabled {
		logger.Info("connecting to archive database",
			"host", cfg.Archive.Database.Host,
			"database", cfg.Archive.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Archive.Database)
		if err != nil {
			logger.Error("failed to connect to archive database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		writerCfg := archive.WriterConfig{
			BatchSize:     cfg.Archive.BatchSize,
			FlushInterval: cfg.Archive.FlushInterval,
			BufferSize:    cfg.Archive.BufferSize,
		}
		trades := archive.NewTradeWriter(writerCfg, pool, logger)
		snapshots := archive.NewSnapshotWriter(writerCfg, pool, logger)
		pub.SetRecorder(snapshots)
		tradeSink = trades
		workers = append(workers, trades, snapshots)
	}

	// Trade stream
	mode := stream.ModeTargeted
	if cfg.Feed.Mode == "broad" {
		mode = stream.ModeBroad
	}
	source := stream.NewLive(stream.LiveConfig{
		URL:               cfg.Feed.WSURL,
		APIKey:            cfg.API.APIKey,
		Mode:              mode,
		RingSize:          cfg.Feed.BufferSize,
		ReconnectBaseWait: cfg.Feed.ReconnectBaseDelay,
		ReconnectMaxWait:  cfg.Feed.ReconnectMaxDelay,
		PingTimeout:       cfg.Feed.PingTimeout,
	}, logger)

	// Pipeline workers
	spots := spot.NewAPIProvider(apiClient, 0)

	refresher := chain.NewRefresher(chain.RefresherConfig{
		Underlyings:     cfg.Chains.Underlyings,
		Expirations:     cfg.Chains.Expirations,
		Stddevs:         cfg.Chains.Stddevs,
		RefreshInterval: cfg.Chains.RefreshInterval,
		RetryBackoff:    cfg.Chains.RetryBackoff,
		FetchTimeout:    cfg.Chains.FetchTimeout,
	}, chain.NewAPISource(apiClient), spots, st, pub, tracker, logger)

	hyd := hydrator.New(hydrator.Config{LaneSize: cfg.Store.LaneSize}, st, source, tradeSink, logger)

	republisher := publish.NewWorker(publish.WorkerConfig{
		Interval: cfg.Publish.Interval,
	}, st, pub, tracker, logger)

	builder := gexmodel.NewBuilder(gexmodel.BuilderConfig{
		Interval: cfg.Model.Interval,
	}, st, spots, pub, tracker, logger)

	// Health and metrics server, started early so refresh progress is visible
	healthServer := health.NewServer(health.ServerConfig{
		Port:        cfg.Metrics.Port,
		MetricsPath: cfg.Metrics.Path,
	}, tracker, st, kv, func() map[string]int64 {
		c := hyd.Counters()
		return map[string]int64{
			"matched":          c.Matched,
			"unknown_symbol":   c.UnknownSymbol,
			"untracked_expiry": c.UntrackedExpiry,
			"stale_event":      c.StaleEvent,
			"epoch_swapped":    c.EpochSwapped,
			"bad_symbol":       c.BadSymbol,
		}
	}, logger)

	// Archive writers first so nothing they feed on outlives them at stop,
	// then the data path upstream-to-downstream.
	workers = append(workers, refresher, source, hyd, republisher, builder, healthServer)

	started := make([]worker, 0, len(workers))
	for _, w := range workers {
		if err := w.Start(ctx); err != nil {
			logger.Error("failed to start worker", "error", err)
			stopAll(started, logger)
			os.Exit(1)
		}
		started = append(started, w)
	}

	logger.Info("hydrator running",
		"instance_id", cfg.Instance.ID,
		"health_port", cfg.Metrics.Port,
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")
	stopAll(started, logger)
	logger.Info("hydrator stopped")
}

// worker is the common lifecycle every pipeline component satisfies.
type worker interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// stopAll stops workers in reverse start order.
func stopAll(workers []worker, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	for i := len(workers) - 1; i >= 0; i-- {
		if err := workers[i].Stop(shutdownCtx); err != nil {
			logger.Warn("worker stop failed", "error", err)
		}
	}
}
