// Command replay drives the full hydration pipeline from recorded fixtures:
// chain snapshots from JSON files, trades from a newline-delimited frame
// capture, and an in-memory keyed store in place of redis. Useful for
// validating epoch and publication behavior without any live dependencies.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/strikefeed/strikefeed/internal/chain"
	"github.com/strikefeed/strikefeed/internal/gexmodel"
	"github.com/strikefeed/strikefeed/internal/health"
	"github.com/strikefeed/strikefeed/internal/hydrator"
	"github.com/strikefeed/strikefeed/internal/publish"
	"github.com/strikefeed/strikefeed/internal/spot"
	"github.com/strikefeed/strikefeed/internal/store"
	"github.com/strikefeed/strikefeed/internal/stream"
)

func main() {
	var (
		chainDir   = flag.String("chains", "fixtures/chains", "directory of chain fixture files")
		tradesPath = flag.String("trades", "fixtures/trades.ndjson", "newline-delimited trade frames")
		underlying = flag.String("underlying", "SPY", "underlying to hydrate")
		spotPrice  = flag.Float64("spot", 550.0, "spot price for window and model computation")
		vol        = flag.Float64("vol", 0.20, "implied volatility for window and model computation")
		delay      = flag.Duration("delay", 0, "pause between replayed frames")
		runFor     = flag.Duration("run", 10*time.Second, "how long to run after replay starts")
		loop       = flag.Bool("loop", false, "replay the trade file continuously")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger, *chainDir, *tradesPath, *underlying, *spotPrice, *vol, *delay, *runFor, *loop); err != nil {
		logger.Error("replay failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, chainDir, tradesPath, underlying string, spotPrice, vol float64, delay, runFor time.Duration, loop bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv := publish.NewMemoryKV()
	st := store.New(5 * time.Second)
	tracker := health.NewTracker(logger)
	pub := publish.New(kv, time.Minute, logger)

	spots := spot.NewStatic(map[string]spot.Context{
		underlying: {Price: spotPrice, Vol: vol, UpdatedAt: time.Now()},
	})

	source := stream.NewFixture(stream.FixtureConfig{
		Path:  tradesPath,
		Delay: delay,
		Loop:  loop,
	}, logger)

	refresher := chain.NewRefresher(chain.RefresherConfig{
		Underlyings:     []string{underlying},
		RefreshInterval: time.Hour, // one refresh up front, then idle
	}, chain.NewFixtureSource(chainDir), spots, st, pub, tracker, logger)

	hyd := hydrator.New(hydrator.DefaultConfig(), st, source, nil, logger)

	republisher := publish.NewWorker(publish.WorkerConfig{}, st, pub, tracker, logger)
	builder := gexmodel.NewBuilder(gexmodel.BuilderConfig{}, st, spots, pub, tracker, logger)

	if err := refresher.Start(ctx); err != nil {
		return fmt.Errorf("starting refresher: %w", err)
	}
	// Give the initial refresh a moment so trades land on live epochs.
	time.Sleep(500 * time.Millisecond)

	if err := source.Start(ctx); err != nil {
		return fmt.Errorf("starting fixture source: %w", err)
	}
	if err := hyd.Start(ctx); err != nil {
		return fmt.Errorf("starting hydrator: %w", err)
	}
	if err := republisher.Start(ctx); err != nil {
		return fmt.Errorf("starting republisher: %w", err)
	}
	if err := builder.Start(ctx); err != nil {
		return fmt.Errorf("starting model builder: %w", err)
	}

	time.Sleep(runFor)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	builder.Stop(stopCtx)
	republisher.Stop(stopCtx)
	hyd.Stop(stopCtx)
	source.Stop(stopCtx)
	refresher.Stop(stopCtx)

	report(ctx, os.Stdout, st, kv, hyd, source, underlying)
	return nil
}

// report prints replay results: counters, ring stats, and the published
// snapshot for each tracked expiration.
func report(ctx context.Context, out *os.File, st *store.Store, kv publish.KV, hyd *hydrator.Hydrator, source *stream.Fixture, underlying string) {
	c := hyd.Counters()
	stats := source.Stats()

	fmt.Fprintln(out, "=== replay summary ===")
	fmt.Fprintf(out, "frames received:   %d\n", stats.Ring.TotalIn)
	fmt.Fprintf(out, "frames dropped:    %d\n", stats.Ring.Dropped)
	fmt.Fprintf(out, "matched:           %d\n", c.Matched)
	fmt.Fprintf(out, "unknown symbol:    %d\n", c.UnknownSymbol)
	fmt.Fprintf(out, "untracked expiry:  %d\n", c.UntrackedExpiry)
	fmt.Fprintf(out, "stale event:       %d\n", c.StaleEvent)
	fmt.Fprintf(out, "epoch swapped:     %d\n", c.EpochSwapped)
	fmt.Fprintf(out, "bad symbol:        %d\n", c.BadSymbol)

	for _, key := range st.Keys() {
		if key.Underlying != underlying {
			continue
		}
		snap, err := publish.Resolve(ctx, kv, key.Underlying, key.Expiration)
		if err != nil {
			fmt.Fprintf(out, "%s %s: no snapshot (%v)\n", key.Underlying, key.Expiration, err)
			continue
		}
		hydrated := 0
		for _, ct := range snap.Contracts {
			if ct.Last > 0 {
				hydrated++
			}
		}
		line := fmt.Sprintf("%s %s: contracts=%d hydrated=%d",
			key.Underlying, key.Expiration, len(snap.Contracts), hydrated)
		if epoch, ok := st.Current(key.Underlying, key.Expiration); ok {
			line += fmt.Sprintf(" epoch=%d version=%d", epoch.ID(), epoch.Version())
		}
		fmt.Fprintln(out, line)

		var pretty strings.Builder
		enc := json.NewEncoder(&pretty)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap.Contracts[:min(3, len(snap.Contracts))]); err == nil {
			fmt.Fprintf(out, "sample contracts:\n%s", pretty.String())
		}
	}
}
