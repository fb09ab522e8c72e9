// Package hydrator merges the trade-event stream into the epoch store.
//
// A single dispatcher fans events out to one worker per underlying, so
// per-underlying arrival order is preserved end to end while underlyings
// hydrate in parallel. The hydrator never creates contract records: an event
// either updates an existing record in the current epoch or is counted and
// discarded.
package hydrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/strikefeed/strikefeed/internal/metrics"
	"github.com/strikefeed/strikefeed/internal/model"
	"github.com/strikefeed/strikefeed/internal/store"
	"github.com/strikefeed/strikefeed/internal/stream"
)

// Sink receives accepted hydration updates for archival. Implementations
// must not block; the hydrator calls it on the hot path.
type Sink interface {
	ArchiveTrade(ev model.TradeEvent)
}

// Config holds hydrator configuration.
type Config struct {
	LaneSize int // Per-underlying ring capacity (default 10000)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{LaneSize: 10000}
}

// Counters classifies hydration outcomes.
type Counters struct {
	Matched         int64
	UnknownSymbol   int64 // not in the current strike window / not tracked
	UntrackedExpiry int64 // underlying tracked, expiration not
	StaleEvent      int64 // timestamp older than stored state
	EpochSwapped    int64 // event landed on an epoch already retired
	BadSymbol       int64 // symbol failed to parse
}

// Hydrator consumes trade events and applies them to the epoch store.
type Hydrator struct {
	cfg     Config
	store   *store.Store
	source  stream.Source
	archive Sink // may be nil
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	laneMu sync.Mutex
	lanes  map[string]*stream.Ring[model.TradeEvent]

	countMu  sync.Mutex
	counters Counters
}

// New creates a hydrator. archive may be nil to disable archival.
func New(cfg Config, st *store.Store, source stream.Source, archive Sink, logger *slog.Logger) *Hydrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.LaneSize == 0 {
		cfg.LaneSize = DefaultConfig().LaneSize
	}
	return &Hydrator{
		cfg:     cfg,
		store:   st,
		source:  source,
		archive: archive,
		logger:  logger,
		lanes:   make(map[string]*stream.Ring[model.TradeEvent]),
	}
}

// Start begins consuming the trade stream.
func (h *Hydrator) Start(ctx context.Context) error {
	h.ctx, h.cancel = context.WithCancel(ctx)

	h.wg.Add(2)
	go h.dispatchLoop()
	go h.retargetLoop()

	h.logger.Info("hydrator started", "lane_size", h.cfg.LaneSize)
	return nil
}

// Stop drains workers and flushes final counters to the log. Applied state
// lives in the epoch store, so nothing is lost by stopping mid-stream.
func (h *Hydrator) Stop(ctx context.Context) error {
	if h.cancel != nil {
		h.cancel()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		h.logger.Warn("hydrator stop timed out")
	}

	c := h.Counters()
	h.logger.Info("hydrator stopped",
		"matched", c.Matched,
		"unknown_symbol", c.UnknownSymbol,
		"untracked_expiry", c.UntrackedExpiry,
		"stale", c.StaleEvent,
		"epoch_swapped", c.EpochSwapped,
		"bad_symbol", c.BadSymbol,
	)
	return nil
}

// Counters returns a copy of the outcome counters.
func (h *Hydrator) Counters() Counters {
	h.countMu.Lock()
	defer h.countMu.Unlock()
	return h.counters
}

// dispatchLoop routes events to per-underlying lanes in arrival order.
// Buffered events are always drained before exit so a graceful stop never
// discards work already accepted off the wire.
func (h *Hydrator) dispatchLoop() {
	defer h.wg.Done()
	defer h.closeLanes()

	events := h.source.Events()
	for {
		ev, ok := events.TryReceive()
		if !ok {
			if events.IsClosed() {
				return
			}
			select {
			case <-h.ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
			continue
		}

		underlying, _, _, _, err := model.ParseSymbol(ev.Symbol)
		if err != nil {
			h.count(func(c *Counters) { c.BadSymbol++ })
			metrics.TradesUnmatched.WithLabelValues("bad_symbol").Inc()
			continue
		}

		// Lanes block when full. Overload backs up into the source ring,
		// the one stage allowed to shed events (oldest first, counted).
		h.lane(underlying).SendWait(ev)
	}
}

// retargetLoop watches epoch replacements and pushes the refreshed symbol
// set to the trade source, keeping targeted subscriptions aligned with the
// contract sets actually being hydrated.
func (h *Hydrator) retargetLoop() {
	defer h.wg.Done()

	changes := h.store.Changes()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-changes:
		}

		// Coalesce bursts: a full refresh swaps several epochs back to back.
	drain:
		for {
			select {
			case <-changes:
			default:
				break drain
			}
		}

		h.source.SetSymbols(h.store.ActiveSymbols())
	}
}

// lane returns the ring for an underlying, spawning its worker on first use.
func (h *Hydrator) lane(underlying string) *stream.Ring[model.TradeEvent] {
	h.laneMu.Lock()
	defer h.laneMu.Unlock()

	if ring, ok := h.lanes[underlying]; ok {
		return ring
	}

	ring := stream.NewRing[model.TradeEvent](h.cfg.LaneSize)
	h.lanes[underlying] = ring

	h.wg.Add(1)
	go h.workLoop(underlying, ring)

	return ring
}

func (h *Hydrator) closeLanes() {
	h.laneMu.Lock()
	defer h.laneMu.Unlock()
	for _, ring := range h.lanes {
		ring.Close()
	}
}

// workLoop applies one underlying's events in arrival order.
func (h *Hydrator) workLoop(underlying string, ring *stream.Ring[model.TradeEvent]) {
	defer h.wg.Done()

	for {
		ev, ok := ring.Receive()
		if !ok {
			return
		}
		h.apply(underlying, ev)
	}
}

// apply resolves the current epoch for the event and merges it.
func (h *Hydrator) apply(underlying string, ev model.TradeEvent) {
	_, expiration, _, _, err := model.ParseSymbol(ev.Symbol)
	if err != nil {
		h.count(func(c *Counters) { c.BadSymbol++ })
		return
	}

	epoch, ok := h.store.Current(underlying, expiration)
	if !ok {
		// No epoch for this expiration. If we track the underlying at all,
		// the print is for an expiry outside the tracked window.
		if h.tracksUnderlying(underlying) {
			h.count(func(c *Counters) { c.UntrackedExpiry++ })
			metrics.TradesUnmatched.WithLabelValues("untracked_expiry").Inc()
		} else {
			h.count(func(c *Counters) { c.UnknownSymbol++ })
			metrics.TradesUnmatched.WithLabelValues("unknown_symbol").Inc()
		}
		return
	}

	switch epoch.Apply(ev.Symbol, ev.Price, ev.Size, ev.EventTS) {
	case store.Applied:
		h.count(func(c *Counters) { c.Matched++ })
		metrics.TradesMatched.Inc()
		if h.archive != nil {
			h.archive.ArchiveTrade(ev)
		}

	case store.UnknownSymbol:
		h.count(func(c *Counters) { c.UnknownSymbol++ })
		metrics.TradesUnmatched.WithLabelValues("unknown_symbol").Inc()

	case store.StaleEvent:
		h.count(func(c *Counters) { c.StaleEvent++ })
		metrics.TradesUnmatched.WithLabelValues("stale_event").Inc()

	case store.EpochRetired:
		h.count(func(c *Counters) { c.EpochSwapped++ })
		metrics.TradesUnmatched.WithLabelValues("epoch_swapped").Inc()
	}
}

func (h *Hydrator) tracksUnderlying(underlying string) bool {
	for _, key := range h.store.Keys() {
		if key.Underlying == underlying {
			return true
		}
	}
	return false
}

func (h *Hydrator) count(fn func(*Counters)) {
	h.countMu.Lock()
	fn(&h.counters)
	h.countMu.Unlock()
}
