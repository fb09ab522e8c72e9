package stream

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/strikefeed/strikefeed/internal/metrics"
	"github.com/strikefeed/strikefeed/internal/model"
)

// FixtureConfig configures a replay trade source.
type FixtureConfig struct {
	Path     string        // File of newline-delimited raw feed frames
	Delay    time.Duration // Pause between frames; 0 replays as fast as possible
	RingSize int
	Loop     bool // Restart from the top when the file is exhausted
}

// Fixture replays recorded feed frames through the same normalization path
// as the live source, satisfying the Source contract without a network.
type Fixture struct {
	cfg    FixtureConfig
	logger *slog.Logger

	ring *Ring[model.TradeEvent]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	statsMu sync.Mutex
	stats   SourceStats
}

// NewFixture creates a replay trade source.
func NewFixture(cfg FixtureConfig, logger *slog.Logger) *Fixture {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RingSize == 0 {
		cfg.RingSize = DefaultLiveConfig().RingSize
	}
	return &Fixture{
		cfg:    cfg,
		logger: logger,
		ring:   NewRing[model.TradeEvent](cfg.RingSize),
	}
}

// Start begins replaying frames in the background.
func (f *Fixture) Start(ctx context.Context) error {
	if _, err := os.Stat(f.cfg.Path); err != nil {
		return err
	}

	f.ctx, f.cancel = context.WithCancel(ctx)
	f.wg.Add(1)
	go f.run()

	f.logger.Info("fixture trade source started", "path", f.cfg.Path, "loop", f.cfg.Loop)
	return nil
}

// Stop halts the replay and closes the event ring.
func (f *Fixture) Stop(ctx context.Context) error {
	if f.cancel != nil {
		f.cancel()
	}

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		f.logger.Warn("fixture trade source stop timed out")
	}

	f.ring.Close()
	return nil
}

// Events returns the bounded output ring.
func (f *Fixture) Events() *Ring[model.TradeEvent] {
	return f.ring
}

// SetSymbols is a no-op: fixtures replay what was recorded.
func (f *Fixture) SetSymbols(symbols []string) {}

// Stats returns current source statistics.
func (f *Fixture) Stats() SourceStats {
	f.statsMu.Lock()
	s := f.stats
	f.statsMu.Unlock()
	s.Ring = f.ring.Stats()
	return s
}

func (f *Fixture) run() {
	defer f.wg.Done()

	for {
		if err := f.replayOnce(); err != nil {
			f.logger.Error("fixture replay failed", "error", err)
			return
		}

		select {
		case <-f.ctx.Done():
			return
		default:
		}

		if !f.cfg.Loop {
			// One pass: close the ring so consumers see end of stream once
			// they drain what was buffered.
			f.ring.Close()
			return
		}
	}
}

func (f *Fixture) replayOnce() error {
	file, err := os.Open(f.cfg.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1<<16), 1<<22)

	for scanner.Scan() {
		select {
		case <-f.ctx.Done():
			return nil
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		res := parseFrame(line, func(ev model.TradeEvent) {
			f.ring.Send(ev)
		})

		f.statsMu.Lock()
		f.stats.FramesReceived++
		f.stats.EventsEmitted += int64(res.emitted)
		f.stats.Malformed += int64(res.malformed)
		f.stats.Skipped += int64(res.skipped)
		f.statsMu.Unlock()

		if res.malformed > 0 {
			metrics.MalformedFrames.Add(float64(res.malformed))
		}
		metrics.TradeEventsIn.Add(float64(res.emitted))

		if f.cfg.Delay > 0 {
			select {
			case <-f.ctx.Done():
				return nil
			case <-time.After(f.cfg.Delay):
			}
		}
	}
	return scanner.Err()
}
