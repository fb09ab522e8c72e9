package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/strikefeed/strikefeed/internal/metrics"
	"github.com/strikefeed/strikefeed/internal/model"
)

// subscribeChunk bounds how many symbols ride in one subscribe command so a
// large targeted set never exceeds the feed's frame size limit.
const subscribeChunk = 200

// Live consumes the live trade feed over a websocket, reconnecting with
// exponential backoff and re-issuing the current subscription set. It never
// fabricates missed events.
type Live struct {
	cfg    LiveConfig
	logger *slog.Logger

	ring *Ring[model.TradeEvent]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	client     Client
	symbols    []string // targeted subscription set
	subscribed []string // params currently subscribed on the wire

	statsMu sync.Mutex
	stats   SourceStats
}

// NewLive creates a live trade source.
func NewLive(cfg LiveConfig, logger *slog.Logger) *Live {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RingSize == 0 {
		cfg.RingSize = DefaultLiveConfig().RingSize
	}
	return &Live{
		cfg:    cfg,
		logger: logger,
		ring:   NewRing[model.TradeEvent](cfg.RingSize),
	}
}

// Start begins feed consumption in the background.
func (l *Live) Start(ctx context.Context) error {
	l.ctx, l.cancel = context.WithCancel(ctx)

	l.wg.Add(1)
	go l.run()

	l.logger.Info("trade source started",
		"url", l.cfg.URL,
		"mode", l.cfg.Mode,
		"ring", l.cfg.RingSize,
	)
	return nil
}

// Stop gracefully shuts down. Buffered events remain receivable until the
// ring drains; the ring is closed so consumers observe end of stream.
func (l *Live) Stop(ctx context.Context) error {
	if l.cancel != nil {
		l.cancel()
	}

	l.mu.Lock()
	if l.client != nil {
		l.client.Close()
	}
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		l.logger.Info("trade source stopped")
	case <-ctx.Done():
		l.logger.Warn("trade source stop timed out")
	}

	l.ring.Close()
	return nil
}

// Events returns the bounded output ring.
func (l *Live) Events() *Ring[model.TradeEvent] {
	return l.ring
}

// SetSymbols replaces the targeted subscription set and re-issues it on the
// live connection. No-op in broad mode.
func (l *Live) SetSymbols(symbols []string) {
	if l.cfg.Mode != ModeTargeted {
		return
	}

	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)

	l.mu.Lock()
	l.symbols = sorted
	client := l.client
	l.mu.Unlock()

	if client != nil && client.IsConnected() {
		l.resubscribe(client)
	}
}

// Stats returns current source statistics.
func (l *Live) Stats() SourceStats {
	l.statsMu.Lock()
	s := l.stats
	l.statsMu.Unlock()

	l.mu.Lock()
	if l.client != nil {
		s.Connected = l.client.IsConnected()
	}
	l.mu.Unlock()

	s.Ring = l.ring.Stats()
	return s
}

// run is the connect/consume/reconnect loop.
func (l *Live) run() {
	defer l.wg.Done()

	wait := l.cfg.ReconnectBaseWait
	for {
		select {
		case <-l.ctx.Done():
			return
		default:
		}

		client := NewClient(ClientConfig{
			URL:          l.cfg.URL,
			APIKey:       l.cfg.APIKey,
			PingTimeout:  l.cfg.PingTimeout,
			WriteTimeout: l.cfg.WriteTimeout,
			BufferSize:   DefaultClientConfig().BufferSize,
		}, l.logger)

		if err := client.Connect(l.ctx); err != nil {
			l.logger.Warn("feed connect failed", "error", err, "retry_in", wait)
			select {
			case <-l.ctx.Done():
				return
			case <-time.After(wait):
			}
			wait *= 2
			if wait > l.cfg.ReconnectMaxWait {
				wait = l.cfg.ReconnectMaxWait
			}
			continue
		}
		wait = l.cfg.ReconnectBaseWait

		l.mu.Lock()
		l.client = client
		l.subscribed = nil
		l.mu.Unlock()

		l.resubscribe(client)
		l.consume(client)

		client.Close()

		// Fold this connection's frame-ring losses into the source totals
		// before the client is discarded.
		fs := client.Frames().Stats()
		l.statsMu.Lock()
		l.stats.FrameDrops += fs.Dropped
		l.statsMu.Unlock()

		select {
		case <-l.ctx.Done():
			return
		default:
			l.statsMu.Lock()
			l.stats.Reconnects++
			l.statsMu.Unlock()
			metrics.StreamReconnects.Inc()
		}
	}
}

// consume drains the connection's frame ring until it errors or shutdown.
func (l *Live) consume(client Client) {
	frames := client.Frames()
	for {
		select {
		case <-l.ctx.Done():
			return
		case err := <-client.Errors():
			l.logger.Warn("feed connection lost", "error", err)
			return
		default:
		}

		msg, ok := frames.TryReceive()
		if !ok {
			if frames.IsClosed() {
				return
			}
			select {
			case <-l.ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
			continue
		}
		l.handleFrame(msg)
	}
}

// handleFrame parses one raw frame and pushes its events into the ring.
func (l *Live) handleFrame(msg TimestampedMessage) {
	res := parseFrame(msg.Data, func(ev model.TradeEvent) {
		l.ring.Send(ev)
	})

	for _, status := range res.statuses {
		l.logger.Debug("feed status", "status", status.Status, "message", status.Message)
	}

	l.statsMu.Lock()
	l.stats.FramesReceived++
	l.stats.EventsEmitted += int64(res.emitted)
	l.stats.Malformed += int64(res.malformed)
	l.stats.Skipped += int64(res.skipped)
	l.statsMu.Unlock()

	if res.malformed > 0 {
		metrics.MalformedFrames.Add(float64(res.malformed))
	}
	metrics.TradeEventsIn.Add(float64(res.emitted))
}

// resubscribe replaces the wire subscription with the current set.
func (l *Live) resubscribe(client Client) {
	var params []string
	switch l.cfg.Mode {
	case ModeBroad:
		params = []string{"T.*"}
	case ModeTargeted:
		l.mu.Lock()
		for _, sym := range l.symbols {
			params = append(params, "T.O:"+sym)
		}
		l.mu.Unlock()
	}

	l.mu.Lock()
	previous := l.subscribed
	l.subscribed = params
	l.mu.Unlock()

	if len(previous) > 0 {
		l.sendCommand(client, "unsubscribe", previous)
	}
	if len(params) > 0 {
		l.sendCommand(client, "subscribe", params)
	}

	l.logger.Debug("subscription updated", "mode", l.cfg.Mode, "params", len(params))
}

// sendCommand sends a feed command in chunks.
func (l *Live) sendCommand(client Client, action string, params []string) {
	for start := 0; start < len(params); start += subscribeChunk {
		end := start + subscribeChunk
		if end > len(params) {
			end = len(params)
		}

		data, err := json.Marshal(command{
			Action: action,
			Params: strings.Join(params[start:end], ","),
		})
		if err != nil {
			continue
		}
		if err := client.Send(data); err != nil {
			l.logger.Warn("feed command failed", "action", action, "error", err)
			return
		}
	}
}
