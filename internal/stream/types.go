package stream

import (
	"context"
	"errors"
	"time"

	"github.com/strikefeed/strikefeed/internal/model"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// Mode selects the subscription strategy.
type Mode string

const (
	// ModeBroad subscribes to every trade print on the feed. Used for
	// discovery and diagnostics.
	ModeBroad Mode = "broad"

	// ModeTargeted subscribes only to symbols present in the active epochs.
	// Steady-state operation; cuts feed noise sharply.
	ModeTargeted Mode = "targeted"
)

// Source produces canonical trade events from a live or replayed feed.
// Implementations never reorder events within one underlying's stream;
// duplicates are permitted and expected.
type Source interface {
	// Start begins consuming the feed in the background.
	Start(ctx context.Context) error

	// Stop gracefully shuts down; buffered events remain receivable.
	Stop(ctx context.Context) error

	// Events returns the bounded output ring the hydrator consumes.
	Events() *Ring[model.TradeEvent]

	// SetSymbols replaces the targeted subscription set. No-op in broad mode.
	SetSymbols(symbols []string)

	// Stats returns current source statistics.
	Stats() SourceStats
}

// SourceStats holds feed-level counters.
type SourceStats struct {
	FramesReceived int64
	EventsEmitted  int64
	Malformed      int64
	Skipped        int64 // recognized non-trade frames (status, subscriptions)
	FrameDrops     int64 // raw frames shed by per-connection rings, across reconnects
	Reconnects     int64
	Connected      bool
	Ring           RingStats
}

// ClientConfig configures a single websocket connection.
type ClientConfig struct {
	URL          string        // Feed websocket URL
	APIKey       string        // Bearer token, empty for unauthenticated feeds
	PingTimeout  time.Duration // Max silence before the connection is stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Raw frame ring capacity
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   10000,
	}
}

// LiveConfig configures the live trade source.
type LiveConfig struct {
	URL               string
	APIKey            string
	Mode              Mode
	RingSize          int           // Event ring capacity
	ReconnectBaseWait time.Duration // Base wait for reconnection backoff
	ReconnectMaxWait  time.Duration // Cap for reconnection backoff
	PingTimeout       time.Duration
	WriteTimeout      time.Duration
}

// DefaultLiveConfig returns sensible defaults.
func DefaultLiveConfig() LiveConfig {
	return LiveConfig{
		Mode:              ModeTargeted,
		RingSize:          100000,
		ReconnectBaseWait: time.Second,
		ReconnectMaxWait:  60 * time.Second,
		PingTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Second,
	}
}

// TimestampedMessage wraps raw frame bytes with the local receive time.
type TimestampedMessage struct {
	Data       []byte
	ReceivedAt time.Time
}

// Wire types for JSON parsing.

// tradeWire is the raw shape of one trade message from the feed.
type tradeWire struct {
	Ev        string  `json:"ev"`
	Sym       string  `json:"sym"`
	Price     float64 `json:"price"`
	Size      int64   `json:"size"`
	Timestamp int64   `json:"timestamp"` // ms since epoch
}

// statusWire is the raw shape of a feed control message.
type statusWire struct {
	Ev      string `json:"ev"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// command is an outbound feed command.
type command struct {
	Action string `json:"action"`
	Params string `json:"params"`
}
