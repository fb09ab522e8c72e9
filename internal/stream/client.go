package stream

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout  = 10 * time.Second
	keepaliveInterval = 30 * time.Second
	controlTimeout    = time.Second
)

// Client is one websocket connection to the trade feed. Raw frames land in a
// drop-oldest ring, so a stalled consumer sheds the oldest frames with the
// loss counted in the ring stats, matching the event ring downstream.
type Client interface {
	// Connect establishes the websocket connection.
	Connect(ctx context.Context) error

	// Close gracefully closes the connection. The frame ring is closed once
	// the reader exits.
	Close() error

	// Send writes raw bytes to the connection.
	Send(data []byte) error

	// Frames returns the bounded ring of raw frames.
	Frames() *Ring[TimestampedMessage]

	// Errors returns a channel of connection errors.
	Errors() <-chan error

	// IsConnected returns current connection state.
	IsConnected() bool
}

type wsClient struct {
	cfg    ClientConfig
	logger *slog.Logger

	frames *Ring[TimestampedMessage]
	errs   chan error
	done   chan struct{}

	writeMu sync.Mutex // serializes data writes

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	lastSeen  time.Time // last ping or pong from the server
	closed    bool
}

// NewClient creates a websocket client.
func NewClient(cfg ClientConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultClientConfig().BufferSize
	}
	return &wsClient{
		cfg:    cfg,
		logger: logger,
		frames: NewRing[TimestampedMessage](cfg.BufferSize),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
}

func (c *wsClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.mu.Unlock()

	header := http.Header{}
	header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.lastSeen = time.Now()
	c.mu.Unlock()

	// Server pings reset the staleness clock; answer with a pong.
	conn.SetPingHandler(func(data string) error {
		c.touch()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(controlTimeout))
	})
	conn.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	go c.readLoop()
	go c.keepaliveLoop()

	c.logger.Debug("websocket connected", "url", c.cfg.URL)
	return nil
}

func (c *wsClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	c.mu.Unlock()

	close(c.done)

	if conn == nil {
		// Never connected; nothing will close the ring for us.
		c.frames.Close()
		return nil
	}
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(controlTimeout),
	)
	return conn.Close()
}

func (c *wsClient) Send(data []byte) error {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.RUnlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsClient) Frames() *Ring[TimestampedMessage] {
	return c.frames
}

func (c *wsClient) Errors() <-chan error {
	return c.errs
}

func (c *wsClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *wsClient) touch() {
	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()
}

// reportErr surfaces one connection error unless Close was already called.
func (c *wsClient) reportErr(err error) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.errs <- err:
	default:
	}
}

// readLoop pumps frames from the socket into the ring until the connection
// dies, then closes the ring so the consumer drains and observes the end.
func (c *wsClient) readLoop() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		c.frames.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.reportErr(err)
			return
		}
		c.frames.Send(TimestampedMessage{Data: data, ReceivedAt: time.Now()})
	}
}

// keepaliveLoop pings the server and declares the connection stale after
// PingTimeout of silence.
func (c *wsClient) keepaliveLoop() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}

		c.mu.RLock()
		conn := c.conn
		lastSeen := c.lastSeen
		c.mu.RUnlock()

		deadline := time.Now().Add(c.cfg.WriteTimeout)
		if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
			c.logger.Debug("keepalive ping failed", "error", err)
		}

		if time.Since(lastSeen) > c.cfg.PingTimeout {
			c.logger.Warn("connection stale, no server contact",
				"last_seen", lastSeen,
				"timeout", c.cfg.PingTimeout,
			)
			c.reportErr(ErrStaleConnection)
			return
		}
	}
}
