// Package realtime maintains one WebSocket connection to the backend's
// admin feed, demultiplexing inbound JSON frames to a single callback
// and reconnecting with capped exponential backoff for as long as it
// runs. Malformed frames are logged and dropped; they never take the
// connection down.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
)

const (
	HandshakeTimeout    = 30 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	PingInterval        = 50 * time.Second

	// DefaultReconnectInterval caps the backoff between attempts.
	DefaultReconnectInterval = 5 * time.Second
	initialReconnectDelay    = 500 * time.Millisecond
)

var ErrNotConnected = errors.New("websocket not connected")

type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

type Config struct {
	URL string
	// ReconnectInterval caps the exponential backoff between attempts.
	ReconnectInterval time.Duration
	// PingInterval and WriteTimeout override the keepalive cadence and
	// the write deadline; zero means the package defaults.
	PingInterval time.Duration
	WriteTimeout time.Duration

	// OnMessage receives every well-formed inbound frame, from the read
	// goroutine. The client is type-agnostic; consumers demultiplex.
	OnMessage func(Message)
	OnOpen    func()
	OnClose   func()
}

type Client struct {
	cfg Config
	log *slog.Logger

	state atomic.Int32

	mu   sync.Mutex
	conn *websocket.Conn
	last *Message
}

func New(cfg Config, log *slog.Logger) *Client {
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = DefaultReconnectInterval
	}
	if cfg.PingInterval == 0 {
		cfg.PingInterval = PingInterval
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	return &Client{
		cfg: cfg,
		log: log.With("component", "realtime"),
	}
}

// Start runs the connection loop until ctx is cancelled: dial, pump
// messages, and on close or error wait out the backoff and dial again.
// Cancellation interrupts both the backoff wait and a blocked read, so
// no connection attempt can fire after the owner has gone away.
// Blocks; run it in its own goroutine.
func (c *Client) Start(ctx context.Context) {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = min(initialReconnectDelay, c.cfg.ReconnectInterval)
	retry.MaxInterval = c.cfg.ReconnectInterval

	for {
		select {
		case <-ctx.Done():
			c.setState(Disconnected)
			return
		default:
		}

		c.setState(Connecting)
		conn, err := c.dial(ctx)
		if err != nil {
			c.setState(Disconnected)
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("couldn't connect", "url", c.cfg.URL, "error", err)
			if !c.wait(ctx, retry.NextBackOff()) {
				return
			}
			continue
		}

		retry.Reset()
		c.setConn(conn)
		c.setState(Connected)
		c.log.Info("connected", "url", c.cfg.URL)
		if c.cfg.OnOpen != nil {
			c.cfg.OnOpen()
		}

		c.pump(ctx, conn)

		c.setConn(nil)
		c.setState(Disconnected)
		if c.cfg.OnClose != nil {
			c.cfg.OnClose()
		}

		if ctx.Err() != nil {
			return
		}
		c.log.Info("connection lost, reconnecting")
		if !c.wait(ctx, retry.NextBackOff()) {
			return
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: HandshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, http.Header{})
	if err != nil {
		return nil, err
	}
	c.log.Debug("websocket handshake complete", "status", resp.Status)
	return conn, nil
}

// pump reads frames until the connection dies or ctx is cancelled.
func (c *Client) pump(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)

	// Unblock the read on cancellation, and keep the connection alive
	// with pings while it is up.
	go func() {
		ticker := time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				deadline := time.Now().Add(c.cfg.WriteTimeout)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					c.log.Warn("couldn't send ping", "error", err)
					// A half-open connection never errors the blocked
					// read on its own; closing here unblocks it so the
					// loop can dial again.
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.log.Warn("couldn't read message", "error", err)
			}
			conn.Close()
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Warn("dropping malformed frame", "error", err, "size", len(raw))
			continue
		}

		c.mu.Lock()
		c.last = &msg
		c.mu.Unlock()

		if c.cfg.OnMessage != nil {
			c.cfg.OnMessage(msg)
		}
	}
}

// wait sleeps for d or until cancellation; false means shut down.
func (c *Client) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// Send writes v as JSON to the live connection. Fire-and-forget: when
// not connected it fails immediately and nothing is queued.
func (c *Client) Send(v any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil || c.State() != Connected {
		return ErrNotConnected
	}

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := conn.WriteJSON(v); err != nil {
		return fmt.Errorf("couldn't send message: %w", err)
	}
	return nil
}

func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) IsConnected() bool {
	return c.State() == Connected
}

// LastMessage returns the most recent well-formed frame, or nil.
func (c *Client) LastMessage() *Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return nil
	}
	msg := *c.last
	return &msg
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}
