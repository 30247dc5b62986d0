// Package stream owns the scan event channel: a single websocket to the
// device-control backend, decoded into protocol events.
package stream

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soocke/leafscan-go/domain/protocol"
)

// Status describes the event channel's lifecycle.
type Status string

const (
	StatusClosed       Status = "closed"
	StatusOpen         Status = "open"
	StatusReconnecting Status = "reconnecting"
	StatusLost         Status = "lost"
)

// EventHandler receives decoded events in arrival order. ctx is cancelled
// when the channel is closed; handlers that block must select on it.
type EventHandler func(ctx context.Context, ev protocol.Event)

// StatusHandler receives status transitions made by the channel itself.
// Deliberate closes are not reported; the caller of Close already knows.
type StatusHandler func(ctx context.Context, st Status, err error)

// Options configures the channel and its reconnect policy.
type Options struct {
	URL         string
	MaxAttempts int           // consecutive failed dials before giving up
	BaseDelay   time.Duration // first retry delay, doubled per attempt
	MaxDelay    time.Duration
	Dialer      *websocket.Dialer
}

// Client is one exclusively owned event channel. Open and Close may be called
// repeatedly; at most one connection is live at any time.
type Client struct {
	opts     Options
	logger   *slog.Logger
	onEvent  EventHandler
	onStatus StatusHandler

	mu     sync.Mutex
	status Status
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

// ErrNoURL is returned by Open when no channel URL is configured.
var ErrNoURL = errors.New("stream url not configured")

// New constructs a closed client.
func New(opts Options, logger *slog.Logger, onEvent EventHandler, onStatus StatusHandler) *Client {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.MaxAttempts < 0 {
		opts.MaxAttempts = 0
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 500 * time.Millisecond
	}
	if opts.MaxDelay < opts.BaseDelay {
		opts.MaxDelay = opts.BaseDelay
	}
	return &Client{opts: opts, logger: logger, onEvent: onEvent, onStatus: onStatus, status: StatusClosed}
}

// Status returns the current lifecycle status.
func (c *Client) Status() Status {
	if c == nil {
		return StatusClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Open starts the channel in the background. A channel that is already open
// is closed first. Dial failures are retried under the reconnect policy.
func (c *Client) Open(parent context.Context) error {
	if c == nil {
		return nil
	}
	if c.opts.URL == "" {
		return ErrNoURL
	}
	c.Close()
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	c.mu.Lock()
	c.cancel, c.done = cancel, done
	c.mu.Unlock()
	go func() {
		defer close(done)
		defer recoverLog(c.logger, "stream goroutine panic")
		c.run(ctx)
	}()
	return nil
}

// Close shuts the channel and waits for its goroutine to exit. No event is
// delivered after Close returns.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	cancel, done, conn := c.cancel, c.done, c.conn
	c.cancel, c.done = nil, nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}
	<-done
	c.setStatus(StatusClosed)
	if c.logger != nil {
		c.logger.Info("event channel closed", "url", c.opts.URL)
	}
}

func (c *Client) run(ctx context.Context) {
	attempts := 0
	for {
		conn, err := c.dial(ctx)
		if ctx.Err() != nil {
			if conn != nil {
				c.mu.Lock()
				c.conn = nil
				c.mu.Unlock()
				_ = conn.Close()
			}
			return
		}
		if err != nil {
			attempts++
			if attempts > c.opts.MaxAttempts {
				c.setStatus(StatusLost)
				if c.logger != nil {
					c.logger.Warn("event channel lost", "url", c.opts.URL, "attempts", attempts-1, "error", err)
				}
				c.notify(ctx, StatusLost, err)
				return
			}
			delay := Backoff(attempts, c.opts.BaseDelay, c.opts.MaxDelay)
			c.setStatus(StatusReconnecting)
			if c.logger != nil {
				c.logger.Info("event channel reconnecting", "attempt", attempts, "delay", delay, "error", err)
			}
			c.notify(ctx, StatusReconnecting, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}
		attempts = 0
		c.setStatus(StatusOpen)
		if c.logger != nil {
			c.logger.Info("event channel open", "url", c.opts.URL)
		}
		c.notify(ctx, StatusOpen, nil)
		err = c.read(ctx, conn)
		if ctx.Err() != nil {
			return
		}
		if c.logger != nil {
			c.logger.Warn("event channel dropped", "error", err)
		}
		if c.opts.MaxAttempts == 0 {
			c.setStatus(StatusLost)
			c.notify(ctx, StatusLost, err)
			return
		}
		c.setStatus(StatusReconnecting)
		c.notify(ctx, StatusReconnecting, err)
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := c.opts.Dialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return conn, nil
}

func (c *Client) read(ctx context.Context, conn *websocket.Conn) error {
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		_ = conn.Close()
	}()
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		ev, err := protocol.Decode(data)
		if err != nil {
			if c.logger != nil {
				c.logger.Warn("event decode failed", "error", err, "size", len(data))
			}
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.onEvent != nil {
			c.onEvent(ctx, ev)
		}
	}
}

func (c *Client) setStatus(st Status) {
	c.mu.Lock()
	c.status = st
	c.mu.Unlock()
}

func (c *Client) notify(ctx context.Context, st Status, err error) {
	if c.onStatus != nil {
		c.onStatus(ctx, st, err)
	}
}

// Backoff returns the delay before retry attempt n (1-based): base doubled
// per attempt and capped at max.
func Backoff(n int, base, max time.Duration) time.Duration {
	if n < 1 {
		n = 1
	}
	d := base
	for i := 1; i < n; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

func recoverLog(logger *slog.Logger, msg string) {
	if r := recover(); r != nil {
		if logger != nil {
			logger.Error(msg, "error", r, "stack", string(debug.Stack()))
		}
	}
}
