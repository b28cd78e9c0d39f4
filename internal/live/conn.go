// Package live keeps WebSocket subscriptions open for the lifetime of a view.
//
// A Conn loops disconnected → connecting → open → closed → connecting (after Delay) until its
// context is cancelled. Transport errors never surface to callers; they only drive reconnects.
package live

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type State int32

const (
	Disconnected State = iota
	Connecting
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "disconnected"
	}
}

// CloseAbnormal is reported when the socket never opened or dropped without a close frame.
const CloseAbnormal = websocket.CloseAbnormalClosure

const DefaultDelay = 2 * time.Second

type Options struct {
	// URL is evaluated before every dial so a refreshed token is picked up.
	URL       func() (string, error)
	OnMessage func(frame []byte)
	OnState   func(State)
	// OnClose runs after a connection attempt ends and before the reconnect delay starts.
	// opened reports whether the handshake had succeeded.
	OnClose func(code int, opened bool)
	Delay   time.Duration
	Dialer  *websocket.Dialer
	Logger  *zap.Logger
}

type Conn struct {
	opts  Options
	state atomic.Int32
}

func New(opts Options) *Conn {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Conn{opts: opts}
}

func (c *Conn) State() State { return State(c.state.Load()) }

// Run blocks, reconnecting after every close, until ctx is cancelled. Cancelling closes the
// socket and schedules nothing further.
func (c *Conn) Run(ctx context.Context) {
	defer c.setState(Disconnected)
	for {
		if ctx.Err() != nil {
			return
		}
		c.setState(Connecting)
		code, opened := c.once(ctx)
		if ctx.Err() != nil {
			return
		}
		c.setState(Closed)
		if c.opts.OnClose != nil {
			c.opts.OnClose(code, opened)
		}

		t := time.NewTimer(c.opts.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// once dials and reads until the connection ends, returning the close code.
func (c *Conn) once(ctx context.Context) (code int, opened bool) {
	log := c.opts.Logger
	url, err := c.opts.URL()
	if err != nil {
		log.Debug("live: no url", zap.Error(err))
		return CloseAbnormal, false
	}
	ws, resp, err := c.opts.Dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		log.Debug("live: dial failed", zap.String("url", redact(url)), zap.Error(err))
		return CloseAbnormal, false
	}

	c.setState(Open)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = ws.Close()
		case <-done:
		}
	}()
	defer func() {
		close(done)
		_ = ws.Close()
	}()

	for {
		typ, frame, err := ws.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				log.Debug("live: closed", zap.String("url", redact(url)), zap.Int("code", ce.Code))
				return ce.Code, true
			}
			log.Debug("live: read failed", zap.String("url", redact(url)), zap.Error(err))
			return CloseAbnormal, true
		}
		if typ != websocket.TextMessage {
			continue
		}
		if c.opts.OnMessage != nil {
			c.opts.OnMessage(frame)
		}
	}
}

func (c *Conn) setState(s State) {
	if State(c.state.Swap(int32(s))) == s {
		return
	}
	if c.opts.OnState != nil {
		c.opts.OnState(s)
	}
}

// redact drops the query string, which carries the access token.
func redact(u string) string {
	base, _, _ := strings.Cut(u, "?")
	return base
}
