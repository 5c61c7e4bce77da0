// Package ws implements the WebSocket Client (C6): authenticated
// connection, heartbeat, token-refresh-triggers-reconnect, and dispatch of
// decoded ticks onto the shared bus. Generalizes the teacher's
// goalserve_ws.Client.ConnectWithRetry/connect (internal/adapters/inbound/
// goalserve_ws/client.go) from a single-sport JSON feed into a
// multi-channel, multi-format (JSON+XML) odds stream.
package ws

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/charleschow/oddsentinel/internal/audit"
	"github.com/charleschow/oddsentinel/internal/clock"
	"github.com/charleschow/oddsentinel/internal/domain"
	"github.com/charleschow/oddsentinel/internal/telemetry"
	"github.com/charleschow/oddsentinel/internal/upstream/auth"
	"github.com/charleschow/oddsentinel/internal/upstream/frame"
	"github.com/charleschow/oddsentinel/internal/upstream/normalize"
)

// Auditor is the narrow capability this package needs from C1.
type Auditor interface {
	Submit(audit.Record)
}

// Config holds the connection-shape parameters spec.md §4.6/§8 names.
type Config struct {
	StreamURL             string
	Channels              []string
	ConnectTimeout        time.Duration
	HeartbeatInterval     time.Duration
	ReadTimeout           time.Duration
	TokenRefreshThreshold time.Duration
	Backoff               Backoff
	ReconnectMaxAttempts  int // 0 = unlimited
}

// Client owns one upstream connection and republishes decoded ticks.
type Client struct {
	cfg      Config
	acquirer *auth.Acquirer
	decoder  *frame.Decoder
	bus      *domain.TickBus
	auditor  Auditor
	clock    clock.Clock

	state atomic.Int32

	// observers are notified of every state transition — this is
	// how C9 attaches to C6 without C6 importing the lifecycle package.
	observers []func(State)
}

func New(cfg Config, acquirer *auth.Acquirer, decoder *frame.Decoder, bus *domain.TickBus, auditor Auditor, c clock.Clock) *Client {
	cl := &Client{cfg: cfg, acquirer: acquirer, decoder: decoder, bus: bus, auditor: auditor, clock: c}
	cl.setState(StateDisconnected)
	return cl
}

// Observe registers a callback invoked synchronously on every state
// transition. Intended for C9's lifecycle manager.
func (c *Client) Observe(fn func(State)) {
	c.observers = append(c.observers, fn)
}

func (c *Client) State() State { return State(c.state.Load()) }

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
	telemetry.Metrics.WSState.Reset()
	telemetry.Metrics.WSState.WithLabelValues(s.String()).Set(1)
	for _, fn := range c.observers {
		fn(s)
	}
}

// Run connects and reconnects with exponential backoff until ctx is
// cancelled, mirroring the teacher's ConnectWithRetry loop shape.
func (c *Client) Run(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			c.setState(StateClosed)
			return
		}

		connStart := c.clock.Now()
		c.setState(StateConnecting)
		err := c.connect(ctx)
		if ctx.Err() != nil {
			c.setState(StateClosed)
			return
		}

		if c.clock.Now().Sub(connStart) > time.Minute {
			attempt = 0
		}
		attempt++

		if c.cfg.ReconnectMaxAttempts > 0 && attempt > c.cfg.ReconnectMaxAttempts {
			c.setState(StateError)
			telemetry.Errorf("ws: giving up after %d reconnect attempts: %v", attempt, err)
			return
		}

		telemetry.Metrics.WSReconnects.Inc()
		delay := c.cfg.Backoff.Delay(attempt)
		c.setState(StateReconnecting)
		if err != nil {
			telemetry.Warnf("ws: connection lost (attempt %d): %v — retrying in %s", attempt, err, delay)
			c.auditSubmit("WS_DISCONNECTED", map[string]any{"attempt": attempt, "error": err.Error()})
		}

		select {
		case <-ctx.Done():
			c.setState(StateClosed)
			return
		case <-c.clock.After(delay):
		}
	}
}

func (c *Client) connect(ctx context.Context) error {
	tok, err := c.acquirer.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	url := fmt.Sprintf("%s?channels=%s&token=%s", c.cfg.StreamURL, strings.Join(c.cfg.Channels, ","), tok.Value)
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(c.clock.Now().Add(c.cfg.ReadTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	c.setState(StateConnected)
	c.auditSubmit("WS_CONNECTED", nil)
	telemetry.Infof("ws: connected")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.heartbeatLoop(gctx, conn) })
	g.Go(func() error { return c.refreshLoop(gctx, tok) })
	g.Go(func() error { return c.readLoop(gctx, conn) })

	err = g.Wait()
	if ctx.Err() != nil {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	}
	return err
}

// heartbeatLoop pings the server at HeartbeatInterval; gorilla/websocket
// requires writes to be serialized with any other writer on the
// connection, so this is the only goroutine that calls WriteControl for
// pings (the ping handler uses WriteControl too to send its pongs, but control frames are
// documented as safe to interleave with data writes — pings with pings
// are not, hence this being the sole heartbeat writer).
func (c *Client) heartbeatLoop(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return fmt.Errorf("heartbeat ping: %w", err)
			}
		}
	}
}

// refreshLoop re-checks the token's remaining TTL on a fraction of the
// refresh threshold and, once RefreshIfNeeded actually rotates it, forces
// a reconnect by returning — the caller's errgroup tears down the other
// goroutines via gctx cancellation (spec.md §4.6: "token refresh forces a
// reconnect rather than swapping credentials in place").
func (c *Client) refreshLoop(ctx context.Context, tok auth.Token) error {
	interval := c.cfg.TokenRefreshThreshold / 2
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	cur := tok
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			next, err := c.acquirer.RefreshIfNeeded(ctx, cur, c.cfg.TokenRefreshThreshold)
			if err != nil {
				return fmt.Errorf("token refresh: %w", err)
			}
			if next.Value != cur.Value {
				c.auditSubmit("TOKEN_REFRESHED", nil)
				return fmt.Errorf("token rotated, reconnecting")
			}
			cur = next
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn.SetReadDeadline(c.clock.Now().Add(c.cfg.ReadTimeout))
		mt, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		telemetry.Metrics.WSMessagesReceived.Inc()

		res := c.decoder.Classify(raw, mt == websocket.BinaryMessage)
		switch res.Kind {
		case frame.KindHeartbeat:
			continue
		case frame.KindText:
			c.handlePayload(res.Payload)
		default:
			telemetry.Metrics.WSParseErrors.Inc()
			telemetry.Debugf("ws: frame classify: %v", res.Err)
		}
	}
}

func (c *Client) handlePayload(payload []byte) {
	trimmed := strings.TrimSpace(string(payload))
	isXML := strings.HasPrefix(trimmed, "<")

	var tick domain.Tick
	var err error
	if isXML {
		if normalize.IsPlayerPropXML(payload) {
			var p domain.PlayerPropTick
			p, err = normalize.FromXMLPlayerProp(payload)
			tick = p.Tick
		} else {
			tick, err = normalize.FromXML(payload)
		}
	} else {
		if normalize.IsPlayerProp(payload) {
			var p domain.PlayerPropTick
			p, err = normalize.FromJSONPlayerProp(payload)
			tick = p.Tick
		} else {
			tick, err = normalize.FromJSON(payload)
		}
	}

	if err != nil {
		telemetry.Metrics.WSParseErrors.Inc()
		telemetry.Metrics.TicksDropped.WithLabelValues("parse_error").Inc()
		c.auditSubmit("TICK_DROPPED", map[string]any{"reason": "parse_error", "error": err.Error()})
		return
	}
	if tick.OldValue == 0 {
		telemetry.Metrics.TicksDropped.WithLabelValues("zero_old_value").Inc()
		c.auditSubmit("TICK_DROPPED", map[string]any{"reason": "zero_old_value", "key": tick.Key().String()})
		return
	}

	telemetry.Metrics.TicksNormalized.Inc()
	telemetry.Metrics.TickVelocity.Observe(tick.Velocity())
	c.bus.PublishTick(tick)
}

func (c *Client) auditSubmit(event string, payload map[string]any) {
	if c.auditor == nil {
		return
	}
	c.auditor.Submit(audit.Record{Event: event, Channel: "upstream_ws", Payload: payload})
}
