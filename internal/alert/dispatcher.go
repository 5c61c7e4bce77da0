package alert

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/charleschow/oddsentinel/internal/audit"
	"github.com/charleschow/oddsentinel/internal/clock"
	"github.com/charleschow/oddsentinel/internal/domain"
	"github.com/charleschow/oddsentinel/internal/telemetry"
)

// Auditor is the narrow capability this package needs from C1.
type Auditor interface {
	Submit(audit.Record)
}

// Dispatcher routes Alerts to channels, gating on severity floor and a
// per-channel cooldown, then paces sends through a token-bucket limiter
// so a burst of steam events can't trip the Bot API's own rate limiting.
type Dispatcher struct {
	channels  *Channels
	transport *Transport
	auditor   Auditor
	clock     clock.Clock
	limiter   *rate.Limiter

	mu           sync.Mutex
	lastSent     map[domain.AlertType]time.Time
	pinnedByGame map[string]int64
}

func NewDispatcher(channels *Channels, transport *Transport, auditor Auditor, c clock.Clock) *Dispatcher {
	return &Dispatcher{
		channels:     channels,
		transport:    transport,
		auditor:      auditor,
		clock:        c,
		limiter:      rate.NewLimiter(rate.Every(time.Second), 5),
		lastSent:     make(map[domain.AlertType]time.Time),
		pinnedByGame: make(map[string]int64),
	}
}

// Dispatch sends the Alert if it clears the channel's severity floor and
// cooldown; a skipped send is recorded as a value in SendResult, never
// returned as an error (spec.md §7).
func (d *Dispatcher) Dispatch(ctx context.Context, a domain.Alert) domain.SendResult {
	ch, ok := d.channels.Lookup(a.Type)
	if !ok {
		return domain.SendResult{Err: nil}
	}
	if a.Severity < ch.SeverityFloor {
		return domain.SendResult{Sent: false}
	}

	now := d.clock.Now()
	d.mu.Lock()
	last, seen := d.lastSent[a.Type]
	if seen && now.Sub(last) < time.Duration(ch.CooldownMS)*time.Millisecond {
		d.mu.Unlock()
		telemetry.Metrics.AlertsCooldown.WithLabelValues(string(a.Type)).Inc()
		return domain.SendResult{Sent: false}
	}
	d.mu.Unlock()

	if err := d.limiter.Wait(ctx); err != nil {
		return domain.SendResult{Err: err}
	}

	msgID, err := d.transport.SendMessage(ctx, ch.TopicID, formatHTML(a))
	if err != nil {
		telemetry.Metrics.AlertsFailed.WithLabelValues(string(a.Type)).Inc()
		d.auditSubmit("ALERT_SEND_FAILED", a, map[string]any{"error": err.Error()})
		return domain.SendResult{Err: err}
	}

	d.mu.Lock()
	d.lastSent[a.Type] = now
	d.mu.Unlock()

	telemetry.Metrics.AlertsSent.WithLabelValues(string(a.Type)).Inc()
	d.auditSubmit("ALERT_SENT", a, map[string]any{"message_id": msgID})

	if gameID, ok := d.shouldPin(a); ok {
		if err := d.transport.PinMessage(ctx, msgID); err == nil {
			telemetry.Metrics.MessagesPinned.Inc()
			d.mu.Lock()
			d.pinnedByGame[gameID] = msgID
			d.mu.Unlock()
		} else {
			d.mu.Lock()
			delete(d.pinnedByGame, gameID)
			d.mu.Unlock()
		}
	}

	return domain.SendResult{Sent: true, MessageID: msgID}
}

// shouldPin reports whether a just-sent Alert qualifies for pinning, per
// spec.md §4.8 step 6: type == STEAM_ALERTS and either the absolute line
// movement clears 1.0 or the steam index clears 2.0. At most one pin per
// game is allowed; the game is reserved here (mapped to msgID 0) so a
// concurrent Dispatch for the same game can't also qualify before the
// actual PinMessage call resolves — Dispatch fixes the reservation up to
// the real message id on success, or releases it on failure.
func (d *Dispatcher) shouldPin(a domain.Alert) (string, bool) {
	if a.Type != domain.AlertSteam {
		return "", false
	}
	lineMovement, _ := a.Metadata["line_movement"].(float64)
	steamIndex, _ := a.Metadata["steam_index"].(float64)
	if !(math.Abs(lineMovement) >= 1.0 || steamIndex > 2.0) {
		return "", false
	}
	gameID, _ := a.Metadata["game_id"].(string)
	if gameID == "" {
		return "", false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, pinned := d.pinnedByGame[gameID]; pinned {
		return "", false
	}
	d.pinnedByGame[gameID] = 0
	return gameID, true
}

func (d *Dispatcher) auditSubmit(event string, a domain.Alert, extra map[string]any) {
	if d.auditor == nil {
		return
	}
	payload := map[string]any{"type": string(a.Type), "severity": a.Severity.String(), "title": a.Title}
	for k, v := range extra {
		payload[k] = v
	}
	d.auditor.Submit(audit.Record{Event: event, Channel: "alert", Payload: payload})
}
