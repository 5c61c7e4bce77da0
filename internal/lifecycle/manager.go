// Package lifecycle implements the Lifecycle Manager (C9): one
// SessionState per upstream connection, observing C6's state transitions
// and deriving a tension score from latency/error-rate/queue-depth/memory
// signals, grounded on the pack's gopsutil-based resource sampling
// (adred-codev-ws_poc/src/resource_guard.go) adapted from a static
// ResourceGuard into a continuously scored session tracker.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/charleschow/oddsentinel/internal/audit"
	"github.com/charleschow/oddsentinel/internal/clock"
	"github.com/charleschow/oddsentinel/internal/domain"
	"github.com/charleschow/oddsentinel/internal/telemetry"
	"github.com/charleschow/oddsentinel/internal/upstream/ws"
)

// tensionSpikeThreshold marks a score as spike-worthy for the
// TensionSpikes counter and a PERFORMANCE alert upstream.
const tensionSpikeThreshold = 0.75

// Auditor is the narrow capability this package needs from C1.
type Auditor interface {
	Submit(audit.Record)
}

// AlertPublisher lets the manager raise a PERFORMANCE alert without this
// package importing the alert package's Dispatcher concretely.
type AlertPublisher interface {
	Dispatch(ctx context.Context, a domain.Alert) domain.SendResult
}

// Manager tracks one SessionState and recomputes its tension score on
// every state transition and on a periodic sampling tick.
type Manager struct {
	auditor Auditor
	alerts  AlertPublisher
	clock   clock.Clock
	nc      *nats.Conn

	mu          sync.Mutex
	state       domain.SessionState
	errorCount  int
	totalCount  int
	queueDepth  int
	latencySum  float64
	latencyObs  int
}

func New(auditor Auditor, alerts AlertPublisher, c clock.Clock, natsURL string) *Manager {
	m := &Manager{
		auditor: auditor,
		alerts:  alerts,
		clock:   c,
		state: domain.SessionState{
			SessionID: uuid.NewString(),
			Phase:     domain.PhaseInit,
			EnteredAt: c.Now(),
		},
	}
	if natsURL != "" {
		if nc, err := nats.Connect(natsURL, nats.Name("oddsentinel-lifecycle")); err == nil {
			m.nc = nc
		} else {
			telemetry.Warnf("lifecycle: nats fan-out disabled: %v", err)
		}
	}
	return m
}

// AttachTo registers this manager as an observer of a C6 client, the
// plug-in point spec.md §4.9 describes ("C9 observes C6; C6 has no
// lifecycle awareness").
func (m *Manager) AttachTo(client *ws.Client) {
	client.Observe(m.onWSState)
}

func (m *Manager) onWSState(s ws.State) {
	phase := mapPhase(s)
	m.mu.Lock()
	m.state.Phase = phase
	m.state.EnteredAt = m.clock.Now()
	m.mu.Unlock()

	if m.auditor != nil {
		m.auditor.Submit(audit.Record{
			Event:   "SESSION_PHASE_CHANGED",
			Channel: "lifecycle",
			Payload: map[string]any{"session_id": m.state.SessionID, "phase": string(phase)},
		})
	}
	m.publishNATS("oddsentinel.lifecycle.phase", string(phase))
	m.RecomputeTension(context.Background())
}

func mapPhase(s ws.State) domain.Phase {
	switch s {
	case ws.StateConnecting:
		return domain.PhaseAuth
	case ws.StateConnected:
		return domain.PhaseActive
	case ws.StateReconnecting:
		return domain.PhaseRenew
	case ws.StateClosed, ws.StateError:
		return domain.PhaseEvict
	default:
		return domain.PhaseInit
	}
}

// RecordLatency and RecordError feed the rolling inputs the tension score
// is derived from; QueueDepth is supplied directly by whichever component
// owns the bounded channel being measured (spec.md §4.9).
func (m *Manager) RecordLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += float64(d.Milliseconds())
	m.latencyObs++
}

func (m *Manager) RecordError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount++
	m.totalCount++
}

func (m *Manager) SetQueueDepth(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueDepth = depth
}

// RecomputeTension samples process memory via gopsutil and derives the
// composite tension score: a weighted blend of latency, error rate,
// queue depth, and memory pressure, each normalized to roughly [0,1]
// before weighting (spec.md §4.9 step 3 — exact weights are an Open
// Question; DESIGN.md records the decision to weight them equally).
func (m *Manager) RecomputeTension(ctx context.Context) domain.SessionState {
	memMB := sampleMemoryMB()

	m.mu.Lock()
	errorRate := 0.0
	if m.totalCount > 0 {
		errorRate = float64(m.errorCount) / float64(m.totalCount)
	}
	latencyMS := 0.0
	if m.latencyObs > 0 {
		latencyMS = m.latencySum / float64(m.latencyObs)
	}
	inputs := domain.TensionInputs{
		LatencyMS:  latencyMS,
		ErrorRate:  errorRate,
		QueueDepth: m.queueDepth,
		MemMB:      memMB,
	}
	score := tensionScore(inputs)
	m.state.TensionScore = score
	snapshot := m.state
	m.latencySum, m.latencyObs = 0, 0
	m.mu.Unlock()

	telemetry.Metrics.TensionScore.WithLabelValues(snapshot.SessionID).Set(score)

	if score >= tensionSpikeThreshold {
		telemetry.Metrics.TensionSpikes.Inc()
		if m.alerts != nil {
			m.alerts.Dispatch(ctx, domain.Alert{
				Type:     domain.AlertPerformance,
				Severity: domain.SeverityWarning,
				Title:    "Session tension spike",
				Message:  "Tension score crossed the alert threshold.",
				Metadata: map[string]any{"session_id": snapshot.SessionID, "tension": score},
				Timestamp: m.clock.Now(),
			})
		}
	}

	return snapshot
}

// tensionScore normalizes each input to [0,1] against a rough operating
// ceiling, then averages them equally.
func tensionScore(in domain.TensionInputs) float64 {
	latencyNorm := clamp01(in.LatencyMS / 500.0)   // 500ms treated as saturating
	errorNorm := clamp01(in.ErrorRate)
	queueNorm := clamp01(float64(in.QueueDepth) / 1000.0)
	memNorm := clamp01(in.MemMB / 2048.0) // 2GB treated as saturating

	return (latencyNorm + errorNorm + queueNorm + memNorm) / 4
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func sampleMemoryMB() float64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0
	}
	return float64(vm.Used) / (1024 * 1024)
}

func (m *Manager) publishNATS(subject, payload string) {
	if m.nc == nil {
		return
	}
	_ = m.nc.Publish(subject, []byte(payload))
}

func (m *Manager) Close() {
	if m.nc != nil {
		m.nc.Close()
	}
}
