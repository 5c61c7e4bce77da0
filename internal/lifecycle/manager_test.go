package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/charleschow/oddsentinel/internal/clock"
	"github.com/charleschow/oddsentinel/internal/domain"
	"github.com/charleschow/oddsentinel/internal/upstream/ws"
)

func TestMapPhase(t *testing.T) {
	cases := []struct {
		in   ws.State
		want domain.Phase
	}{
		{ws.StateConnecting, domain.PhaseAuth},
		{ws.StateConnected, domain.PhaseActive},
		{ws.StateReconnecting, domain.PhaseRenew},
		{ws.StateClosed, domain.PhaseEvict},
		{ws.StateError, domain.PhaseEvict},
		{ws.StateDisconnected, domain.PhaseInit},
	}
	for _, c := range cases {
		if got := mapPhase(c.in); got != c.want {
			t.Errorf("mapPhase(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestTensionScoreSaturatesAtOne(t *testing.T) {
	score := tensionScore(domain.TensionInputs{
		LatencyMS:  10000,
		ErrorRate:  5,
		QueueDepth: 100000,
		MemMB:      100000,
	})
	if score != 1 {
		t.Errorf("tensionScore = %v, want 1 (all inputs saturated)", score)
	}
}

func TestTensionScoreZeroInputsIsZero(t *testing.T) {
	score := tensionScore(domain.TensionInputs{})
	if score != 0 {
		t.Errorf("tensionScore = %v, want 0", score)
	}
}

type fakeAlerts struct{ dispatched []domain.Alert }

func (f *fakeAlerts) Dispatch(ctx context.Context, a domain.Alert) domain.SendResult {
	f.dispatched = append(f.dispatched, a)
	return domain.SendResult{Sent: true}
}

func TestRecomputeTensionDispatchesAlertAboveThreshold(t *testing.T) {
	fc := clock.NewFake(time.Now())
	alerts := &fakeAlerts{}
	m := New(nil, alerts, fc, "")

	// The score is the plain average of four inputs, so at least three must
	// saturate to reach the 0.75 threshold whatever the host's memory use.
	for i := 0; i < 10; i++ {
		m.RecordLatency(2 * time.Second) // far above the 500ms saturation point
		m.RecordError()
	}
	m.SetQueueDepth(1000) // the 1000-deep saturation point

	snap := m.RecomputeTension(context.Background())
	if snap.TensionScore < tensionSpikeThreshold {
		t.Fatalf("TensionScore = %v, want >= %v", snap.TensionScore, tensionSpikeThreshold)
	}
	if len(alerts.dispatched) != 1 {
		t.Fatalf("got %d dispatched alerts, want 1", len(alerts.dispatched))
	}
	if alerts.dispatched[0].Type != domain.AlertPerformance {
		t.Errorf("alert type = %v, want AlertPerformance", alerts.dispatched[0].Type)
	}
}

func TestRecomputeTensionResetsLatencyAccumulator(t *testing.T) {
	fc := clock.NewFake(time.Now())
	m := New(nil, nil, fc, "")

	m.RecordLatency(100 * time.Millisecond)
	m.RecomputeTension(context.Background())

	if m.latencyObs != 0 || m.latencySum != 0 {
		t.Errorf("expected latency accumulator reset, got sum=%v obs=%v", m.latencySum, m.latencyObs)
	}
}

func TestRecomputeTensionSkipsAlertBelowThreshold(t *testing.T) {
	fc := clock.NewFake(time.Now())
	alerts := &fakeAlerts{}
	m := New(nil, alerts, fc, "")

	m.RecordLatency(10 * time.Millisecond)
	m.RecomputeTension(context.Background())

	if len(alerts.dispatched) != 0 {
		t.Errorf("expected no alert dispatched, got %d", len(alerts.dispatched))
	}
}
