package domain

import "time"

// Phase is a SessionState's position in the lifecycle state machine.
type Phase string

const (
	PhaseInit   Phase = "INIT"
	PhaseAuth   Phase = "AUTH"
	PhaseActive Phase = "ACTIVE"
	PhaseRenew  Phase = "RENEW"
	PhaseEvict  Phase = "EVICT"
)

// SessionState tracks one WebSocket session's lifecycle.
type SessionState struct {
	SessionID    string
	Phase        Phase
	EnteredAt    time.Time
	TensionScore float64
}

// TensionInputs are the raw signals a tension score is derived from.
type TensionInputs struct {
	LatencyMS   float64
	ErrorRate   float64 // 0-1
	QueueDepth  int
	MemMB       float64
}
