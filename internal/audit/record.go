// Package audit implements the append-only, greppable event trail every
// other component writes to (C1). Submit never blocks the caller beyond a
// bounded enqueue (spec.md §4.1).
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"
)

// Record is one audit entry. The [SIGNED] and [HSL] fields are not stored
// on the Record; render computes them. [SIGNED] is a content hash of
// Payload for later integrity verification, not a cryptographic signature
// over a secret — the spec calls it a "signature" but only requires tamper
// evidence, not non-repudiation.
type Record struct {
	Timestamp   time.Time
	Event       string
	ThreadGroup string
	ThreadID    string
	Channel     string
	Payload     map[string]any
}

// line is the on-disk JSON shape: bracket-wrapped keys so external tools
// can pattern-match with a plain grep, per spec.md §6.
type line struct {
	Timestamp   string         `json:"timestamp"`
	TESEvent    string         `json:"[TES_EVENT]"`
	ThreadGroup string         `json:"[THREAD_GROUP]"`
	ThreadID    string         `json:"[THREAD_ID]"`
	Channel     string         `json:"[CHANNEL]"`
	HSL         string         `json:"[HSL]"`
	Signed      string         `json:"[SIGNED]"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// render serializes a Record to one audit-log line:
// "<ISO-8601 timestamp> {...json body...}".
func render(r Record) (string, error) {
	sig := signature(r.Payload)
	l := line{
		Timestamp:   r.Timestamp.UTC().Format(time.RFC3339Nano),
		TESEvent:    r.Event,
		ThreadGroup: r.ThreadGroup,
		ThreadID:    r.ThreadID,
		Channel:     r.Channel,
		HSL:         hslColor(r.Event),
		Signed:      sig,
		Payload:     r.Payload,
	}
	body, err := json.Marshal(l)
	if err != nil {
		return "", fmt.Errorf("marshal audit record: %w", err)
	}
	return fmt.Sprintf("%s %s", l.Timestamp, body), nil
}

// signature is a content hash of the payload — changing any field changes
// the hash, which is all an append-only forensic log needs.
func signature(payload map[string]any) string {
	canon, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:])
}

// hslColor derives a deterministic HSL string from the event name, purely
// for the (out-of-scope) dashboard's rendering — the core only computes
// and stores it, per spec.md §3.
func hslColor(event string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(event))
	hue := h.Sum32() % 360
	return fmt.Sprintf("hsl(%d, 70%%, 50%%)", hue)
}
