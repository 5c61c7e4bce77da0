// Package frame implements the Frame Decoder (C4): classifying raw
// websocket frames (heartbeat, compressed binary, plain text) before
// handing a decoded payload to C5, adapting the teacher's inline
// per-message switch (goalserve_ws.Client.connect) into a standalone,
// reusable classifier with compression support from klauspost/compress.
package frame

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/charleschow/oddsentinel/internal/audit"
)

// Kind discriminates the decoded result so C5 never has to re-sniff it.
type Kind int

const (
	KindUnknown Kind = iota
	KindHeartbeat
	KindText
)

// Result is the discriminated return Classify produces: Payload is set
// only when Kind is KindText (possibly decompressed), and Err explains
// why classification fell back to KindUnknown.
type Result struct {
	Kind    Kind
	Payload []byte
	Err     error
}

const heartbeatMaxLen = 16

// Auditor is the narrow capability this package needs from C1.
type Auditor interface {
	Submit(audit.Record)
}

// Decoder classifies raw websocket frames. It never panics: any
// unexpected shape is reported as KindUnknown with Err set rather than
// propagated (spec.md §4.4 — a single bad frame must never take down the
// connection).
type Decoder struct {
	auditor Auditor
}

func New(auditor Auditor) *Decoder {
	return &Decoder{auditor: auditor}
}

// Classify inspects one websocket frame (isBinary as reported by
// gorilla/websocket's ReadMessage) and returns a decoded Result.
func (d *Decoder) Classify(raw []byte, isBinary bool) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Kind: KindUnknown, Err: fmt.Errorf("frame decode panic: %v", r)}
		}
		d.audit(res)
	}()

	if !isBinary {
		return classifyText(raw)
	}

	if len(raw) <= heartbeatMaxLen {
		return Result{Kind: KindHeartbeat}
	}

	payload, err := decompress(raw)
	if err != nil {
		return Result{Kind: KindUnknown, Err: fmt.Errorf("decompress binary frame: %w", err)}
	}
	return Result{Kind: KindText, Payload: payload}
}

// classifyText recognizes the plain-text control messages ("ok", and
// anything starting with '<' or '{') straight through.
func classifyText(raw []byte) Result {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Result{Kind: KindHeartbeat}
	}
	switch string(bytes.ToLower(trimmed)) {
	case "ok", "ping", "pong":
		return Result{Kind: KindHeartbeat}
	}
	switch trimmed[0] {
	case '<', '{':
		return Result{Kind: KindText, Payload: trimmed}
	}
	return Result{Kind: KindUnknown, Err: fmt.Errorf("unrecognized text frame prefix %q", trimmed[:min(1, len(trimmed))])}
}

// decompress checks for the gzip magic bytes, then for a zlib header, and
// otherwise reads the frame as raw deflate (which has no magic bytes) —
// the three shapes klauspost/compress covers that upstream providers are
// known to use for binary odds pushes.
func decompress(raw []byte) ([]byte, error) {
	if len(raw) >= 2 && raw[0] == 0x1f && raw[1] == 0x8b {
		gr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gr.Close()
		return io.ReadAll(gr)
	}

	if len(raw) >= 2 && raw[0] == 0x78 && (raw[1] == 0x01 || raw[1] == 0x9c || raw[1] == 0xda) {
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("zlib: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	}

	fr := flate.NewReader(bytes.NewReader(raw))
	defer fr.Close()
	out, err := io.ReadAll(fr)
	if err != nil {
		return nil, fmt.Errorf("flate: %w", err)
	}
	return out, nil
}

func (d *Decoder) audit(res Result) {
	if d.auditor == nil {
		return
	}
	kind := "unknown"
	switch res.Kind {
	case KindHeartbeat:
		kind = "heartbeat"
	case KindText:
		kind = "text"
	}
	payload := map[string]any{"kind": kind}
	if res.Err != nil {
		payload["error"] = res.Err.Error()
	}
	d.auditor.Submit(audit.Record{
		Event:   "FRAME_CLASSIFIED",
		Channel: "upstream_frame",
		Payload: payload,
	})
}
