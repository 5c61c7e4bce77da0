// Package auth implements the Token Acquirer (C3): short-TTL bearer token
// issuance from the upstream auth endpoint, generalizing the teacher's
// goalserve_ws.TokenProvider (internal/adapters/inbound/goalserve_ws/auth.go).
package auth

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/charleschow/oddsentinel/internal/audit"
	"github.com/charleschow/oddsentinel/internal/clock"
)

// Token is the value C6 holds: a bearer string plus its derived expiry.
type Token struct {
	Value     string
	ExpiresIn time.Duration
	ExpiresAt time.Time
}

// AuthFailed wraps the non-2xx/transport/decode failures spec.md §4.3
// requires C6 to escalate on.
type AuthFailed struct {
	Cause error
}

func (e *AuthFailed) Error() string { return fmt.Sprintf("auth failed: %v", e.Cause) }
func (e *AuthFailed) Unwrap() error { return e.Cause }

// Auditor is the narrow capability this package needs from C1.
type Auditor interface {
	Submit(audit.Record)
}

// Acquirer issues GETs against the upstream auth endpoint and decodes the
// returned bearer token's expiry.
type Acquirer struct {
	authURL    string
	httpClient *http.Client
	clock      clock.Clock
	defaultTTL time.Duration
	auditor    Auditor
}

func New(authURL string, defaultTTL time.Duration, c clock.Clock, auditor Auditor) *Acquirer {
	return &Acquirer{
		authURL:    authURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		clock:      c,
		defaultTTL: defaultTTL,
		auditor:    auditor,
	}
}

// Acquire issues a fresh token, per spec.md §6: a random "rnum" query
// parameter defeats intermediary caches.
func (a *Acquirer) Acquire(ctx context.Context) (Token, error) {
	u := fmt.Sprintf("%s?rnum=%s", a.authURL, randFraction())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Token{}, &AuthFailed{Cause: err}
	}
	req.Header.Set("Origin", "https://oddsentinel.local")
	req.Header.Set("Referer", "https://oddsentinel.local/")
	req.Header.Set("User-Agent", "oddsentinel/1.0")
	req.Header.Set("Accept", "*/*")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return Token{}, &AuthFailed{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Token{}, &AuthFailed{Cause: fmt.Errorf("status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return Token{}, &AuthFailed{Cause: err}
	}
	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return Token{}, &AuthFailed{Cause: fmt.Errorf("empty auth response body")}
	}

	tok := a.decode(raw)
	if a.auditor != nil {
		a.auditor.Submit(audit.Record{
			Event:   "JWT_ACQUIRED",
			Channel: "upstream_auth",
			Payload: map[string]any{"expires_in_s": tok.ExpiresIn.Seconds()},
		})
	}
	return tok, nil
}

// decode parses the middle segment of a dot-separated bearer token as
// base64url JSON to extract "exp". Any failure (not 3 parts, undecodable
// segment, no exp claim) falls back to the configured default TTL — the
// upstream's token is informational; we never verify its signature since
// the provider itself owns validation (spec.md §9 open question is about
// the renewal opcode, not this).
func (a *Acquirer) decode(raw string) Token {
	now := a.clock.Now()
	ttl := a.defaultTTL

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			if d := exp.Time.Sub(now); d > 0 {
				ttl = d
			}
		}
	}

	return Token{
		Value:     raw,
		ExpiresIn: ttl,
		ExpiresAt: now.Add(ttl),
	}
}

// RefreshIfNeeded returns cur unchanged when it still has more than
// threshold left, else acquires a fresh token (spec.md §4.3/§8: no
// spurious refresh when the margin is still healthy).
func (a *Acquirer) RefreshIfNeeded(ctx context.Context, cur Token, threshold time.Duration) (Token, error) {
	if !cur.ExpiresAt.IsZero() && cur.ExpiresAt.Sub(a.clock.Now()) > threshold {
		return cur, nil
	}
	return a.Acquire(ctx)
}

func randFraction() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "0.5"
	}
	// Map to [0, 1) the same shape as the upstream's own rnum examples.
	v := float64(binary.BigEndian.Uint64(b[:])>>11) / (1 << 53)
	return fmt.Sprintf("%.16f", v)
}
