package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/charleschow/oddsentinel/internal/clock"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestAcquireParsesExpiryFromToken(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fc := clock.NewFake(start)
	exp := start.Add(90 * time.Second)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(signedToken(t, exp)))
	}))
	defer srv.Close()

	a := New(srv.URL, 60*time.Second, fc, nil)
	tok, err := a.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if tok.ExpiresIn.Round(time.Second) != 90*time.Second {
		t.Errorf("ExpiresIn = %v, want ~90s", tok.ExpiresIn)
	}
}

func TestAcquireFallsBackToDefaultTTLOnUnparseableToken(t *testing.T) {
	fc := clock.NewFake(time.Now())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not-a-jwt"))
	}))
	defer srv.Close()

	a := New(srv.URL, 60*time.Second, fc, nil)
	tok, err := a.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if tok.ExpiresIn != 60*time.Second {
		t.Errorf("ExpiresIn = %v, want default 60s", tok.ExpiresIn)
	}
}

func TestAcquireReturnsAuthFailedOnServerError(t *testing.T) {
	fc := clock.NewFake(time.Now())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := New(srv.URL, 60*time.Second, fc, nil)
	_, err := a.Acquire(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*AuthFailed); !ok {
		t.Errorf("got error type %T, want *AuthFailed", err)
	}
}

func TestRefreshIfNeededSkipsWhenMarginHealthy(t *testing.T) {
	fc := clock.NewFake(time.Now())
	a := New("http://unused.invalid", time.Minute, fc, nil)

	cur := Token{Value: "cached", ExpiresAt: fc.Now().Add(time.Hour)}
	got, err := a.RefreshIfNeeded(context.Background(), cur, 5*time.Second)
	if err != nil {
		t.Fatalf("RefreshIfNeeded: %v", err)
	}
	if got.Value != "cached" {
		t.Errorf("RefreshIfNeeded should not have re-acquired: got %+v", got)
	}
}

func TestRefreshIfNeededReacquiresWhenBelowThreshold(t *testing.T) {
	fc := clock.NewFake(time.Now())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(signedToken(t, fc.Now().Add(time.Hour))))
	}))
	defer srv.Close()

	a := New(srv.URL, time.Minute, fc, nil)
	cur := Token{Value: "stale", ExpiresAt: fc.Now().Add(2 * time.Second)}
	got, err := a.RefreshIfNeeded(context.Background(), cur, 5*time.Second)
	if err != nil {
		t.Fatalf("RefreshIfNeeded: %v", err)
	}
	if got.Value == "stale" {
		t.Error("RefreshIfNeeded should have re-acquired a fresh token")
	}
}
