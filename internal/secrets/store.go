// Package secrets implements the Secret Store (C2): OS-native credential
// storage with environment and .env fallback, per spec.md §4.2.
package secrets

import (
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"

	"github.com/charleschow/oddsentinel/internal/audit"
)

const service = "oddsentinel"

// Auditor is the narrow capability Store needs from C1 — an explicit
// parameter rather than an ambient side effect (design note §9).
type Auditor interface {
	Submit(audit.Record)
}

// Store resolves secrets in order: OS keyring, process environment,
// on-disk .env. A successful env-tier read migrates the value into the
// keyring and audits FALLBACK_TO_ENV.
type Store struct {
	auditor Auditor
	envPath string

	mu    sync.Mutex
	cache map[string]string
	dotenv map[string]string // lazily loaded from .env, never merged into os.Environ
}

// New returns a Store. envPath is the .env file to check for tier 3
// (empty disables the tier).
func New(auditor Auditor, envPath string) *Store {
	return &Store{
		auditor: auditor,
		envPath: envPath,
		cache:   make(map[string]string),
	}
}

// SecretMissing is fatal at startup per spec.md §7.
type SecretMissing struct{ Name string }

func (e *SecretMissing) Error() string {
	return fmt.Sprintf("secret %q not found in keyring, environment, or .env", e.Name)
}

// Get resolves name through the three tiers, migrating env/.env hits into
// the keyring.
func (s *Store) Get(name string) (string, error) {
	s.mu.Lock()
	if v, ok := s.cache[name]; ok {
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()

	if v, err := keyring.Get(service, name); err == nil && v != "" {
		s.mu.Lock()
		s.cache[name] = v
		s.mu.Unlock()
		return v, nil
	}

	if v := os.Getenv(name); v != "" {
		s.migrate(name, v, "env")
		return v, nil
	}

	if s.envPath != "" {
		if _, err := os.Stat(s.envPath); err == nil {
			if v, ok := s.dotEnvValue(name); ok {
				s.migrate(name, v, "dotenv")
				return v, nil
			}
		}
	}

	return "", &SecretMissing{Name: name}
}

func (s *Store) dotEnvValue(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dotenv == nil {
		m, err := godotenv.Read(s.envPath)
		if err != nil {
			return "", false
		}
		s.dotenv = m
	}
	v, ok := s.dotenv[name]
	return v, ok
}

func (s *Store) migrate(name, value, tier string) {
	if err := keyring.Set(service, name, value); err != nil {
		// keyring unavailable (headless CI, no D-Bus, etc.) — the
		// in-process cache still serves subsequent Get calls.
	}
	s.mu.Lock()
	s.cache[name] = value
	s.mu.Unlock()

	if s.auditor != nil {
		s.auditor.Submit(audit.Record{
			Event:   "FALLBACK_TO_ENV",
			Channel: "secrets",
			Payload: map[string]any{"name": name, "tier": tier},
		})
	}
}

// Set writes through to the keyring and stores the new value in the
// in-process cache, so the next Get returns it without a keyring read.
func (s *Store) Set(name, value string) error {
	if err := keyring.Set(service, name, value); err != nil {
		return fmt.Errorf("keyring set %q: %w", name, err)
	}
	s.mu.Lock()
	s.cache[name] = value
	s.mu.Unlock()
	return nil
}

// Delete removes name from the keyring and invalidates the cache.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	delete(s.cache, name)
	s.mu.Unlock()

	if err := keyring.Delete(service, name); err != nil && err != keyring.ErrNotFound {
		return fmt.Errorf("keyring delete %q: %w", name, err)
	}
	return nil
}

// Rotate invalidates the in-process cache entry for name without touching
// the keyring, so the next Get re-reads current storage (spec.md §5).
func (s *Store) Rotate(name string) {
	s.mu.Lock()
	delete(s.cache, name)
	s.mu.Unlock()
}
