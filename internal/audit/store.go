package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	_ "modernc.org/sqlite"

	"github.com/charleschow/oddsentinel/internal/telemetry"
)

const evictBatchSize = 200

// store is a time-bounded, queryable mirror of the audit log, adapting the
// teacher's FIFO-eviction SQLite webhook store (internal/adapters/inbound/
// goalserve_webhook/store.go) from a byte budget to a time-based retention
// window — spec.md §3: "retention is time-bounded, not size-bounded."
type store struct {
	db        *sql.DB
	mu        sync.Mutex
	retention time.Duration
}

func openStore(path string, retention time.Duration) (*store, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open audit sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS audit_records (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			ts        INTEGER NOT NULL,
			event     TEXT    NOT NULL,
			channel   TEXT    NOT NULL,
			line      TEXT    NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit_records(ts)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init audit schema (%s): %w", stmt, err)
		}
	}

	telemetry.Infof("audit: sqlite backing store opened at %s, retention=%s", path, humanize.RelTime(time.Now().Add(-retention), time.Now(), "", ""))
	return &store{db: db, retention: retention}, nil
}

// insert persists one rendered audit line and evicts rows older than the
// retention window. Best-effort: failures are logged, never returned to
// the submitter (spec.md §7 — AuditWriteFailed is stderr-only).
func (s *store) insert(rec Record, rendered string) {
	if s == nil {
		return
	}

	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		_, err := s.db.Exec(
			`INSERT INTO audit_records (ts, event, channel, line) VALUES (?, ?, ?, ?)`,
			rec.Timestamp.UnixMilli(), rec.Event, rec.Channel, rendered,
		)
		if err != nil {
			telemetry.Warnf("audit: sqlite insert failed: %v", err)
			telemetry.Metrics.AuditWriteErrors.Inc()
			return
		}

		s.evictOlderThan(rec.Timestamp.Add(-s.retention))
	}()
}

// evictOlderThan removes rows whose timestamp is before cutoff, in
// batches, mirroring the teacher store's evict() loop shape. Must be
// called with s.mu held.
func (s *store) evictOlderThan(cutoff time.Time) {
	cutoffMS := cutoff.UnixMilli()
	for {
		res, err := s.db.Exec(
			`DELETE FROM audit_records WHERE id IN (
				SELECT id FROM audit_records WHERE ts < ? ORDER BY id ASC LIMIT ?
			)`,
			cutoffMS, evictBatchSize,
		)
		if err != nil {
			telemetry.Warnf("audit: sqlite evict failed: %v", err)
			return
		}
		n, _ := res.RowsAffected()
		if n > 0 {
			telemetry.Debugf("audit: evicted %s audit rows older than retention window", humanize.Comma(n))
		}
		if n < evictBatchSize {
			return
		}
	}
}

func (s *store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
