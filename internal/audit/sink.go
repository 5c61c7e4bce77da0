package audit

import (
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/charleschow/oddsentinel/internal/telemetry"
)

const submitBufferSize = 4096

// Sink is the single process-wide audit handle (design note §9: "the sole
// allowed process-wide state is the audit sink handle"). Submit never
// blocks the caller beyond the buffered channel send; a full buffer drops
// the oldest unsent record and logs to stderr rather than applying
// backpressure to the submitter.
type Sink struct {
	records chan Record
	file    *os.File
	store   *store
	nc      *nats.Conn // nil when NATS isn't configured — Enabled()-gate idiom

	wg   sync.WaitGroup
	done chan struct{}
}

// Config controls where the sink persists records.
type Config struct {
	LogPath   string
	DBPath    string
	Retention time.Duration
	NatsURL   string
}

// Open creates the log file (append-only) and, if configured, the SQLite
// backing store and NATS connection, then starts the single drain
// goroutine that owns all actual I/O.
func Open(cfg Config) (*Sink, error) {
	f, err := os.OpenFile(cfg.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	st, err := openStore(cfg.DBPath, cfg.Retention)
	if err != nil {
		telemetry.Warnf("audit: sqlite backing store disabled: %v", err)
		st = nil
	}

	var nc *nats.Conn
	if cfg.NatsURL != "" {
		nc, err = nats.Connect(cfg.NatsURL, nats.Name("oddsentinel-audit"))
		if err != nil {
			telemetry.Warnf("audit: nats fan-out disabled: %v", err)
			nc = nil
		}
	}

	s := &Sink{
		records: make(chan Record, submitBufferSize),
		file:    f,
		store:   st,
		nc:      nc,
		done:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.drain()
	return s, nil
}

// Submit enqueues a record for asynchronous persistence. Never blocks
// beyond the channel send; drops the oldest queued record under sustained
// overflow rather than blocking the producer (spec.md §4.1).
func (s *Sink) Submit(rec Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	select {
	case s.records <- rec:
	default:
		select {
		case old := <-s.records:
			telemetry.Warnf("audit: buffer saturated, dropped oldest record event=%s", old.Event)
		default:
		}
		select {
		case s.records <- rec:
		default:
			telemetry.Warnf("audit: buffer saturated, dropping record event=%s", rec.Event)
		}
	}
}

func (s *Sink) drain() {
	defer s.wg.Done()
	for {
		select {
		case rec, ok := <-s.records:
			if !ok {
				return
			}
			s.write(rec)
		case <-s.done:
			// Drain whatever's left before exiting.
			for {
				select {
				case rec := <-s.records:
					s.write(rec)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) write(rec Record) {
	rendered, err := render(rec)
	if err != nil {
		telemetry.Warnf("audit: render failed: %v", err)
		telemetry.Metrics.AuditWriteErrors.Inc()
		return
	}

	if _, err := s.file.WriteString(rendered + "\n"); err != nil {
		telemetry.Warnf("audit: file append failed: %v", err)
		telemetry.Metrics.AuditWriteErrors.Inc()
	}
	telemetry.Metrics.AuditRecords.Inc()

	s.store.insert(rec, rendered)

	if s.nc != nil {
		subject := "oddsentinel.audit." + rec.Event
		if err := s.nc.Publish(subject, []byte(rendered)); err != nil {
			telemetry.Debugf("audit: nats publish failed: %v", err)
		}
	}
}

// Close drains any queued records, then closes the file, DB, and NATS
// connection. Part of the reverse-dependency-order shutdown (spec.md §5):
// C1 is the last thing to flush.
func (s *Sink) Close() error {
	close(s.done)
	s.wg.Wait()
	if s.nc != nil {
		s.nc.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
	return s.file.Close()
}
