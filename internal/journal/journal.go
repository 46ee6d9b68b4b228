// Package journal implements a durable, append-only activity journal: a
// batched writer over an embedded SQL store opened with write-ahead
// logging.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver, registers as "sqlite"
)

// Event is one append-only activity record.
type Event struct {
	ID         string
	Actor      string
	ActionType string
	Target     string
	Payload    map[string]any
	TraceID    string
	Timestamp  time.Time
	seq        uint64 // monotonic tie-breaker, assigned on enqueue
}

// DefaultBatchSize and DefaultBatchInterval bound how long an unflushed
// event can sit in memory before being written: up to N events or T
// milliseconds, whichever comes first.
const (
	DefaultBatchSize     = 200
	DefaultBatchInterval = 250 * time.Millisecond
	enqueueBuffer        = 4096
)

// degradedLogWindow rate-limits the "logging degraded" warning.
const degradedLogWindow = 10 * time.Second

type writeRequest struct {
	event *Event // nil for a flush fence
	done  chan struct{}
}

// Journal is the batched, append-only activity journal.
type Journal struct {
	db       *sql.DB // write connection, owned exclusively by the writer goroutine
	readDB   *sql.DB // read-only connection, safe for concurrent use under WAL
	logger   *slog.Logger
	metrics  *Metrics

	batchSize     int
	batchInterval time.Duration

	enqueue chan writeRequest
	seq     atomic.Uint64

	wg     sync.WaitGroup
	cancel context.CancelFunc

	writeFailures  atomic.Int64
	lastDegradedMu sync.Mutex
	lastDegraded   time.Time
}

// Option configures a Journal at construction.
type Option func(*Journal)

// WithBatchSize overrides DefaultBatchSize.
func WithBatchSize(n int) Option {
	return func(j *Journal) { j.batchSize = n }
}

// WithBatchInterval overrides DefaultBatchInterval.
func WithBatchInterval(d time.Duration) Option {
	return func(j *Journal) { j.batchInterval = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(j *Journal) { j.logger = logger }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(j *Journal) { j.metrics = m }
}

// Open opens (creating if necessary) the journal database at path, enables
// WAL mode, runs the schema migration, and starts the batch writer.
func Open(path string, opts ...Option) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open write connection: %w", err)
	}
	db.SetMaxOpenConns(1) // one writer goroutine owns this connection

	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: enable WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA synchronous=NORMAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: set synchronous: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: enable foreign keys: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}

	readDB, err := sql.Open("sqlite", path)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: open read connection: %w", err)
	}

	j := &Journal{
		db:            db,
		readDB:        readDB,
		logger:        slog.Default(),
		batchSize:     DefaultBatchSize,
		batchInterval: DefaultBatchInterval,
		enqueue:       make(chan writeRequest, enqueueBuffer),
	}
	for _, opt := range opts {
		opt(j)
	}

	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel

	j.wg.Add(1)
	go j.writeLoop(ctx)

	return j, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS activity (
	id TEXT PRIMARY KEY,
	actor TEXT NOT NULL,
	action_type TEXT NOT NULL,
	target TEXT NOT NULL,
	payload TEXT NOT NULL,
	trace_id TEXT,
	timestamp TEXT NOT NULL,
	seq INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activity_trace_ts ON activity(trace_id, timestamp);

CREATE TABLE IF NOT EXISTS notifications (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	message TEXT NOT NULL,
	proposal_id TEXT,
	trace_id TEXT,
	created_at TEXT NOT NULL,
	dismissed_at TEXT,
	metadata TEXT
);
CREATE INDEX IF NOT EXISTS idx_notifications_dismissed ON notifications(dismissed_at);
CREATE INDEX IF NOT EXISTS idx_notifications_proposal ON notifications(proposal_id);
`

func migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// Log enqueues an activity event. It returns immediately; durability is only
// guaranteed after a subsequent WaitForFlush call returns. Logging failures
// never propagate to the caller — they are counted and rate-limit-logged
// instead.
func (j *Journal) Log(actor, actionType, target string, payload map[string]any, traceID string) {
	ev := &Event{
		Actor:      actor,
		ActionType: actionType,
		Target:     target,
		Payload:    payload,
		TraceID:    traceID,
		Timestamp:  time.Now().UTC(),
		seq:        j.seq.Add(1),
	}
	if ev.ID == "" {
		ev.ID = newEventID(ev.seq)
	}

	select {
	case j.enqueue <- writeRequest{event: ev}:
	default:
		// Block briefly rather than drop, but never forever — a full buffer
		// after a short wait is logged as degraded.
		select {
		case j.enqueue <- writeRequest{event: ev}:
		case <-time.After(time.Second):
			j.writeFailures.Add(1)
			j.logDegraded("journal enqueue buffer full, event dropped")
		}
	}
}

// WaitForFlush blocks until every event enqueued before this call is durable.
func (j *Journal) WaitForFlush() {
	done := make(chan struct{})
	j.enqueue <- writeRequest{done: done}
	<-done
}

// Close flushes pending events and releases the journal's resources.
func (j *Journal) Close() error {
	j.WaitForFlush()
	j.cancel()
	j.wg.Wait()
	readErr := j.readDB.Close()
	writeErr := j.db.Close()
	if writeErr != nil {
		return writeErr
	}
	return readErr
}

// WriteFailures returns the count of dropped/failed write batches, for
// metrics and tests.
func (j *Journal) WriteFailures() int64 {
	return j.writeFailures.Load()
}

func (j *Journal) logDegraded(msg string) {
	j.lastDegradedMu.Lock()
	defer j.lastDegradedMu.Unlock()
	if time.Since(j.lastDegraded) < degradedLogWindow {
		return
	}
	j.lastDegraded = time.Now()
	j.logger.Warn("journal.degraded", "reason", msg)
}

func newEventID(seq uint64) string {
	return fmt.Sprintf("evt-%020d", seq)
}
