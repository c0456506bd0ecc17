// Package queue implements the durable, at-least-once intent queue backed
// by a single-file SQLite database in WAL mode. It mirrors the original
// ipc/sqlite_queue.py module: enqueue is idempotent on (topic, tag),
// reserve hands out the oldest eligible row and makes it invisible for a
// visibility timeout, and ack/nack/dead-letter bookkeeping matches the
// Python reference column-for-column.
package queue

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Status mirrors the queue row's status column.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusDead       Status = "dead"
)

// Queue wraps a single-writer SQLite connection holding one "queue" table.
type Queue struct {
	db *sql.DB
}

// Open creates the parent directory if needed, opens the database with WAL
// journaling and NORMAL synchronous mode, caps the pool to a single
// connection (SQLite allows only one writer), and ensures the schema
// exists.
func Open(path string) (*Queue, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("queue: mkdir: %w", err)
	}
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("queue: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("queue: ping: %w", err)
	}
	q := &Queue{db: db}
	if err := q.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return q, nil
}

func (q *Queue) initSchema() error {
	_, err := q.db.Exec(`
	CREATE TABLE IF NOT EXISTS queue (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		topic TEXT NOT NULL,
		payload TEXT NOT NULL,
		tag TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'queued',
		enqueued_ts TEXT NOT NULL,
		dequeued_ts TEXT,
		attempts INTEGER NOT NULL DEFAULT 0
	);
	CREATE UNIQUE INDEX IF NOT EXISTS uq_topic_tag ON queue(topic, tag);
	CREATE INDEX IF NOT EXISTS ix_queue_status ON queue(status);
	`)
	if err != nil {
		return fmt.Errorf("queue: init schema: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (q *Queue) Close() error { return q.db.Close() }

// Enqueue inserts a row for (topic, tag), silently doing nothing if that
// pair already exists — equal tags collapse to one enqueue.
func (q *Queue) Enqueue(topic, tag string, order NewOrder) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("queue: marshal payload: %w", err)
	}
	_, err = q.db.Exec(
		`INSERT OR IGNORE INTO queue(topic, payload, tag, status, enqueued_ts) VALUES (?,?,?,?,?)`,
		topic, string(payload), tag, string(StatusQueued), nowISO(),
	)
	if err != nil {
		return fmt.Errorf("queue: enqueue: %w", err)
	}
	return nil
}

// Reserve returns the oldest eligible row for topic: either freshly queued,
// or processing past its visibility timeout (crash/timeout redelivery). A
// row whose attempts has already reached maxAttempts is marked dead instead
// of being handed out, and Reserve returns (nil, nil) for that call — the
// caller loops again to pick up the next eligible row.
func (q *Queue) Reserve(topic string, visibilityTimeout time.Duration, maxAttempts int) (*Entry, error) {
	cutoff := time.Now().UTC().Add(-visibilityTimeout).Format(time.RFC3339Nano)

	row := q.db.QueryRow(`
		SELECT id, payload, tag, attempts
		FROM queue
		WHERE topic = ?
		  AND (
		        status = 'queued'
		     OR (status = 'processing' AND (dequeued_ts IS NULL OR dequeued_ts <= ?))
		  )
		ORDER BY id ASC
		LIMIT 1
	`, topic, cutoff)

	var id int64
	var payload, tag string
	var attempts int
	if err := row.Scan(&id, &payload, &tag, &attempts); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("queue: reserve scan: %w", err)
	}

	if attempts >= maxAttempts {
		if _, err := q.db.Exec(`UPDATE queue SET status='dead' WHERE id=?`, id); err != nil {
			return nil, fmt.Errorf("queue: mark dead: %w", err)
		}
		return nil, nil
	}

	if _, err := q.db.Exec(
		`UPDATE queue SET status='processing', attempts=attempts+1, dequeued_ts=? WHERE id=?`,
		nowISO(), id,
	); err != nil {
		return nil, fmt.Errorf("queue: reserve update: %w", err)
	}

	var order NewOrder
	if err := json.Unmarshal([]byte(payload), &order); err != nil {
		return nil, fmt.Errorf("queue: decode payload for id=%d: %w", id, err)
	}
	return &Entry{ID: id, Tag: tag, Order: order}, nil
}

// Ack marks a reserved row done. Acking an id that does not exist or is not
// currently reserved is a no-op.
func (q *Queue) Ack(id int64) error {
	if _, err := q.db.Exec(`UPDATE queue SET status='done' WHERE id=? AND status='processing'`, id); err != nil {
		return fmt.Errorf("queue: ack: %w", err)
	}
	return nil
}

// Nack returns a reserved row to queued for redelivery, or marks it dead
// when dead is true (caller decided attempts are exhausted or the failure
// is non-retryable).
func (q *Queue) Nack(id int64, dead bool) error {
	status := StatusQueued
	if dead {
		status = StatusDead
	}
	if _, err := q.db.Exec(`UPDATE queue SET status=? WHERE id=?`, string(status), id); err != nil {
		return fmt.Errorf("queue: nack: %w", err)
	}
	return nil
}

// Depth returns the count of queued-or-processing rows for topic.
func (q *Queue) Depth(topic string) (int, error) {
	var n int
	err := q.db.QueryRow(
		`SELECT COUNT(*) FROM queue WHERE topic=? AND status IN ('queued','processing')`, topic,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("queue: depth: %w", err)
	}
	return n, nil
}

// DeadLetterCount returns the count of rows in topic that have been
// abandoned to the dead-letter status.
func (q *Queue) DeadLetterCount(topic string) (int, error) {
	var n int
	err := q.db.QueryRow(
		`SELECT COUNT(*) FROM queue WHERE topic=? AND status='dead'`, topic,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("queue: dead_letter_count: %w", err)
	}
	return n, nil
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
