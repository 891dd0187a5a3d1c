// Package sqlite provides a SQLite-backed implementation of
// attemptlog.Repository.
//
// WAL mode is enabled on Open so that readers never block writers and
// vice versa — the engine writes during a submit while a support query
// may be reading.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/readcity/checkout/internal/checkout/attemptlog"

	// Register the pure-Go SQLite driver. modernc.org/sqlite avoids CGO,
	// which keeps Docker (Alpine) builds simple.
	_ "modernc.org/sqlite"
)

// schema is the DDL executed once on startup. The table is append-only:
// each row is an immutable event in an attempt's lifecycle.
const schema = `
CREATE TABLE IF NOT EXISTS submission_attempts (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,

    -- Checkout session the attempt belongs to.
    session_id      TEXT        NOT NULL,

    -- Idempotency key sent to the order service. Same key across retries
    -- within a session.
    idempotency_key TEXT        NOT NULL,

    -- STARTED / SUCCEEDED / FAILED.
    status          TEXT        NOT NULL,

    -- Order ID returned by the order service (SUCCEEDED rows only).
    order_id        TEXT        NOT NULL DEFAULT '',

    -- Classified failure kind (FAILED rows only).
    failure_kind    TEXT        NOT NULL DEFAULT '',

    -- Classified error message (FAILED rows only).
    error_message   TEXT        NOT NULL DEFAULT '',

    -- Client-computed total at submit time, for reconciliation.
    total           REAL        NOT NULL DEFAULT 0,

    -- W3C trace_id / span_id from the active OTel span.
    trace_id        TEXT        NOT NULL DEFAULT '',
    span_id         TEXT        NOT NULL DEFAULT '',

    -- RFC3339 stored as TEXT, SQLite idiom.
    created_at      TEXT        NOT NULL
);

-- The common query: all attempts for one session, in order.
CREATE INDEX IF NOT EXISTS idx_attempts_session ON submission_attempts(session_id, created_at);

-- Reconciliation query: attempts by idempotency key.
CREATE INDEX IF NOT EXISTS idx_attempts_idem ON submission_attempts(idempotency_key);
`

// Repository is the SQLite implementation of attemptlog.Repository.
type Repository struct {
	db *sql.DB
}

var _ attemptlog.Repository = (*Repository)(nil)

// Open opens (or creates) the database at path and applies the schema.
//
//	repo, err := sqlite.Open("./data/attempts.db")
func Open(path string) (*Repository, error) {
	// _pragma query parameters configure connection state for the
	// pure-Go driver. busy_timeout waits for locks instead of failing.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close releases the database connection. Call it with defer in main().
func (r *Repository) Close() error {
	return r.db.Close()
}

// Save inserts a new attempt entry. Safe to call concurrently.
func (r *Repository) Save(ctx context.Context, entry *attemptlog.Entry) error {
	const q = `
		INSERT INTO submission_attempts
			(session_id, idempotency_key, status, order_id, failure_kind,
			 error_message, total, trace_id, span_id, created_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		entry.SessionID,
		entry.IdempotencyKey,
		string(entry.Status),
		entry.OrderID,
		entry.FailureKind,
		entry.ErrorMessage,
		entry.Total,
		entry.TraceID,
		entry.SpanID,
		entry.CreatedAt.UTC().Format("2006-01-02T15:04:05.999999999Z"),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save attempt for session %q: %w", entry.SessionID, err)
	}
	return nil
}

// BySession returns every attempt entry for a session, oldest first.
// Used by support tooling and by reconciliation jobs.
func (r *Repository) BySession(ctx context.Context, sessionID string) ([]attemptlog.Entry, error) {
	const q = `
		SELECT session_id, idempotency_key, status, order_id, failure_kind,
		       error_message, total, trace_id, span_id, created_at
		FROM   submission_attempts
		WHERE  session_id = ?
		ORDER  BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list attempts for %q: %w", sessionID, err)
	}
	defer rows.Close()

	var out []attemptlog.Entry
	for rows.Next() {
		var e attemptlog.Entry
		var createdAt string
		if err := rows.Scan(
			&e.SessionID, &e.IdempotencyKey, &e.Status, &e.OrderID,
			&e.FailureKind, &e.ErrorMessage, &e.Total, &e.TraceID,
			&e.SpanID, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scan attempt: %w", err)
		}
		if e.CreatedAt, err = parseRFC3339(createdAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
