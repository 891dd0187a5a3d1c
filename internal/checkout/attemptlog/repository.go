package attemptlog

import "context"

// Repository is the port for persisting attempt entries. The engine
// depends on this abstraction, not on SQLite directly, so tests can use
// an in-memory implementation.
type Repository interface {
	// Save appends a new entry. The table is an append-only audit log,
	// never an upsert.
	Save(ctx context.Context, entry *Entry) error
}
