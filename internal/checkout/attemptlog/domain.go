// Package attemptlog defines the domain types for the submission audit
// trail.
//
// Every order submission attempt is recorded as an append-only row: one
// STARTED entry when the request leaves the engine, one terminal entry
// (SUCCEEDED or FAILED) when the outcome is known. It serves two purposes:
//
//  1. Observability: support can see exactly what happened to a buyer's
//     submit, and jump to the distributed trace via the trace_id field.
//
//  2. Reconciliation: an order may exist on the order service while the
//     confirmation never reached the client (network failure after
//     creation). The log plus the idempotency key lets operators detect
//     and resolve these partial failures.
package attemptlog

import "time"

// Status is the lifecycle state of a submission attempt.
type Status string

const (
	StatusStarted   Status = "STARTED"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
)

// Entry is a single row in the submission_attempts table. It captures a
// point-in-time snapshot of one attempt.
type Entry struct {
	// SessionID identifies the checkout session the attempt belongs to.
	SessionID string

	// IdempotencyKey is the key sent to the order service. Identical for
	// every retry within a session, which is what makes the log usable
	// for duplicate detection.
	IdempotencyKey string

	// Status is the lifecycle state this row records.
	Status Status

	// OrderID is filled on SUCCEEDED rows.
	OrderID string

	// FailureKind is filled on FAILED rows ("NETWORK", "SERVER", ...).
	FailureKind string

	// ErrorMessage is the classified error's message on FAILED rows.
	ErrorMessage string

	// Total is the amount the client computed at submit time. Useful when
	// reconciling against what the order service charged.
	Total float64

	// TraceID is the W3C trace ID active when this row was written.
	TraceID string

	// SpanID pinpoints the exact span within the trace.
	SpanID string

	// CreatedAt is the wall-clock time of this row.
	CreatedAt time.Time
}
