package attemptlog

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// NewEntry builds an Entry with trace identifiers extracted from the
// active OpenTelemetry span in ctx. When no span is active (unit tests)
// both IDs are empty strings.
func NewEntry(ctx context.Context, sessionID, idempotencyKey string, status Status) *Entry {
	e := &Entry{
		SessionID:      sessionID,
		IdempotencyKey: idempotencyKey,
		Status:         status,
		CreatedAt:      time.Now().UTC(),
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		e.TraceID = sc.TraceID().String()
		e.SpanID = sc.SpanID().String()
	}
	return e
}
