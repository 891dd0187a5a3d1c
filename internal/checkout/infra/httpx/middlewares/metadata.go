package middlewares

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const (
	// ContextKeyRequestID carries the chi request ID for log correlation.
	ContextKeyRequestID contextKey = "request_id"
	// ContextKeySessionToken carries the opaque auth credential, empty
	// for guest buyers.
	ContextKeySessionToken contextKey = "session_token"
)

const headerSessionToken = "X-Session-Token"

// AttachRequestMetadata copies per-request identifiers into the context
// so downstream log lines and audit entries can correlate with the
// request that produced them.
func AttachRequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestID, middleware.GetReqID(r.Context()))
		if token := r.Header.Get(headerSessionToken); token != "" {
			ctx = context.WithValue(ctx, ContextKeySessionToken, token)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
