// Package draftstore persists checkout drafts in an externally-owned
// key-value store.
//
// The draft and the current step are stored under separate keys so a
// reload restores both independently, and every key is namespaced with a
// checkout-specific prefix to avoid collisions with the guest-cart and
// shipping-preference caches that share the same Redis.
package draftstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/readcity/checkout/internal/checkout/core/domain"
	"github.com/readcity/checkout/internal/checkout/core/ports"
)

// DefaultTTL is how long an abandoned draft survives. Refreshed on every
// save, so an active checkout never expires mid-flow.
const DefaultTTL = 7 * 24 * time.Hour

const keyPrefix = "checkout"

// RedisStore is the Redis implementation of ports.DraftStore.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ports.DraftStore = (*RedisStore)(nil)

// NewRedisStore connects to Redis at addr. ttl <= 0 selects DefaultTTL.
func NewRedisStore(addr string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

func draftKey(sessionID string) string {
	return fmt.Sprintf("%s:draft:%s", keyPrefix, sessionID)
}

func stepKey(sessionID string) string {
	return fmt.Sprintf("%s:step:%s", keyPrefix, sessionID)
}

// LoadDraft returns the stored draft, or the empty default when nothing
// is stored or the stored value no longer parses (schema drift from an
// older client, truncated write). A corrupted draft never blocks
// checkout.
func (r *RedisStore) LoadDraft(ctx context.Context, sessionID string) (domain.Draft, error) {
	raw, err := r.client.Get(ctx, draftKey(sessionID)).Result()
	if err == redis.Nil {
		return domain.EmptyDraft(), nil
	}
	if err != nil {
		return domain.EmptyDraft(), fmt.Errorf("draftstore: load draft: %w", err)
	}

	var d domain.Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		// Unreadable state is discarded, not surfaced.
		return domain.EmptyDraft(), nil
	}
	return d, nil
}

// SaveDraft stores the draft and refreshes its TTL.
func (r *RedisStore) SaveDraft(ctx context.Context, sessionID string, d domain.Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("draftstore: marshal draft: %w", err)
	}
	if err := r.client.Set(ctx, draftKey(sessionID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("draftstore: save draft: %w", err)
	}
	return nil
}

// LoadStep returns the persisted step ID, or empty when none is stored.
func (r *RedisStore) LoadStep(ctx context.Context, sessionID string) (domain.StepID, error) {
	raw, err := r.client.Get(ctx, stepKey(sessionID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("draftstore: load step: %w", err)
	}
	return domain.StepID(raw), nil
}

// SaveStep stores the current step and refreshes its TTL.
func (r *RedisStore) SaveStep(ctx context.Context, sessionID string, step domain.StepID) error {
	if err := r.client.Set(ctx, stepKey(sessionID), string(step), r.ttl).Err(); err != nil {
		return fmt.Errorf("draftstore: save step: %w", err)
	}
	return nil
}

// Clear removes both keys. Called on confirmed submission or explicit
// abandonment, never on failure.
func (r *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, draftKey(sessionID), stepKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("draftstore: clear: %w", err)
	}
	return nil
}
