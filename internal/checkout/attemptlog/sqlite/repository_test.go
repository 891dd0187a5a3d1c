package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readcity/checkout/internal/checkout/attemptlog"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "attempts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSaveAndListBySession(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	started := &attemptlog.Entry{
		SessionID:      "sess-1",
		IdempotencyKey: "idem-1",
		Status:         attemptlog.StatusStarted,
		Total:          6875,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, repo.Save(ctx, started))

	failed := &attemptlog.Entry{
		SessionID:      "sess-1",
		IdempotencyKey: "idem-1",
		Status:         attemptlog.StatusFailed,
		FailureKind:    "NETWORK",
		ErrorMessage:   "connection refused",
		Total:          6875,
		CreatedAt:      time.Now().UTC().Add(time.Second),
	}
	require.NoError(t, repo.Save(ctx, failed))

	entries, err := repo.BySession(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, attemptlog.StatusStarted, entries[0].Status)
	assert.Equal(t, attemptlog.StatusFailed, entries[1].Status)
	assert.Equal(t, "NETWORK", entries[1].FailureKind)
	assert.Equal(t, "idem-1", entries[1].IdempotencyKey)
	assert.Equal(t, 6875.0, entries[1].Total)
}

func TestBySession_UnknownSessionIsEmpty(t *testing.T) {
	repo := openTestRepo(t)
	entries, err := repo.BySession(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSave_RoundTripsTimestamps(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	at := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, &attemptlog.Entry{
		SessionID: "sess-t", IdempotencyKey: "k",
		Status: attemptlog.StatusSucceeded, OrderID: "ord-9",
		CreatedAt: at,
	}))

	entries, err := repo.BySession(ctx, "sess-t")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].CreatedAt.Equal(at))
	assert.Equal(t, "ord-9", entries[0].OrderID)
}
