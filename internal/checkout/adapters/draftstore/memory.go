package draftstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/readcity/checkout/internal/checkout/core/domain"
	"github.com/readcity/checkout/internal/checkout/core/ports"
)

// MemoryStore is an in-memory ports.DraftStore for local development and
// tests. It round-trips drafts through JSON exactly like the Redis store
// so parse-failure behavior can be exercised without a server.
type MemoryStore struct {
	mu     sync.Mutex
	drafts map[string][]byte
	steps  map[string]string
}

var _ ports.DraftStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		drafts: make(map[string][]byte),
		steps:  make(map[string]string),
	}
}

func (m *MemoryStore) LoadDraft(ctx context.Context, sessionID string) (domain.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.drafts[sessionID]
	if !ok {
		return domain.EmptyDraft(), nil
	}
	var d domain.Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return domain.EmptyDraft(), nil
	}
	return d, nil
}

func (m *MemoryStore) SaveDraft(ctx context.Context, sessionID string, d domain.Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[sessionID] = raw
	return nil
}

func (m *MemoryStore) LoadStep(ctx context.Context, sessionID string) (domain.StepID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.StepID(m.steps[sessionID]), nil
}

func (m *MemoryStore) SaveStep(ctx context.Context, sessionID string, step domain.StepID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps[sessionID] = string(step)
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, sessionID)
	delete(m.steps, sessionID)
	return nil
}

// Corrupt overwrites a stored draft with unparseable bytes. Test hook for
// the corrupted-persisted-state recovery path.
func (m *MemoryStore) Corrupt(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[sessionID] = []byte("{not json")
}
