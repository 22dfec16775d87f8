package session

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store for embedders that have no durable
// backend, and for tests. The marker is tracked as its own flag so external
// invalidation can be simulated by dropping the marker without touching the
// session blob.
type MemoryStore struct {
	mu     sync.Mutex
	sess   *Session
	marker bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored session, or (nil, nil) when empty.
func (m *MemoryStore) Load(context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.Clone(), nil
}

// Save replaces the session and re-establishes the marker.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = s.Clone()
	m.marker = true
	return nil
}

// Clear wipes the session and the marker.
func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = nil
	m.marker = false
	return nil
}

// MarkerPresent reports the marker flag.
func (m *MemoryStore) MarkerPresent(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.marker, nil
}

// DropMarker removes only the marker, simulating the session being wiped by
// an agent outside the application while the keeper still holds it in memory.
func (m *MemoryStore) DropMarker() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marker = false
	m.sess = nil
}
