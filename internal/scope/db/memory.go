package db

import (
	"context"
	"sync"
)

// MemoryStore is a thread-safe in-memory Store
type MemoryStore struct {
	mu      sync.RWMutex
	created bool
	docs    map[string]Record
}

// NewMemoryStore creates a new empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]Record),
	}
}

// EnsureIndex marks the index as created
func (m *MemoryStore) EnsureIndex(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = true
	return nil
}

// Upsert adds or replaces a record
func (m *MemoryStore) Upsert(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[Key(rec.City)] = rec
	return nil
}

// Get retrieves a record by key
func (m *MemoryStore) Get(_ context.Context, key string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.docs[key]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Ping always succeeds
func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}

// Count returns the number of stored records
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// IndexCreated reports whether EnsureIndex has run
func (m *MemoryStore) IndexCreated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.created
}
