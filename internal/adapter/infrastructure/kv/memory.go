// Package kv provides preference store adapter implementations.
package kv

import (
	"sync"

	"golang-oscnode/internal/port"
)

// MemoryStore is a volatile KeyValueStore, used on bench setups without persistent storage.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]uint32
}

// Ensure MemoryStore implements the KeyValueStore port
var _ port.KeyValueStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]uint32)}
}

// GetUint returns the stored value and whether the key was present.
func (m *MemoryStore) GetUint(key string) (uint32, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// PutUint stores a value.
func (m *MemoryStore) PutUint(key string, value uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
