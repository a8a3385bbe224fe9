package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memoryValue struct {
	data    []byte
	updated time.Time
}

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]memoryValue
	now    func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]memoryValue{}, now: time.Now}
}

// Save implements Store
func (m *MemoryStore) Save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	m.mu.Lock()
	m.values[key] = memoryValue{data: data, updated: m.now()}
	m.mu.Unlock()
	return nil
}

// Load implements Store
func (m *MemoryStore) Load(key string, v any) (bool, error) {
	m.mu.RLock()
	val, ok := m.values[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(val.data, v); err != nil {
		return false, fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return true, nil
}

// Delete implements Store
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	delete(m.values, key)
	return nil
}

// Entries implements Store. Entries are sorted by key.
func (m *MemoryStore) Entries() ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]Entry, 0, len(m.values))
	for k, v := range m.values {
		entries = append(entries, Entry{Key: k, Size: int64(len(v.data)), Updated: v.updated})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}
