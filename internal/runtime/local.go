package runtime

import "sync"

// LocalStore is the durable key/value substitute used in preview mode.
type LocalStore interface {
	// Get returns "" for a missing key.
	Get(key string) (string, error)
	Set(key, value string) error
}

// MemoryLocalStore keeps preview values in memory.
type MemoryLocalStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryLocalStore() *MemoryLocalStore {
	return &MemoryLocalStore{values: make(map[string]string)}
}

func (s *MemoryLocalStore) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key], nil
}

func (s *MemoryLocalStore) Set(key, value string) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return nil
}

// Snapshot copies all stored values.
func (s *MemoryLocalStore) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
