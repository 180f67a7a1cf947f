package db

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// MemoryStore is an in-process KeyValueStore with a byte capacity, the way browser
// local storage caps a site. A capacity of 0 means unlimited.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string]string
	capacity int
	used     int
}

// NewMemoryStore creates an empty store holding at most capacity bytes of keys and values
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{
		data:     make(map[string]string),
		capacity: capacity,
	}
}

// Get returns the value stored at key
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

// Set stores value at key unless that would exceed the capacity, in which case the
// previous value is kept and ErrQuotaExceeded is returned
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	used := s.used + len(value)
	if old, ok := s.data[key]; ok {
		used -= len(old)
	} else {
		used += len(key)
	}
	if s.capacity > 0 && used > s.capacity {
		return errors.Wrapf(ErrQuotaExceeded, "setting %q needs %d of %d bytes", key, used, s.capacity)
	}
	s.data[key] = value
	s.used = used
	return nil
}

// Keys lists stored keys in sorted order
func (s *MemoryStore) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Used reports how many bytes are currently stored
func (s *MemoryStore) Used() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}
