package budget

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value   int64
	expires time.Time
}

// MemoryStore is an in-process Store. Counters are lost on restart, which
// makes it suitable for development and tests only.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	closed  bool
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	e, ok := s.live(key)
	if !ok {
		return 0, nil
	}
	return e.value, nil
}

func (s *MemoryStore) IncrBy(_ context.Context, key string, n int64, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	e, _ := s.live(key)
	e.value += n
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	} else {
		e.expires = time.Time{}
	}
	s.entries[key] = e
	return e.value, nil
}

// live returns the entry for key, dropping it when expired. Caller holds mu.
func (s *MemoryStore) live(key string) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
