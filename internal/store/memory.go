package store

import (
	"context"
	"path"
	"sync"
	"time"
)

// MemoryStore is an in-process KeyValueStore with TTL semantics. It backs
// unit tests and lets the engine run without an external store.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]memoryEntry
	lists  map[string]memoryList
	now    func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

type memoryList struct {
	items     [][]byte
	expiresAt time.Time
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]memoryEntry),
		lists:  make(map[string]memoryList),
		now:    time.Now,
	}
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func (l memoryList) expired(now time.Time) bool {
	return !l.expiresAt.IsZero() && now.After(l.expiresAt)
}

func (s *MemoryStore) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

// Get fetches bytes by key, returning ErrNotFound when absent or expired.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.values[key]
	if !ok || entry.expired(s.now()) {
		return nil, ErrNotFound
	}
	return append([]byte(nil), entry.data...), nil
}

// Set stores bytes under the key with the provided TTL.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = memoryEntry{data: append([]byte(nil), value...), expiresAt: s.deadline(ttl)}
	return nil
}

// SetNX stores the value only if the key is absent or expired.
func (s *MemoryStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.values[key]; ok && !entry.expired(s.now()) {
		return false, nil
	}
	s.values[key] = memoryEntry{data: append([]byte(nil), value...), expiresAt: s.deadline(ttl)}
	return true, nil
}

// Del removes a key.
func (s *MemoryStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	delete(s.lists, key)
	return nil
}

// Keys returns non-expired keys matching the glob pattern.
func (s *MemoryStore) Keys(_ context.Context, pattern string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	keys := make([]string, 0)
	for key, entry := range s.values {
		if entry.expired(now) {
			continue
		}
		if ok, _ := path.Match(pattern, key); ok {
			keys = append(keys, key)
		}
	}
	for key, list := range s.lists {
		if list.expired(now) {
			continue
		}
		if ok, _ := path.Match(pattern, key); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// PushCapped prepends to a list, trims to max entries, and refreshes the TTL.
func (s *MemoryStore) PushCapped(_ context.Context, key string, value []byte, max int64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.lists[key]
	if list.expired(s.now()) {
		list = memoryList{}
	}
	items := make([][]byte, 0, len(list.items)+1)
	items = append(items, append([]byte(nil), value...))
	items = append(items, list.items...)
	if max > 0 && int64(len(items)) > max {
		items = items[:max]
	}
	s.lists[key] = memoryList{items: items, expiresAt: s.deadline(ttl)}
	return nil
}

// ListRange returns list entries newest first, empty when absent.
func (s *MemoryStore) ListRange(_ context.Context, key string, start, stop int64) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, ok := s.lists[key]
	if !ok || list.expired(s.now()) {
		return nil, nil
	}
	n := int64(len(list.items))
	if start < 0 {
		start = 0
	}
	if stop < 0 || stop >= n {
		stop = n - 1
	}
	if start > stop {
		return nil, nil
	}
	out := make([][]byte, 0, stop-start+1)
	for _, item := range list.items[start : stop+1] {
		out = append(out, append([]byte(nil), item...))
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
