// Package cache provides the cache-aside lookup used for retrieval results
// and the stores backing it.
package cache

import (
	"context"
	"sync"

	"github.com/xiaot623/gogo/searchstream/internal/domain"
)

// Store is a key-value store for retrieval results.
type Store interface {
	// Get returns the entry for key. A missing key is (zero, false, nil).
	Get(ctx context.Context, key string) (domain.CacheEntry, bool, error)
	Set(ctx context.Context, key string, entry domain.CacheEntry) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]domain.CacheEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]domain.CacheEntry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (domain.CacheEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	if !ok {
		return domain.CacheEntry{}, false, nil
	}
	return copyEntry(entry), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, entry domain.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = copyEntry(entry)
	return nil
}

// Len returns the number of cached keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func copyEntry(entry domain.CacheEntry) domain.CacheEntry {
	texts := make([]domain.TextSource, len(entry.Texts))
	copy(texts, entry.Texts)
	return domain.CacheEntry{Texts: texts}
}
