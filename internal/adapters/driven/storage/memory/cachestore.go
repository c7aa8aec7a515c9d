package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
)

// Ensure CacheStore implements the interface.
var _ driven.CacheStore = (*CacheStore)(nil)

// CacheStore is an in-memory implementation of driven.CacheStore.
// Entries do not survive the process; useful for tests and one-shot runs.
type CacheStore struct {
	mu      sync.RWMutex
	entries map[domain.Fingerprint]domain.CacheEntry
}

// NewCacheStore creates a new in-memory cache store.
func NewCacheStore() *CacheStore {
	return &CacheStore{
		entries: make(map[domain.Fingerprint]domain.CacheEntry),
	}
}

// Get returns the entry for fp, or nil and no error if absent.
func (s *CacheStore) Get(_ context.Context, fp domain.Fingerprint) (*domain.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[fp]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// Put inserts or replaces an entry.
func (s *CacheStore) Put(_ context.Context, entry domain.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Fingerprint] = entry
	return nil
}

// Touch records a read.
func (s *CacheStore) Touch(_ context.Context, fp domain.Fingerprint, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.entries[fp]; ok {
		entry.LastAccessedAt = at
		s.entries[fp] = entry
	}
	return nil
}

// Delete removes an entry.
func (s *CacheStore) Delete(_ context.Context, fp domain.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, fp)
	return nil
}

// List returns all entries, least recently accessed first.
func (s *CacheStore) List(_ context.Context) ([]domain.CacheEntry, error) {
	s.mu.RLock()
	entries := make([]domain.CacheEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.LastAccessedAt.Equal(b.LastAccessedAt) {
			return a.LastAccessedAt.Before(b.LastAccessedAt)
		}
		return a.Fingerprint < b.Fingerprint
	})
	return entries, nil
}

// Clear removes every entry.
func (s *CacheStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[domain.Fingerprint]domain.CacheEntry)
	return nil
}

// Close releases resources.
func (s *CacheStore) Close() error {
	return nil
}
