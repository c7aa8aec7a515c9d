// Package file provides a directory-backed CacheStore that keeps one JSON
// file per cached summary.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
	"github.com/custodia-labs/precis/internal/logger"
)

// Ensure CacheStore implements the interface.
var _ driven.CacheStore = (*CacheStore)(nil)

const entryExt = ".json"

// CacheStore stores entries as <dir>/<fingerprint>.json.
// Writes go through WriteFileAtomic, so a crash mid-write leaves at most a
// stray temp file and never a torn entry.
type CacheStore struct {
	// mu serialises read-modify-write in Touch against Put and Delete.
	mu  sync.Mutex
	dir string
}

// NewCacheStore creates the directory if needed.
// If dir is empty, defaults to ~/.precis/data/cache.
func NewCacheStore(dir string) (*CacheStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".precis", "data", "cache")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &CacheStore{dir: dir}, nil
}

// Dir returns the cache directory.
func (s *CacheStore) Dir() string {
	return s.dir
}

func (s *CacheStore) path(fp domain.Fingerprint) (string, error) {
	name := string(fp)
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: fingerprint %q", domain.ErrInvalidInput, name)
	}
	return filepath.Join(s.dir, name+entryExt), nil
}

// Get returns the entry for fp, or nil and no error if absent.
func (s *CacheStore) Get(_ context.Context, fp domain.Fingerprint) (*domain.CacheEntry, error) {
	p, err := s.path(fp)
	if err != nil {
		return nil, err
	}
	return readEntry(p)
}

// Put writes an entry atomically.
func (s *CacheStore) Put(_ context.Context, entry domain.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(entry)
}

func (s *CacheStore) write(entry domain.CacheEntry) error {
	p, err := s.path(entry.Fingerprint)
	if err != nil {
		return err
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	return WriteFileAtomic(p, data, 0600)
}

// Touch rewrites the entry with a new access time.
func (s *CacheStore) Touch(_ context.Context, fp domain.Fingerprint, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.path(fp)
	if err != nil {
		return err
	}
	entry, err := readEntry(p)
	if err != nil || entry == nil {
		return err
	}
	entry.LastAccessedAt = at
	return s.write(*entry)
}

// Delete removes an entry.
func (s *CacheStore) Delete(_ context.Context, fp domain.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.path(fp)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// List returns all readable entries, least recently accessed first.
// Unreadable files are skipped and removed.
func (s *CacheStore) List(_ context.Context) ([]domain.CacheEntry, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read cache directory: %w", err)
	}

	entries := make([]domain.CacheEntry, 0, len(files))
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasSuffix(name, entryExt) || strings.HasPrefix(name, TempFilePrefix) {
			continue
		}
		p := filepath.Join(s.dir, name)
		entry, err := readEntry(p)
		if err != nil {
			logger.Warn("cache: dropping unreadable entry %s: %v", name, err)
			_ = os.Remove(p)
			continue
		}
		if entry != nil {
			entries = append(entries, *entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.LastAccessedAt.Equal(b.LastAccessedAt) {
			return a.LastAccessedAt.Before(b.LastAccessedAt)
		}
		return a.Fingerprint < b.Fingerprint
	})
	return entries, nil
}

// Clear removes every entry file.
func (s *CacheStore) Clear(ctx context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read cache directory: %w", err)
	}
	for _, f := range entries {
		if f.IsDir() || !strings.HasSuffix(f.Name(), entryExt) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.Remove(filepath.Join(s.dir, f.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("clear cache entry: %w", err)
		}
	}
	return nil
}

// Close releases resources.
func (s *CacheStore) Close() error {
	return nil
}

func readEntry(p string) (*domain.CacheEntry, error) {
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache entry: %w", err)
	}
	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	return &entry, nil
}
