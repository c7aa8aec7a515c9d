package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
)

// cacheStore implements driven.CacheStore.
type cacheStore struct {
	store *Store
}

var _ driven.CacheStore = (*cacheStore)(nil)

const cacheColumns = `fingerprint, value, created_at, ttl_ms, size_bytes, last_accessed_at`

// Get returns the entry for fp, or nil and no error if absent.
func (s *cacheStore) Get(ctx context.Context, fp domain.Fingerprint) (*domain.CacheEntry, error) {
	row := s.store.db.QueryRowContext(ctx,
		`SELECT `+cacheColumns+` FROM cache_entries WHERE fingerprint = ?`, string(fp))

	entry, err := scanCacheEntry(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Put inserts or replaces an entry in a single statement.
func (s *cacheStore) Put(ctx context.Context, entry domain.CacheEntry) error {
	value, err := json.Marshal(entry.Value)
	if err != nil {
		return fmt.Errorf("marshalling cache value: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO cache_entries (`+cacheColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			value = excluded.value,
			created_at = excluded.created_at,
			ttl_ms = excluded.ttl_ms,
			size_bytes = excluded.size_bytes,
			last_accessed_at = excluded.last_accessed_at
	`, string(entry.Fingerprint), string(value),
		formatTime(entry.CreatedAt), entry.TTL.Milliseconds(),
		entry.SizeBytes, formatTime(entry.LastAccessedAt))
	if err != nil {
		return fmt.Errorf("saving cache entry: %w", err)
	}
	return nil
}

// Touch records a read for least-recently-used eviction.
func (s *cacheStore) Touch(ctx context.Context, fp domain.Fingerprint, at time.Time) error {
	_, err := s.store.db.ExecContext(ctx,
		`UPDATE cache_entries SET last_accessed_at = ? WHERE fingerprint = ?`,
		formatTime(at), string(fp))
	if err != nil {
		return fmt.Errorf("touching cache entry: %w", err)
	}
	return nil
}

// Delete removes an entry.
func (s *cacheStore) Delete(ctx context.Context, fp domain.Fingerprint) error {
	_, err := s.store.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE fingerprint = ?`, string(fp))
	if err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	return nil
}

// List returns all entries, least recently accessed first.
func (s *cacheStore) List(ctx context.Context) ([]domain.CacheEntry, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+cacheColumns+` FROM cache_entries ORDER BY last_accessed_at ASC, fingerprint ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying cache entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.CacheEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		entry, err := scanCacheEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cache entries: %w", err)
	}
	return entries, nil
}

// Clear removes every entry.
func (s *cacheStore) Clear(ctx context.Context) error {
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("clearing cache entries: %w", err)
	}
	return nil
}

// Close releases the underlying database.
func (s *cacheStore) Close() error {
	return s.store.Close()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCacheEntry(row rowScanner) (*domain.CacheEntry, error) {
	var (
		fp, value, createdAt, accessedAt string
		ttlMS, size                      int64
	)
	err := row.Scan(&fp, &value, &createdAt, &ttlMS, &size, &accessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning cache entry: %w", err)
	}

	entry := &domain.CacheEntry{
		Fingerprint: domain.Fingerprint(fp),
		TTL:         time.Duration(ttlMS) * time.Millisecond,
		SizeBytes:   size,
	}
	if err := json.Unmarshal([]byte(value), &entry.Value); err != nil {
		return nil, fmt.Errorf("unmarshalling cache value: %w", err)
	}
	if entry.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if entry.LastAccessedAt, err = parseTime(accessedAt); err != nil {
		return nil, err
	}
	return entry, nil
}

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return t, nil
}
