package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/precis/internal/core/domain"
)

// CacheStore is durable storage for committed summaries.
// Put must be atomic: a reader sees either the previous entry or the new one.
type CacheStore interface {
	// Get returns the entry for fp, or nil and no error if absent.
	Get(ctx context.Context, fp domain.Fingerprint) (*domain.CacheEntry, error)

	// Put inserts or replaces an entry.
	Put(ctx context.Context, entry domain.CacheEntry) error

	// Touch records a read for least-recently-used eviction.
	Touch(ctx context.Context, fp domain.Fingerprint, at time.Time) error

	// Delete removes an entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, fp domain.Fingerprint) error

	// List returns all entries ordered by last access, oldest first.
	List(ctx context.Context) ([]domain.CacheEntry, error)

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// StagingHandle proves ownership of an in-flight fingerprint.
// Only the handle returned by BeginStaging can commit or discard it.
type StagingHandle struct {
	Fingerprint domain.Fingerprint
	Token       string
}

// IsZero returns true for the empty handle returned on a join.
func (h StagingHandle) IsZero() bool {
	return h.Token == ""
}

// ResultCache is the two-phase summary cache.
//
// A run calls Get first. On a miss it calls BeginStaging: either it becomes
// the owner of the fingerprint and receives a handle, or another run already
// owns it and BeginStaging blocks until that run commits (returning its value)
// or discards (after which ownership is contended again). The owner finishes
// with exactly one Commit or Discard. Durable state changes only on Commit.
type ResultCache interface {
	// Get returns a committed, unexpired value. Storage errors are misses.
	Get(ctx context.Context, fp domain.Fingerprint) (*domain.FinalSummary, bool)

	// BeginStaging claims fp. Exactly one of the handle and the joined value is set.
	BeginStaging(ctx context.Context, fp domain.Fingerprint) (StagingHandle, *domain.FinalSummary, error)

	// Commit publishes value and releases the claim.
	// Returns ErrStaleHandle if h no longer owns its fingerprint.
	Commit(ctx context.Context, h StagingHandle, value domain.FinalSummary, ttl time.Duration) error

	// Discard releases the claim without touching durable state.
	Discard(h StagingHandle)
}

// CacheMaintainer exposes housekeeping for the eviction janitor and CLI.
type CacheMaintainer interface {
	// Evict removes expired entries, then least-recently-used entries
	// until the size bound holds. Returns the number removed.
	Evict(ctx context.Context) (int, error)

	// Stats reports durable and staging contents.
	Stats(ctx context.Context) (domain.CacheStats, error)

	// Purge removes every durable entry.
	Purge(ctx context.Context) error
}
