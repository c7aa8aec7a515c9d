// Package cache provides the two-phase result cache.
//
// Results move through two areas. The staging area is in memory and holds
// one claim per fingerprint while a run is in flight. The durable area is a
// driven.CacheStore and only ever receives complete, committed summaries.
// A run that is cancelled or fails discards its claim and leaves durable
// state untouched.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
	"github.com/custodia-labs/precis/internal/logger"
)

// Ensure Cache implements the interfaces.
var (
	_ driven.ResultCache     = (*Cache)(nil)
	_ driven.CacheMaintainer = (*Cache)(nil)
)

// Cache is a two-phase result cache over a durable store.
type Cache struct {
	store    driven.CacheStore
	maxBytes int64
	now      func() time.Time
	onCommit func()

	mu      sync.Mutex
	staging map[domain.Fingerprint]*claim
	closed  bool

	// durable orders Commit writes against removal of expired entries.
	durable sync.Mutex
}

// claim is one in-flight run. done closes when the owner commits or discards;
// value is set before done closes on commit.
type claim struct {
	token string
	done  chan struct{}
	value *domain.FinalSummary
}

// Option configures the cache.
type Option func(*Cache)

// WithMaxBytes bounds the total size of durable entries. Zero is unbounded.
func WithMaxBytes(n int64) Option {
	return func(c *Cache) {
		if n >= 0 {
			c.maxBytes = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCommitHook runs fn after every successful commit, typically to nudge
// the eviction janitor. fn must not block.
func WithCommitHook(fn func()) Option {
	return func(c *Cache) {
		c.onCommit = fn
	}
}

// New creates a cache over store.
func New(store driven.CacheStore, opts ...Option) *Cache {
	c := &Cache{
		store:   store,
		now:     time.Now,
		staging: make(map[domain.Fingerprint]*claim),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a committed, unexpired summary. Expired entries are removed.
// Storage errors are logged and reported as a miss.
func (c *Cache) Get(ctx context.Context, fp domain.Fingerprint) (*domain.FinalSummary, bool) {
	entry, err := c.store.Get(ctx, fp)
	if err != nil {
		c.warn("get", fp, err)
		return nil, false
	}
	if entry == nil {
		return nil, false
	}

	now := c.now()
	if entry.Expired(now) {
		entry, err = c.dropExpired(ctx, fp, now)
		if err != nil {
			c.warn("delete expired", fp, err)
		}
		if entry == nil {
			return nil, false
		}
	}
	if err := c.store.Touch(ctx, fp, now); err != nil {
		c.warn("touch", fp, err)
	}

	value := entry.Value
	return &value, true
}

// dropExpired reads fp again and deletes it only if it is still expired.
// An entry committed since the first read is returned instead.
func (c *Cache) dropExpired(ctx context.Context, fp domain.Fingerprint, now time.Time) (*domain.CacheEntry, error) {
	c.durable.Lock()
	defer c.durable.Unlock()

	entry, err := c.store.Get(ctx, fp)
	if err != nil || entry == nil {
		return nil, err
	}
	if !entry.Expired(now) {
		return entry, nil
	}
	return nil, c.store.Delete(ctx, fp)
}

// BeginStaging claims fp for the caller. If another run holds the claim,
// BeginStaging waits for it: a commit is returned as the joined value and a
// discard sends the caller back to contend for the claim.
func (c *Cache) BeginStaging(
	ctx context.Context,
	fp domain.Fingerprint,
) (driven.StagingHandle, *domain.FinalSummary, error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return driven.StagingHandle{}, nil, domain.ErrCacheClosed
		}
		held, busy := c.staging[fp]
		if !busy {
			own := &claim{token: uuid.NewString(), done: make(chan struct{})}
			c.staging[fp] = own
			c.mu.Unlock()

			// A run may have committed between the caller's Get and this claim.
			if value, ok := c.Get(ctx, fp); ok {
				c.release(fp, own, value)
				return driven.StagingHandle{}, value, nil
			}
			logger.Debug("cache: staging %s", fp.Short())
			return driven.StagingHandle{Fingerprint: fp, Token: own.token}, nil, nil
		}
		c.mu.Unlock()

		logger.Debug("cache: waiting on in-flight run for %s", fp.Short())
		select {
		case <-ctx.Done():
			return driven.StagingHandle{}, nil, ctx.Err()
		case <-held.done:
		}
		if held.value != nil {
			value := *held.value
			return driven.StagingHandle{}, &value, nil
		}
	}
}

// Commit writes value to durable storage, then releases the claim and wakes
// waiters with the value. A durable write failure is logged; waiters still
// receive the value.
func (c *Cache) Commit(
	ctx context.Context,
	h driven.StagingHandle,
	value domain.FinalSummary,
	ttl time.Duration,
) error {
	own, ok := c.owner(h)
	if !ok {
		return domain.ErrStaleHandle
	}

	entry := domain.NewCacheEntry(h.Fingerprint, value, ttl, c.now())
	c.durable.Lock()
	err := c.store.Put(ctx, entry)
	c.durable.Unlock()
	if err != nil {
		c.warn("commit", h.Fingerprint, err)
	} else {
		logger.Debug("cache: committed %s (%d bytes)", h.Fingerprint.Short(), entry.SizeBytes)
	}

	c.release(h.Fingerprint, own, &value)
	if c.onCommit != nil {
		c.onCommit()
	}
	return nil
}

// Discard releases the claim without touching durable storage.
// Discarding a stale or zero handle is a no-op.
func (c *Cache) Discard(h driven.StagingHandle) {
	own, ok := c.owner(h)
	if !ok {
		return
	}
	logger.Debug("cache: discarded %s", h.Fingerprint.Short())
	c.release(h.Fingerprint, own, nil)
}

func (c *Cache) owner(h driven.StagingHandle) (*claim, bool) {
	if h.IsZero() {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	own, ok := c.staging[h.Fingerprint]
	if !ok || own.token != h.Token {
		return nil, false
	}
	return own, true
}

// release removes own from staging and wakes its waiters.
func (c *Cache) release(fp domain.Fingerprint, own *claim, value *domain.FinalSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.staging[fp] != own {
		return
	}
	delete(c.staging, fp)
	own.value = value
	close(own.done)
}

// Evict removes expired entries, then least recently used entries until
// the total size is within the bound.
func (c *Cache) Evict(ctx context.Context) (int, error) {
	entries, err := c.store.List(ctx)
	if err != nil {
		return 0, &domain.CacheError{Op: "list", Err: err}
	}

	now := c.now()
	var (
		removed int
		total   int64
		live    = entries[:0]
	)
	for _, e := range entries {
		if e.Expired(now) {
			fresh, err := c.dropExpired(ctx, e.Fingerprint, now)
			if err != nil {
				return removed, &domain.CacheError{Op: "evict", Fingerprint: e.Fingerprint, Err: err}
			}
			if fresh == nil {
				removed++
				continue
			}
			e = *fresh
		}
		total += e.SizeBytes
		live = append(live, e)
	}

	// live is ordered least recently accessed first.
	for i := 0; c.maxBytes > 0 && total > c.maxBytes && i < len(live); i++ {
		if err := c.store.Delete(ctx, live[i].Fingerprint); err != nil {
			return removed, &domain.CacheError{Op: "evict", Fingerprint: live[i].Fingerprint, Err: err}
		}
		total -= live[i].SizeBytes
		removed++
	}

	if removed > 0 {
		logger.Debug("cache: evicted %d entries, %d bytes remain", removed, total)
	}
	return removed, nil
}

// Stats reports durable and staging contents.
func (c *Cache) Stats(ctx context.Context) (domain.CacheStats, error) {
	entries, err := c.store.List(ctx)
	if err != nil {
		return domain.CacheStats{}, &domain.CacheError{Op: "list", Err: err}
	}
	stats := domain.CacheStats{Entries: len(entries), MaxBytes: c.maxBytes}
	for _, e := range entries {
		stats.TotalBytes += e.SizeBytes
	}

	c.mu.Lock()
	stats.Staging = len(c.staging)
	c.mu.Unlock()
	return stats, nil
}

// Purge removes every durable entry. In-flight claims are unaffected.
func (c *Cache) Purge(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return &domain.CacheError{Op: "purge", Err: err}
	}
	return nil
}

// Close stops new claims and closes the store.
func (c *Cache) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.store.Close()
}

func (c *Cache) warn(op string, fp domain.Fingerprint, err error) {
	logger.Warn("%v", &domain.CacheError{Op: op, Fingerprint: fp, Err: err})
}
