package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/precis/internal/core/ports/driven"
	"github.com/custodia-labs/precis/internal/logger"
)

// DefaultEvictInterval is used when the janitor is given a non-positive interval.
const DefaultEvictInterval = 10 * time.Minute

// CacheJanitor evicts expired and over-budget cache entries in the background.
// It runs on a ticker and whenever Nudge is called, typically after a commit.
type CacheJanitor struct {
	maintainer driven.CacheMaintainer
	interval   time.Duration

	nudge chan struct{}

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewCacheJanitor creates a janitor for maintainer.
func NewCacheJanitor(maintainer driven.CacheMaintainer, interval time.Duration) *CacheJanitor {
	if interval <= 0 {
		interval = DefaultEvictInterval
	}
	return &CacheJanitor{
		maintainer: maintainer,
		interval:   interval,
		nudge:      make(chan struct{}, 1),
	}
}

// Start runs the eviction loop. It blocks until Stop is called or ctx ends.
func (j *CacheJanitor) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil // Already running
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	stopCh, doneCh := j.stopCh, j.doneCh
	j.mu.Unlock()

	defer func() {
		j.mu.Lock()
		if j.stopCh == stopCh {
			j.running = false
		}
		j.mu.Unlock()
		close(doneCh)
	}()
	return j.run(ctx, stopCh)
}

// Stop shuts down the loop and waits for an eviction in progress.
func (j *CacheJanitor) Stop() error {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = false
	close(j.stopCh)
	doneCh := j.doneCh
	j.mu.Unlock()

	<-doneCh
	return nil
}

// Nudge requests an eviction pass soon. It never blocks; nudges that arrive
// while one is pending are merged.
func (j *CacheJanitor) Nudge() {
	select {
	case j.nudge <- struct{}{}:
	default:
	}
}

func (j *CacheJanitor) run(ctx context.Context, stopCh <-chan struct{}) error {
	// Sweep once on startup.
	j.sweep(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			j.sweep(ctx)
		case <-j.nudge:
			j.sweep(ctx)
		}
	}
}

func (j *CacheJanitor) sweep(ctx context.Context) {
	removed, err := j.maintainer.Evict(ctx)
	if err != nil {
		logger.Warn("janitor: eviction failed: %v", err)
		return
	}
	if removed > 0 {
		logger.Debug("janitor: evicted %d cache entries", removed)
	}
}
