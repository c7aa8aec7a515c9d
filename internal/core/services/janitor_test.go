package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
)

// mockMaintainer implements driven.CacheMaintainer for testing.
type mockMaintainer struct {
	evictions atomic.Int32
	evictErr  error
	purged    bool
	stats     domain.CacheStats
}

func (m *mockMaintainer) Evict(_ context.Context) (int, error) {
	m.evictions.Add(1)
	return 1, m.evictErr
}

func (m *mockMaintainer) Stats(_ context.Context) (domain.CacheStats, error) {
	return m.stats, nil
}

func (m *mockMaintainer) Purge(_ context.Context) error {
	m.purged = true
	return nil
}

var _ driven.CacheMaintainer = (*mockMaintainer)(nil)

func startJanitor(t *testing.T, j *CacheJanitor) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = j.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, j.Stop())
		wg.Wait()
	})
}

func TestNewCacheJanitor_DefaultInterval(t *testing.T) {
	j := NewCacheJanitor(&mockMaintainer{}, 0)
	assert.Equal(t, DefaultEvictInterval, j.interval)
}

func TestCacheJanitor_SweepsOnStart(t *testing.T) {
	m := &mockMaintainer{}
	startJanitor(t, NewCacheJanitor(m, time.Hour))

	assert.Eventually(t, func() bool { return m.evictions.Load() >= 1 }, time.Second, 5*time.Millisecond)
}

func TestCacheJanitor_SweepsOnTick(t *testing.T) {
	m := &mockMaintainer{}
	startJanitor(t, NewCacheJanitor(m, 10*time.Millisecond))

	assert.Eventually(t, func() bool { return m.evictions.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestCacheJanitor_Nudge(t *testing.T) {
	m := &mockMaintainer{}
	j := NewCacheJanitor(m, time.Hour)
	startJanitor(t, j)

	require.Eventually(t, func() bool { return m.evictions.Load() == 1 }, time.Second, 5*time.Millisecond)
	j.Nudge()
	assert.Eventually(t, func() bool { return m.evictions.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestCacheJanitor_NudgeNeverBlocks(t *testing.T) {
	j := NewCacheJanitor(&mockMaintainer{}, time.Hour)
	for i := 0; i < 10; i++ {
		j.Nudge()
	}
}

func TestCacheJanitor_EvictErrorKeepsRunning(t *testing.T) {
	m := &mockMaintainer{evictErr: errors.New("locked")}
	startJanitor(t, NewCacheJanitor(m, 10*time.Millisecond))

	assert.Eventually(t, func() bool { return m.evictions.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestCacheJanitor_StopWithoutStart(t *testing.T) {
	j := NewCacheJanitor(&mockMaintainer{}, time.Hour)
	require.NoError(t, j.Stop())
}

func TestCacheJanitor_ContextCancel(t *testing.T) {
	j := NewCacheJanitor(&mockMaintainer{}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- j.Start(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop on context cancel")
	}
}
