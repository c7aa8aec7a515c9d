// Package storetest provides a conformance suite for driven.CacheStore implementations.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
)

// base is a fixed clock origin so stored times compare exactly.
var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func entry(fp string, text string, accessed time.Duration) domain.CacheEntry {
	e := domain.NewCacheEntry(domain.Fingerprint(fp), domain.FinalSummary{
		Text:             text,
		SourceChunkCount: 3,
		FailedChunkCount: 1,
	}, time.Hour, base)
	e.LastAccessedAt = base.Add(accessed)
	return e
}

// RunCacheStoreTests exercises a CacheStore. newStore must return an empty store.
func RunCacheStoreTests(t *testing.T, newStore func(t *testing.T) driven.CacheStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing returns nil", func(t *testing.T) {
		s := newStore(t)
		got, err := s.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("put then get round trips", func(t *testing.T) {
		s := newStore(t)
		want := entry("fp-a", "summary a", 0)
		require.NoError(t, s.Put(ctx, want))

		got, err := s.Get(ctx, "fp-a")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want.Fingerprint, got.Fingerprint)
		assert.Equal(t, want.Value, got.Value)
		assert.Equal(t, want.TTL, got.TTL)
		assert.Equal(t, want.SizeBytes, got.SizeBytes)
		assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
		assert.True(t, want.LastAccessedAt.Equal(got.LastAccessedAt))
	})

	t.Run("put replaces existing entry", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, entry("fp-a", "first", 0)))
		require.NoError(t, s.Put(ctx, entry("fp-a", "second", 0)))

		got, err := s.Get(ctx, "fp-a")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "second", got.Value.Text)

		all, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("touch updates last access", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, entry("fp-a", "a", 0)))
		later := base.Add(5 * time.Minute)
		require.NoError(t, s.Touch(ctx, "fp-a", later))

		got, err := s.Get(ctx, "fp-a")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, later.Equal(got.LastAccessedAt))

		// Touching a missing entry is harmless.
		require.NoError(t, s.Touch(ctx, "missing", later))
	})

	t.Run("list orders by last access", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, entry("fp-new", "n", 3*time.Minute)))
		require.NoError(t, s.Put(ctx, entry("fp-old", "o", time.Minute)))
		require.NoError(t, s.Put(ctx, entry("fp-mid", "m", 2*time.Minute)))

		all, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, domain.Fingerprint("fp-old"), all[0].Fingerprint)
		assert.Equal(t, domain.Fingerprint("fp-mid"), all[1].Fingerprint)
		assert.Equal(t, domain.Fingerprint("fp-new"), all[2].Fingerprint)
	})

	t.Run("delete removes entry", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, entry("fp-a", "a", 0)))
		require.NoError(t, s.Delete(ctx, "fp-a"))
		require.NoError(t, s.Delete(ctx, "fp-a"))

		got, err := s.Get(ctx, "fp-a")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("clear removes everything", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, entry("fp-a", "a", 0)))
		require.NoError(t, s.Put(ctx, entry("fp-b", "b", 0)))
		require.NoError(t, s.Clear(ctx))

		all, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}
