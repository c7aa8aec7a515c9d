package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
)

func writePrompt(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".txt"), []byte(content), 0600))
}

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewPromptStore("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".precis", "prompts"), store.Dir())
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptChunkSummary)
	require.NoError(t, err)

	for _, name := range driven.PromptNames() {
		assert.FileExists(t, filepath.Join(dir, name+".txt"))
	}
	assert.FileExists(t, filepath.Join(dir, "README.md"))
}

func TestPromptStore_Load_Defaults(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range driven.PromptNames() {
		got, err := store.Load(name)
		require.NoError(t, err, name)
		want, _ := driven.DefaultPrompt(name)
		assert.Equal(t, strings.TrimSpace(want), got, name)
	}
}

func TestPromptStore_Load_CustomContent(t *testing.T) {
	dir := t.TempDir()
	custom := "Summarise for %s only:\n%s"
	writePrompt(t, dir, driven.PromptDirectSummary, "\n  "+custom+"  \n")

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	got, err := store.Load(driven.PromptDirectSummary)
	require.NoError(t, err)
	assert.Equal(t, custom, got)

	// Pre-existing files are never overwritten.
	data, err := os.ReadFile(filepath.Join(dir, driven.PromptDirectSummary+".txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "for %s only")
}

func TestPromptStore_Load_RejectsChangedPlaceholders(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, driven.PromptCombineSummaries, "Merge these: %s and also %d")
	writePrompt(t, dir, driven.PromptFinalSummary, "Focus %s. 100%% of:\n%s")

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptCombineSummaries)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Escaped percent signs are not placeholders.
	got, err := store.Load(driven.PromptFinalSummary)
	require.NoError(t, err)
	assert.Contains(t, got, "100%%")
}

func TestPromptStore_Load_FallsBackWhenFileRemoved(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptChunkSummary)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, driven.PromptChunkSummary+".txt")))
	store.Reload()

	got, err := store.Load(driven.PromptChunkSummary)
	require.NoError(t, err)
	want, _ := driven.DefaultPrompt(driven.PromptChunkSummary)
	assert.Equal(t, want, got)
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nonexistent_prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent_prompt")
}

func TestPromptStore_Load_InitFailureUsesDefaults(t *testing.T) {
	store, err := NewPromptStore("/dev/null/prompts")
	require.NoError(t, err)

	got, err := store.Load(driven.PromptDirectSummary)
	require.NoError(t, err)
	want, _ := driven.DefaultPrompt(driven.PromptDirectSummary)
	assert.Equal(t, want, got)

	_, err = store.Load("custom")
	assert.Error(t, err)
}

func TestPromptStore_CachesUntilReload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	first, err := store.Load(driven.PromptDirectSummary)
	require.NoError(t, err)

	writePrompt(t, dir, driven.PromptDirectSummary, "Brief (%s): %s")
	cached, err := store.Load(driven.PromptDirectSummary)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptDirectSummary)
	require.NoError(t, err)
	assert.Equal(t, "Brief (%s): %s", fresh)
}

func TestPromptStore_ConcurrentLoad(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 50)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := store.Load(driven.PromptChunkSummary)
			assert.NoError(t, err)
			results[i] = p
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}

func TestPromptStore_WatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptDirectSummary)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Watch(ctx) }()
	defer func() {
		cancel()
		assert.NoError(t, <-done)
	}()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)
	writePrompt(t, dir, driven.PromptDirectSummary, "Watched %s %s")

	assert.Eventually(t, func() bool {
		got, err := store.Load(driven.PromptDirectSummary)
		return err == nil && got == "Watched %s %s"
	}, 2*time.Second, 20*time.Millisecond)
}
