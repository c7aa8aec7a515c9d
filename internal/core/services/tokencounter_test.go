package services

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
)

// wordTokenizer counts whitespace-separated words.
type wordTokenizer struct{}

func (wordTokenizer) Count(text string) int {
	return len(strings.Fields(text))
}

// mockTokenizerLoader implements driven.TokenizerLoader for testing.
type mockTokenizerLoader struct {
	calls   atomic.Int32
	failFor map[domain.AIProvider]bool
}

func (m *mockTokenizerLoader) Load(model domain.ModelRef) (driven.Tokenizer, error) {
	m.calls.Add(1)
	if m.failFor[model.Provider] {
		return nil, errors.New("vocabulary download failed")
	}
	return wordTokenizer{}, nil
}

var (
	testModel  = domain.ModelRef{Provider: domain.AIProviderOpenAI, Model: "gpt-4o-mini"}
	otherModel = domain.ModelRef{Provider: domain.AIProviderAnthropic, Model: "claude-3-5-sonnet-latest"}
)

func TestHeuristicTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HeuristicTokens(tt.text), "len %d", len(tt.text))
	}
}

func TestTokenCounter_UsesLoadedTokenizer(t *testing.T) {
	loader := &mockTokenizerLoader{}
	c := NewTokenCounter(loader)

	got := c.Count("one two three", testModel)
	assert.Equal(t, domain.TokenCount{Tokens: 3}, got)

	degraded, err := c.Degraded(testModel)
	assert.False(t, degraded)
	assert.NoError(t, err)
}

func TestTokenCounter_FallsBackWhenLoadFails(t *testing.T) {
	loader := &mockTokenizerLoader{failFor: map[domain.AIProvider]bool{domain.AIProviderAnthropic: true}}
	c := NewTokenCounter(loader)

	got := c.Count("abcdefgh", otherModel)
	assert.Equal(t, domain.TokenCount{Tokens: 2, Degraded: true}, got)

	degraded, err := c.Degraded(otherModel)
	assert.True(t, degraded)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTokenizerUnavailable))

	var te *domain.TokenizationError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, otherModel, te.Model)

	// Other models are unaffected.
	assert.False(t, c.Count("a b", testModel).Degraded)
}

func TestTokenCounter_NilLoaderIsDegraded(t *testing.T) {
	c := NewTokenCounter(nil)
	assert.Equal(t, domain.TokenCount{Tokens: 3, Degraded: true}, c.Count("hello world", testModel))
	assert.Equal(t, 3, c.For(testModel)("hello world"))
}

func TestTokenCounter_LoadsOncePerModel(t *testing.T) {
	loader := &mockTokenizerLoader{}
	c := NewTokenCounter(loader)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Count("a b c", testModel)
			c.Count("a b c", otherModel)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(2), loader.calls.Load())
}

func TestTokenCounter_For(t *testing.T) {
	c := NewTokenCounter(&mockTokenizerLoader{})
	count := c.For(testModel)
	assert.Equal(t, 4, count("a b c d"))
}
