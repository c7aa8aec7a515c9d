package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrInvalidPolicy", ErrInvalidPolicy},
		{"ErrTokenizerUnavailable", ErrTokenizerUnavailable},
		{"ErrRateLimited", ErrRateLimited},
		{"ErrTimeout", ErrTimeout},
		{"ErrUnavailable", ErrUnavailable},
		{"ErrContentPolicy", ErrContentPolicy},
		{"ErrAllChunksFailed", ErrAllChunksFailed},
		{"ErrStaleHandle", ErrStaleHandle},
		{"ErrCacheClosed", ErrCacheClosed},
	}

	seen := make(map[string]string)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
		if prev, dup := seen[tt.err.Error()]; dup {
			t.Errorf("%s and %s share message %q", prev, tt.name, tt.err.Error())
		}
		seen[tt.err.Error()] = tt.name
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err      error
		expected bool
	}{
		{ErrRateLimited, true},
		{ErrTimeout, true},
		{ErrUnavailable, true},
		{fmt.Errorf("openai: complete: %w", ErrRateLimited), true},
		{ErrContentPolicy, false},
		{ErrInvalidInput, false},
		{errors.New("boom"), false},
		{nil, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, IsTransient(tt.err), "%v", tt.err)
	}
}

func TestChunkingError(t *testing.T) {
	err := &ChunkingError{Field: "max_tokens", Reason: "must be positive"}
	assert.Equal(t, "chunking: max_tokens: must be positive", err.Error())
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	noField := &ChunkingError{Reason: "document too large"}
	assert.Equal(t, "chunking: document too large", noField.Error())

	cause := errors.New("counter exploded")
	wrapped := &ChunkingError{Reason: "count", Err: cause}
	assert.ErrorIs(t, wrapped, cause)
	assert.NotErrorIs(t, wrapped, ErrInvalidPolicy)

	var target *ChunkingError
	assert.True(t, errors.As(fmt.Errorf("plan: %w", err), &target))
	assert.Equal(t, "max_tokens", target.Field)
}

func TestTokenizationError(t *testing.T) {
	cause := errors.New("no encoding")
	err := &TokenizationError{Model: ModelRef{Provider: AIProviderOpenAI, Model: "gpt-x"}, Err: cause}

	assert.Equal(t, "tokenizer for openai/gpt-x: no encoding", err.Error())
	assert.ErrorIs(t, err, ErrTokenizerUnavailable)
	assert.ErrorIs(t, err, cause)
}

func TestSummarizationError(t *testing.T) {
	err := &SummarizationError{
		Err: ErrAllChunksFailed,
		Failures: []ChunkFailure{
			{ChunkIndex: 0, Status: StatusFailed, Err: ErrContentPolicy},
			{ChunkIndex: 1, Status: StatusTimeout, Err: ErrTimeout},
		},
	}

	assert.ErrorIs(t, err, ErrAllChunksFailed)
	assert.Contains(t, err.Error(), "all chunks failed")
	assert.Contains(t, err.Error(), "(2 chunks:")
	assert.Contains(t, err.Error(), "#1 timeout")
}

func TestSummarizationError_TruncatesFailureList(t *testing.T) {
	failures := make([]ChunkFailure, 5)
	for i := range failures {
		failures[i] = ChunkFailure{ChunkIndex: i, Status: StatusFailed, Err: ErrUnavailable}
	}
	err := &SummarizationError{Err: ErrAllChunksFailed, Failures: failures}

	msg := err.Error()
	assert.Contains(t, msg, "#2 failed")
	assert.NotContains(t, msg, "#3 failed")
	assert.Contains(t, msg, "...")
}

func TestCacheError(t *testing.T) {
	cause := errors.New("disk full")
	err := &CacheError{Op: "put", Fingerprint: "0123456789abcdef0123", Err: cause}

	assert.Equal(t, "cache put 0123456789ab: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
}
