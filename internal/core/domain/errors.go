package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider or backend type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// Chunking Errors.

	// ErrInvalidPolicy indicates a chunking policy that cannot be honoured,
	// such as an overlap that is not smaller than the chunk size.
	ErrInvalidPolicy = errors.New("invalid chunking policy")

	// ErrTokenizerUnavailable indicates no tokenizer could be loaded for a model.
	// Counting continues with the character heuristic.
	ErrTokenizerUnavailable = errors.New("tokenizer unavailable")

	// Summarisation Errors.

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates an LLM call did not finish within its deadline.
	ErrTimeout = errors.New("timeout")

	// ErrUnavailable indicates the LLM backend is temporarily unreachable.
	ErrUnavailable = errors.New("service unavailable")

	// ErrContentPolicy indicates the provider refused the content.
	// Retrying the same prompt will not help.
	ErrContentPolicy = errors.New("content policy violation")

	// ErrAllChunksFailed indicates every chunk in the map phase failed.
	ErrAllChunksFailed = errors.New("all chunks failed")

	// Cache Errors.

	// ErrStaleHandle indicates a staging handle that no longer owns its fingerprint.
	ErrStaleHandle = errors.New("stale staging handle")

	// ErrCacheClosed indicates the cache has been closed.
	ErrCacheClosed = errors.New("cache closed")
)

// IsTransient reports whether err is worth retrying.
// Rate limits, timeouts and temporary outages are transient; everything
// else (including content policy refusals) is permanent.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrUnavailable)
}

// ChunkingError reports an invalid policy or a planning failure.
type ChunkingError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ChunkingError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("chunking: %s", e.Reason)
	}
	return fmt.Sprintf("chunking: %s: %s", e.Field, e.Reason)
}

func (e *ChunkingError) Unwrap() error {
	if e.Err == nil {
		return ErrInvalidPolicy
	}
	return e.Err
}

// TokenizationError reports a tokenizer that failed to load for a model.
type TokenizationError struct {
	Model ModelRef
	Err   error
}

func (e *TokenizationError) Error() string {
	return fmt.Sprintf("tokenizer for %s: %v", e.Model, e.Err)
}

func (e *TokenizationError) Unwrap() []error {
	return []error{ErrTokenizerUnavailable, e.Err}
}

// ChunkFailure records why a single chunk could not be summarised.
type ChunkFailure struct {
	ChunkIndex int
	Status     SummaryStatus
	Err        error
}

// SummarizationError aggregates the failures of a map-reduce run.
type SummarizationError struct {
	// Failures holds one entry per failed chunk, in chunk order.
	Failures []ChunkFailure

	// Err is the cause, ErrAllChunksFailed for a total map failure.
	Err error
}

func (e *SummarizationError) Error() string {
	var b strings.Builder
	b.WriteString("summarization: ")
	b.WriteString(e.Err.Error())
	if len(e.Failures) > 0 {
		fmt.Fprintf(&b, " (%d chunks:", len(e.Failures))
		for i, f := range e.Failures {
			if i == 3 {
				b.WriteString(" ...")
				break
			}
			fmt.Fprintf(&b, " #%d %s: %v;", f.ChunkIndex, f.Status, f.Err)
		}
		b.WriteString(")")
	}
	return b.String()
}

func (e *SummarizationError) Unwrap() error {
	return e.Err
}

// CacheError reports a durable cache I/O failure.
// The cache degrades to a miss or no-op; callers never see it directly.
type CacheError struct {
	Op          string
	Fingerprint Fingerprint
	Err         error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Fingerprint.Short(), e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}
