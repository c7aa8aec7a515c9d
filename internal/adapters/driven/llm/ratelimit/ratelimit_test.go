package ratelimit

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/precis/internal/adapters/driven/llm"
	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
)

// mockLLM implements driven.LLMService for testing.
type mockLLM struct {
	calls  atomic.Int32
	err    error
	closed bool
}

func (m *mockLLM) Generate(_ context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	m.calls.Add(1)
	if m.err != nil {
		return "", m.err
	}
	return "ok", nil
}

func (m *mockLLM) ModelName() string            { return "mock" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { m.closed = true; return nil }

func TestNew_UnlimitedByDefault(t *testing.T) {
	inner := &mockLLM{}
	s := New(inner, 0, 0)

	start := time.Now()
	for i := 0; i < 50; i++ {
		_, err := s.Generate(context.Background(), "p", driven.GenerateOptions{})
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(50), inner.calls.Load())
}

func TestGenerate_Limits(t *testing.T) {
	s := New(&mockLLM{}, 20, 1)

	start := time.Now()
	for i := 0; i < 4; i++ {
		_, err := s.Generate(context.Background(), "p", driven.GenerateOptions{})
		require.NoError(t, err)
	}
	// One token up front, then three more at 50ms intervals.
	assert.GreaterOrEqual(t, time.Since(start), 120*time.Millisecond)
}

func TestGenerate_DeadlineShorterThanNextToken(t *testing.T) {
	inner := &mockLLM{}
	s := New(inner, 0.5, 1)

	_, err := s.Generate(context.Background(), "p", driven.GenerateOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = s.Generate(ctx, "p", driven.GenerateOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRateLimited) || errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestGenerate_RetryAfterPausesCallers(t *testing.T) {
	limited := &llm.RetryAfterError{After: 80 * time.Millisecond, Err: domain.ErrRateLimited}
	inner := &mockLLM{err: limited}
	s := New(inner, 0, 1)

	_, err := s.Generate(context.Background(), "p", driven.GenerateOptions{})
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	inner.err = nil
	start := time.Now()
	_, err = s.Generate(context.Background(), "p", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestGenerate_PauseHonoursContext(t *testing.T) {
	s := New(&mockLLM{}, 0, 1)
	s.pause(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Generate(ctx, "p", driven.GenerateOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPassThrough(t *testing.T) {
	inner := &mockLLM{}
	s := New(inner, 1, 1)

	assert.Equal(t, "mock", s.ModelName())
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
	assert.True(t, inner.closed)
}
