// Package ratelimit wraps an LLM service with a client-side token bucket.
// A rate-limited response carrying Retry-After also pauses every caller
// sharing the wrapper until the server's window has passed.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/precis/internal/adapters/driven/llm"
	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
	"github.com/custodia-labs/precis/internal/logger"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// LLMService limits calls to an underlying service.
type LLMService struct {
	next    driven.LLMService
	limiter *rate.Limiter
	now     func() time.Time

	mu          sync.Mutex
	pausedUntil time.Time
}

// New wraps next, allowing perSecond calls with the given burst.
// A non-positive rate leaves calls unlimited except for Retry-After pauses.
func New(next driven.LLMService, perSecond float64, burst int) *LLMService {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &LLMService{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
		now:     time.Now,
	}
}

// Generate waits for a token and any Retry-After pause, then calls through.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if err := s.waitPause(ctx); err != nil {
		return "", err
	}
	if err := s.limiter.Wait(ctx); err != nil {
		// Wait fails early when the deadline is closer than the next token.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	}

	out, err := s.next.Generate(ctx, prompt, opts)

	var ra *llm.RetryAfterError
	if errors.As(err, &ra) && ra.After > 0 {
		s.pause(ra.After)
	}
	return out, err
}

func (s *LLMService) pause(d time.Duration) {
	until := s.now().Add(d)
	s.mu.Lock()
	if until.After(s.pausedUntil) {
		s.pausedUntil = until
	}
	s.mu.Unlock()
	logger.Warn("%s asked to back off for %s", s.next.ModelName(), d.Round(time.Second))
}

func (s *LLMService) waitPause(ctx context.Context) error {
	s.mu.Lock()
	wait := s.pausedUntil.Sub(s.now())
	s.mu.Unlock()
	if wait <= 0 {
		return nil
	}

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ModelName returns the wrapped model name.
func (s *LLMService) ModelName() string {
	return s.next.ModelName()
}

// Ping bypasses the limiter.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close closes the wrapped service.
func (s *LLMService) Close() error {
	return s.next.Close()
}
