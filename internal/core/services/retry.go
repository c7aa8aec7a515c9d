package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/precis/internal/core/domain"
	"github.com/custodia-labs/precis/internal/core/ports/driven"
	"github.com/custodia-labs/precis/internal/logger"
)

// generate calls the LLM with a per-call timeout, retrying transient
// failures with exponential backoff. It returns the attempt count.
func (o *Orchestrator) generate(ctx context.Context, prompt string, maxTokens int) (string, int, error) {
	var (
		text     string
		attempts int
	)

	call := func() error {
		attempts++
		callCtx, cancel := context.WithTimeout(ctx, o.settings.ChunkTimeout)
		defer cancel()

		out, err := o.llm.Generate(callCtx, prompt, driven.GenerateOptions{MaxTokens: maxTokens})
		if err == nil && strings.TrimSpace(out) == "" {
			err = fmt.Errorf("%w: empty completion", domain.ErrUnavailable)
		}
		if err == nil {
			text = strings.TrimSpace(out)
			return nil
		}

		switch {
		case ctx.Err() != nil:
			return backoff.Permanent(ctx.Err())
		case errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrTimeout):
			err = fmt.Errorf("%w: %w", domain.ErrTimeout, err)
		}
		if !domain.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		logger.Debug("attempt %d failed, retrying in %s: %v", attempts, wait.Round(time.Millisecond), err)
	}

	err := backoff.RetryNotify(call, o.newBackOff(ctx), notify)
	return text, attempts, err
}

func (o *Orchestrator) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.settings.InitialBackoff
	b.MaxInterval = o.settings.MaxBackoff
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(o.settings.MaxRetries)), ctx)
}

// statusFor classifies a chunk error that exhausted its retries.
func statusFor(err error) domain.SummaryStatus {
	if errors.Is(err, domain.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return domain.StatusTimeout
	}
	return domain.StatusFailed
}
