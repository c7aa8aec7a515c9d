// Package llm holds what the provider adapters share: classification of
// provider failures into the domain sentinels that drive retries.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"time"

	"github.com/custodia-labs/precis/internal/core/domain"
)

// RetryAfterError carries a server-requested delay alongside a rate limit.
type RetryAfterError struct {
	After time.Duration
	Err   error
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("%v (retry after %s)", e.Err, e.After)
}

func (e *RetryAfterError) Unwrap() error {
	return e.Err
}

// FromStatus classifies an HTTP error response.
// 429 is a rate limit, 408 and 504 are timeouts, other 5xx responses
// (including Anthropic's 529 overload) are temporary outages. Everything
// else is returned as a permanent failure.
func FromStatus(provider string, status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w: %w", provider, domain.ErrRateLimited, err)
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return fmt.Errorf("%s: %w: %w", provider, domain.ErrTimeout, err)
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%s: %w: %w", provider, domain.ErrUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", provider, err)
	}
}

// FromTransport classifies an error that happened before a response arrived.
// Context errors pass through unchanged so callers can tell their own
// deadlines apart from the network's.
func FromTransport(provider string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", provider, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: %w: %w", provider, domain.ErrTimeout, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: %w: %w", provider, domain.ErrUnavailable, err)
	}

	return fmt.Errorf("%s: %w", provider, err)
}

// ContentPolicy reports a refusal that retrying will not fix.
func ContentPolicy(provider, reason string) error {
	return fmt.Errorf("%s: %w: %s", provider, domain.ErrContentPolicy, reason)
}

// WithRetryAfter attaches the Retry-After header of resp to err, if any.
// Both delta-seconds and HTTP-date forms are accepted.
func WithRetryAfter(err error, header http.Header, now time.Time) error {
	v := header.Get("Retry-After")
	if v == "" {
		return err
	}
	if secs, convErr := strconv.Atoi(v); convErr == nil && secs >= 0 {
		return &RetryAfterError{After: time.Duration(secs) * time.Second, Err: err}
	}
	if at, parseErr := http.ParseTime(v); parseErr == nil && at.After(now) {
		return &RetryAfterError{After: at.Sub(now), Err: err}
	}
	return err
}
