// Package retry decorates a SourceAdapter with bounded retries on
// transient fetch failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/mkorchagin/vacradar/internal/model"
)

// RetryAdapter is a decorator that retries transient failures with
// exponential backoff and jitter before delegating to the wrapped adapter.
type RetryAdapter struct {
	inner      model.SourceAdapter
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewRetryAdapter wraps a SourceAdapter with retry logic.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is the delay before the first retry, doubled on each subsequent retry.
func NewRetryAdapter(inner model.SourceAdapter, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetryAdapter {
	return &RetryAdapter{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

func (a *RetryAdapter) Name() string { return a.inner.Name() }

// Fetch attempts a page fetch, retrying on transient errors. Markup-change
// and hard-block failures pass through untouched so the monitor sees them
// on the first attempt.
func (a *RetryAdapter) Fetch(ctx context.Context, query string, page int) ([]model.RawPosting, error) {
	postings, err := a.inner.Fetch(ctx, query, page)
	if err == nil {
		return postings, nil
	}

	if !isRetryable(err) {
		return nil, err
	}

	lastErr := err
	for attempt := 1; attempt <= a.maxRetries; attempt++ {
		delay := a.backoffDelay(attempt, lastErr)

		a.logger.Warn("retrying after transient error",
			"source", a.inner.Name(),
			"attempt", attempt,
			"max_retries", a.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		postings, err = a.inner.Fetch(ctx, query, page)
		if err == nil {
			return postings, nil
		}

		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// If the error includes a Retry-After duration (HTTP 429), that takes precedence.
func (a *RetryAdapter) backoffDelay(attempt int, err error) time.Duration {
	var fetchErr *model.FetchError
	if errors.As(err, &fetchErr) && fetchErr.RetryAfter > 0 {
		return fetchErr.RetryAfter
	}

	// Exponential: baseDelay * 2^(attempt-1)
	delay := a.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	// Apply ±30% jitter
	jitter := float64(delay) * 0.3
	delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)

	return delay
}

// isRetryable returns true if the error represents a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation — never retry.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var fetchErr *model.FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Retryable()
	}

	// Non-FetchError failures are internal bugs, not transient conditions.
	return false
}
