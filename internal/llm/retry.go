package llm

import (
	"context"
	"log/slog"
	"time"
)

// Clock abstracts waiting so the retry policy can run against a fake clock in
// tests. Sleep returns early with ctx.Err() when the context is cancelled.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RetryPolicy drives bounded retries around a service call, plus the global
// pacing wait that follows every call system-wide. It is a value passed into
// the client so it can be swapped or tested in isolation.
type RetryPolicy struct {
	MaxRetries     int
	ErrorDelay     time.Duration
	RateLimitDelay time.Duration
	Clock          Clock
}

// NewRetryPolicy builds a policy with a real clock.
func NewRetryPolicy(maxRetries int, errorDelay, rateLimitDelay time.Duration) RetryPolicy {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return RetryPolicy{
		MaxRetries:     maxRetries,
		ErrorDelay:     errorDelay,
		RateLimitDelay: rateLimitDelay,
		Clock:          realClock{},
	}
}

// Do runs fn up to MaxRetries times. Transient failures wait ErrorDelay
// before the next attempt; permanent failures return immediately without
// consuming remaining attempts. Every attempt, successful or not, is followed
// by the RateLimitDelay pacing wait.
func (p RetryPolicy) Do(ctx context.Context, logger *slog.Logger, fn func(attempt int) error) error {
	clock := p.Clock
	if clock == nil {
		clock = realClock{}
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxRetries; attempt++ {
		err := fn(attempt)

		// Pacing applies after every call so the external rate limit is
		// respected regardless of outcome.
		if serr := clock.Sleep(ctx, p.RateLimitDelay); serr != nil {
			if err == nil {
				return nil
			}
			return err
		}

		if err == nil {
			return nil
		}
		lastErr = err

		if !IsTransient(err) {
			logger.Warn("llm.retry.permanent_failure", "attempt", attempt, "error", err)
			return err
		}
		logger.Warn("llm.retry.attempt_failed",
			"attempt", attempt,
			"max_retries", p.MaxRetries,
			"error", err,
		)
		if attempt < p.MaxRetries {
			if serr := clock.Sleep(ctx, p.ErrorDelay); serr != nil {
				return lastErr
			}
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}
