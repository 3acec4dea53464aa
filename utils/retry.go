package utils

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// RetryConfig holds the parameters for the retry strategy.
type RetryConfig struct {
	MaxAttempts int
	// Backoff returns the wait after the given failed attempt (1-based).
	Backoff func(attempt int) time.Duration
	// Retryable reports whether err may be retried. Nil retries everything.
	Retryable func(err error) bool
	// BeforeRetry runs after the backoff wait and before the next attempt.
	// An error from it aborts the loop.
	BeforeRetry func(ctx context.Context, attempt int) error
	// Sleep performs the backoff wait. Nil uses SleepContext.
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *Logger
}

// ExponentialBackoff returns base, 2*base, 4*base, ... for attempts 1, 2, 3, ...
func ExponentialBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base * time.Duration(1<<(attempt-1))
	}
}

// RandomBackoff returns a uniformly random wait in [min, max] on every attempt.
func RandomBackoff(rnd *rand.Rand, min, max time.Duration) func(int) time.Duration {
	return func(int) time.Duration {
		return RandomDuration(rnd, min, max)
	}
}

// RandomDuration picks a uniformly random duration in [min, max] at
// millisecond granularity.
func RandomDuration(rnd *rand.Rand, min, max time.Duration) time.Duration {
	minMs, maxMs := min.Milliseconds(), max.Milliseconds()
	if maxMs <= minMs {
		return min
	}
	return time.Duration(minMs+rnd.Int63n(maxMs-minMs+1)) * time.Millisecond
}

// Do executes fn until it succeeds, returns a non-retryable error, or
// MaxAttempts is reached. fn receives the 1-based attempt number.
func (r *RetryConfig) Do(ctx context.Context, operationName string, fn func(attempt int) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}

		if r.Retryable != nil && !r.Retryable(lastErr) {
			return fmt.Errorf("%s: %w", operationName, lastErr)
		}

		if attempt == r.MaxAttempts {
			break
		}

		var delay time.Duration
		if r.Backoff != nil {
			delay = r.Backoff(attempt)
		}
		if r.Logger != nil {
			r.Logger.Warn("[retry] %s failed (attempt %d/%d): %v, retrying in %v",
				operationName, attempt, r.MaxAttempts, lastErr, delay)
		}

		sleep := r.Sleep
		if sleep == nil {
			sleep = SleepContext
		}
		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("%s: %w", operationName, err)
		}

		if r.BeforeRetry != nil {
			if err := r.BeforeRetry(ctx, attempt+1); err != nil {
				return fmt.Errorf("%s: %w", operationName, err)
			}
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, r.MaxAttempts, lastErr)
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
