// Package retry provides bounded exponential backoff.
package retry

import (
	"context"
	"log/slog"
	"time"
)

// Config configures exponential backoff retry behavior
type Config struct {
	MaxAttempts int           // Total attempts including the first one
	BaseDelay   time.Duration // Delay before the second attempt
	MaxDelay    time.Duration // Upper bound on any single delay (0 = unbounded)
	Multiplier  float64       // Delay growth factor per attempt
}

// Default returns the policy used for subprocess launches:
// 3 attempts, 500ms initial delay, doubling.
func Default() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
	}
}

// Delay returns the wait before attempt n+1, where n is 1-based
func (c Config) Delay(n int) time.Duration {
	d := c.BaseDelay
	for i := 1; i < n; i++ {
		d = time.Duration(float64(d) * c.Multiplier)
		if c.MaxDelay > 0 && d > c.MaxDelay {
			return c.MaxDelay
		}
	}
	return d
}

// Do executes fn until it succeeds, the attempts are exhausted, shouldRetry
// rejects the error, or ctx is done. A nil shouldRetry retries every error.
// The error from the last attempt is returned.
func Do[T any](ctx context.Context, cfg Config, shouldRetry func(error) bool, fn func() (T, error)) (T, error) {
	var zero T
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn()
		if err == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return result, nil
		}
		lastErr = err

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return zero, err
		}
		if attempt == attempts {
			break
		}

		delay := cfg.Delay(attempt)
		slog.Warn("operation failed, retrying",
			"attempt", attempt, "max_attempts", attempts, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}
