// Package retry generalizes the teacher's internal/rpc/retry.go
// calculateBackoff/retryWithBackoff shape into a component-agnostic helper,
// used by both the Chain Source's RPC/WS calls and the Orchestrator's
// storage-commit retries (spec §4.C, §4.E, §7).
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Config tunes the exponential backoff. JitterFraction of 0.2 means ±20%.
type Config struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	JitterFraction    float64
}

// ApplyDefaults mirrors the teacher's RetryConfig.ApplyDefaults.
func (c *Config) ApplyDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = 500 * time.Millisecond //nolint:mnd
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 30 * time.Second //nolint:mnd
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = 2.0
	}
	if c.JitterFraction == 0 {
		c.JitterFraction = 0.2 //nolint:mnd
	}
}

// Backoff computes the delay before the given attempt (1-indexed; attempt 1
// never waits), following the teacher's calculateBackoff shape.
func Backoff(attempt int, cfg Config) time.Duration {
	if attempt <= 1 {
		return 0
	}

	backoff := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffMultiplier, float64(attempt-2)) //nolint:mnd
	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}

	jitterRange := backoff * cfg.JitterFraction
	jitter := (rand.Float64() * 2 * jitterRange) - jitterRange //nolint:mnd,gosec
	backoff += jitter
	if backoff < 0 {
		backoff = 0
	}

	return time.Duration(backoff)
}

// OnRetry is invoked after every retried (non-final) attempt, the hook
// components use to bump their own Prometheus retry counters.
type OnRetry func(attempt int, err error)

// Do runs fn, retrying up to cfg.MaxAttempts times with backoff while
// isRetryable(err) holds. It aborts immediately on a non-retryable error or
// context cancellation, and never swallows the last error.
func Do(ctx context.Context, cfg Config, isRetryable func(error) bool, onRetry OnRetry, fn func() error) error {
	cfg.ApplyDefaults()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled before attempt %d: %w", attempt, err)
		}

		if err := fn(); err == nil {
			return nil
		} else { //nolint:revive
			lastErr = err
			if isRetryable != nil && !isRetryable(err) {
				return err
			}
		}

		if attempt >= cfg.MaxAttempts {
			break
		}

		if onRetry != nil {
			onRetry(attempt, lastErr)
		}

		delay := Backoff(attempt+1, cfg)
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during backoff (attempt %d/%d): %w", attempt, cfg.MaxAttempts, ctx.Err())
			}
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}
