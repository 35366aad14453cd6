// Package retry wraps exponential-backoff retries for transient backend
// failures. Existence checks and persistence tiers share one policy
// instead of hand-rolled loops.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMaxAttempts bounds how many times an operation runs.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the first wait; each further wait doubles it.
	DefaultBaseDelay = 500 * time.Millisecond
)

// Config parameterizes a retry policy.
type Config struct {
	MaxAttempts uint64
	BaseDelay   time.Duration

	// Retryable reports whether an error is worth another attempt.
	// A nil predicate retries everything.
	Retryable func(error) bool
}

// DefaultConfig mirrors the existence-check policy: three attempts with
// 500ms, 1s, 2s waits between them.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
	}
}

// Do runs op with the configured backoff until it succeeds, the attempt
// budget is exhausted, the predicate marks an error permanent, or ctx is
// cancelled. The last error is returned on failure.
func (c Config) Do(ctx context.Context, op func() error) error {
	// BackOff implementations are stateful; always build a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.BaseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	attempts := c.MaxAttempts
	if attempts == 0 {
		attempts = DefaultMaxAttempts
	}

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}

		if c.Retryable != nil && !c.Retryable(err) {
			return backoff.Permanent(err)
		}

		return err
	}

	return backoff.Retry(wrapped, backoff.WithContext(backoff.WithMaxRetries(bo, attempts-1), ctx))
}

// Do runs op with the default policy.
func Do(ctx context.Context, op func() error) error {
	return DefaultConfig().Do(ctx, op)
}
