package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0

	err := fastConfig().Do(context.Background(), func() error {
		calls++

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0

	err := fastConfig().Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("backend down")

	err := fastConfig().Do(context.Background(), func() error {
		calls++

		return boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	calls := 0
	fatal := errors.New("malformed id")

	cfg := fastConfig()
	cfg.Retryable = func(err error) bool {
		return !errors.Is(err, fatal)
	}

	err := cfg.Do(context.Background(), func() error {
		calls++

		return fatal
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := Config{MaxAttempts: 10, BaseDelay: 50 * time.Millisecond}
	calls := 0

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := cfg.Do(ctx, func() error {
		calls++

		return errors.New("transient")
	})

	require.Error(t, err)
	assert.LessOrEqual(t, calls, 2)
}
