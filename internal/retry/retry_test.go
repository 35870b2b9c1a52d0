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
		MaxDelay:    4 * time.Millisecond,
		Timeout:     time.Second,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), fastConfig(), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestDo_TransientThenSuccess(t *testing.T) {
	calls := 0
	retries := 0
	result, err := Do(context.Background(), fastConfig(), func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("transient")
		}
		return 42, nil
	}, func(attempt int, delay time.Duration, err error) {
		retries++
		assert.Equal(t, 1, attempt)
		assert.EqualError(t, err, "transient")
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, retries)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	retries := 0
	_, err := Do(context.Background(), fastConfig(), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("always fails")
	}, func(int, time.Duration, error) {
		retries++
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retries)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Contains(t, err.Error(), "3 attempts")
	assert.True(t, IsExhausted(err))
}

func TestDo_NonRetryablePropagatesImmediately(t *testing.T) {
	fatal := errors.New("fatal")
	cfg := fastConfig()
	cfg.ShouldRetry = func(err error) bool { return !errors.Is(err, fatal) }

	calls := 0
	_, err := Do(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		return 0, fatal
	}, nil)

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
	assert.False(t, IsExhausted(err))
}

func TestDo_TimeoutBeforeAttempt(t *testing.T) {
	cfg := Config{
		MaxAttempts: 10,
		BaseDelay:   20 * time.Millisecond,
		MaxDelay:    20 * time.Millisecond,
		Timeout:     30 * time.Millisecond,
	}

	calls := 0
	_, err := Do(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		time.Sleep(15 * time.Millisecond)
		return 0, errors.New("slow failure")
	}, nil)

	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Less(t, calls, 10)
	assert.Equal(t, calls, timeout.Attempts)
	assert.Contains(t, err.Error(), "slow failure")
	assert.True(t, IsExhausted(err))
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{
		MaxAttempts: 3,
		BaseDelay:   time.Hour,
		MaxDelay:    time.Hour,
		Timeout:     2 * time.Hour,
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Do(ctx, cfg, func(context.Context) (int, error) {
		return 0, errors.New("transient")
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestDelay_Bounds(t *testing.T) {
	cfg := Config{BaseDelay: time.Second, MaxDelay: 8 * time.Second}

	for attempt := 1; attempt <= 6; attempt++ {
		expected := time.Second << uint(attempt-1)
		if expected > cfg.MaxDelay {
			expected = cfg.MaxDelay
		}
		lo := time.Duration(float64(expected) * 0.7)
		hi := time.Duration(float64(expected) * 1.3)

		for i := 0; i < 200; i++ {
			d := Delay(cfg, attempt)
			assert.GreaterOrEqual(t, d, lo-time.Millisecond, "attempt %d", attempt)
			assert.LessOrEqual(t, d, hi, "attempt %d", attempt)
			assert.Zero(t, d%time.Millisecond)
		}
	}
}

func TestDelay_CapsAtMax(t *testing.T) {
	cfg := Config{BaseDelay: time.Second, MaxDelay: 2 * time.Second}
	for i := 0; i < 100; i++ {
		d := Delay(cfg, 10)
		assert.LessOrEqual(t, d, time.Duration(float64(2*time.Second)*1.3))
	}
}
