// Package retry wraps fallible operations in exponential backoff with
// jitter, bounded by both an attempt count and total wall-clock time.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Config bounds a single Do call.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Timeout bounds total wall-clock time across all attempts, checked
	// before each attempt. It takes priority over MaxAttempts.
	Timeout time.Duration
	// ShouldRetry decides whether an error is worth another attempt.
	// Nil means retry everything.
	ShouldRetry func(error) bool
}

// Presets tuned per operation class.
var (
	// Network: aggressive, for operations crossing an unreliable transport.
	Network = Config{MaxAttempts: 5, BaseDelay: 2 * time.Second, MaxDelay: 16 * time.Second, Timeout: 60 * time.Second}

	// ModuleInit: conservative, for one-shot engine initialization.
	ModuleInit = Config{MaxAttempts: 2, BaseDelay: 500 * time.Millisecond, MaxDelay: 2 * time.Second, Timeout: 10 * time.Second}

	// Storage: fast, for key-value round trips.
	Storage = Config{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: time.Second, Timeout: 5 * time.Second}

	// Default: balanced, used for conversion runs.
	Default = Config{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 8 * time.Second, Timeout: 20 * time.Second}
)

// OnRetry fires synchronously after a failed attempt that will be retried,
// before the backoff sleep. attempt is 1-indexed.
type OnRetry func(attempt int, delay time.Duration, err error)

// ExhaustedError reports that every allowed attempt failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("operation failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// TimeoutError reports that the wall-clock budget ran out before the
// operation succeeded.
type TimeoutError struct {
	Attempts int
	Elapsed  time.Duration
	Last     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation timed out after %s (%d attempts): %v", e.Elapsed.Round(time.Millisecond), e.Attempts, e.Last)
}

func (e *TimeoutError) Unwrap() error { return e.Last }

// IsExhausted reports whether err is a retry exhaustion or timeout.
func IsExhausted(err error) bool {
	var ex *ExhaustedError
	var to *TimeoutError
	return errors.As(err, &ex) || errors.As(err, &to)
}

// Do runs op under cfg. onRetry may be nil.
func Do[T any](ctx context.Context, cfg Config, op func(context.Context) (T, error), onRetry OnRetry) (T, error) {
	var zero T
	var lastErr error

	start := time.Now()
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if cfg.Timeout > 0 {
			if elapsed := time.Since(start); elapsed >= cfg.Timeout {
				return zero, &TimeoutError{Attempts: attempt - 1, Elapsed: elapsed, Last: lastErr}
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if cfg.ShouldRetry != nil && !cfg.ShouldRetry(err) {
			return zero, err
		}
		if attempt == cfg.MaxAttempts {
			return zero, &ExhaustedError{Attempts: attempt, Last: err}
		}

		delay := Delay(cfg, attempt)
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, &ExhaustedError{Attempts: cfg.MaxAttempts, Last: lastErr}
}

// Delay computes the backoff before the attempt following the given failed
// attempt (1-indexed): the exponential value base*2^(attempt-1) capped at
// MaxDelay, then jittered by ±30% and floored to a millisecond.
func Delay(cfg Config, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	exp := float64(cfg.BaseDelay) * float64(uint64(1)<<uint(attempt-1))
	if cfg.MaxDelay > 0 && exp > float64(cfg.MaxDelay) {
		exp = float64(cfg.MaxDelay)
	}
	jittered := exp * (1 + (rand.Float64()*0.6 - 0.3))
	ms := int64(jittered / float64(time.Millisecond))
	return time.Duration(ms) * time.Millisecond
}
