package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"library-backend/internal/domains/lease/model"
)

const (
	defaultMaxAttempts  = 5
	defaultBaseDelay    = 20 * time.Millisecond
	defaultJitterFactor = 0.3
)

var (
	ErrInvalidMaxAttempts  = errors.New("max attempts must be positive")
	ErrNegativeBaseDelay   = errors.New("base delay must not be negative")
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

// RetryableFunc is one attempt of a retried operation.
type RetryableFunc func(ctx context.Context) error

type retryConfig struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
	onRetry      func(attempt int, err error)
	sleep        func(ctx context.Context, d time.Duration) error
}

// RetryOption configures RetryWithExponentialBackoff.
type RetryOption func(*retryConfig) error

// RetryWithExponentialBackoff runs fn until it succeeds, fails with an error
// other than ErrAborted, or maxAttempts is reached. The last error is returned.
//
// Default schedule: 0, 20ms, 40ms, 80ms, 160ms, each with up to 30% jitter.
func RetryWithExponentialBackoff(ctx context.Context, fn RetryableFunc, options ...RetryOption) error {
	cfg := &retryConfig{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
		sleep:        sleepContext,
	}
	for _, option := range options {
		if err := option(cfg); err != nil {
			return err
		}
	}

	var lastErr error
	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := cfg.baseDelay * time.Duration(1<<(attempt-1))
			jitter := rand.Float64() * float64(delay) * cfg.jitterFactor //nolint:gosec // jitter only
			if err := cfg.sleep(ctx, delay+time.Duration(jitter)); err != nil {
				return err
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
		if attempt < cfg.maxAttempts-1 && cfg.onRetry != nil {
			cfg.onRetry(attempt+1, lastErr)
		}
	}

	return lastErr
}

// only aborted transactions are retried; unavailability fails fast
func isRetryable(err error) bool {
	return errors.Is(err, model.ErrAborted)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WithMaxAttempts sets the total number of attempts, first one included.
func WithMaxAttempts(attempts int) RetryOption {
	return func(cfg *retryConfig) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		cfg.maxAttempts = attempts
		return nil
	}
}

// WithBaseDelay sets the first backoff; later ones double.
func WithBaseDelay(delay time.Duration) RetryOption {
	return func(cfg *retryConfig) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}
		cfg.baseDelay = delay
		return nil
	}
}

// WithJitterFactor adds up to factor*delay of random jitter. Range 0.0 to 1.0.
func WithJitterFactor(factor float64) RetryOption {
	return func(cfg *retryConfig) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}
		cfg.jitterFactor = factor
		return nil
	}
}

// WithOnRetry is called before each retry with the attempt number that failed.
func WithOnRetry(fn func(attempt int, err error)) RetryOption {
	return func(cfg *retryConfig) error {
		cfg.onRetry = fn
		return nil
	}
}

func withSleep(fn func(ctx context.Context, d time.Duration) error) RetryOption {
	return func(cfg *retryConfig) error {
		cfg.sleep = fn
		return nil
	}
}
