package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

type Config struct {
	MaxAttempts  int           // total attempts, including the first
	InitialDelay time.Duration // delay before the second attempt
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool // spread delays by up to ±25%

	// Permanent errors stop retrying immediately.
	Permanent []error
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Do calls fn until it succeeds, returns a permanent error, the attempts run
// out or ctx is done. OnRetry, if set, sees every failed attempt that will be
// retried.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error, onRetry func(attempt int, err error)) error {
	_, err := DoWithResult(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, onRetry)
	return err
}

func DoWithResult[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error), onRetry func(attempt int, err error)) (T, error) {
	var zero T
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("retry cancelled: %w", err)
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if isPermanent(err, cfg.Permanent) {
			return zero, err
		}
		if attempt == attempts {
			break
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}

		timer := time.NewTimer(Backoff(cfg, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("retry cancelled during wait: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return zero, fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr)
}

// Backoff is the delay after the given failed attempt (1-based).
func Backoff(cfg Config, attempt int) time.Duration {
	mult := cfg.Multiplier
	if mult < 1 {
		mult = 1
	}
	delay := float64(cfg.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter && delay > 0 {
		delay += delay * 0.25 * (2*rand.Float64() - 1)
	}
	return time.Duration(delay)
}

func isPermanent(err error, permanent []error) bool {
	for _, p := range permanent {
		if errors.Is(err, p) {
			return true
		}
	}
	return false
}
