// Package retry provides bounded-attempt retry with exponential backoff.
// Policies are plain values so call sites stay testable.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Config holds retry configuration.
type Config struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64

	// Jitter randomizes each wait uniformly in (0, wait] to decorrelate
	// concurrent retriers.
	Jitter bool

	// RetryIf limits which errors qualify for retry. Nil retries all.
	RetryIf func(error) bool
}

// DoWithConfig executes fn with retry logic using the provided config.
// The last error is returned after the final attempt.
func DoWithConfig[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	var err error

	wait := cfg.InitialWait

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err = fn()
		if err == nil {
			return result, nil
		}
		if cfg.RetryIf != nil && !cfg.RetryIf(err) {
			return result, err
		}

		// Don't wait after the last attempt
		if attempt == cfg.MaxAttempts {
			break
		}

		sleep := wait
		if cfg.Jitter {
			sleep = time.Duration(rand.Int63n(int64(wait))) + 1
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(sleep):
		}

		wait = time.Duration(float64(wait) * cfg.Multiplier)
		if wait > cfg.MaxWait {
			wait = cfg.MaxWait
		}
	}

	return result, err
}

// Fixed executes fn up to maxAttempts times with a fixed delay between
// attempts, retrying only errors matching target. Used for the startup
// bootstrap where the gateway session may not be established yet.
func Fixed(ctx context.Context, maxAttempts int, delay time.Duration, target error, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, target) {
			return err
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
