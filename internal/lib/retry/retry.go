// Package retry provides fixed-interval retry loops.
package retry

import (
	"context"
	"time"
)

// Backoff is a (blocking) function that returns when it is time to retry.
//
// If ctx is cancelled while waiting, Backoff returns ctx.Err().
type Backoff func(context.Context) error

// StaticBackoff returns a Backoff that waits for a fixed interval.
func StaticBackoff(interval time.Duration) Backoff {
	return func(ctx context.Context) error {
		timer := time.NewTimer(interval)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
}

// OnRetry is called after every failed attempt, before waiting.
//
// attempt starts at 1.
type OnRetry func(attempt int, err error)

// Forever calls f until it returns nil.
//
// The first call happens immediately; every failure is reported to
// onRetry (when non-nil) and followed by b. There is no attempt limit:
// the only way out besides success is ctx being cancelled, in which case
// ctx.Err() is returned.
func Forever(ctx context.Context, b Backoff, f func(context.Context) error, onRetry OnRetry) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := f(ctx)
		if err == nil {
			return nil
		}

		// an attempt cut short by cancellation is not a failed attempt
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if onRetry != nil {
			onRetry(attempt, err)
		}

		if err := b(ctx); err != nil {
			return err
		}
	}
}
