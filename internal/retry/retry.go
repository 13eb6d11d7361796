// Package retry provides a typed retry combinator over exponential backoff.
// Callers decide which errors are worth retrying; everything else is
// surfaced immediately.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Policy struct {
	// MaxAttempts is the total attempt ceiling, including the first call.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 4,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// Do runs fn until it succeeds, retryable reports false, the attempt ceiling
// is reached, or ctx is cancelled. notify, when non-nil, observes each
// attempt number (starting at 1) before the attempt runs, which lets a UI
// render "retrying, attempt N". The returned error is the last error from
// fn, or the ctx error on cancellation.
func Do[T any](ctx context.Context, p Policy, retryable func(error) bool, notify func(attempt int), fn func(context.Context) (T, error)) (T, error) {
	var result T

	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	bo := backoff.NewExponentialBackOff()
	if p.BaseDelay > 0 {
		bo.InitialInterval = p.BaseDelay
	}
	if p.MaxDelay > 0 {
		bo.MaxInterval = p.MaxDelay
	}
	bo.MaxElapsedTime = 0

	attempt := 0
	op := func() error {
		attempt++
		if notify != nil {
			notify(attempt)
		}
		v, err := fn(ctx)
		if err == nil {
			result = v
			return nil
		}
		if retryable != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	wrapped := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.MaxAttempts-1)), ctx)
	if err := backoff.Retry(op, wrapped); err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
