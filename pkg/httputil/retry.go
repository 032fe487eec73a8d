package httputil

import (
	"context"
	"errors"
	"time"
)

// RetryableError marks a failure as transient. [Retry] only re-runs
// operations whose error wraps one.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Policy controls how [Retry] re-runs an operation.
type Policy struct {
	// Attempts is the total number of calls, at least one.
	Attempts int

	// Delay is the wait before the second attempt. It doubles after every
	// further failure, capped at MaxDelay when that is set.
	Delay    time.Duration
	MaxDelay time.Duration

	// OnRetry, when set, is called before each wait with the attempt that
	// just failed (starting at 1).
	OnRetry func(attempt int, err error)
}

// DefaultPolicy is used by the upstream clients: three attempts starting at
// half a second.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Delay: 500 * time.Millisecond, MaxDelay: 4 * time.Second}
}

// Retry calls fn until it succeeds, returns a non-retryable error, or the
// attempts of p are used up. The last error is returned, or ctx.Err() when
// ctx is cancelled during a wait.
func Retry(ctx context.Context, p Policy, fn func() error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Delay

	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil || !isRetryable(err) {
			return err
		}
		if i == attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(i, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return err
}

func isRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
