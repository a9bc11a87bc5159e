package httputil

import (
	"context"
	"errors"
	"time"
)

// RetryableError marks an error as transient. Wrap network failures and
// 5xx responses with this type so that [Policy.Do] attempts the call
// again; anything else is treated as permanent.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Policy bounds the retry behavior for render service calls.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Delay is the wait before the second attempt; it doubles after
	// every failure.
	Delay time.Duration
}

// DefaultPolicy suits interactive use against a render web service:
// three attempts starting at one second keeps transient hiccups
// invisible without stalling a failed command for long.
var DefaultPolicy = Policy{Attempts: 3, Delay: time.Second}

// Do executes fn until it succeeds, fails permanently, or the policy is
// exhausted. Only errors wrapped in [RetryableError] are tried again.
// Cancelling ctx during a backoff wait returns ctx.Err().
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Delay

	var lastErr error
	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !isRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

// RetryWithBackoff runs fn under [DefaultPolicy].
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return DefaultPolicy.Do(ctx, fn)
}

func isRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
