// Package retry runs outbound calls with a bounded number of attempts and a
// pluggable backoff schedule. Only failures explicitly marked with Retryable are
// retried; everything else is returned to the caller on the first occurrence.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Backoff returns the pause before the next attempt. attempt is the zero-based
// index of the attempt that just failed.
type Backoff func(attempt int) time.Duration

// Fixed waits the same duration between attempts.
func Fixed(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// Exponential waits 2*(attempt+1) seconds: 2s, 4s, 6s, ...
func Exponential() Backoff { return ExponentialFrom(time.Second) }

// ExponentialFrom is Exponential with a custom unit instead of one second.
func ExponentialFrom(unit time.Duration) Backoff {
	return func(attempt int) time.Duration {
		if attempt < 0 {
			attempt = 0
		}
		return unit * time.Duration(2*(attempt+1))
	}
}

// Op is one attempt. attempt starts at 0.
type Op func(ctx context.Context, attempt int) error

// retryableError marks a failure as worth another attempt.
type retryableError struct{ err error }

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

// Retryable wraps err so Do retries it. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return retryableError{err: err}
}

// IsRetryable reports whether err (or anything it wraps) was marked Retryable.
func IsRetryable(err error) bool {
	var re retryableError
	return errors.As(err, &re)
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: %d attempts exhausted: %v", e.Attempts, e.Last)
}

// Unwrap exposes the last failure, without the retryable marker.
func (e *ExhaustedError) Unwrap() error {
	var re retryableError
	if errors.As(e.Last, &re) {
		return re.err
	}
	return e.Last
}

// IsExhausted reports whether err came from running out of attempts.
func IsExhausted(err error) bool {
	var ee *ExhaustedError
	return errors.As(err, &ee)
}

// Do runs op up to maxAttempts times. Retryable failures sleep backoff(attempt)
// before the next attempt; the sleep is cut short when ctx ends, in which case
// ctx.Err() is returned. A non-retryable failure is returned unchanged.
func Do(ctx context.Context, maxAttempts int, backoff Backoff, op Op) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if backoff == nil {
		backoff = Fixed(0)
	}
	var last error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		last = op(ctx, attempt)
		if last == nil {
			return nil
		}
		if !IsRetryable(last) {
			return last
		}
		// no pause after the final attempt
		if attempt == maxAttempts-1 {
			break
		}
		if err := sleep(ctx, backoff(attempt)); err != nil {
			return err
		}
	}
	return &ExhaustedError{Attempts: maxAttempts, Last: last}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
