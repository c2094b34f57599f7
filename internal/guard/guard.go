// Package guard enforces a wall-clock deadline around a unit of work.
//
// The operation runs on its own goroutine with a context derived from the
// caller's. When the deadline fires first the context is cancelled and the
// caller gets a *TimeoutError immediately; the operation is expected to notice
// the cancellation (streaming loops poll ctx, HTTP calls abort) but the guard
// never waits for it. The deadline timer is released on every return path.
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// State is the terminal state of a guarded run.
type State int

const (
	Running State = iota
	Completed
	TimedOut
	Cancelled
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Completed:
		return "completed"
	case TimedOut:
		return "timed_out"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// TimeoutError is returned when the deadline elapsed before the operation finished.
type TimeoutError struct {
	Deadline time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("deadline of %s exceeded", e.Deadline)
}

// ErrCancelled is returned when the parent context ended before the deadline.
var ErrCancelled = errors.New("guarded operation cancelled")

// IsTimeout reports whether err is a guard deadline expiry.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// StateOf maps the error returned by RunWithDeadline to a terminal State.
// Errors produced by the operation itself count as Completed.
func StateOf(err error) State {
	switch {
	case IsTimeout(err):
		return TimedOut
	case errors.Is(err, ErrCancelled):
		return Cancelled
	default:
		return Completed
	}
}

type outcome[T any] struct {
	val T
	err error
}

// RunWithDeadline runs op with a deadline of d. A non-positive d disables the
// deadline but parent cancellation is still honoured.
func RunWithDeadline[T any](ctx context.Context, d time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if d > 0 {
		runCtx, cancel = context.WithTimeout(ctx, d)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	// disarms the timer on every exit path, and signals an abandoned op to stop
	defer cancel()

	// buffered so an abandoned op can still deliver and exit
	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome[T]{err: fmt.Errorf("guarded operation panicked: %v", r)}
			}
		}()
		v, err := op(runCtx)
		done <- outcome[T]{val: v, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil && runCtx.Err() != nil && errors.Is(o.err, runCtx.Err()) {
			// op gave up because of our context; report why
			return zero, expired(ctx, d)
		}
		return o.val, o.err
	case <-runCtx.Done():
		return zero, expired(ctx, d)
	}
}

func expired(parent context.Context, d time.Duration) error {
	if parent.Err() != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, parent.Err())
	}
	return &TimeoutError{Deadline: d}
}
