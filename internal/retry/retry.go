package retry

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrTooManyAttempts = errors.New("too many retry attempts")

// Callable is invoked once per attempt, starting with attempt 1. Only errors
// produced by Error are retried.
type Callable func(attempt int) error

type retryError struct {
	err     error
	attempt int
}

func (e *retryError) Error() string {
	return e.err.Error()
}

func (e *retryError) Unwrap() error {
	return e.err
}

// Error marks err as recoverable so the next attempt is scheduled.
func Error(err error, attempt int) error {
	if err == nil {
		return nil
	}
	return &retryError{err: err, attempt: attempt}
}

// IsRetryable reports whether err was produced by Error.
func IsRetryable(err error) bool {
	var re *retryError
	return errors.As(err, &re)
}

type Attempts interface {
	Next() (time.Duration, bool)
	Current() int
}

func Start(ctx context.Context, a Attempts, cb Callable) error {
	for {
		err := cb(a.Current())
		if err == nil {
			return nil
		}

		if !IsRetryable(err) {
			return errors.Wrapf(err, "attempt %d failed", a.Current())
		}

		last := a.Current()
		wait, stop := a.Next()
		if stop {
			return errors.Wrapf(ErrTooManyAttempts, "gave up after %d attempts: %v", last, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Wrapf(ctx.Err(), "retry interrupted after %d attempts: %v", last, err)
		case <-timer.C:
		}
	}
}

// Incremental runs cb at most maxAttempts times, waiting step longer before
// every new attempt.
func Incremental(ctx context.Context, step time.Duration, maxAttempts int, cb Callable) error {
	return Start(ctx, IncrementalAttempts(step, maxAttempts), cb)
}

type incrementalAttempts struct {
	wait time.Duration
	step time.Duration
	max  int
	curr int
}

func (a *incrementalAttempts) Next() (time.Duration, bool) {
	if a.curr >= a.max {
		return 0, true
	}

	a.curr++
	a.wait += a.step

	return a.wait, false
}

func (a *incrementalAttempts) Current() int {
	return a.curr
}

func IncrementalAttempts(step time.Duration, max int) Attempts {
	if max < 1 {
		max = 1
	}

	return &incrementalAttempts{step: step, max: max, curr: 1}
}
