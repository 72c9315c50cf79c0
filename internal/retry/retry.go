// Package retry wraps external-call invocations with bounded, configurable
// backoff. Each call site declares its own Policy; the executor owns the
// delay schedule and the retryable/fatal decision.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy controls how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration

	// Multiplier scales the delay after every failed attempt. A multiplier
	// of 1 gives a fixed-delay schedule.
	Multiplier float64

	// Retryable decides whether an error is worth another attempt. A nil
	// predicate retries every error.
	Retryable func(error) bool
}

// Fixed returns a fixed-delay policy.
func Fixed(attempts int, delay time.Duration) Policy {
	return Policy{MaxAttempts: attempts, InitialDelay: delay, Multiplier: 1}
}

// Exponential returns an exponential-backoff policy.
func Exponential(attempts int, initial time.Duration, multiplier float64) Policy {
	return Policy{MaxAttempts: attempts, InitialDelay: initial, Multiplier: multiplier}
}

// ExhaustedError is returned when every attempt failed with a retryable
// error. It wraps the last cause.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: %d attempts exhausted: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// IsExhausted reports whether err is (or wraps) an ExhaustedError.
func IsExhausted(err error) bool {
	var e *ExhaustedError
	return errors.As(err, &e)
}

// Do invokes op under the policy. A non-retryable error fails immediately.
// When the attempt budget runs out the last error is returned wrapped in an
// ExhaustedError. Context cancellation interrupts the backoff wait.
func Do[T any](ctx context.Context, policy Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T

	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := policy.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if policy.Retryable != nil && !policy.Retryable(err) {
			return zero, err
		}
		if attempt == attempts {
			break
		}

		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
		if policy.Multiplier > 0 {
			delay = time.Duration(float64(delay) * policy.Multiplier)
		}
	}

	return zero, &ExhaustedError{Attempts: attempts, Err: lastErr}
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
