// Package retry provides a bounded-retry combinator: a maximum attempt
// budget, a per-attempt action, and an accept predicate deciding whether an
// attempt's result counts as success. Every retryable stage in the workflow
// shares this one loop instead of hand-rolling its own.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAttemptsExhausted is returned when every attempt in the budget either
// errored or was rejected by the accept predicate.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Policy configures a bounded retry loop.
type Policy struct {
	// MaxAttempts is the total attempt budget; it must be >= 1.
	MaxAttempts int

	// Delay is an optional pause between attempts. The first attempt never
	// waits.
	Delay time.Duration

	// OnReject is called after each rejected or failed attempt with the
	// 1-based attempt index and the attempt's error (nil when the accept
	// predicate rejected an otherwise clean result).
	OnReject func(attempt int, err error)
}

// Do runs fn up to the policy's attempt budget, stopping at the first result
// the accept predicate approves. It returns the accepted value and the
// 1-based index of the accepting attempt. When the budget runs out, the last
// value is returned together with an error wrapping ErrAttemptsExhausted and
// the last attempt error, if any. A nil accept predicate accepts any result
// whose error is nil.
func Do[T any](ctx context.Context, policy Policy, fn func(ctx context.Context, attempt int) (T, error), accept func(T) bool) (T, int, error) {
	var last T
	var lastErr error

	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 && policy.Delay > 0 {
			select {
			case <-ctx.Done():
				return last, attempt - 1, ctx.Err()
			case <-time.After(policy.Delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return last, attempt - 1, err
		}

		last, lastErr = fn(ctx, attempt)
		if lastErr == nil && (accept == nil || accept(last)) {
			return last, attempt, nil
		}

		if policy.OnReject != nil {
			policy.OnReject(attempt, lastErr)
		}
	}

	if lastErr != nil {
		return last, policy.MaxAttempts, fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, policy.MaxAttempts, lastErr)
	}
	return last, policy.MaxAttempts, fmt.Errorf("%w after %d attempts", ErrAttemptsExhausted, policy.MaxAttempts)
}
