// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package queue

import (
	"context"
	"fmt"
	"time"
)

// RetryError asks the bus to redeliver the message once Delay has passed.
// The handler returns as soon as the attempt fails, no goroutine sleeps while the broker waits.
type RetryError struct {
	Delay time.Duration
	Err   error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("retry in %s: %v", e.Delay, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// Retry wraps err so the message is redelivered after delay
func Retry(err error, delay time.Duration) error {
	return &RetryError{Delay: delay, Err: err}
}

type attemptKey struct{}

// WithAttempt records the 1-based delivery count of the message handled with ctx
func WithAttempt(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, attemptKey{}, n)
}

// Attempt returns the delivery count stored by WithAttempt, 1 when there is none
func Attempt(ctx context.Context) int {
	if n, ok := ctx.Value(attemptKey{}).(int); ok && n > 0 {
		return n
	}
	return 1
}
