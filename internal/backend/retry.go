// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package backend

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy is the retry policy shared by every backend call site.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy is 5 attempts starting at 100ms.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 2 * time.Second}
}

func (p Policy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0.5
	return b
}

// Retry runs op until it succeeds, returns a non-retryable error, or the
// policy's attempts are used up. It reports how many attempts were made.
func Retry[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, int, error) {
	return RetryIf(ctx, p, func(err error) bool { return retryable(ctx, err) }, op)
}

// RetryIf is Retry with a caller-supplied retry predicate.
func RetryIf[T any](ctx context.Context, p Policy, shouldRetry func(error) bool, op func(context.Context) (T, error)) (T, int, error) {
	attempts := 0
	maxTries := p.MaxAttempts
	if maxTries < 1 {
		maxTries = 1
	}

	v, err := backoff.Retry(ctx, func() (T, error) {
		attempts++
		v, err := op(ctx)
		if err != nil && !shouldRetry(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(p.backOff()), backoff.WithMaxTries(uint(maxTries)))

	return v, attempts, err
}
