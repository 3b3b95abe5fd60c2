// Copyright 2025 dacapoday
// SPDX-License-Identifier: Apache-2.0

// Package retry wraps cenkalti/backoff with the exponential policy used by
// the log replayer and the stale page flusher.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy configures an exponential backoff: the first wait is Initial, each
// following wait doubles up to Max, and at most Attempts retries follow the
// first try.
type Policy struct {
	Initial  time.Duration
	Max      time.Duration
	Attempts int
}

// Default is 100ms doubling to 4s, 10 retries.
var Default = Policy{
	Initial:  100 * time.Millisecond,
	Max:      4 * time.Second,
	Attempts: 10,
}

func (p Policy) withDefaults() Policy {
	if p.Initial <= 0 {
		p.Initial = Default.Initial
	}
	if p.Max < p.Initial {
		p.Max = p.Initial
	}
	if p.Attempts < 0 {
		p.Attempts = 0
	}
	return p
}

// BackOff builds a fresh backoff.BackOff bound to ctx.
func (p Policy) BackOff(ctx context.Context) backoff.BackOff {
	p = p.withDefaults()
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(p.Initial),
		backoff.WithMultiplier(2),
		backoff.WithMaxInterval(p.Max),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxElapsedTime(0),
	)
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.Attempts)), ctx)
}

// Do calls op until it succeeds, returns an error wrapped by Permanent, the
// policy is exhausted or ctx is done. notify, if not nil, sees every failure
// that will be retried together with the wait before the next attempt.
func (p Policy) Do(ctx context.Context, op func() error, notify func(error, time.Duration)) error {
	return backoff.RetryNotify(op, p.BackOff(ctx), notify)
}

// Permanent marks err as not worth retrying. Do returns the unwrapped err.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
