// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package wait provides a cancellable fixed-interval poller with a bounded
// attempt count. Suspension points built on Ticker are unit-testable with
// short intervals instead of real confirmation latencies.
package wait

import (
	"context"
	"time"

	"frostswap.org/frostswap/fswap"
)

// TryDirective is a response that a TryFunc can return to instruct the
// poller to continue trying or to quit.
type TryDirective bool

const (
	// TryAgain, when returned from a TryFunc, instructs the poller to try
	// again after the configured interval.
	TryAgain TryDirective = false
	// DontTryAgain, when returned from a TryFunc, instructs the poller to
	// stop.
	DontTryAgain TryDirective = true
)

// ErrAttemptLimit is returned by Ticker.Wait when the attempt ceiling is
// exhausted before the TryFunc signals completion. It is a reportable
// condition, not a silent failure.
const ErrAttemptLimit = fswap.ErrorKind("attempt limit exhausted")

// Ticker runs a TryFunc at a fixed interval until it signals completion,
// the attempt ceiling is reached, or the context is canceled.
type Ticker struct {
	// Interval is the delay between attempts.
	Interval time.Duration
	// MaxAttempts is the attempt ceiling. Zero or negative means a single
	// attempt.
	MaxAttempts int
}

// Wait runs try until it returns DontTryAgain. The first attempt is made
// immediately. Returns ErrAttemptLimit if MaxAttempts is exhausted, or the
// context error on cancellation.
func (t Ticker) Wait(ctx context.Context, try func() TryDirective) error {
	attempts := t.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	timer := time.NewTimer(0)
	defer timer.Stop()
	for i := 0; i < attempts; i++ {
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
		if try() == DontTryAgain {
			return nil
		}
		timer.Reset(t.Interval)
	}
	return ErrAttemptLimit
}
