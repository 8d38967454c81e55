// Package retry implements the exponential-backoff-with-jitter utility
// from spec.md section 4.14 (C14). It generalizes the ad hoc "1.5x every
// attempt" loop in the teacher's TryAcquireLock into a reusable policy.
// Do retries ServiceThrottled only and never ConditionFailed. The
// item-store driver does not call Do, so a throttled item-store call is
// returned to its caller without a retry. The lock primitive's --wait
// loop takes its delays from Policy.Next; the list and queue primitives
// retry ConditionFailed with their own fixed attempt counts.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/dnvriend/aws-primitives-tool/internal/errs"
)

// Policy configures decorrelated-jitter exponential backoff.
type Policy struct {
	Base        time.Duration
	Cap         time.Duration
	Multiplier  float64
	MaxAttempts int
}

// DefaultPolicy matches the lock-acquire retry parameters named in
// spec.md section 4.5: base 100ms, factor 2, cap 2s.
func DefaultPolicy() Policy {
	return Policy{
		Base:        100 * time.Millisecond,
		Cap:         2 * time.Second,
		Multiplier:  2,
		MaxAttempts: 0, // unbounded; caller supplies its own deadline
	}
}

// Next returns the next decorrelated-jitter delay given the previous one.
// Call with prev == 0 for the first delay.
func (p Policy) Next(prev time.Duration) time.Duration {
	if prev <= 0 {
		prev = p.Base
	}
	upper := time.Duration(float64(prev) * p.Multiplier)
	if upper > p.Cap {
		upper = p.Cap
	}
	if upper <= p.Base {
		return p.Base
	}
	jittered := p.Base + time.Duration(rand.Int63n(int64(upper-p.Base)))
	if jittered > p.Cap {
		jittered = p.Cap
	}
	return jittered
}

// Retryable reports whether err is the one kind this utility is allowed
// to retry transparently: ServiceThrottled. ConditionFailed and every
// other kind are terminal to this policy, per spec.md section 4.14.
func Retryable(err error) bool {
	return errs.Is(err, errs.KindServiceThrottled)
}

// Do runs fn, retrying on Retryable errors under exponential backoff with
// jitter until it succeeds, MaxAttempts is exhausted (0 == unbounded), or
// ctx is done.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	var delay time.Duration
	attempt := 0
	for {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return err
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return err
		}
		delay = p.Next(delay)
		select {
		case <-ctx.Done():
			return errs.Timeout("retry").WithCause(ctx.Err())
		case <-time.After(delay):
		}
	}
}
