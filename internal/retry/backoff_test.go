package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dnvriend/aws-primitives-tool/internal/errs"
)

func TestPolicyNextStaysWithinBounds(t *testing.T) {
	p := DefaultPolicy()
	var delay time.Duration
	for i := 0; i < 50; i++ {
		delay = p.Next(delay)
		if delay < p.Base {
			t.Fatalf("delay %v fell below base %v", delay, p.Base)
		}
		if delay > p.Cap {
			t.Fatalf("delay %v exceeded cap %v", delay, p.Cap)
		}
	}
}

func TestPolicyNextFirstCallUsesBase(t *testing.T) {
	p := DefaultPolicy()
	delay := p.Next(0)
	if delay < p.Base || delay > p.Base*time.Duration(p.Multiplier) {
		t.Fatalf("first delay %v not in expected range around base %v", delay, p.Base)
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(errs.ServiceThrottled("slow down")) {
		t.Fatal("expected ServiceThrottled to be retryable")
	}
	if Retryable(errs.ConditionFailed("nope")) {
		t.Fatal("did not expect ConditionFailed to be retryable")
	}
	if Retryable(errors.New("some other error")) {
		t.Fatal("did not expect a plain error to be retryable")
	}
}

func TestDoRetriesThrottledUntilSuccess(t *testing.T) {
	p := Policy{Base: time.Millisecond, Cap: 5 * time.Millisecond, Multiplier: 2}
	attempts := 0
	err := Do(context.Background(), p, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errs.ServiceThrottled("busy")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	p := Policy{Base: time.Millisecond, Cap: 5 * time.Millisecond, Multiplier: 2}
	attempts := 0
	wantErr := errs.ConditionFailed("conflict")
	err := Do(context.Background(), p, func(ctx context.Context) error {
		attempts++
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("expected the non-retryable error to propagate unchanged, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected exactly one attempt, got %d", attempts)
	}
}

func TestDoHonorsMaxAttempts(t *testing.T) {
	p := Policy{Base: time.Millisecond, Cap: 5 * time.Millisecond, Multiplier: 2, MaxAttempts: 2}
	attempts := 0
	err := Do(context.Background(), p, func(ctx context.Context) error {
		attempts++
		return errs.ServiceThrottled("busy")
	})
	if attempts != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", attempts)
	}
	if !errs.Is(err, errs.KindServiceThrottled) {
		t.Fatalf("expected the final throttled error to propagate, got %v", err)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	p := Policy{Base: 50 * time.Millisecond, Cap: time.Second, Multiplier: 2}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, p, func(ctx context.Context) error {
		return errs.ServiceThrottled("busy")
	})
	if !errs.Is(err, errs.KindTimeout) {
		t.Fatalf("expected a Timeout error once the context is done, got %v", err)
	}
}
