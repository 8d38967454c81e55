package lock

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dnvriend/aws-primitives-tool/internal/errs"
	"github.com/dnvriend/aws-primitives-tool/internal/teststore"
)

func newTestPrimitive(t *testing.T) *Primitive {
	t.Helper()
	return New(teststore.New(), zap.NewNop())
}

func TestAcquireSucceedsOnFreeLock(t *testing.T) {
	p := newTestPrimitive(t)
	acquired, err := p.Acquire(context.Background(), "deploy", "worker-1", time.Minute, 0)
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if acquired.Owner != "worker-1" {
		t.Fatalf("Acquire().Owner = %q, want %q", acquired.Owner, "worker-1")
	}
	if acquired.Version != 1 {
		t.Fatalf("Acquire().Version = %d, want 1 for a first acquisition", acquired.Version)
	}
}

func TestAcquireFailsFastWithoutWaitWhenHeld(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Acquire(ctx, "deploy", "worker-1", time.Minute, 0); err != nil {
		t.Fatalf("first Acquire returned error: %v", err)
	}
	_, err := p.Acquire(ctx, "deploy", "worker-2", time.Minute, 0)
	if !errs.Is(err, errs.KindCoordinationUnavailable) {
		t.Fatalf("expected CoordinationUnavailable, got %v", err)
	}
}

func TestReleaseByOwnerSucceeds(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Acquire(ctx, "deploy", "worker-1", time.Minute, 0); err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if err := p.Release(ctx, "deploy", "worker-1"); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}

	// Once released, a different owner can acquire immediately.
	if _, err := p.Acquire(ctx, "deploy", "worker-2", time.Minute, 0); err != nil {
		t.Fatalf("Acquire after Release returned error: %v", err)
	}
}

func TestReleaseByDifferentOwnerFails(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Acquire(ctx, "deploy", "worker-1", time.Minute, 0); err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	err := p.Release(ctx, "deploy", "worker-2")
	if !errs.Is(err, errs.KindConditionFailed) {
		t.Fatalf("expected ConditionFailed, got %v", err)
	}
}

func TestReleaseOnAlreadyFreeLockIsIdempotent(t *testing.T) {
	p := newTestPrimitive(t)
	if err := p.Release(context.Background(), "never-held", "worker-1"); err != nil {
		t.Fatalf("Release on a never-held lock returned error: %v", err)
	}
}

func TestExtendByOwnerSucceeds(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Acquire(ctx, "deploy", "worker-1", time.Minute, 0); err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	extended, err := p.Extend(ctx, "deploy", "worker-1", 2*time.Minute)
	if err != nil {
		t.Fatalf("Extend returned error: %v", err)
	}
	if extended.Version != 2 {
		t.Fatalf("Extend().Version = %d, want 2 after one ADD", extended.Version)
	}
}

func TestExtendByDifferentOwnerFails(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Acquire(ctx, "deploy", "worker-1", time.Minute, 0); err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	_, err := p.Extend(ctx, "deploy", "worker-2", time.Minute)
	if !errs.Is(err, errs.KindConditionFailed) {
		t.Fatalf("expected ConditionFailed, got %v", err)
	}
}

func TestCheckReportsHeldAndFree(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	_, held, err := p.Check(ctx, "deploy")
	if err != nil || held {
		t.Fatalf("Check on a free lock = (held=%v, err=%v), want (false, nil)", held, err)
	}

	if _, err := p.Acquire(ctx, "deploy", "worker-1", time.Minute, 0); err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	acquired, held, err := p.Check(ctx, "deploy")
	if err != nil || !held {
		t.Fatalf("Check on a held lock = (held=%v, err=%v), want (true, nil)", held, err)
	}
	if acquired.Owner != "worker-1" {
		t.Fatalf("Check().Owner = %q, want %q", acquired.Owner, "worker-1")
	}
}

func TestNewOwnerIDHasPrefix(t *testing.T) {
	id := NewOwnerID("worker")
	if len(id) <= len("worker-") {
		t.Fatalf("NewOwnerID(%q) = %q, expected a uuid suffix", "worker", id)
	}
}
