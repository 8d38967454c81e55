package leader

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

func TestElectSucceedsWhenNoLeader(t *testing.T) {
	p := newTestPrimitive(t)
	leader, err := p.Elect(context.Background(), "workers", "node-a", time.Minute)
	if err != nil {
		t.Fatalf("Elect returned error: %v", err)
	}
	if leader.ID != "node-a" {
		t.Fatalf("Elect().ID = %q, want %q", leader.ID, "node-a")
	}
}

func TestElectFailsWhileAnotherLeaderIsLive(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Elect(ctx, "workers", "node-a", time.Minute); err != nil {
		t.Fatalf("first Elect returned error: %v", err)
	}
	_, err := p.Elect(ctx, "workers", "node-b", time.Minute)
	if !errs.Is(err, errs.KindCoordinationUnavailable) {
		t.Fatalf("expected CoordinationUnavailable, got %v", err)
	}
}

func TestHeartbeatByCurrentLeaderSucceeds(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Elect(ctx, "workers", "node-a", time.Minute); err != nil {
		t.Fatalf("Elect returned error: %v", err)
	}
	if _, err := p.Heartbeat(ctx, "workers", "node-a", time.Minute); err != nil {
		t.Fatalf("Heartbeat returned error: %v", err)
	}
}

func TestHeartbeatByFormerLeaderFails(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Elect(ctx, "workers", "node-a", time.Minute); err != nil {
		t.Fatalf("Elect returned error: %v", err)
	}
	_, err := p.Heartbeat(ctx, "workers", "node-b", time.Minute)
	if !errs.Is(err, errs.KindCoordinationUnavailable) {
		t.Fatalf("expected CoordinationUnavailable, got %v", err)
	}
}

func TestCheckReportsCurrentLeader(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	_, ok, err := p.Check(ctx, "workers")
	if err != nil || ok {
		t.Fatalf("Check on an unelected pool = (%v, %v), want (false, nil)", ok, err)
	}

	if _, err := p.Elect(ctx, "workers", "node-a", time.Minute); err != nil {
		t.Fatalf("Elect returned error: %v", err)
	}
	leader, ok, err := p.Check(ctx, "workers")
	if err != nil || !ok {
		t.Fatalf("Check after Elect = (%v, %v), want (true, nil)", ok, err)
	}
	if leader.ID != "node-a" {
		t.Fatalf("Check().ID = %q, want %q", leader.ID, "node-a")
	}
}

func TestResignByCurrentLeaderLetsOthersElect(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Elect(ctx, "workers", "node-a", time.Minute); err != nil {
		t.Fatalf("Elect returned error: %v", err)
	}
	if err := p.Resign(ctx, "workers", "node-a"); err != nil {
		t.Fatalf("Resign returned error: %v", err)
	}
	if _, err := p.Elect(ctx, "workers", "node-b", time.Minute); err != nil {
		t.Fatalf("Elect after Resign returned error: %v", err)
	}
}

func TestResignByNonLeaderFails(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Elect(ctx, "workers", "node-a", time.Minute); err != nil {
		t.Fatalf("Elect returned error: %v", err)
	}
	err := p.Resign(ctx, "workers", "node-b")
	if !errs.Is(err, errs.KindConditionFailed) {
		t.Fatalf("expected ConditionFailed, got %v", err)
	}
}
