package queue

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
	return New(teststore.New(), zap.NewNop(), time.Hour)
}

func TestPushAndPopWithoutVisibilityTimeout(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Push(ctx, "jobs", "task-1", 5, "", nil); err != nil {
		t.Fatalf("Push returned error: %v", err)
	}
	popped, err := p.Pop(ctx, "jobs", 0)
	if err != nil {
		t.Fatalf("Pop returned error: %v", err)
	}
	if popped.Body != "task-1" {
		t.Fatalf("Pop().Body = %v, want %q", popped.Body, "task-1")
	}

	if _, err := p.Pop(ctx, "jobs", 0); !errs.Is(err, errs.KindNotFound) {
		t.Fatalf("expected NotFound popping an empty queue, got %v", err)
	}
}

func TestPopOrdersByPriority(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Push(ctx, "jobs", "low", 9, "", nil); err != nil {
		t.Fatalf("Push returned error: %v", err)
	}
	if _, err := p.Push(ctx, "jobs", "high", 1, "", nil); err != nil {
		t.Fatalf("Push returned error: %v", err)
	}

	first, err := p.Pop(ctx, "jobs", 0)
	if err != nil {
		t.Fatalf("Pop returned error: %v", err)
	}
	if first.Body != "high" {
		t.Fatalf("first Pop().Body = %v, want %q (lower priority number pops first)", first.Body, "high")
	}
	second, err := p.Pop(ctx, "jobs", 0)
	if err != nil {
		t.Fatalf("second Pop returned error: %v", err)
	}
	if second.Body != "low" {
		t.Fatalf("second Pop().Body = %v, want %q", second.Body, "low")
	}
}

func TestPopWithVisibilityTimeoutHidesItemFromFurtherPops(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Push(ctx, "jobs", "task-1", 5, "", nil); err != nil {
		t.Fatalf("Push returned error: %v", err)
	}
	popped, err := p.Pop(ctx, "jobs", time.Minute)
	if err != nil {
		t.Fatalf("Pop returned error: %v", err)
	}
	if popped.VisibilityTimeout != 60 {
		t.Fatalf("Pop().VisibilityTimeout = %d, want 60", popped.VisibilityTimeout)
	}

	if _, err := p.Pop(ctx, "jobs", time.Minute); !errs.Is(err, errs.KindNotFound) {
		t.Fatalf("expected the in-flight item to be hidden from a second Pop, got %v", err)
	}
}

func TestAckRemovesInFlightItem(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Push(ctx, "jobs", "task-1", 5, "", nil); err != nil {
		t.Fatalf("Push returned error: %v", err)
	}
	popped, err := p.Pop(ctx, "jobs", time.Minute)
	if err != nil {
		t.Fatalf("Pop returned error: %v", err)
	}
	if err := p.Ack(ctx, "jobs", popped.Receipt); err != nil {
		t.Fatalf("Ack returned error: %v", err)
	}
	items, err := p.Peek(ctx, "jobs", 10)
	if err != nil {
		t.Fatalf("Peek returned error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("Peek after Ack returned %d items, want 0", len(items))
	}
}

func TestPushWithDedupIDRejectsRepeat(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Push(ctx, "jobs", "task-1", 5, "dedup-a", nil); err != nil {
		t.Fatalf("first Push returned error: %v", err)
	}
	_, err := p.Push(ctx, "jobs", "task-2", 5, "dedup-a", nil)
	if !errs.Is(err, errs.KindCoordinationUnavailable) {
		t.Fatalf("expected CoordinationUnavailable for a repeated dedup id, got %v", err)
	}
}

func TestPushWithDifferentDedupIDsBothSucceed(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Push(ctx, "jobs", "task-1", 5, "dedup-a", nil); err != nil {
		t.Fatalf("first Push returned error: %v", err)
	}
	if _, err := p.Push(ctx, "jobs", "task-2", 5, "dedup-b", nil); err != nil {
		t.Fatalf("second Push with a distinct dedup id returned error: %v", err)
	}
}

func TestPeekDoesNotMutateQueue(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Push(ctx, "jobs", "task-1", 5, "", nil); err != nil {
		t.Fatalf("Push returned error: %v", err)
	}
	items, err := p.Peek(ctx, "jobs", 10)
	if err != nil {
		t.Fatalf("Peek returned error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Peek returned %d items, want 1", len(items))
	}

	size, err := p.Size(ctx, "jobs")
	if err != nil {
		t.Fatalf("Size returned error: %v", err)
	}
	if size != 1 {
		t.Fatalf("Size after Peek = %d, want 1 (Peek must not consume)", size)
	}
}

func TestSizeCountsAcrossPushes(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := p.Push(ctx, "jobs", i, 5, "", nil); err != nil {
			t.Fatalf("Push returned error: %v", err)
		}
	}
	size, err := p.Size(ctx, "jobs")
	if err != nil {
		t.Fatalf("Size returned error: %v", err)
	}
	if size != 3 {
		t.Fatalf("Size = %d, want 3", size)
	}
}
