package list

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/dnvriend/aws-primitives-tool/internal/errs"
	"github.com/dnvriend/aws-primitives-tool/internal/teststore"
)

func newTestPrimitive(t *testing.T) *Primitive {
	t.Helper()
	return New(teststore.New(), zap.NewNop())
}

func TestPushRightThenLeftOrdersCorrectly(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Push(ctx, "todo", "b", Right); err != nil {
		t.Fatalf("rpush returned error: %v", err)
	}
	if _, err := p.Push(ctx, "todo", "a", Left); err != nil {
		t.Fatalf("lpush returned error: %v", err)
	}
	if _, err := p.Push(ctx, "todo", "c", Right); err != nil {
		t.Fatalf("second rpush returned error: %v", err)
	}

	items, err := p.Range(ctx, "todo", 0, -1)
	if err != nil {
		t.Fatalf("Range returned error: %v", err)
	}
	want := []any{"a", "b", "c"}
	if len(items) != len(want) {
		t.Fatalf("Range = %v, want %v", items, want)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("Range = %v, want %v", items, want)
		}
	}
}

func TestLenTracksPushesAndPops(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	n, err := p.Len(ctx, "todo")
	if err != nil || n != 0 {
		t.Fatalf("Len on a fresh list = (%d, %v), want (0, nil)", n, err)
	}

	if _, err := p.Push(ctx, "todo", "a", Right); err != nil {
		t.Fatalf("Push returned error: %v", err)
	}
	if _, err := p.Push(ctx, "todo", "b", Right); err != nil {
		t.Fatalf("Push returned error: %v", err)
	}
	n, err = p.Len(ctx, "todo")
	if err != nil || n != 2 {
		t.Fatalf("Len after two pushes = (%d, %v), want (2, nil)", n, err)
	}

	if _, err := p.Pop(ctx, "todo", Left); err != nil {
		t.Fatalf("Pop returned error: %v", err)
	}
	n, err = p.Len(ctx, "todo")
	if err != nil || n != 1 {
		t.Fatalf("Len after one pop = (%d, %v), want (1, nil)", n, err)
	}
}

func TestPopOnEmptyListIsNotFound(t *testing.T) {
	p := newTestPrimitive(t)
	_, err := p.Pop(context.Background(), "todo", Left)
	if !errs.Is(err, errs.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestPopLeftAndRightReturnOppositeEnds(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	for _, v := range []string{"a", "b", "c"} {
		if _, err := p.Push(ctx, "todo", v, Right); err != nil {
			t.Fatalf("Push(%q) returned error: %v", v, err)
		}
	}

	left, err := p.Pop(ctx, "todo", Left)
	if err != nil {
		t.Fatalf("Pop(Left) returned error: %v", err)
	}
	if left != "a" {
		t.Fatalf("Pop(Left) = %v, want %q", left, "a")
	}

	right, err := p.Pop(ctx, "todo", Right)
	if err != nil {
		t.Fatalf("Pop(Right) returned error: %v", err)
	}
	if right != "c" {
		t.Fatalf("Pop(Right) = %v, want %q", right, "c")
	}

	remaining, err := p.Range(ctx, "todo", 0, -1)
	if err != nil {
		t.Fatalf("Range returned error: %v", err)
	}
	if len(remaining) != 1 || remaining[0] != "b" {
		t.Fatalf("remaining elements = %v, want [b]", remaining)
	}
}

func TestRangeClampsOutOfBoundIndices(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	for _, v := range []string{"a", "b", "c"} {
		if _, err := p.Push(ctx, "todo", v, Right); err != nil {
			t.Fatalf("Push(%q) returned error: %v", v, err)
		}
	}

	items, err := p.Range(ctx, "todo", -100, 100)
	if err != nil {
		t.Fatalf("Range returned error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("Range with out-of-bound indices = %v, want all 3 elements", items)
	}
}

func TestRangeOnEmptyListReturnsEmptySlice(t *testing.T) {
	p := newTestPrimitive(t)
	items, err := p.Range(context.Background(), "todo", 0, -1)
	if err != nil {
		t.Fatalf("Range returned error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("Range on an empty list = %v, want an empty slice", items)
	}
}
