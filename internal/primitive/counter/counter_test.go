package counter

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

func TestAddCreatesWhenToldTo(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	got, err := p.Add(ctx, "hits", 5, true)
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if got != 5 {
		t.Fatalf("Add() = %d, want 5", got)
	}
}

func TestAddWithoutCreateFailsOnMissingCounter(t *testing.T) {
	p := newTestPrimitive(t)
	_, err := p.Add(context.Background(), "hits", 5, false)
	if !errs.Is(err, errs.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestAddAccumulatesAcrossCalls(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Add(ctx, "hits", 5, true); err != nil {
		t.Fatalf("first Add returned error: %v", err)
	}
	got, err := p.Add(ctx, "hits", 3, false)
	if err != nil {
		t.Fatalf("second Add returned error: %v", err)
	}
	if got != 8 {
		t.Fatalf("Add() after two increments = %d, want 8", got)
	}
}

func TestAddNegativeDeltaDecrements(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Add(ctx, "hits", 10, true); err != nil {
		t.Fatalf("first Add returned error: %v", err)
	}
	got, err := p.Add(ctx, "hits", -4, false)
	if err != nil {
		t.Fatalf("second Add returned error: %v", err)
	}
	if got != 6 {
		t.Fatalf("Add(-4) after 10 = %d, want 6", got)
	}
}

func TestAddZeroDeltaIsRejected(t *testing.T) {
	p := newTestPrimitive(t)
	_, err := p.Add(context.Background(), "hits", 0, true)
	if !errs.Is(err, errs.KindInvalidArgument) {
		t.Fatalf("expected InvalidArgument for a zero delta, got %v", err)
	}
}

func TestGetReflectsAdds(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Add(ctx, "hits", 7, true); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	got, err := p.Get(ctx, "hits")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != 7 {
		t.Fatalf("Get() = %d, want 7", got)
	}
}

func TestGetMissingCounterIsNotFound(t *testing.T) {
	p := newTestPrimitive(t)
	_, err := p.Get(context.Background(), "hits")
	if !errs.Is(err, errs.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestDeleteRemovesCounter(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Add(ctx, "hits", 1, true); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if err := p.Delete(ctx, "hits"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := p.Get(ctx, "hits"); !errs.Is(err, errs.KindNotFound) {
		t.Fatalf("expected NotFound after Delete, got %v", err)
	}
}
