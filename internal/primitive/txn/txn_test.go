package txn

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/dnvriend/aws-primitives-tool/internal/errs"
	"github.com/dnvriend/aws-primitives-tool/internal/store"
	"github.com/dnvriend/aws-primitives-tool/internal/teststore"
)

func newTestPrimitive(t *testing.T) (*Primitive, *teststore.Fake) {
	t.Helper()
	fake := teststore.New()
	return New(fake, zap.NewNop()), fake
}

func TestExecuteRejectsEmptyBatch(t *testing.T) {
	p, _ := newTestPrimitive(t)
	_, err := p.Execute(context.Background(), Batch{})
	if !errs.Is(err, errs.KindInvalidArgument) {
		t.Fatalf("expected InvalidArgument for an empty batch, got %v", err)
	}
}

func TestExecuteRejectsDuplicateTargetInSameBatch(t *testing.T) {
	p, _ := newTestPrimitive(t)
	batch := Batch{Ops: []Op{
		{Kind: OpPut, Namespace: "kv", Name: "x", Value: 1},
		{Kind: OpDelete, Namespace: "kv", Name: "x"},
	}}
	_, err := p.Execute(context.Background(), batch)
	if !errs.Is(err, errs.KindInvalidArgument) {
		t.Fatalf("expected InvalidArgument for a duplicate target, got %v", err)
	}
}

func TestExecutePutsMultipleNamespacesAtomically(t *testing.T) {
	p, fake := newTestPrimitive(t)
	ctx := context.Background()

	batch := Batch{Ops: []Op{
		{Kind: OpPut, Namespace: "kv", Name: "a", Value: "one"},
		{Kind: OpPut, Namespace: "kv", Name: "b", Value: "two"},
	}}
	result, err := p.Execute(ctx, batch)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.Applied {
		t.Fatalf("Execute().Applied = false, want true")
	}

	pk := store.PartitionKey(store.Namespace("kv"), "a")
	sk := store.SingletonSortKey(store.Namespace("kv"), "a")
	if _, ok := fake.Get(pk, sk); !ok {
		t.Fatalf("expected kv/a to have been written by the transaction")
	}
}

func TestExecutePutIfAbsentFailsWhenTargetExists(t *testing.T) {
	p, _ := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Execute(ctx, Batch{Ops: []Op{
		{Kind: OpPut, Namespace: "kv", Name: "a", Value: "one"},
	}}); err != nil {
		t.Fatalf("first Execute returned error: %v", err)
	}

	_, err := p.Execute(ctx, Batch{Ops: []Op{
		{Kind: OpPut, Namespace: "kv", Name: "a", Value: "two", IfAbsent: true},
	}})
	if !errs.Is(err, errs.KindConditionFailed) {
		t.Fatalf("expected ConditionFailed, got %v", err)
	}
}

func TestExecuteCheckFailureAbortsWholeBatch(t *testing.T) {
	p, fake := newTestPrimitive(t)
	ctx := context.Background()

	batch := Batch{Ops: []Op{
		{Kind: OpPut, Namespace: "kv", Name: "a", Value: "one"},
		{Kind: OpCheck, Namespace: "kv", Name: "never-created"},
	}}
	result, err := p.Execute(ctx, batch)
	if !errs.Is(err, errs.KindConditionFailed) {
		t.Fatalf("expected ConditionFailed, got %v", err)
	}
	if result == nil || result.Applied {
		t.Fatalf("Execute() result = %+v, want Applied=false", result)
	}

	pk := store.PartitionKey(store.Namespace("kv"), "a")
	sk := store.SingletonSortKey(store.Namespace("kv"), "a")
	if _, ok := fake.Get(pk, sk); ok {
		t.Fatalf("kv/a must not have been written; the whole transaction should have been rejected")
	}
}

func TestExecuteUpdateRequiresExpected(t *testing.T) {
	p, _ := newTestPrimitive(t)
	_, err := p.Execute(context.Background(), Batch{Ops: []Op{
		{Kind: OpUpdate, Namespace: "kv", Name: "a", Value: "two"},
	}})
	if !errs.Is(err, errs.KindInvalidArgument) {
		t.Fatalf("expected InvalidArgument for an update without \"expected\", got %v", err)
	}
}

func TestExecuteUpdateAppliesWhenExpectedMatches(t *testing.T) {
	p, fake := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Execute(ctx, Batch{Ops: []Op{
		{Kind: OpPut, Namespace: "kv", Name: "a", Value: "one"},
	}}); err != nil {
		t.Fatalf("setup Execute returned error: %v", err)
	}

	result, err := p.Execute(ctx, Batch{Ops: []Op{
		{Kind: OpUpdate, Namespace: "kv", Name: "a", Value: "two", Expected: map[string]any{"value": "one"}},
	}})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.Applied {
		t.Fatalf("Execute().Applied = false, want true")
	}

	pk := store.PartitionKey(store.Namespace("kv"), "a")
	sk := store.SingletonSortKey(store.Namespace("kv"), "a")
	rec, ok := fake.Get(pk, sk)
	if !ok || rec.Value != "two" {
		t.Fatalf("kv/a value = %v, want %q", rec.Value, "two")
	}
}

func TestExecuteDeleteWithExpectedMismatchFails(t *testing.T) {
	p, _ := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Execute(ctx, Batch{Ops: []Op{
		{Kind: OpPut, Namespace: "kv", Name: "a", Value: "one"},
	}}); err != nil {
		t.Fatalf("setup Execute returned error: %v", err)
	}

	_, err := p.Execute(ctx, Batch{Ops: []Op{
		{Kind: OpDelete, Namespace: "kv", Name: "a", Expected: map[string]any{"value": "not-one"}},
	}})
	if !errs.Is(err, errs.KindConditionFailed) {
		t.Fatalf("expected ConditionFailed, got %v", err)
	}
}

func TestExecuteRejectsInvalidNamespace(t *testing.T) {
	p, _ := newTestPrimitive(t)
	_, err := p.Execute(context.Background(), Batch{Ops: []Op{
		{Kind: OpPut, Namespace: "not-a-real-namespace", Name: "a", Value: 1},
	}})
	if !errs.Is(err, errs.KindInvalidArgument) {
		t.Fatalf("expected InvalidArgument for an unknown namespace, got %v", err)
	}
}
