package admin

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
	return New(nil, nil, fake, "test-table", zap.NewNop()), fake
}

func TestInfoReturnsCounterValue(t *testing.T) {
	p, fake := newTestPrimitive(t)
	pk := store.PartitionKey(store.NamespaceCounter, "requests")
	fake.Put(store.Record{
		PartitionKey: pk,
		SortKey:      pk,
		Type:         string(store.NamespaceCounter),
		Value:        int64(42),
		CreatedAt:    100,
		UpdatedAt:    200,
	})

	info, err := p.Info(context.Background(), store.NamespaceCounter, "requests")
	if err != nil {
		t.Fatalf("Info returned error: %v", err)
	}
	if info.Value != int64(42) {
		t.Fatalf("Info().Value = %v, want 42", info.Value)
	}
	if info.Type != string(store.NamespaceCounter) {
		t.Fatalf("Info().Type = %q, want %q", info.Type, store.NamespaceCounter)
	}
}

func TestInfoCountsSetMembers(t *testing.T) {
	p, fake := newTestPrimitive(t)
	pk := store.PartitionKey(store.NamespaceSet, "tags")
	fake.Put(store.Record{PartitionKey: pk, SortKey: store.SetMemberSortKey("tags", "a"), Type: string(store.NamespaceSet)})
	fake.Put(store.Record{PartitionKey: pk, SortKey: store.SetMemberSortKey("tags", "b"), Type: string(store.NamespaceSet)})

	info, err := p.Info(context.Background(), store.NamespaceSet, "tags")
	if err != nil {
		t.Fatalf("Info returned error: %v", err)
	}
	if info.MemberCount != 2 {
		t.Fatalf("Info().MemberCount = %d, want 2", info.MemberCount)
	}
}

func TestInfoNotFound(t *testing.T) {
	p, _ := newTestPrimitive(t)
	_, err := p.Info(context.Background(), store.NamespaceKV, "missing")
	if !errs.Is(err, errs.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestDropRefusesWithoutApprove(t *testing.T) {
	p, _ := newTestPrimitive(t)
	err := p.Drop(context.Background(), false)
	if !errs.Is(err, errs.KindInvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}
