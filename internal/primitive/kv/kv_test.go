package kv

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

func TestSetAndGet(t *testing.T) {
	p, _ := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Set(ctx, "session-1", "alice", nil, ModeOverwrite); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	rec, isDefault, err := p.Get(ctx, "session-1", nil, false)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if isDefault {
		t.Fatal("expected a real record, not a default")
	}
	if rec.Value != "alice" {
		t.Fatalf("Get().Value = %v, want %q", rec.Value, "alice")
	}
}

func TestSetIfAbsentFailsWhenKeyExists(t *testing.T) {
	p, _ := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Set(ctx, "session-1", "alice", nil, ModeOverwrite); err != nil {
		t.Fatalf("first Set returned error: %v", err)
	}
	_, err := p.Set(ctx, "session-1", "bob", nil, ModeIfAbsent)
	if !errs.Is(err, errs.KindAlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestSetIfAbsentSucceedsWhenKeyMissing(t *testing.T) {
	p, _ := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Set(ctx, "session-1", "alice", nil, ModeIfAbsent); err != nil {
		t.Fatalf("Set with ifAbsent on a fresh key returned error: %v", err)
	}
}

func TestGetMissingKeyWithoutDefaultIsNotFound(t *testing.T) {
	p, _ := newTestPrimitive(t)
	_, _, err := p.Get(context.Background(), "missing", nil, false)
	if !errs.Is(err, errs.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestGetMissingKeyWithDefaultReturnsSyntheticRecord(t *testing.T) {
	p, _ := newTestPrimitive(t)
	rec, isDefault, err := p.Get(context.Background(), "missing", "fallback", true)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !isDefault {
		t.Fatal("expected the default flag to be set")
	}
	if rec.Value != "fallback" {
		t.Fatalf("Get().Value = %v, want %q", rec.Value, "fallback")
	}
}

func TestGetExpiredKeyTreatedAsMissing(t *testing.T) {
	p, fake := newTestPrimitive(t)
	past := int64(1)
	fake.Put(seedKVRecord("expired-key", "gone", &past))

	_, _, err := p.Get(context.Background(), "expired-key", nil, false)
	if !errs.Is(err, errs.KindNotFound) {
		t.Fatalf("expected an expired item to read as NotFound, got %v", err)
	}
}

func TestDeleteIsIdempotentOnMissingKey(t *testing.T) {
	p, _ := newTestPrimitive(t)
	if err := p.Delete(context.Background(), "never-existed", nil, false); err != nil {
		t.Fatalf("Delete on a missing key returned error: %v", err)
	}
}

func TestDeleteWithIfValueMismatchIsConditionFailed(t *testing.T) {
	p, _ := newTestPrimitive(t)
	ctx := context.Background()
	if _, err := p.Set(ctx, "session-1", "alice", nil, ModeOverwrite); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	err := p.Delete(ctx, "session-1", "bob", true)
	if !errs.Is(err, errs.KindConditionFailed) {
		t.Fatalf("expected ConditionFailed, got %v", err)
	}
}

func TestDeleteWithIfValueMatchSucceeds(t *testing.T) {
	p, _ := newTestPrimitive(t)
	ctx := context.Background()
	if _, err := p.Set(ctx, "session-1", "alice", nil, ModeOverwrite); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := p.Delete(ctx, "session-1", "alice", true); err != nil {
		t.Fatalf("Delete with a matching ifValue returned error: %v", err)
	}
	if _, _, err := p.Get(ctx, "session-1", nil, false); !errs.Is(err, errs.KindNotFound) {
		t.Fatalf("expected the key to be gone after Delete, got %v", err)
	}
}

func TestExists(t *testing.T) {
	p, _ := newTestPrimitive(t)
	ctx := context.Background()

	ok, err := p.Exists(ctx, "session-1")
	if err != nil || ok {
		t.Fatalf("Exists on a missing key = (%v, %v), want (false, nil)", ok, err)
	}

	if _, err := p.Set(ctx, "session-1", "alice", nil, ModeOverwrite); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	ok, err = p.Exists(ctx, "session-1")
	if err != nil || !ok {
		t.Fatalf("Exists on an existing key = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestListFiltersByPrefixAndExcludesExpired(t *testing.T) {
	p, fake := newTestPrimitive(t)
	ctx := context.Background()

	if _, err := p.Set(ctx, "teams/a", "1", nil, ModeOverwrite); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if _, err := p.Set(ctx, "teams/b", "2", nil, ModeOverwrite); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if _, err := p.Set(ctx, "other/c", "3", nil, ModeOverwrite); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	past := int64(1)
	fake.Put(seedKVRecord("teams/expired", "4", &past))

	items, err := p.List(ctx, "teams/", 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("List returned %d items, want 2: %+v", len(items), items)
	}
}

// seedKVRecord builds a kv record directly, bypassing Set, so tests can
// seed an already-expired item that Set itself would refuse to create.
func seedKVRecord(key string, value any, ttl *int64) store.Record {
	pk := store.PartitionKey(store.NamespaceKV, key)
	return store.Record{
		PartitionKey: pk,
		SortKey:      store.SingletonSortKey(store.NamespaceKV, key),
		Type:         string(store.NamespaceKV),
		Value:        value,
		TTL:          ttl,
		CreatedAt:    0,
		UpdatedAt:    0,
	}
}
