package set

import (
	"context"
	"sort"
	"testing"

	"go.uber.org/zap"

	"github.com/dnvriend/aws-primitives-tool/internal/teststore"
)

func newTestPrimitive(t *testing.T) *Primitive {
	t.Helper()
	return New(teststore.New(), zap.NewNop())
}

func TestAddAndIsMember(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if err := p.Add(ctx, "online", "alice"); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	ok, err := p.IsMember(ctx, "online", "alice")
	if err != nil || !ok {
		t.Fatalf("IsMember(alice) = (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = p.IsMember(ctx, "online", "bob")
	if err != nil || ok {
		t.Fatalf("IsMember(bob) = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestAddIsIdempotent(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if err := p.Add(ctx, "online", "alice"); err != nil {
		t.Fatalf("first Add returned error: %v", err)
	}
	if err := p.Add(ctx, "online", "alice"); err != nil {
		t.Fatalf("second Add of the same member returned error: %v", err)
	}
	card, err := p.Card(ctx, "online")
	if err != nil {
		t.Fatalf("Card returned error: %v", err)
	}
	if card != 1 {
		t.Fatalf("Card after two identical Adds = %d, want 1", card)
	}
}

func TestRemIsIdempotent(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	if err := p.Rem(ctx, "online", "never-added"); err != nil {
		t.Fatalf("Rem of an absent member returned error: %v", err)
	}

	if err := p.Add(ctx, "online", "alice"); err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if err := p.Rem(ctx, "online", "alice"); err != nil {
		t.Fatalf("Rem returned error: %v", err)
	}
	ok, err := p.IsMember(ctx, "online", "alice")
	if err != nil || ok {
		t.Fatalf("IsMember after Rem = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestMembersAndCard(t *testing.T) {
	p := newTestPrimitive(t)
	ctx := context.Background()

	for _, m := range []string{"alice", "bob", "carol"} {
		if err := p.Add(ctx, "online", m); err != nil {
			t.Fatalf("Add(%q) returned error: %v", m, err)
		}
	}
	// A member of a different set must not leak into this one.
	if err := p.Add(ctx, "other", "zed"); err != nil {
		t.Fatalf("Add to a different set returned error: %v", err)
	}

	members, err := p.Members(ctx, "online")
	if err != nil {
		t.Fatalf("Members returned error: %v", err)
	}
	sort.Strings(members)
	want := []string{"alice", "bob", "carol"}
	if len(members) != len(want) {
		t.Fatalf("Members = %v, want %v", members, want)
	}
	for i := range want {
		if members[i] != want[i] {
			t.Fatalf("Members = %v, want %v", members, want)
		}
	}

	card, err := p.Card(ctx, "online")
	if err != nil {
		t.Fatalf("Card returned error: %v", err)
	}
	if card != 3 {
		t.Fatalf("Card = %d, want 3", card)
	}
}
