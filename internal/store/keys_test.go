package store

import "testing"

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "simple", input: "my-queue", wantErr: false},
		{name: "with slash and dot", input: "teams/acme.prod_1", wantErr: false},
		{name: "empty", input: "", wantErr: true},
		{name: "spaces not allowed", input: "has space", wantErr: true},
		{name: "colon not allowed", input: "kv:leak", wantErr: true},
		{name: "too long", input: stringOfLength(201), wantErr: true},
		{name: "exactly at limit", input: stringOfLength(200), wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.wantErr && err == nil {
				t.Fatalf("ValidateName(%q) = nil, want error", tt.input)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("ValidateName(%q) = %v, want nil", tt.input, err)
			}
		})
	}
}

func stringOfLength(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}

func TestValidateNamespace(t *testing.T) {
	if err := ValidateNamespace(NamespaceQueue); err != nil {
		t.Fatalf("expected queue namespace to be valid, got %v", err)
	}
	if err := ValidateNamespace(Namespace("bogus")); err == nil {
		t.Fatal("expected an error for an unreserved namespace")
	}
}

func TestPartitionKeyAndSingletonSortKey(t *testing.T) {
	pk := PartitionKey(NamespaceKV, "session-1")
	if pk != "kv:session-1" {
		t.Fatalf("PartitionKey = %q, want %q", pk, "kv:session-1")
	}
	if sk := SingletonSortKey(NamespaceKV, "session-1"); sk != pk {
		t.Fatalf("SingletonSortKey = %q, want %q (pk)", sk, pk)
	}
}

func TestSetMemberSortKey(t *testing.T) {
	got := SetMemberSortKey("online-users", "alice")
	want := "set:online-users#alice"
	if got != want {
		t.Fatalf("SetMemberSortKey = %q, want %q", got, want)
	}
}

// TestListElementSortKeyOrdering verifies the offset-by-1e19 scheme: a
// prepended element (negative logical index) sorts before the list's
// first appended element, and indices sort monotonically.
func TestListElementSortKeyOrdering(t *testing.T) {
	first := ListElementSortKey("todo", 0)
	appended := ListElementSortKey("todo", 1)
	prepended := ListElementSortKey("todo", -1)

	if !(prepended < first && first < appended) {
		t.Fatalf("expected prepended < first < appended, got %q, %q, %q", prepended, first, appended)
	}
	if len(first) != len(appended) {
		t.Fatalf("expected fixed-width sort keys, got lengths %d and %d", len(first), len(appended))
	}
}

func TestQueueItemSortKeyOrdersByPriorityThenTime(t *testing.T) {
	high := QueueItemSortKey("jobs", 1, 1000, "aaa")
	low := QueueItemSortKey("jobs", 9, 1000, "aaa")
	if !(high < low) {
		t.Fatalf("expected lower priority number to sort first: %q vs %q", high, low)
	}

	earlier := QueueItemSortKey("jobs", 5, 1000, "aaa")
	later := QueueItemSortKey("jobs", 5, 2000, "aaa")
	if !(earlier < later) {
		t.Fatalf("expected earlier timestamp to sort first within the same priority: %q vs %q", earlier, later)
	}
}

func TestIsReservedPrefix(t *testing.T) {
	if !IsReservedPrefix("kv:whatever") {
		t.Fatal("expected kv: prefix to be reserved")
	}
	if IsReservedPrefix("not-a-namespace:whatever") {
		t.Fatal("did not expect an unreserved prefix to be flagged")
	}
	if IsReservedPrefix("no-colon-here") {
		t.Fatal("did not expect a name with no colon to be flagged")
	}
}
