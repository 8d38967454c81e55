// Package store implements the item-store driver (C1) and key encoder
// (C2) from spec.md sections 4.1-4.2, generalizing the teacher's
// distributed_lock.go PK/SK conventions ("LOCK#<resource>" / "LOCK") into
// the full namespace scheme spec.md's data model requires.
package store

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dnvriend/aws-primitives-tool/internal/errs"
)

// Namespace enumerates the reserved partition-key prefixes from spec.md
// section 3. Any other prefix is rejected by ValidateNamespace.
type Namespace string

const (
	NamespaceKV      Namespace = "kv"
	NamespaceCounter Namespace = "counter"
	NamespaceLock    Namespace = "lock"
	NamespaceLeader  Namespace = "leader"
	NamespaceQueue   Namespace = "queue"
	NamespaceSet     Namespace = "set"
	NamespaceList    Namespace = "list"
)

var reservedNamespaces = map[Namespace]bool{
	NamespaceKV: true, NamespaceCounter: true, NamespaceLock: true,
	NamespaceLeader: true, NamespaceQueue: true, NamespaceSet: true, NamespaceList: true,
}

// nameRegex enforces spec.md section 4.2: "[A-Za-z0-9_./-]{1,200}".
var nameRegex = regexp.MustCompile(`^[A-Za-z0-9_./-]{1,200}$`)

// listIndexOffset centers the signed 20-digit list index so that
// "prepend" produces a lexicographically smaller sort key than "append",
// per spec.md section 4.2 and the offset-by-1e19 scheme named in the
// Open Questions of spec.md section 9. It is unsigned because 1e19 does
// not fit in an int64; ListElementSortKey adds it to uint64(index), whose
// wrap-around for negative indices yields exactly 1e19 + index.
const listIndexOffset uint64 = 1e19

// ValidateName checks a logical name against spec.md's naming rule.
func ValidateName(name string) error {
	if !nameRegex.MatchString(name) {
		return errs.InvalidArgument(fmt.Sprintf("name %q must match [A-Za-z0-9_./-]{1,200}", name)).
			WithSolution("choose a name using only letters, digits, underscore, dot, slash, or hyphen, 1-200 characters long")
	}
	return nil
}

// ValidateNamespace rejects any namespace outside the reserved set.
func ValidateNamespace(ns Namespace) error {
	if !reservedNamespaces[ns] {
		return errs.InvalidArgument(fmt.Sprintf("namespace %q is not one of kv|counter|lock|leader|queue|set|list", ns)).
			WithSolution("use one of the reserved primitive namespaces")
	}
	return nil
}

// PartitionKey builds "<namespace>:<name>".
func PartitionKey(ns Namespace, name string) string {
	return fmt.Sprintf("%s:%s", ns, name)
}

// SingletonSortKey returns the sort key for kv/counter/lock/leader items,
// which spec.md section 9's Open Questions resolves as sk = pk.
func SingletonSortKey(ns Namespace, name string) string {
	return PartitionKey(ns, name)
}

// SetMemberSortKey encodes "set:<name>#<member>".
func SetMemberSortKey(name, member string) string {
	return fmt.Sprintf("set:%s#%s", name, member)
}

// ListElementSortKey encodes a signed 20-digit zero-padded index as
// "list:<name>#<20-digit>", offset so smaller logical indices (produced
// by lpush) sort before larger ones (produced by rpush).
func ListElementSortKey(name string, index int64) string {
	return fmt.Sprintf("list:%s#%020d", name, uint64(index)+listIndexOffset)
}

// ListHeaderSortKey returns the sort key of a list's header item.
func ListHeaderSortKey(name string) string {
	return fmt.Sprintf("list:%s:header", name)
}

// QueueItemSortKey encodes "queue:<name>#<priority:010d>#<timestampMicros>#<uuid>".
func QueueItemSortKey(name string, priority int32, timestampMicros int64, uuid string) string {
	return fmt.Sprintf("queue:%s#%010d#%d#%s", name, priority, timestampMicros, uuid)
}

// QueuePartitionPrefix returns the sort-key prefix shared by every item
// in one named queue, for range queries.
func QueuePartitionPrefix(name string) string {
	return fmt.Sprintf("queue:%s#", name)
}

// SetPartitionPrefix returns the sort-key prefix shared by every member
// of one named set.
func SetPartitionPrefix(name string) string {
	return fmt.Sprintf("set:%s#", name)
}

// ListElementPrefix returns the sort-key prefix shared by every element
// of one named list (excluding its header).
func ListElementPrefix(name string) string {
	return fmt.Sprintf("list:%s#", name)
}

// DedupPartitionKey builds the companion-item partition key used to
// enforce spec.md section 4.6's push dedup window. Kept in its own
// pseudo-namespace so a dedup companion item never collides with a real
// queue item's key.
func DedupPartitionKey(queueName, dedupID string) string {
	return fmt.Sprintf("dedup:%s", queueName)
}

// DedupSortKey builds the companion item's sort key.
func DedupSortKey(queueName, dedupID string) string {
	return fmt.Sprintf("dedup:%s#%s", queueName, dedupID)
}

// IsReservedPrefix reports whether name already starts with a reserved
// namespace prefix followed by ':', which would otherwise let a caller
// smuggle a cross-namespace key through a primitive that only namespaces
// its own name argument (I1, namespace isolation).
func IsReservedPrefix(name string) bool {
	if idx := strings.IndexByte(name, ':'); idx > 0 {
		if reservedNamespaces[Namespace(name[:idx])] {
			return true
		}
	}
	return false
}
