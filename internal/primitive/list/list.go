// Package list implements the List primitive half of C8 from spec.md
// section 4.8: a header item tracking monotonic headIdx/tailIdx counters,
// mutated together with each element via a two-item TransactWrite, per
// spec.md section 9's explicit instruction not to approximate this with
// sequential writes ("crash-in-the-middle would corrupt headIdx/tailIdx").
package list

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"go.uber.org/zap"

	"github.com/dnvriend/aws-primitives-tool/internal/errs"
	"github.com/dnvriend/aws-primitives-tool/internal/store"
	"github.com/dnvriend/aws-primitives-tool/internal/util"
)

const maxHeaderRetries = 5

type Primitive struct {
	driver store.Driver
	logger *zap.Logger
}

func New(driver store.Driver, logger *zap.Logger) *Primitive {
	return &Primitive{driver: driver, logger: logger}
}

type header struct {
	headIdx int64
	tailIdx int64
}

// emptyHeader represents a list that has never held an element: headIdx
// starts at 0, tailIdx at -1, so length = tailIdx - headIdx + 1 == 0.
func emptyHeader() header { return header{headIdx: 0, tailIdx: -1} }

func (p *Primitive) getHeader(ctx context.Context, name string) (header, error) {
	pk := store.PartitionKey(store.NamespaceList, name)
	rec, err := p.driver.GetItem(ctx, store.Key{PartitionKey: pk, SortKey: store.ListHeaderSortKey(name)}, true)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return emptyHeader(), nil
		}
		return header{}, err
	}
	h := emptyHeader()
	if rec.Metadata != nil {
		if v, ok := asInt64(rec.Metadata["headIdx"]); ok {
			h.headIdx = v
		}
		if v, ok := asInt64(rec.Metadata["tailIdx"]); ok {
			h.tailIdx = v
		}
	}
	return h, nil
}

func (p *Primitive) headerRecord(name string, h header) store.Record {
	now := util.NowUnix()
	pk := store.PartitionKey(store.NamespaceList, name)
	return store.Record{
		PartitionKey: pk,
		SortKey:      store.ListHeaderSortKey(name),
		Type:         string(store.NamespaceList),
		UpdatedAt:    now,
		CreatedAt:    now,
		Metadata: map[string]any{
			"headIdx": h.headIdx,
			"tailIdx": h.tailIdx,
		},
	}
}

// Push describes which end an insertion targets.
type End int

const (
	Left  End = iota // lpush
	Right             // rpush
)

// Push inserts v at end, atomically advancing the header's headIdx
// (Left) or tailIdx (Right) and writing the new element in one
// TransactWrite, retrying on optimistic-concurrency loss against a
// concurrent pusher.
func (p *Primitive) Push(ctx context.Context, name string, v any, end End) (int64, error) {
	if err := store.ValidateName(name); err != nil {
		return 0, err
	}

	for attempt := 0; attempt < maxHeaderRetries; attempt++ {
		h, err := p.getHeader(ctx, name)
		if err != nil {
			return 0, err
		}

		newHeader := h
		var newIdx int64
		if end == Left {
			newHeader.headIdx = h.headIdx - 1
			newIdx = newHeader.headIdx
		} else {
			newHeader.tailIdx = h.tailIdx + 1
			newIdx = newHeader.tailIdx
		}

		headerRec := p.headerRecord(name, newHeader)
		headerCond := headerUnchangedCondition(h)

		elementRec := store.Record{
			PartitionKey: headerRec.PartitionKey,
			SortKey:      store.ListElementSortKey(name, newIdx),
			Type:         string(store.NamespaceList),
			Value:        v,
			CreatedAt:    util.NowUnix(),
			UpdatedAt:    util.NowUnix(),
		}
		elementNotExists := expression.AttributeNotExists(expression.Name("partitionKey"))

		err = p.driver.TransactWrite(ctx, []store.TransactAction{
			{Put: &headerRec, PutCondition: &headerCond},
			{Put: &elementRec, PutCondition: &elementNotExists},
		})
		if err == nil {
			return newIdx, nil
		}
		if !errs.Is(err, errs.KindConditionFailed) {
			return 0, err
		}
		// lost the race against a concurrent push; re-read and retry
	}
	return 0, errs.ServiceError(fmt.Sprintf("push to list %q lost too many races with concurrent pushers", name)).
		WithSolution("retry the push; contention should be transient")
}

// Pop removes and returns the element at end, failing with NotFound if
// the list is empty.
func (p *Primitive) Pop(ctx context.Context, name string, end End) (any, error) {
	if err := store.ValidateName(name); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxHeaderRetries; attempt++ {
		h, err := p.getHeader(ctx, name)
		if err != nil {
			return nil, err
		}
		if h.headIdx > h.tailIdx {
			return nil, errs.NotFound(fmt.Sprintf("list %q is empty", name))
		}

		var boundaryIdx int64
		newHeader := h
		if end == Left {
			boundaryIdx = h.headIdx
			newHeader.headIdx = h.headIdx + 1
		} else {
			boundaryIdx = h.tailIdx
			newHeader.tailIdx = h.tailIdx - 1
		}

		pk := store.PartitionKey(store.NamespaceList, name)
		elementKey := store.Key{PartitionKey: pk, SortKey: store.ListElementSortKey(name, boundaryIdx)}

		elementRec, err := p.driver.GetItem(ctx, elementKey, true)
		if err != nil {
			if errs.Is(err, errs.KindNotFound) {
				// header/element drifted apart from a crashed writer;
				// advance the header past the hole and retry.
				skipRec := p.headerRecord(name, newHeader)
				skipCond := headerUnchangedCondition(h)
				if perr := p.driver.PutItem(ctx, skipRec, &skipCond); perr != nil && !errs.Is(perr, errs.KindConditionFailed) {
					return nil, perr
				}
				continue
			}
			return nil, err
		}

		headerRec := p.headerRecord(name, newHeader)
		headerCond := headerUnchangedCondition(h)
		elementExists := expression.AttributeExists(expression.Name("partitionKey"))

		err = p.driver.TransactWrite(ctx, []store.TransactAction{
			{Put: &headerRec, PutCondition: &headerCond},
			{Delete: &elementKey, DeleteCondition: &elementExists},
		})
		if err == nil {
			return elementRec.Value, nil
		}
		if !errs.Is(err, errs.KindConditionFailed) {
			return nil, err
		}
	}
	return nil, errs.ServiceError(fmt.Sprintf("pop from list %q lost too many races with concurrent poppers", name)).
		WithSolution("retry the pop; contention should be transient")
}

// Range returns elements at logical indices [start, stop] inclusive,
// resolving negative indices against the current tailIdx and clamping
// out-of-range bounds instead of erroring, per spec.md section 8's
// boundary behavior.
func (p *Primitive) Range(ctx context.Context, name string, start, stop int64) ([]any, error) {
	if err := store.ValidateName(name); err != nil {
		return nil, err
	}
	h, err := p.getHeader(ctx, name)
	if err != nil {
		return nil, err
	}
	length := h.tailIdx - h.headIdx + 1
	if length <= 0 {
		return []any{}, nil
	}

	start = resolveIndex(start, length)
	stop = resolveIndex(stop, length)
	if start < 0 {
		start = 0
	}
	if stop >= length {
		stop = length - 1
	}
	if start > stop {
		return []any{}, nil
	}

	pk := store.PartitionKey(store.NamespaceList, name)
	lowKey := store.ListElementSortKey(name, h.headIdx+start)
	highKey := store.ListElementSortKey(name, h.headIdx+stop)
	keyCond := expression.Key("partitionKey").Equal(expression.Value(pk)).
		And(expression.Key("sortKey").Between(expression.Value(lowKey), expression.Value(highKey)))

	result, err := p.driver.Query(ctx, store.QueryInput{KeyCondition: keyCond, Ascending: true})
	if err != nil {
		return nil, err
	}
	values := make([]any, 0, len(result.Items))
	for _, rec := range result.Items {
		values = append(values, rec.Value)
	}
	return values, nil
}

// Len returns the list's current element count.
func (p *Primitive) Len(ctx context.Context, name string) (int64, error) {
	h, err := p.getHeader(ctx, name)
	if err != nil {
		return 0, err
	}
	length := h.tailIdx - h.headIdx + 1
	if length < 0 {
		length = 0
	}
	return length, nil
}

func resolveIndex(idx, length int64) int64 {
	if idx < 0 {
		idx = length + idx
	}
	return idx
}

// headerUnchangedCondition guards the header Put against a concurrent
// mutation: either no header exists yet (the list's very first push) or
// the stored headIdx/tailIdx still match what getHeader last observed.
func headerUnchangedCondition(h header) expression.ConditionBuilder {
	fieldsMatch := expression.Name("metadata.headIdx").Equal(expression.Value(h.headIdx)).
		And(expression.Name("metadata.tailIdx").Equal(expression.Value(h.tailIdx)))
	return expression.AttributeNotExists(expression.Name("partitionKey")).Or(fieldsMatch)
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
