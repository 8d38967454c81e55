// Package queue implements the item-store-backed Queue primitive (C6)
// from spec.md section 4.6, generalizing the teacher's outbox pattern
// (infrastructure/persistence/dynamodb/event_store.go,
// outbox_processor.go — "durably record, then drain in order") from
// "eventually publish domain events" to "pop with visibility timeout,
// strict priority/timestamp/uuid ordering, transactional dedup".
package queue

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"context"

	"github.com/dnvriend/aws-primitives-tool/internal/errs"
	"github.com/dnvriend/aws-primitives-tool/internal/store"
	"github.com/dnvriend/aws-primitives-tool/internal/util"
)

const maxPopAttempts = 5

type Primitive struct {
	driver      store.Driver
	logger      *zap.Logger
	dedupWindow time.Duration
}

func New(driver store.Driver, logger *zap.Logger, dedupWindow time.Duration) *Primitive {
	return &Primitive{driver: driver, logger: logger, dedupWindow: dedupWindow}
}

// Pushed describes a successfully enqueued item.
type Pushed struct {
	Receipt string
}

// Push enqueues body into queue with the given priority (lower pops
// first, per invariant I5), optionally deduplicated by dedupID within
// the configured dedup window (invariant I6) and given a TTL.
func (p *Primitive) Push(ctx context.Context, queueName string, body any, priority int32, dedupID string, ttl *int64) (*Pushed, error) {
	if err := store.ValidateName(queueName); err != nil {
		return nil, err
	}

	now := util.NowUnix()
	nowMicro := util.NowUnixMicro()
	id := uuid.NewString()
	pk := store.PartitionKey(store.NamespaceQueue, queueName)
	sk := store.QueueItemSortKey(queueName, priority, nowMicro, id)

	item := store.Record{
		PartitionKey: pk,
		SortKey:      sk,
		Type:         string(store.NamespaceQueue),
		Value:        body,
		TTL:          ttl,
		CreatedAt:    now,
		UpdatedAt:    now,
		Metadata: map[string]any{
			"priority":  priority,
			"timestamp": nowMicro,
			"uuid":      id,
		},
	}

	if dedupID == "" {
		itemNotExists := expression.AttributeNotExists(expression.Name("partitionKey"))
		if err := p.driver.PutItem(ctx, item, &itemNotExists); err != nil {
			return nil, err
		}
		return &Pushed{Receipt: sk}, nil
	}

	dedupExpiry := now + int64(p.dedupWindow.Seconds())
	dedupItem := store.Record{
		PartitionKey: store.DedupPartitionKey(queueName, dedupID),
		SortKey:      store.DedupSortKey(queueName, dedupID),
		Type:         string(store.NamespaceQueue),
		TTL:          &dedupExpiry,
		CreatedAt:    now,
		UpdatedAt:    now,
		Metadata:     map[string]any{"dedupId": dedupID},
	}
	dedupNotExists := expression.AttributeNotExists(expression.Name("partitionKey"))
	itemNotExists := expression.AttributeNotExists(expression.Name("partitionKey"))

	err := p.driver.TransactWrite(ctx, []store.TransactAction{
		{Put: &dedupItem, PutCondition: &dedupNotExists},
		{Put: &item, PutCondition: &itemNotExists},
	})
	if err != nil {
		if errs.Is(err, errs.KindConditionFailed) {
			return nil, errs.CoordinationUnavailable(fmt.Sprintf("dedup id %q was already pushed to %q within the dedup window", dedupID, queueName)).
				WithSolution("wait for the dedup window to elapse, or use a different --dedup-id")
		}
		return nil, err
	}
	return &Pushed{Receipt: sk}, nil
}

// Popped describes a successfully popped item.
type Popped struct {
	Body              any
	Receipt           string
	VisibilityTimeout int64
}

// Pop selects the lowest (priority, timestamp, uuid) item not currently
// hidden by an unexpired visibility deadline (invariant I5), then either
// deletes it directly (no visibility requested) or conditionally marks
// it hidden until now+visibilityTimeout, retrying the selection up to
// maxPopAttempts times on a losing race against another consumer.
func (p *Primitive) Pop(ctx context.Context, queueName string, visibilityTimeout time.Duration) (*Popped, error) {
	if err := store.ValidateName(queueName); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxPopAttempts; attempt++ {
		rec, err := p.selectNext(ctx, queueName)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, errs.NotFound(fmt.Sprintf("queue %q is empty", queueName))
		}

		if visibilityTimeout <= 0 {
			if err := p.driver.DeleteItem(ctx, store.Key{PartitionKey: rec.PartitionKey, SortKey: rec.SortKey}, nil); err != nil {
				return nil, err
			}
			return &Popped{Body: rec.Value, Receipt: rec.SortKey}, nil
		}

		now := util.NowUnix()
		deadline := now + int64(visibilityTimeout.Seconds())
		var prevDeadlineCond expression.ConditionBuilder
		if v, ok := rec.Metadata["visibilityDeadline"]; ok {
			prevDeadlineCond = expression.Name("metadata.visibilityDeadline").Equal(expression.Value(v))
		} else {
			prevDeadlineCond = expression.Name("metadata.visibilityDeadline").AttributeNotExists()
		}

		update := expression.Set(expression.Name("metadata.visibilityDeadline"), expression.Value(deadline)).
			Set(expression.Name("updatedAt"), expression.Value(now))

		_, err = p.driver.UpdateItem(ctx, store.UpdateSpec{
			Key:       store.Key{PartitionKey: rec.PartitionKey, SortKey: rec.SortKey},
			Update:    update,
			Condition: &prevDeadlineCond,
		}, false)
		if err != nil {
			if errs.Is(err, errs.KindConditionFailed) {
				continue // lost the race; retry selection
			}
			return nil, err
		}
		return &Popped{Body: rec.Value, Receipt: rec.SortKey, VisibilityTimeout: int64(visibilityTimeout.Seconds())}, nil
	}

	return nil, errs.ServiceError(fmt.Sprintf("could not pop from %q after %d attempts due to contention", queueName, maxPopAttempts)).
		WithSolution("retry the pop; contention should be transient")
}

// selectNext queries the partition in ascending sort-key order (priority,
// timestamp, uuid, per invariant I5) with Limit 1 and a filter that keeps
// an item only when it has no visibility deadline or its deadline has
// already passed.
func (p *Primitive) selectNext(ctx context.Context, queueName string) (*store.Record, error) {
	pk := store.PartitionKey(store.NamespaceQueue, queueName)
	now := util.NowUnix()

	keyCond := expression.Key("partitionKey").Equal(expression.Value(pk)).
		And(expression.Key("sortKey").BeginsWith(store.QueuePartitionPrefix(queueName)))
	filter := expression.Name("metadata.visibilityDeadline").AttributeNotExists().
		Or(expression.Name("metadata.visibilityDeadline").LessThan(expression.Value(now)))

	result, err := p.driver.Query(ctx, store.QueryInput{
		KeyCondition: keyCond,
		Filter:       &filter,
		Limit:        1,
		Ascending:    true,
	})
	if err != nil {
		return nil, err
	}
	if len(result.Items) == 0 {
		return nil, nil
	}
	rec := result.Items[0]
	if rec.Expired(now) {
		return nil, nil
	}
	return &rec, nil
}

// Peek returns up to count items without mutating anything.
func (p *Primitive) Peek(ctx context.Context, queueName string, count int32) ([]store.Record, error) {
	if err := store.ValidateName(queueName); err != nil {
		return nil, err
	}
	pk := store.PartitionKey(store.NamespaceQueue, queueName)
	keyCond := expression.Key("partitionKey").Equal(expression.Value(pk)).
		And(expression.Key("sortKey").BeginsWith(store.QueuePartitionPrefix(queueName)))

	result, err := p.driver.Query(ctx, store.QueryInput{
		KeyCondition: keyCond,
		Limit:        count,
		Ascending:    true,
	})
	if err != nil {
		return nil, err
	}
	now := util.NowUnix()
	items := make([]store.Record, 0, len(result.Items))
	for _, rec := range result.Items {
		if !rec.Expired(now) {
			items = append(items, rec)
		}
	}
	return items, nil
}

// Size counts items in queueName via Select=COUNT.
func (p *Primitive) Size(ctx context.Context, queueName string) (int32, error) {
	if err := store.ValidateName(queueName); err != nil {
		return 0, err
	}
	pk := store.PartitionKey(store.NamespaceQueue, queueName)
	keyCond := expression.Key("partitionKey").Equal(expression.Value(pk)).
		And(expression.Key("sortKey").BeginsWith(store.QueuePartitionPrefix(queueName)))

	result, err := p.driver.Query(ctx, store.QueryInput{
		KeyCondition: keyCond,
		CountOnly:    true,
	})
	if err != nil {
		return 0, err
	}
	return result.Count, nil
}

// Ack deletes the item identified by receipt (its sort key), idempotent
// if already deleted.
func (p *Primitive) Ack(ctx context.Context, queueName, receipt string) error {
	if err := store.ValidateName(queueName); err != nil {
		return err
	}
	pk := store.PartitionKey(store.NamespaceQueue, queueName)
	return p.driver.DeleteItem(ctx, store.Key{PartitionKey: pk, SortKey: receipt}, nil)
}
