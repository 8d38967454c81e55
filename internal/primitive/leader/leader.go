// Package leader implements the Leader primitive (C7) from spec.md
// section 4.7. It is the TTL-conditioned sibling of the lock primitive:
// both are generalized from the teacher's single distributed_lock.go,
// since a leader election is structurally a lock whose holder must keep
// proving liveness via heartbeat instead of simply extending a TTL.
package leader

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"go.uber.org/zap"

	"github.com/dnvriend/aws-primitives-tool/internal/errs"
	"github.com/dnvriend/aws-primitives-tool/internal/store"
	"github.com/dnvriend/aws-primitives-tool/internal/util"
)

type Primitive struct {
	driver store.Driver
	logger *zap.Logger
}

func New(driver store.Driver, logger *zap.Logger) *Primitive {
	return &Primitive{driver: driver, logger: logger}
}

// Leader describes the current leader of a pool.
type Leader struct {
	ID         string
	TTLSeconds int64
	ElectedAt  int64
}

// Elect attempts to become leader of pool for ttl. Succeeds if no
// current leader exists or the stored leader's TTL has elapsed
// (invariant I4), per spec.md section 4.7.
func (p *Primitive) Elect(ctx context.Context, pool, id string, ttl time.Duration) (*Leader, error) {
	if err := store.ValidateName(pool); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, errs.InvalidArgument("--id is required")
	}

	now := util.NowUnix()
	pk := store.PartitionKey(store.NamespaceLeader, pool)
	expiresAt := now + int64(ttl.Seconds())

	rec := store.Record{
		PartitionKey: pk,
		SortKey:      pk,
		Type:         string(store.NamespaceLeader),
		Value:        id,
		TTL:          &expiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
		Metadata: map[string]any{
			"electedAt": util.NowUnixMicro(),
		},
	}

	cond := expression.AttributeNotExists(expression.Name("partitionKey")).
		Or(expression.Name("ttl").LessThan(expression.Value(now)))

	if err := p.driver.PutItem(ctx, rec, &cond); err != nil {
		if errs.Is(err, errs.KindConditionFailed) {
			return nil, errs.CoordinationUnavailable(fmt.Sprintf("pool %q already has a live leader", pool)).
				WithSolution("wait for the current leader's TTL to elapse, or check who holds it with `leader check`")
		}
		return nil, err
	}

	p.logger.Debug("elected leader", zap.String("pool", pool), zap.String("id", id))
	return &Leader{ID: id, TTLSeconds: int64(ttl.Seconds()), ElectedAt: util.NowUnixMicro()}, nil
}

// Heartbeat extends pool's leadership TTL, conditioned on id still being
// the stored leader. A process that has lost leadership (another id won
// an election after this one's TTL lapsed) gets CoordinationUnavailable back and
// must stop doing leader-only work, per spec.md section 5's liveness note.
func (p *Primitive) Heartbeat(ctx context.Context, pool, id string, ttl time.Duration) (*Leader, error) {
	if err := store.ValidateName(pool); err != nil {
		return nil, err
	}
	pk := store.PartitionKey(store.NamespaceLeader, pool)
	now := util.NowUnix()
	expiresAt := now + int64(ttl.Seconds())

	update := expression.
		Set(expression.Name("ttl"), expression.Value(expiresAt)).
		Set(expression.Name("updatedAt"), expression.Value(now))
	cond := expression.Name("value").Equal(expression.Value(id))

	_, err := p.driver.UpdateItem(ctx, store.UpdateSpec{
		Key:       store.Key{PartitionKey: pk, SortKey: pk},
		Update:    update,
		Condition: &cond,
	}, false)
	if err != nil {
		if errs.Is(err, errs.KindConditionFailed) {
			return nil, errs.CoordinationUnavailable(fmt.Sprintf("%q is no longer leader of pool %q", id, pool)).
				WithSolution("stop leader-only work and call `leader elect` to attempt to regain leadership")
		}
		return nil, err
	}
	return &Leader{ID: id, TTLSeconds: int64(ttl.Seconds())}, nil
}

// Check reports the current live leader of pool, if any.
func (p *Primitive) Check(ctx context.Context, pool string) (*Leader, bool, error) {
	if err := store.ValidateName(pool); err != nil {
		return nil, false, err
	}
	pk := store.PartitionKey(store.NamespaceLeader, pool)
	rec, err := p.driver.GetItem(ctx, store.Key{PartitionKey: pk, SortKey: pk}, true)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if rec.Expired(util.NowUnix()) {
		return nil, false, nil
	}
	id, _ := rec.Value.(string)
	ttl := int64(0)
	if rec.TTL != nil {
		ttl = *rec.TTL - util.NowUnix()
	}
	return &Leader{ID: id, TTLSeconds: ttl}, true, nil
}

// Resign relinquishes pool's leadership, conditioned on id matching.
func (p *Primitive) Resign(ctx context.Context, pool, id string) error {
	if err := store.ValidateName(pool); err != nil {
		return err
	}
	pk := store.PartitionKey(store.NamespaceLeader, pool)
	cond := expression.Name("value").Equal(expression.Value(id))

	err := p.driver.DeleteItem(ctx, store.Key{PartitionKey: pk, SortKey: pk}, &cond)
	if err != nil {
		if errs.Is(err, errs.KindConditionFailed) {
			return errs.ConditionFailed(fmt.Sprintf("%q is not the current leader of pool %q", id, pool)).
				WithSolution("only the current leader can resign")
		}
		return err
	}
	return nil
}
