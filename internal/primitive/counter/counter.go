// Package counter implements the Counter primitive (C4) from spec.md
// section 4.4.
package counter

import (
	"context"
	"fmt"

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

// Add applies a signed delta to key's value. dec(key, n) is the caller
// negating by before calling Add, per spec.md section 4.4 ("dec is
// syntactic sugar for negated by"). When create is false, the update is
// conditioned on attribute_exists(partitionKey); on failure this surfaces
// NotFound pointing the caller at --create.
func (p *Primitive) Add(ctx context.Context, key string, by int64, create bool) (int64, error) {
	if err := store.ValidateName(key); err != nil {
		return 0, err
	}
	if by == 0 {
		return 0, errs.InvalidArgument("--by must be non-zero")
	}

	pk := store.PartitionKey(store.NamespaceCounter, key)
	now := util.NowUnix()

	update := expression.
		Set(expression.Name("updatedAt"), expression.Value(now)).
		Set(expression.Name("type"), expression.Value(string(store.NamespaceCounter))).
		Add(expression.Name("value"), expression.Value(by))

	var cond *expression.ConditionBuilder
	spec := store.UpdateSpec{
		Key:    store.Key{PartitionKey: pk, SortKey: pk},
		Update: update,
	}
	if create {
		spec.Update = spec.Update.Set(expression.Name("createdAt"), expression.IfNotExists(expression.Name("createdAt"), expression.Value(now)))
	} else {
		existCond := expression.Name("partitionKey").AttributeExists()
		cond = &existCond
		spec.Condition = cond
	}

	rec, err := p.driver.UpdateItem(ctx, spec, true)
	if err != nil {
		if errs.Is(err, errs.KindConditionFailed) {
			return 0, errs.NotFound(fmt.Sprintf("counter %q does not exist", key)).
				WithSolution("pass --create to initialize the counter on first use")
		}
		return 0, err
	}

	newVal, ok := asInt64(rec.Value)
	if !ok {
		return 0, errs.ServiceError("counter value was not numeric after update")
	}
	return newVal, nil
}

// Get reads key's numeric value with a strictly-consistent read, per
// spec.md section 4.4.
func (p *Primitive) Get(ctx context.Context, key string) (int64, error) {
	if err := store.ValidateName(key); err != nil {
		return 0, err
	}
	pk := store.PartitionKey(store.NamespaceCounter, key)
	rec, err := p.driver.GetItem(ctx, store.Key{PartitionKey: pk, SortKey: pk}, true)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return 0, errs.NotFound(fmt.Sprintf("counter %q does not exist", key)).
				WithSolution("use `counter inc --create` to initialize it")
		}
		return 0, err
	}
	v, ok := asInt64(rec.Value)
	if !ok {
		return 0, errs.ServiceError("counter value was not numeric")
	}
	return v, nil
}

// Delete removes a counter item explicitly, per spec.md section 3's
// counter lifecycle.
func (p *Primitive) Delete(ctx context.Context, key string) error {
	if err := store.ValidateName(key); err != nil {
		return err
	}
	pk := store.PartitionKey(store.NamespaceCounter, key)
	return p.driver.DeleteItem(ctx, store.Key{PartitionKey: pk, SortKey: pk}, nil)
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
