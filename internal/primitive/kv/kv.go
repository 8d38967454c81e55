// Package kv implements the KV primitive (C3) from spec.md section 4.3.
package kv

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"go.uber.org/zap"

	"github.com/dnvriend/aws-primitives-tool/internal/errs"
	"github.com/dnvriend/aws-primitives-tool/internal/store"
	"github.com/dnvriend/aws-primitives-tool/internal/util"
)

// Mode selects the conditional behavior of Set, per spec.md section 4.3.
type Mode string

const (
	ModeOverwrite Mode = "overwrite"
	ModeIfAbsent  Mode = "ifAbsent"
)

// Primitive implements the KV operations over a store.Driver.
type Primitive struct {
	driver store.Driver
	logger *zap.Logger
}

func New(driver store.Driver, logger *zap.Logger) *Primitive {
	return &Primitive{driver: driver, logger: logger}
}

// Set stores value under key, creating or overwriting the item per mode.
// ttl, when non-nil, is an absolute Unix-seconds expiry.
func (p *Primitive) Set(ctx context.Context, key string, value any, ttl *int64, mode Mode) (*store.Record, error) {
	if err := store.ValidateName(key); err != nil {
		return nil, err
	}

	now := util.NowUnix()
	pk := store.PartitionKey(store.NamespaceKV, key)
	rec := store.Record{
		PartitionKey: pk,
		SortKey:      store.SingletonSortKey(store.NamespaceKV, key),
		Type:         string(store.NamespaceKV),
		Value:        value,
		TTL:          ttl,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var cond *expression.ConditionBuilder
	if mode == ModeIfAbsent {
		c := expression.AttributeNotExists(expression.Name("partitionKey"))
		cond = &c
	}

	if err := p.driver.PutItem(ctx, rec, cond); err != nil {
		if errs.Is(err, errs.KindConditionFailed) {
			return nil, errs.AlreadyExists(fmt.Sprintf("key %q already exists", key)).
				WithSolution("omit --if-absent to overwrite, or delete the key first")
		}
		return nil, err
	}
	return &rec, nil
}

// Get reads key. If the item is missing (or TTL-expired, per invariant
// I7) and hasDefault is set, a synthetic record holding def is returned
// instead of NotFound, with the bool result true to mark it as the default.
func (p *Primitive) Get(ctx context.Context, key string, def any, hasDefault bool) (*store.Record, bool, error) {
	if err := store.ValidateName(key); err != nil {
		return nil, false, err
	}

	pk := store.PartitionKey(store.NamespaceKV, key)
	rec, err := p.driver.GetItem(ctx, store.Key{PartitionKey: pk, SortKey: pk}, true)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return p.defaultOrNotFound(key, def, hasDefault)
		}
		return nil, false, err
	}
	if rec.Expired(util.NowUnix()) {
		return p.defaultOrNotFound(key, def, hasDefault)
	}
	return rec, false, nil
}

func (p *Primitive) defaultOrNotFound(key string, def any, hasDefault bool) (*store.Record, bool, error) {
	if !hasDefault {
		return nil, false, errs.NotFound(fmt.Sprintf("key %q not found", key)).
			WithSolution("check the key name, or pass --default to supply a fallback value")
	}
	now := util.NowUnix()
	return &store.Record{
		PartitionKey: store.PartitionKey(store.NamespaceKV, key),
		SortKey:      store.SingletonSortKey(store.NamespaceKV, key),
		Type:         string(store.NamespaceKV),
		Value:        def,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, true, nil
}

// Delete removes key. If hasIfValue is set, the delete is conditioned on
// the stored value matching it. Deleting an absent key is idempotent
// success.
func (p *Primitive) Delete(ctx context.Context, key string, ifValue any, hasIfValue bool) error {
	if err := store.ValidateName(key); err != nil {
		return err
	}
	pk := store.PartitionKey(store.NamespaceKV, key)

	var cond *expression.ConditionBuilder
	if hasIfValue {
		c := expression.Name("value").Equal(expression.Value(ifValue))
		cond = &c
	}

	err := p.driver.DeleteItem(ctx, store.Key{PartitionKey: pk, SortKey: pk}, cond)
	if err != nil {
		if errs.Is(err, errs.KindConditionFailed) {
			return errs.ConditionFailed(fmt.Sprintf("key %q does not hold the expected value", key)).
				WithSolution("re-read the key with `kv get` to see its current value")
		}
		return err
	}
	return nil
}

// Exists reports whether key is present and unexpired, using an
// eventually consistent GetItem of the whole item. The read is not
// projection-only: store.Driver.GetItem takes no projection.
func (p *Primitive) Exists(ctx context.Context, key string) (bool, error) {
	if err := store.ValidateName(key); err != nil {
		return false, err
	}
	pk := store.PartitionKey(store.NamespaceKV, key)
	rec, err := p.driver.GetItem(ctx, store.Key{PartitionKey: pk, SortKey: pk}, false)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	return !rec.Expired(util.NowUnix()), nil
}

// List enumerates keys under a partition-key prefix using the type index
// (type, updatedAt) with client-side prefix filtering, per spec.md
// section 4.3.
func (p *Primitive) List(ctx context.Context, prefix string, limit int32) ([]store.Record, error) {
	pkPrefix := store.PartitionKey(store.NamespaceKV, prefix)
	typeEq := expression.Key("type").Equal(expression.Value(string(store.NamespaceKV)))
	filter := expression.Name("partitionKey").BeginsWith(pkPrefix)

	result, err := p.driver.Query(ctx, store.QueryInput{
		IndexName:    "type-updatedAt-index",
		KeyCondition: typeEq,
		Filter:       &filter,
		Limit:        limit,
		Ascending:    false,
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
