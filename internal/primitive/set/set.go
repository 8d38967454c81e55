// Package set implements the Set primitive half of C8 from spec.md
// section 4.8: each member is its own item under a shared partition key.
package set

import (
	"context"

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

// Add is idempotent: a plain put overwrites a member's own item with
// identical content, satisfying property P6.
func (p *Primitive) Add(ctx context.Context, name, member string) error {
	if err := store.ValidateName(name); err != nil {
		return err
	}
	if err := store.ValidateName(member); err != nil {
		return err
	}
	now := util.NowUnix()
	rec := store.Record{
		PartitionKey: store.PartitionKey(store.NamespaceSet, name),
		SortKey:      store.SetMemberSortKey(name, member),
		Type:         string(store.NamespaceSet),
		Value:        member,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return p.driver.PutItem(ctx, rec, nil)
}

// Rem is an idempotent delete: removing an absent member is a no-op
// success.
func (p *Primitive) Rem(ctx context.Context, name, member string) error {
	if err := store.ValidateName(name); err != nil {
		return err
	}
	pk := store.PartitionKey(store.NamespaceSet, name)
	return p.driver.DeleteItem(ctx, store.Key{PartitionKey: pk, SortKey: store.SetMemberSortKey(name, member)}, nil)
}

// IsMember performs a single GetItem.
func (p *Primitive) IsMember(ctx context.Context, name, member string) (bool, error) {
	if err := store.ValidateName(name); err != nil {
		return false, err
	}
	pk := store.PartitionKey(store.NamespaceSet, name)
	_, err := p.driver.GetItem(ctx, store.Key{PartitionKey: pk, SortKey: store.SetMemberSortKey(name, member)}, true)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Members queries the whole partition for name.
func (p *Primitive) Members(ctx context.Context, name string) ([]string, error) {
	recs, err := p.query(ctx, name, false)
	if err != nil {
		return nil, err
	}
	members := make([]string, 0, len(recs.Items))
	for _, rec := range recs.Items {
		if s, ok := rec.Value.(string); ok {
			members = append(members, s)
		}
	}
	return members, nil
}

// Card counts members via Select=COUNT.
func (p *Primitive) Card(ctx context.Context, name string) (int32, error) {
	result, err := p.query(ctx, name, true)
	if err != nil {
		return 0, err
	}
	return result.Count, nil
}

func (p *Primitive) query(ctx context.Context, name string, countOnly bool) (*store.QueryResult, error) {
	if err := store.ValidateName(name); err != nil {
		return nil, err
	}
	pk := store.PartitionKey(store.NamespaceSet, name)
	keyCond := expression.Key("partitionKey").Equal(expression.Value(pk)).
		And(expression.Key("sortKey").BeginsWith(store.SetPartitionPrefix(name)))
	return p.driver.Query(ctx, store.QueryInput{KeyCondition: keyCond, CountOnly: countOnly})
}
