package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/dnvriend/aws-primitives-tool/internal/errs"
)

const (
	// maxTransactActions and maxTransactBytes are the client-side guard
	// from spec.md section 4.1: TransactWrite is rejected before ever
	// contacting the service if it would exceed either limit.
	maxTransactActions = 100
	maxTransactBytes   = 4 * 1024 * 1024
)

// Key identifies one item by its two-part key.
type Key struct {
	PartitionKey string
	SortKey      string
}

// QueryInput describes a Query call. KeyCondition is required; Filter,
// Limit and IndexName are optional.
type QueryInput struct {
	IndexName      string
	KeyCondition   expression.KeyConditionBuilder
	Filter         *expression.ConditionBuilder
	Limit          int32
	Ascending      bool
	ConsistentRead bool
	CountOnly      bool
}

// QueryResult carries the decoded page and, for CountOnly queries, the
// item count.
type QueryResult struct {
	Items []Record
	Count int32
}

// TransactAction is one action inside a TransactWrite batch (C9 builds
// these from a parsed operation-batch description; primitives build them
// directly for two-item transactions like list push/pop).
type TransactAction struct {
	Put            *Record
	PutCondition   *expression.ConditionBuilder
	Update         *UpdateSpec
	Delete         *Key
	DeleteCondition *expression.ConditionBuilder
	ConditionCheck *Key
	CheckCondition *expression.ConditionBuilder
}

// UpdateSpec describes an UpdateItem call's target key, update
// expression, and optional condition.
type UpdateSpec struct {
	Key       Key
	Update    expression.UpdateBuilder
	Condition *expression.ConditionBuilder
}

// Driver is the typed wrapper over the item store from spec.md section
// 4.1 (C1). Every method returns one of the taxonomy Kinds from
// internal/errs; callers never see a raw AWS SDK error.
type Driver interface {
	PutItem(ctx context.Context, item Record, condition *expression.ConditionBuilder) error
	GetItem(ctx context.Context, key Key, consistentRead bool) (*Record, error)
	UpdateItem(ctx context.Context, spec UpdateSpec, returnUpdated bool) (*Record, error)
	DeleteItem(ctx context.Context, key Key, condition *expression.ConditionBuilder) error
	Query(ctx context.Context, input QueryInput) (*QueryResult, error)
	TransactWrite(ctx context.Context, actions []TransactAction) error
	TransactGet(ctx context.Context, keys []Key) ([]*Record, error)
}

// dynamoDriver is the production Driver, generalizing the teacher's
// DistributedLock (which wraps *dynamodb.Client for one PK/SK shape)
// into the full seven-operation contract spec.md names.
type dynamoDriver struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewDynamoDriver constructs a Driver bound to one table, mirroring the
// teacher's NewDistributedLock constructor shape (explicit client,
// table name, logger — no globals, per spec.md section 9).
func NewDynamoDriver(client *dynamodb.Client, tableName string, logger *zap.Logger) Driver {
	return &dynamoDriver{client: client, tableName: tableName, logger: logger}
}

func (d *dynamoDriver) PutItem(ctx context.Context, item Record, condition *expression.ConditionBuilder) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return errs.InvalidArgument("failed to encode item").WithCause(err)
	}

	input := &dynamodb.PutItemInput{
		TableName: &d.tableName,
		Item:      av,
	}
	if condition != nil {
		expr, err := expression.NewBuilder().WithCondition(*condition).Build()
		if err != nil {
			return errs.InvalidArgument("failed to build condition expression").WithCause(err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	_, err = d.client.PutItem(ctx, input)
	if err != nil {
		return d.classify(err, "PutItem", item.PartitionKey, item.SortKey)
	}
	return nil
}

func (d *dynamoDriver) GetItem(ctx context.Context, key Key, consistentRead bool) (*Record, error) {
	input := &dynamodb.GetItemInput{
		TableName:      &d.tableName,
		Key:            keyAV(key),
		ConsistentRead: &consistentRead,
	}
	out, err := d.client.GetItem(ctx, input)
	if err != nil {
		return nil, d.classify(err, "GetItem", key.PartitionKey, key.SortKey)
	}
	if len(out.Item) == 0 {
		return nil, errs.NotFound(fmt.Sprintf("no item at %s / %s", key.PartitionKey, key.SortKey))
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, errs.ServiceError("failed to decode item").WithCause(err)
	}
	return &rec, nil
}

func (d *dynamoDriver) UpdateItem(ctx context.Context, spec UpdateSpec, returnUpdated bool) (*Record, error) {
	builder := expression.NewBuilder().WithUpdate(spec.Update)
	if spec.Condition != nil {
		builder = builder.WithCondition(*spec.Condition)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, errs.InvalidArgument("failed to build update expression").WithCause(err)
	}

	returnValues := types.ReturnValueNone
	if returnUpdated {
		returnValues = types.ReturnValueAllNew
	}

	input := &dynamodb.UpdateItemInput{
		TableName:                 &d.tableName,
		Key:                       keyAV(spec.Key),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              returnValues,
	}

	out, err := d.client.UpdateItem(ctx, input)
	if err != nil {
		return nil, d.classify(err, "UpdateItem", spec.Key.PartitionKey, spec.Key.SortKey)
	}
	if !returnUpdated || len(out.Attributes) == 0 {
		return nil, nil
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(out.Attributes, &rec); err != nil {
		return nil, errs.ServiceError("failed to decode updated item").WithCause(err)
	}
	return &rec, nil
}

func (d *dynamoDriver) DeleteItem(ctx context.Context, key Key, condition *expression.ConditionBuilder) error {
	input := &dynamodb.DeleteItemInput{
		TableName: &d.tableName,
		Key:       keyAV(key),
	}
	if condition != nil {
		expr, err := expression.NewBuilder().WithCondition(*condition).Build()
		if err != nil {
			return errs.InvalidArgument("failed to build condition expression").WithCause(err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}
	_, err := d.client.DeleteItem(ctx, input)
	if err != nil {
		return d.classify(err, "DeleteItem", key.PartitionKey, key.SortKey)
	}
	return nil
}

func (d *dynamoDriver) Query(ctx context.Context, in QueryInput) (*QueryResult, error) {
	builder := expression.NewBuilder().WithKeyCondition(in.KeyCondition)
	if in.Filter != nil {
		builder = builder.WithFilter(*in.Filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, errs.InvalidArgument("failed to build query expression").WithCause(err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 &d.tableName,
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          &in.Ascending,
		ConsistentRead:            &in.ConsistentRead,
	}
	if in.IndexName != "" {
		input.IndexName = &in.IndexName
	}
	if in.Limit > 0 {
		input.Limit = &in.Limit
	}
	if in.CountOnly {
		input.Select = types.SelectCount
	}

	out, err := d.client.Query(ctx, input)
	if err != nil {
		return nil, d.classify(err, "Query", "", "")
	}

	result := &QueryResult{Count: out.Count}
	if !in.CountOnly {
		result.Items = make([]Record, 0, len(out.Items))
		for _, av := range out.Items {
			var rec Record
			if err := attributevalue.UnmarshalMap(av, &rec); err != nil {
				return nil, errs.ServiceError("failed to decode query item").WithCause(err)
			}
			result.Items = append(result.Items, rec)
		}
	}
	return result, nil
}

func (d *dynamoDriver) TransactWrite(ctx context.Context, actions []TransactAction) error {
	if len(actions) > maxTransactActions {
		return errs.InvalidArgument(fmt.Sprintf("transaction has %d actions, limit is %d", len(actions), maxTransactActions))
	}

	items := make([]types.TransactWriteItem, 0, len(actions))
	approxBytes := 0
	seen := make(map[string]bool, len(actions))

	for i, a := range actions {
		item, key, err := d.buildTransactWriteItem(a)
		if err != nil {
			return errs.InvalidArgument(fmt.Sprintf("action %d: %v", i, err))
		}
		if key != "" {
			if seen[key] {
				return errs.InvalidArgument(fmt.Sprintf("action %d targets the same item (%s) as an earlier action", i, key))
			}
			seen[key] = true
		}
		approxBytes += approxItemSize(item)
		items = append(items, item)
	}
	if approxBytes > maxTransactBytes {
		return errs.InvalidArgument(fmt.Sprintf("transaction payload is ~%d bytes, limit is %d", approxBytes, maxTransactBytes))
	}

	_, err := d.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		return d.classifyTransact(err)
	}
	return nil
}

func (d *dynamoDriver) TransactGet(ctx context.Context, keys []Key) ([]*Record, error) {
	items := make([]types.TransactGetItem, 0, len(keys))
	for _, k := range keys {
		items = append(items, types.TransactGetItem{
			Get: &types.Get{
				TableName: &d.tableName,
				Key:       keyAV(k),
			},
		})
	}
	out, err := d.client.TransactGetItems(ctx, &dynamodb.TransactGetItemsInput{TransactItems: items})
	if err != nil {
		return nil, d.classify(err, "TransactGetItems", "", "")
	}
	results := make([]*Record, len(out.Responses))
	for i, resp := range out.Responses {
		if len(resp.Item) == 0 {
			continue
		}
		var rec Record
		if err := attributevalue.UnmarshalMap(resp.Item, &rec); err != nil {
			return nil, errs.ServiceError("failed to decode transact-get item").WithCause(err)
		}
		results[i] = &rec
	}
	return results, nil
}

func (d *dynamoDriver) buildTransactWriteItem(a TransactAction) (types.TransactWriteItem, string, error) {
	switch {
	case a.Put != nil:
		av, err := attributevalue.MarshalMap(*a.Put)
		if err != nil {
			return types.TransactWriteItem{}, "", err
		}
		put := &types.Put{TableName: &d.tableName, Item: av}
		if a.PutCondition != nil {
			if err := applyCondition(a.PutCondition, &put.ConditionExpression, &put.ExpressionAttributeNames, &put.ExpressionAttributeValues); err != nil {
				return types.TransactWriteItem{}, "", err
			}
		}
		return types.TransactWriteItem{Put: put}, a.Put.PartitionKey + "/" + a.Put.SortKey, nil

	case a.Update != nil:
		builder := expression.NewBuilder().WithUpdate(a.Update.Update)
		if a.Update.Condition != nil {
			builder = builder.WithCondition(*a.Update.Condition)
		}
		expr, err := builder.Build()
		if err != nil {
			return types.TransactWriteItem{}, "", err
		}
		upd := &types.Update{
			TableName:                 &d.tableName,
			Key:                       keyAV(a.Update.Key),
			UpdateExpression:          expr.Update(),
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		}
		return types.TransactWriteItem{Update: upd}, a.Update.Key.PartitionKey + "/" + a.Update.Key.SortKey, nil

	case a.Delete != nil:
		del := &types.Delete{TableName: &d.tableName, Key: keyAV(*a.Delete)}
		if a.DeleteCondition != nil {
			if err := applyCondition(a.DeleteCondition, &del.ConditionExpression, &del.ExpressionAttributeNames, &del.ExpressionAttributeValues); err != nil {
				return types.TransactWriteItem{}, "", err
			}
		}
		return types.TransactWriteItem{Delete: del}, a.Delete.PartitionKey + "/" + a.Delete.SortKey, nil

	case a.ConditionCheck != nil:
		check := &types.ConditionCheck{TableName: &d.tableName, Key: keyAV(*a.ConditionCheck)}
		if a.CheckCondition != nil {
			if err := applyCondition(a.CheckCondition, &check.ConditionExpression, &check.ExpressionAttributeNames, &check.ExpressionAttributeValues); err != nil {
				return types.TransactWriteItem{}, "", err
			}
		}
		return types.TransactWriteItem{ConditionCheck: check}, a.ConditionCheck.PartitionKey + "/" + a.ConditionCheck.SortKey, nil
	}
	return types.TransactWriteItem{}, "", fmt.Errorf("empty transact action")
}

func applyCondition(cond *expression.ConditionBuilder, exprOut **string, namesOut *map[string]string, valuesOut *map[string]types.AttributeValue) error {
	built, err := expression.NewBuilder().WithCondition(*cond).Build()
	if err != nil {
		return err
	}
	*exprOut = built.Condition()
	*namesOut = built.Names()
	*valuesOut = built.Values()
	return nil
}

func keyAV(k Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"partitionKey": &types.AttributeValueMemberS{Value: k.PartitionKey},
		"sortKey":      &types.AttributeValueMemberS{Value: k.SortKey},
	}
}

// approxItemSize is a rough byte-size estimate used only for the
// client-side 4MB transaction guard in spec.md section 4.1; DynamoDB's
// own accounting is authoritative and this never needs to be exact.
func approxItemSize(item types.TransactWriteItem) int {
	switch {
	case item.Put != nil:
		return len(item.Put.Item) * 64
	case item.Update != nil:
		return 512
	case item.Delete != nil:
		return 128
	case item.ConditionCheck != nil:
		return 128
	}
	return 0
}
