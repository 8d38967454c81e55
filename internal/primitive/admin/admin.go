// Package admin implements table-lifecycle and inventory operations
// (provisioning the backing DynamoDB table, and reporting per-key and
// whole-table metadata) that sit alongside, rather than inside, the
// item-store driver from internal/store: unlike every other primitive,
// these operations manage or inspect the table itself rather than one
// logical item inside it.
package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/dnvriend/aws-primitives-tool/internal/errs"
	"github.com/dnvriend/aws-primitives-tool/internal/store"
)

// TypeIndexName is the GSI every cross-type query in this tool relies
// on: hash key "type", range key "updatedAt", matching the name
// internal/primitive/kv.List already queries.
const TypeIndexName = "type-updatedAt-index"

// Primitive provisions and inspects the backing table. It talks to
// *dynamodb.Client and *cloudwatch.Client directly rather than through
// store.Driver, since CreateTable/DeleteTable/DescribeTable/Scan operate
// on the table itself, not on one item.
type Primitive struct {
	client    *dynamodb.Client
	cwClient  *cloudwatch.Client
	driver    store.Driver
	tableName string
	logger    *zap.Logger
}

func New(client *dynamodb.Client, cwClient *cloudwatch.Client, driver store.Driver, tableName string, logger *zap.Logger) *Primitive {
	return &Primitive{client: client, cwClient: cwClient, driver: driver, tableName: tableName, logger: logger}
}

// BillingMode selects the table's capacity mode at creation.
type BillingMode string

const (
	BillingOnDemand   BillingMode = "on-demand"
	BillingProvisioned BillingMode = "provisioned"
)

// Create provisions the backing table with the partitionKey/sortKey
// primary key and the type-updatedAt-index global secondary index every
// other primitive depends on, then enables TTL on the "ttl" attribute.
func (p *Primitive) Create(ctx context.Context, billing BillingMode, readCapacity, writeCapacity int64) error {
	mode := types.BillingModePayPerRequest
	var throughput *types.ProvisionedThroughput
	var gsiThroughput *types.ProvisionedThroughput
	if billing == BillingProvisioned {
		mode = types.BillingModeProvisioned
		if readCapacity <= 0 || writeCapacity <= 0 {
			return errs.InvalidArgument("--read-capacity and --write-capacity are required for --billing provisioned")
		}
		throughput = &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(readCapacity),
			WriteCapacityUnits: aws.Int64(writeCapacity),
		}
		gsiThroughput = throughput
	}

	input := &dynamodb.CreateTableInput{
		TableName: aws.String(p.tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("partitionKey"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("sortKey"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("type"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("updatedAt"), AttributeType: types.ScalarAttributeTypeN},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("partitionKey"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("sortKey"), KeyType: types.KeyTypeRange},
		},
		BillingMode: mode,
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(TypeIndexName),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("type"), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String("updatedAt"), KeyType: types.KeyTypeRange},
				},
				Projection:            &types.Projection{ProjectionType: types.ProjectionTypeAll},
				ProvisionedThroughput: gsiThroughput,
			},
		},
		ProvisionedThroughput: throughput,
		Tags: []types.Tag{
			{Key: aws.String("ManagedBy"), Value: aws.String("aws-primitives-tool")},
		},
	}

	if _, err := p.client.CreateTable(ctx, input); err != nil {
		return classify(err, "CreateTable", p.tableName)
	}

	waiter := dynamodb.NewTableExistsWaiter(p.client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(p.tableName)}, 5*time.Minute); err != nil {
		return errs.ServiceError(fmt.Sprintf("table %q did not become active", p.tableName)).WithCause(err)
	}

	_, err := p.client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(p.tableName),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			Enabled:       aws.Bool(true),
			AttributeName: aws.String("ttl"),
		},
	})
	if err != nil {
		return classify(err, "UpdateTimeToLive", p.tableName)
	}
	return nil
}

// Drop deletes the backing table. approve guards against accidental data
// loss: without it, Drop refuses with InvalidArgument before contacting
// the service at all.
func (p *Primitive) Drop(ctx context.Context, approve bool) error {
	if !approve {
		return errs.InvalidArgument(fmt.Sprintf("dropping table %q requires --approve", p.tableName)).
			WithSolution("re-run with --approve once you are sure you want to permanently delete this table and its data")
	}
	if _, err := p.client.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(p.tableName)}); err != nil {
		return classify(err, "DeleteTable", p.tableName)
	}
	return nil
}

// Status describes the backing table's health, capacity, and usage over
// the last hour.
type Status struct {
	TableName               string
	TableStatus              string
	ARN                      string
	CreationTime             time.Time
	ItemCount                int64
	SizeBytes                int64
	BillingMode              string
	ReadCapacityUnits        int64
	WriteCapacityUnits       int64
	ReadConsumedLastHour     float64
	WriteConsumedLastHour    float64
	GlobalSecondaryIndexes   int
}

// Status describes the table itself and, best-effort, its CloudWatch
// consumed-capacity metrics for the last hour. A CloudWatch failure
// (metrics not yet published for a freshly created table) never fails
// the call, matching the original tool's "metrics may not be available
// yet" tolerance.
func (p *Primitive) Status(ctx context.Context) (*Status, error) {
	out, err := p.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(p.tableName)})
	if err != nil {
		return nil, classify(err, "DescribeTable", p.tableName)
	}
	t := out.Table

	status := &Status{
		TableName:              aws.ToString(t.TableName),
		TableStatus:             string(t.TableStatus),
		ARN:                     aws.ToString(t.TableArn),
		ItemCount:               aws.ToInt64(t.ItemCount),
		SizeBytes:               aws.ToInt64(t.TableSizeBytes),
		GlobalSecondaryIndexes:  len(t.GlobalSecondaryIndexes),
		BillingMode:             "PROVISIONED",
	}
	if t.CreationDateTime != nil {
		status.CreationTime = *t.CreationDateTime
	}
	if t.BillingModeSummary != nil {
		status.BillingMode = string(t.BillingModeSummary.BillingMode)
	}
	if t.ProvisionedThroughput != nil {
		status.ReadCapacityUnits = aws.ToInt64(t.ProvisionedThroughput.ReadCapacityUnits)
		status.WriteCapacityUnits = aws.ToInt64(t.ProvisionedThroughput.WriteCapacityUnits)
	}

	if sum, err := p.consumedCapacity(ctx, "ConsumedReadCapacityUnits"); err == nil {
		status.ReadConsumedLastHour = sum
	}
	if sum, err := p.consumedCapacity(ctx, "ConsumedWriteCapacityUnits"); err == nil {
		status.WriteConsumedLastHour = sum
	}
	return status, nil
}

func (p *Primitive) consumedCapacity(ctx context.Context, metricName string) (float64, error) {
	end := time.Now()
	start := end.Add(-1 * time.Hour)
	out, err := p.cwClient.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String("AWS/DynamoDB"),
		MetricName: aws.String(metricName),
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String("TableName"), Value: aws.String(p.tableName)},
		},
		StartTime:  aws.Time(start),
		EndTime:    aws.Time(end),
		Period:     aws.Int32(3600),
		Statistics: []cwtypes.Statistic{cwtypes.StatisticSum},
	})
	if err != nil {
		p.logger.Debug("cloudwatch metric unavailable", zap.String("metric", metricName), zap.Error(err))
		return 0, err
	}
	if len(out.Datapoints) == 0 {
		return 0, nil
	}
	return aws.ToFloat64(out.Datapoints[0].Sum), nil
}

// KeyInfo describes one logical key's metadata: its type, timestamps,
// TTL, and type-specific detail, mirroring the per-type fields the
// original tool's info command surfaces.
type KeyInfo struct {
	Key        string
	Type       string
	CreatedAt  int64
	UpdatedAt  int64
	TTL        *int64
	Value      any
	ValueSize  int
	ItemCount  int
	MemberCount int
	Owner      string
	AcquiredAt int64
	NodeID     string
	ElectedAt  int64
}

// Info looks up everything stored under name in namespace ns by querying
// the base table on its partition key, covering both singleton items
// (kv, counter, lock, leader) and multi-item collections (list, set,
// queue), and summarizes it the way the item's type dictates.
func (p *Primitive) Info(ctx context.Context, ns store.Namespace, name string) (*KeyInfo, error) {
	if err := store.ValidateNamespace(ns); err != nil {
		return nil, err
	}
	if err := store.ValidateName(name); err != nil {
		return nil, err
	}
	pk := store.PartitionKey(ns, name)

	result, err := p.driver.Query(ctx, store.QueryInput{
		KeyCondition: expression.Key("partitionKey").Equal(expression.Value(pk)),
		Ascending:    true,
	})
	if err != nil {
		return nil, err
	}
	if len(result.Items) == 0 {
		return nil, errs.NotFound(fmt.Sprintf("key %q not found in namespace %q", name, ns)).
			WithSolution("check the key name and namespace, or list keys with the relevant primitive's list/range command")
	}

	first := result.Items[0]
	info := &KeyInfo{
		Key:       name,
		Type:      first.Type,
		CreatedAt: first.CreatedAt,
		UpdatedAt: first.UpdatedAt,
		TTL:       first.TTL,
	}

	switch store.Namespace(first.Type) {
	case store.NamespaceCounter:
		info.Value = first.Value
	case store.NamespaceKV:
		info.ValueSize = jsonSize(first.Value)
	case store.NamespaceList, store.NamespaceQueue:
		info.ItemCount = len(result.Items)
	case store.NamespaceSet:
		info.MemberCount = len(result.Items)
	case store.NamespaceLock:
		info.Owner, _ = first.Metadata["owner"].(string)
		info.AcquiredAt, _ = asInt64(first.Metadata["acquiredAt"])
	case store.NamespaceLeader:
		info.NodeID, _ = first.Value.(string)
		info.ElectedAt, _ = asInt64(first.Metadata["electedAt"])
	}
	return info, nil
}

// Stats scans the entire table and groups every item by type, producing
// the same inventory shape ("counters, lists, sets, queues, locks,
// leaders, kv_pairs, total_items") the original tool's table-wide stats
// command reports.
type Stats struct {
	Counters    []CounterStat
	Lists       []CollectionStat
	Sets        []CollectionStat
	Queues      []CollectionStat
	Locks       []LockStat
	Leaders     []LeaderStat
	KVPairs     int
	TotalItems  int
}

type CounterStat struct {
	Key   string
	Value any
}

type CollectionStat struct {
	Key  string
	Size int
}

type LockStat struct {
	Key   string
	Owner string
}

type LeaderStat struct {
	Key    string
	Leader string
}

func (p *Primitive) Stats(ctx context.Context) (*Stats, error) {
	seenLists := map[string]int{}
	seenSets := map[string]int{}
	seenQueues := map[string]int{}
	stats := &Stats{}

	paginator := dynamodb.NewScanPaginator(p.client, &dynamodb.ScanInput{TableName: aws.String(p.tableName)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify(err, "Scan", p.tableName)
		}
		for _, av := range page.Items {
			var rec store.Record
			if err := attributevalue.UnmarshalMap(av, &rec); err != nil {
				return nil, errs.ServiceError("failed to decode scanned item").WithCause(err)
			}
			stats.TotalItems++
			switch store.Namespace(rec.Type) {
			case store.NamespaceCounter:
				stats.Counters = append(stats.Counters, CounterStat{Key: rec.PartitionKey, Value: rec.Value})
			case store.NamespaceKV:
				stats.KVPairs++
			case store.NamespaceList:
				seenLists[rec.PartitionKey]++
			case store.NamespaceSet:
				seenSets[rec.PartitionKey]++
			case store.NamespaceQueue:
				seenQueues[rec.PartitionKey]++
			case store.NamespaceLock:
				owner, _ := rec.Metadata["owner"].(string)
				stats.Locks = append(stats.Locks, LockStat{Key: rec.PartitionKey, Owner: owner})
			case store.NamespaceLeader:
				leader, _ := rec.Value.(string)
				stats.Leaders = append(stats.Leaders, LeaderStat{Key: rec.PartitionKey, Leader: leader})
			}
		}
	}

	for k, size := range seenLists {
		stats.Lists = append(stats.Lists, CollectionStat{Key: k, Size: size})
	}
	for k, size := range seenSets {
		stats.Sets = append(stats.Sets, CollectionStat{Key: k, Size: size})
	}
	for k, size := range seenQueues {
		stats.Queues = append(stats.Queues, CollectionStat{Key: k, Size: size})
	}
	return stats, nil
}

func jsonSize(v any) int {
	s, ok := v.(string)
	if ok {
		return len(s)
	}
	return len(fmt.Sprint(v))
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

func classify(err error, op, tableName string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Timeout(fmt.Sprintf("%s did not complete within --timeout", op)).WithCause(err)
	}

	var inUse *types.ResourceInUseException
	if errors.As(err, &inUse) {
		return errs.AlreadyExists(fmt.Sprintf("table %q already exists", tableName)).
			WithSolution("drop it first with `table drop --approve`, or choose a different --table name").
			WithCause(err)
	}
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return errs.NotFound(fmt.Sprintf("table %q not found", tableName)).
			WithSolution("check --table and that the table exists in the target region").
			WithCause(err)
	}
	var limitExceeded *types.LimitExceededException
	if errors.As(err, &limitExceeded) {
		return errs.ServiceThrottled(fmt.Sprintf("%s hit an account table-limit, try again later", op)).WithCause(err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDeniedException", "UnauthorizedException":
			return errs.PermissionDenied(fmt.Sprintf("%s was denied", op)).WithCause(err)
		case "ThrottlingException":
			return errs.ServiceThrottled(fmt.Sprintf("%s was throttled", op)).WithCause(err)
		}
	}
	return errs.ServiceError(fmt.Sprintf("%s failed", op)).WithCause(err)
}
