// Package metrics provides a Recorder that publishes operation latencies
// to CloudWatch when enabled, per SPEC_FULL.md section 5's ambient metrics
// hook. It is a no-op Recorder when metrics are disabled, so callers
// never need to branch on the config flag themselves. It records no
// operation counts, and no command calls RecordLatency.
package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

const namespace = "AWSPrimitivesTool"

// Recorder emits operation metrics. Both implementations satisfy the
// same interface so construction (internal/config's EnableMetrics flag)
// is the only place that decides which one is wired in, matching the
// teacher's feature-flagged observability pattern.
type Recorder interface {
	RecordLatency(ctx context.Context, operation string, d time.Duration, success bool)
}

type noopRecorder struct{}

func (noopRecorder) RecordLatency(context.Context, string, time.Duration, bool) {}

// NewNoop returns a Recorder that discards every measurement.
func NewNoop() Recorder { return noopRecorder{} }

type cloudwatchRecorder struct {
	client *cloudwatch.Client
	logger *zap.Logger
}

// New returns a Recorder that publishes to CloudWatch under the
// "AWSPrimitivesTool" namespace, one PutMetricData call per recorded
// operation.
func New(client *cloudwatch.Client, logger *zap.Logger) Recorder {
	return &cloudwatchRecorder{client: client, logger: logger}
}

func (r *cloudwatchRecorder) RecordLatency(ctx context.Context, operation string, d time.Duration, success bool) {
	status := "Success"
	if !success {
		status = "Failure"
	}
	_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String("OperationLatencyMs"),
				Value:      aws.Float64(float64(d.Milliseconds())),
				Unit:       types.StandardUnitMilliseconds,
				Dimensions: []types.Dimension{
					{Name: aws.String("Operation"), Value: aws.String(operation)},
					{Name: aws.String("Status"), Value: aws.String(status)},
				},
			},
		},
	})
	if err != nil {
		r.logger.Debug("failed to publish metric", zap.String("operation", operation), zap.Error(err))
	}
}
