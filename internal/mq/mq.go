// Package mq implements the Message-Queue contract half of C12 from
// spec.md section 4.12, a thin adapter over aws-sdk-go-v2/service/sqs.
package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/dnvriend/aws-primitives-tool/internal/errs"
)

type Primitive struct {
	client    *sqs.Client
	snsClient *sns.Client
	logger    *zap.Logger
}

func New(client *sqs.Client, snsClient *sns.Client, logger *zap.Logger) *Primitive {
	return &Primitive{client: client, snsClient: snsClient, logger: logger}
}

// CreateOptions carries spec.md section 4.12's create() parameters.
type CreateOptions struct {
	Ordered          bool
	VisibilityTimeoutSeconds int32
	RetentionSeconds int32
	DeliveryDelaySeconds int32
	ReceiveWaitSeconds   int32
	DeadLetterQueueArn   string
	MaxReceiveCount      int32
	ContentDedup         bool
}

// Create provisions a queue, appending the ".fifo" suffix SQS requires
// of ordered queues ("ordered queues require a name suffix convention",
// per spec.md section 4.12).
func (p *Primitive) Create(ctx context.Context, name string, opts CreateOptions) (string, error) {
	queueName := name
	attrs := map[string]string{}
	if opts.Ordered {
		if !strings.HasSuffix(name, ".fifo") {
			queueName = name + ".fifo"
		}
		attrs["FifoQueue"] = "true"
		if opts.ContentDedup {
			attrs["ContentBasedDeduplication"] = "true"
		}
	}
	if opts.VisibilityTimeoutSeconds > 0 {
		attrs["VisibilityTimeout"] = fmt.Sprintf("%d", opts.VisibilityTimeoutSeconds)
	}
	if opts.RetentionSeconds > 0 {
		attrs["MessageRetentionPeriod"] = fmt.Sprintf("%d", opts.RetentionSeconds)
	}
	if opts.DeliveryDelaySeconds > 0 {
		attrs["DelaySeconds"] = fmt.Sprintf("%d", opts.DeliveryDelaySeconds)
	}
	if opts.ReceiveWaitSeconds > 0 {
		attrs["ReceiveMessageWaitTimeSeconds"] = fmt.Sprintf("%d", opts.ReceiveWaitSeconds)
	}
	if opts.DeadLetterQueueArn != "" && opts.MaxReceiveCount > 0 {
		attrs["RedrivePolicy"] = fmt.Sprintf(`{"deadLetterTargetArn":"%s","maxReceiveCount":%d}`, opts.DeadLetterQueueArn, opts.MaxReceiveCount)
	}

	out, err := p.client.CreateQueue(ctx, &sqs.CreateQueueInput{
		QueueName:  aws.String(queueName),
		Attributes: attrs,
	})
	if err != nil {
		return "", classify(err, "CreateQueue")
	}
	return aws.ToString(out.QueueUrl), nil
}

// Send delivers body to queueURL. Ordered (FIFO) queues require
// groupID, per spec.md section 4.12.
func (p *Primitive) Send(ctx context.Context, queueURL, body, groupID, dedupID string, delaySeconds int32, attributes map[string]string) (string, error) {
	if strings.HasSuffix(queueURL, ".fifo") && groupID == "" {
		return "", errs.InvalidArgument("ordered queues require --group-id").
			WithSolution("pass --group-id to send to a FIFO queue")
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(body),
	}
	if groupID != "" {
		input.MessageGroupId = aws.String(groupID)
	}
	if dedupID != "" {
		input.MessageDeduplicationId = aws.String(dedupID)
	}
	if delaySeconds > 0 {
		input.DelaySeconds = delaySeconds
	}
	if len(attributes) > 0 {
		input.MessageAttributes = toMessageAttributes(attributes)
	}

	out, err := p.client.SendMessage(ctx, input)
	if err != nil {
		return "", classify(err, "SendMessage")
	}
	return aws.ToString(out.MessageId), nil
}

// Message is one entry returned by Receive.
type Message struct {
	Body          string
	ReceiptHandle string
	Attributes    map[string]string
}

// Receive polls queueURL for up to max (1-10) messages, per spec.md
// section 4.12, optionally auto-deleting each one immediately after
// receipt.
func (p *Primitive) Receive(ctx context.Context, queueURL string, max int32, visibilityTimeout, waitSeconds int32, autoDelete bool) ([]Message, error) {
	if max < 1 || max > 10 {
		return nil, errs.InvalidArgument("--max must be in [1,10]")
	}
	if waitSeconds < 0 || waitSeconds > 20 {
		return nil, errs.InvalidArgument("--wait-seconds must be in [0,20]")
	}

	input := &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(queueURL),
		MaxNumberOfMessages: max,
		WaitTimeSeconds:     waitSeconds,
		MessageAttributeNames: []string{"All"},
	}
	if visibilityTimeout > 0 {
		input.VisibilityTimeout = visibilityTimeout
	}

	out, err := p.client.ReceiveMessage(ctx, input)
	if err != nil {
		return nil, classify(err, "ReceiveMessage")
	}

	messages := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		attrs := make(map[string]string, len(m.MessageAttributes))
		for k, v := range m.MessageAttributes {
			attrs[k] = aws.ToString(v.StringValue)
		}
		messages = append(messages, Message{
			Body:          aws.ToString(m.Body),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
			Attributes:    attrs,
		})
		if autoDelete {
			if err := p.Delete(ctx, queueURL, aws.ToString(m.ReceiptHandle)); err != nil {
				return messages, err
			}
		}
	}
	return messages, nil
}

// Delete removes the message identified by receipt.
func (p *Primitive) Delete(ctx context.Context, queueURL, receipt string) error {
	_, err := p.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{QueueUrl: aws.String(queueURL), ReceiptHandle: aws.String(receipt)})
	if err != nil {
		return classify(err, "DeleteMessage")
	}
	return nil
}

// Purge deletes every message currently in queueURL.
func (p *Primitive) Purge(ctx context.Context, queueURL string) error {
	_, err := p.client.PurgeQueue(ctx, &sqs.PurgeQueueInput{QueueUrl: aws.String(queueURL)})
	if err != nil {
		return classify(err, "PurgeQueue")
	}
	return nil
}

// DeleteQueue removes queueURL entirely.
func (p *Primitive) DeleteQueue(ctx context.Context, queueURL string) error {
	_, err := p.client.DeleteQueue(ctx, &sqs.DeleteQueueInput{QueueUrl: aws.String(queueURL)})
	if err != nil {
		return classify(err, "DeleteQueue")
	}
	return nil
}

// GetAttributes returns queueURL's full attribute map.
func (p *Primitive) GetAttributes(ctx context.Context, queueURL string) (map[string]string, error) {
	out, err := p.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(queueURL),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameAll},
	})
	if err != nil {
		return nil, classify(err, "GetQueueAttributes")
	}
	return out.Attributes, nil
}

// SetAttributes replaces one or more of queueURL's attributes.
func (p *Primitive) SetAttributes(ctx context.Context, queueURL string, attrs map[string]string) error {
	_, err := p.client.SetQueueAttributes(ctx, &sqs.SetQueueAttributesInput{
		QueueUrl:   aws.String(queueURL),
		Attributes: attrs,
	})
	if err != nil {
		return classify(err, "SetQueueAttributes")
	}
	return nil
}

// SubscribeToTopic subscribes queueURL's underlying ARN to topicArn.
// Enforces spec.md section 4.12's invariant that an ordered topic may
// only fan out to ordered queues, since SNS itself does not reject the
// combination for every endpoint kind at subscribe time — the CLI has
// to check it here.
func (p *Primitive) SubscribeToTopic(ctx context.Context, queueURL, queueArn, topicArn string, rawDelivery bool, filterPolicy, filterScope string) (string, error) {
	topicOrdered := strings.HasSuffix(topicArn, ".fifo")
	queueOrdered := strings.HasSuffix(queueArn, ".fifo")
	if topicOrdered && !queueOrdered {
		return "", errs.InvalidArgument("an ordered (FIFO) topic may only subscribe ordered (FIFO) queues").
			WithSolution("create the queue with --ordered before subscribing it to this topic")
	}

	attrs := map[string]string{}
	if rawDelivery {
		attrs["RawMessageDelivery"] = "true"
	}
	if filterPolicy != "" {
		attrs["FilterPolicy"] = filterPolicy
		if filterScope != "" {
			attrs["FilterPolicyScope"] = filterScope
		}
	}

	out, err := p.snsClient.Subscribe(ctx, &sns.SubscribeInput{
		TopicArn:   aws.String(topicArn),
		Protocol:   aws.String("sqs"),
		Endpoint:   aws.String(queueArn),
		Attributes: attrs,
	})
	if err != nil {
		return "", classify(err, "Subscribe")
	}
	return aws.ToString(out.SubscriptionArn), nil
}

func toMessageAttributes(attrs map[string]string) map[string]types.MessageAttributeValue {
	out := make(map[string]types.MessageAttributeValue, len(attrs))
	for k, v := range attrs {
		out[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}
	return out
}

func classify(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Timeout(fmt.Sprintf("%s did not complete within --timeout", op)).WithCause(err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AWS.SimpleQueueService.NonExistentQueue", "NotFound":
			return errs.NotFound(fmt.Sprintf("%s: queue not found", op)).WithCause(err)
		case "Throttling", "ThrottledException", "AWS.SimpleQueueService.TooManyEntriesInBatchRequest":
			return errs.ServiceThrottled(fmt.Sprintf("%s was throttled", op)).WithCause(err)
		case "AccessDenied", "AuthorizationError":
			return errs.PermissionDenied(fmt.Sprintf("%s was denied", op)).WithCause(err)
		case "InvalidParameterValue", "ValidationException":
			return errs.InvalidArgument(fmt.Sprintf("%s: invalid parameter", op)).WithCause(err)
		}
	}
	return errs.ServiceError(fmt.Sprintf("%s failed", op)).WithCause(err)
}
