// Package topic implements the Topic contract half of C12 from spec.md
// section 4.12, a thin adapter over aws-sdk-go-v2/service/sns.
package topic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/dnvriend/aws-primitives-tool/internal/errs"
)

type Primitive struct {
	client *sns.Client
	logger *zap.Logger
}

func New(client *sns.Client, logger *zap.Logger) *Primitive {
	return &Primitive{client: client, logger: logger}
}

// Create provisions a topic, appending the ".fifo" suffix SNS requires
// of ordered (FIFO) topics.
func (p *Primitive) Create(ctx context.Context, name string, ordered, contentDedup bool) (string, error) {
	attrs := map[string]string{}
	topicName := name
	if ordered {
		if !strings.HasSuffix(name, ".fifo") {
			topicName = name + ".fifo"
		}
		attrs["FifoTopic"] = "true"
		if contentDedup {
			attrs["ContentBasedDeduplication"] = "true"
		}
	}

	out, err := p.client.CreateTopic(ctx, &sns.CreateTopicInput{
		Name:       aws.String(topicName),
		Attributes: attrs,
	})
	if err != nil {
		return "", classify(err, "CreateTopic")
	}
	return aws.ToString(out.TopicArn), nil
}

// Publish sends body to topicArn. groupId is required for ordered
// (FIFO) topics, per spec.md section 4.12.
func (p *Primitive) Publish(ctx context.Context, topicArn, body, groupID, dedupID, subject string, attributes map[string]string) (string, error) {
	if strings.HasSuffix(topicArn, ".fifo") && groupID == "" {
		return "", errs.InvalidArgument("ordered topics require --group-id").
			WithSolution("pass --group-id to publish to a FIFO topic")
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(topicArn),
		Message:  aws.String(body),
	}
	if subject != "" {
		input.Subject = aws.String(subject)
	}
	if groupID != "" {
		input.MessageGroupId = aws.String(groupID)
	}
	if dedupID != "" {
		input.MessageDeduplicationId = aws.String(dedupID)
	}
	if len(attributes) > 0 {
		input.MessageAttributes = toMessageAttributes(attributes)
	}

	out, err := p.client.Publish(ctx, input)
	if err != nil {
		return "", classify(err, "Publish")
	}
	return aws.ToString(out.MessageId), nil
}

// ListTopics enumerates every topic in the account/region.
func (p *Primitive) ListTopics(ctx context.Context) ([]string, error) {
	var arns []string
	paginator := sns.NewListTopicsPaginator(p.client, &sns.ListTopicsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify(err, "ListTopics")
		}
		for _, t := range page.Topics {
			arns = append(arns, aws.ToString(t.TopicArn))
		}
	}
	return arns, nil
}

// DeleteTopic removes topicArn.
func (p *Primitive) DeleteTopic(ctx context.Context, topicArn string) error {
	_, err := p.client.DeleteTopic(ctx, &sns.DeleteTopicInput{TopicArn: aws.String(topicArn)})
	if err != nil {
		return classify(err, "DeleteTopic")
	}
	return nil
}

// GetAttributes returns topicArn's full attribute map.
func (p *Primitive) GetAttributes(ctx context.Context, topicArn string) (map[string]string, error) {
	out, err := p.client.GetTopicAttributes(ctx, &sns.GetTopicAttributesInput{TopicArn: aws.String(topicArn)})
	if err != nil {
		return nil, classify(err, "GetTopicAttributes")
	}
	return out.Attributes, nil
}

// Subscription describes one entry from ListSubscriptions.
type Subscription struct {
	SubscriptionArn string
	Protocol        string
	Endpoint        string
}

// ListSubscriptions enumerates topicArn's subscriptions.
func (p *Primitive) ListSubscriptions(ctx context.Context, topicArn string) ([]Subscription, error) {
	var subs []Subscription
	paginator := sns.NewListSubscriptionsByTopicPaginator(p.client, &sns.ListSubscriptionsByTopicInput{TopicArn: aws.String(topicArn)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify(err, "ListSubscriptionsByTopic")
		}
		for _, s := range page.Subscriptions {
			subs = append(subs, Subscription{
				SubscriptionArn: aws.ToString(s.SubscriptionArn),
				Protocol:        aws.ToString(s.Protocol),
				Endpoint:        aws.ToString(s.Endpoint),
			})
		}
	}
	return subs, nil
}

// SetAccessPolicy replaces topicArn's resource policy document.
func (p *Primitive) SetAccessPolicy(ctx context.Context, topicArn, policyJSON string) error {
	_, err := p.client.SetTopicAttributes(ctx, &sns.SetTopicAttributesInput{
		TopicArn:       aws.String(topicArn),
		AttributeName:  aws.String("Policy"),
		AttributeValue: aws.String(policyJSON),
	})
	if err != nil {
		return classify(err, "SetTopicAttributes")
	}
	return nil
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
		case "NotFound":
			return errs.NotFound(fmt.Sprintf("%s: topic not found", op)).WithCause(err)
		case "Throttling", "ThrottledException":
			return errs.ServiceThrottled(fmt.Sprintf("%s was throttled", op)).WithCause(err)
		case "AuthorizationError", "AccessDenied":
			return errs.PermissionDenied(fmt.Sprintf("%s was denied", op)).WithCause(err)
		case "InvalidParameter", "ValidationException":
			return errs.InvalidArgument(fmt.Sprintf("%s: invalid parameter", op)).WithCause(err)
		}
	}
	return errs.ServiceError(fmt.Sprintf("%s failed", op)).WithCause(err)
}
