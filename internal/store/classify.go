package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/dnvriend/aws-primitives-tool/internal/errs"
)

// classify maps an AWS SDK error into the taxonomy from internal/errs,
// generalizing the single errors.As(&ConditionalCheckFailedException)
// dispatch in the teacher's distributed_lock.go to every error shape the
// item store can return.
func (d *dynamoDriver) classify(err error, op, pk, sk string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Timeout(fmt.Sprintf("%s did not complete within --timeout", op)).WithCause(err)
	}

	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		d.logger.Debug("condition failed", zap.String("op", op), zap.String("pk", pk), zap.String("sk", sk))
		return errs.ConditionFailed(fmt.Sprintf("conditional check failed for %s", op))
	}

	var resourceNotFound *types.ResourceNotFoundException
	if errors.As(err, &resourceNotFound) {
		return errs.ServiceError(fmt.Sprintf("table not found during %s", op)).
			WithSolution("check --table and that the table exists in the target region").
			WithCause(err)
	}

	var throughputExceeded *types.ProvisionedThroughputExceededException
	if errors.As(err, &throughputExceeded) {
		return errs.ServiceThrottled(fmt.Sprintf("%s was throttled", op)).WithCause(err)
	}
	var requestLimitExceeded *types.RequestLimitExceeded
	if errors.As(err, &requestLimitExceeded) {
		return errs.ServiceThrottled(fmt.Sprintf("%s was throttled", op)).WithCause(err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "ProvisionedThroughputExceededException":
			return errs.ServiceThrottled(fmt.Sprintf("%s was throttled", op)).WithCause(err)
		case "AccessDeniedException", "UnauthorizedException":
			return errs.PermissionDenied(fmt.Sprintf("%s was denied", op)).
				WithSolution("verify the active credentials/profile have dynamodb permissions on this table").
				WithCause(err)
		}
	}

	d.logger.Error("item-store call failed", zap.String("op", op), zap.Error(err))
	return errs.ServiceError(fmt.Sprintf("%s failed", op)).WithCause(err)
}

// classifyTransact additionally surfaces per-action cancellation reasons
// from TransactionCanceledException, per spec.md section 4.9's
// requirement that the transaction engine "identif[y] each failed
// action's index and cancellation reason".
func (d *dynamoDriver) classifyTransact(err error) error {
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		details := make(map[string]any, len(canceled.CancellationReasons))
		hasConditionFailure := false
		for i, reason := range canceled.CancellationReasons {
			code := ""
			if reason.Code != nil {
				code = *reason.Code
			}
			if code == "ConditionalCheckFailed" {
				hasConditionFailure = true
			}
			if code != "" && code != "None" {
				msg := ""
				if reason.Message != nil {
					msg = *reason.Message
				}
				details[fmt.Sprintf("action[%d]", i)] = fmt.Sprintf("%s: %s", code, msg)
			}
		}
		if hasConditionFailure {
			return errs.ConditionFailed("transaction canceled: one or more conditions failed").WithDetails(details)
		}
		return errs.ServiceError("transaction canceled").WithDetails(details).WithCause(err)
	}
	return d.classify(err, "TransactWriteItems", "", "")
}
