package blob

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dnvriend/aws-primitives-tool/internal/errs"
)

// classify maps an S3 SDK error into the shared taxonomy, generalizing
// internal/store's classify.go to the object-store error shapes.
func classify(err error, op, uri string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Timeout(fmt.Sprintf("%s did not complete within --timeout", op)).WithCause(err)
	}

	var notFound *types.NoSuchKey
	if errors.As(err, &notFound) {
		return errs.NotFound(fmt.Sprintf("no object at %s", uri))
	}
	var noBucket *types.NoSuchBucket
	if errors.As(err, &noBucket) {
		return errs.NotFound(fmt.Sprintf("no bucket for %s", uri)).
			WithSolution("check the bucket name and that it exists in the target region")
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return errs.ConditionFailed(fmt.Sprintf("precondition failed for %s during %s", uri, op))
		case "NotFound", "NoSuchKey":
			return errs.NotFound(fmt.Sprintf("no object at %s", uri))
		case "SlowDown", "ThrottlingException", "RequestTimeout":
			return errs.ServiceThrottled(fmt.Sprintf("%s was throttled", op)).WithCause(err)
		case "AccessDenied", "AllAccessDisabled":
			return errs.PermissionDenied(fmt.Sprintf("%s was denied for %s", op, uri)).
				WithSolution("verify the active credentials/profile have s3 permissions on this bucket").
				WithCause(err)
		}
	}

	return errs.ServiceError(fmt.Sprintf("%s failed for %s", op, uri)).WithCause(err)
}
