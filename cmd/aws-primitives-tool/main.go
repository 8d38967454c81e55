// Command aws-primitives-tool exposes the distributed-systems primitives
// under internal/primitive, internal/blob, internal/topic, and internal/mq
// as a single cobra CLI over a shared DynamoDB table and S3/SNS/SQS.
package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/dnvriend/aws-primitives-tool/internal/cli"
	"github.com/dnvriend/aws-primitives-tool/internal/errs"
)

var version = "dev"

func main() {
	root, app := cli.NewRootCommand(version)
	ctx := context.Background()

	err := root.ExecuteContext(ctx)
	if err == nil {
		os.Exit(0)
	}

	logger := app.Logger
	verbose := false
	if app.Config != nil {
		verbose = app.Config.Verbose
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := errs.NewHandler(logger, verbose, os.Stderr)
	os.Exit(handler.Handle(err))
}
