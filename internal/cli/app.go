// Package cli wires spf13/cobra commands to the primitive packages,
// generalizing the teacher's clients/cli/cmd (which the pack's
// progressdb-ProgressDB repo builds the same way: a root command plus
// one file per subcommand group) to the primitives this tool exposes.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"github.com/dnvriend/aws-primitives-tool/internal/awsconf"
	"github.com/dnvriend/aws-primitives-tool/internal/blob"
	"github.com/dnvriend/aws-primitives-tool/internal/config"
	"github.com/dnvriend/aws-primitives-tool/internal/metrics"
	"github.com/dnvriend/aws-primitives-tool/internal/mq"
	"github.com/dnvriend/aws-primitives-tool/internal/output"
	"github.com/dnvriend/aws-primitives-tool/internal/primitive/admin"
	"github.com/dnvriend/aws-primitives-tool/internal/primitive/counter"
	"github.com/dnvriend/aws-primitives-tool/internal/primitive/kv"
	"github.com/dnvriend/aws-primitives-tool/internal/primitive/leader"
	"github.com/dnvriend/aws-primitives-tool/internal/primitive/list"
	"github.com/dnvriend/aws-primitives-tool/internal/primitive/lock"
	"github.com/dnvriend/aws-primitives-tool/internal/primitive/queue"
	"github.com/dnvriend/aws-primitives-tool/internal/primitive/set"
	"github.com/dnvriend/aws-primitives-tool/internal/primitive/txn"
	"github.com/dnvriend/aws-primitives-tool/internal/store"
	"github.com/dnvriend/aws-primitives-tool/internal/topic"
	"github.com/dnvriend/aws-primitives-tool/internal/trace"
)

// App holds every dependency a subcommand needs. It is constructed once
// by the root command's PersistentPreRunE after flags are parsed, and
// subcommands close over a shared *App pointer rather than reach for a
// package-level global, per spec.md section 9's explicit-constructor
// requirement.
type App struct {
	Logger  *zap.Logger
	Config  *config.Config
	Writer  *output.Writer
	Metrics metrics.Recorder
	Tracer  trace.Tracer

	KV      *kv.Primitive
	Counter *counter.Primitive
	Lock    *lock.Primitive
	Leader  *leader.Primitive
	Queue   *queue.Primitive
	Set     *set.Primitive
	List    *list.Primitive
	Txn     *txn.Primitive
	Blob    *blob.Transfer
	Meta    *blob.Metadata
	Topic   *topic.Primitive
	MQ      *mq.Primitive
	Admin   *admin.Primitive
}

// GlobalFlags carries the raw values bound to the root command's
// persistent flags, handed to config.Resolve unchanged.
type GlobalFlags struct {
	Table   string
	Region  string
	Profile string
	Format  string
	Verbose bool
	Quiet   bool
	Timeout int64 // seconds; 0 means unset
}

func NewApp() *App {
	logger, _ := newLogger(false, false)
	return &App{Logger: logger, Writer: output.New(os.Stdout, output.FormatJSON)}
}

// Init resolves configuration, builds the AWS config and every client,
// and wires every primitive. Called once from the root command's
// PersistentPreRunE, never from package init.
func (a *App) Init(ctx context.Context, flags GlobalFlags) error {
	opts := config.Options{
		Table:   flags.Table,
		Region:  flags.Region,
		Profile: flags.Profile,
		Format:  flags.Format,
		Verbose: flags.Verbose,
		Quiet:   flags.Quiet,
	}
	if flags.Timeout > 0 {
		opts.Timeout = time.Duration(flags.Timeout) * time.Second
	}

	cfg, err := config.Resolve(opts)
	if err != nil {
		return fmt.Errorf("resolving configuration: %w", err)
	}
	a.Config = cfg

	logger, err := newLogger(cfg.Verbose, cfg.Quiet)
	if err != nil {
		return err
	}
	a.Logger = logger
	a.Writer = output.New(os.Stdout, output.Format(cfg.Format))

	awsCfg, err := awsconf.Load(ctx, cfg)
	if err != nil {
		return err
	}

	ddbClient := dynamodb.NewFromConfig(awsCfg)
	s3Client := s3.NewFromConfig(awsCfg)
	snsClient := sns.NewFromConfig(awsCfg)
	sqsClient := sqs.NewFromConfig(awsCfg)

	driver := store.NewDynamoDriver(ddbClient, cfg.Table, logger)

	if cfg.EnableMetrics {
		a.Metrics = metrics.New(cloudwatch.NewFromConfig(awsCfg), logger)
	} else {
		a.Metrics = metrics.NewNoop()
	}
	if cfg.EnableTracing {
		a.Tracer = trace.New()
	} else {
		a.Tracer = trace.NewNoop()
	}

	a.KV = kv.New(driver, logger)
	a.Counter = counter.New(driver, logger)
	a.Lock = lock.New(driver, logger)
	a.Leader = leader.New(driver, logger)
	a.Queue = queue.New(driver, logger, cfg.DedupWindow)
	a.Set = set.New(driver, logger)
	a.List = list.New(driver, logger)
	a.Txn = txn.New(driver, logger)
	a.Blob = blob.New(s3Client, logger, cfg.MultipartThreshold, cfg.ChunkSize, cfg.MaxConcurrency)
	a.Meta = blob.NewMetadata(s3Client, logger)
	a.Topic = topic.New(snsClient, logger)
	a.MQ = mq.New(sqsClient, snsClient, logger)
	a.Admin = admin.New(ddbClient, cloudwatch.NewFromConfig(awsCfg), driver, cfg.Table, logger)

	return nil
}

// newLogger builds the process logger per SPEC_FULL.md section 2.2:
// --quiet wins over --verbose and discards every log line, --verbose
// switches to a human console encoder at Debug level, and the default
// is an Info-level JSON encoder.
func newLogger(verbose, quiet bool) (*zap.Logger, error) {
	if quiet {
		return zap.NewNop(), nil
	}
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}

