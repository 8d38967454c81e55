package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dnvriend/aws-primitives-tool/internal/output"
	"github.com/dnvriend/aws-primitives-tool/internal/util"
)

func newQueueCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Priority-ordered work queue with visibility timeout and dedup",
	}

	var priority int32
	var dedupID string
	var ttl int64
	pushCmd := &cobra.Command{
		Use:   "push <name> <body>",
		Short: "Enqueue body, lower --priority pops first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ttlPtr *int64
			if ttl > 0 {
				expiresAt := util.NowUnix() + ttl
				ttlPtr = &expiresAt
			}
			pushed, err := app.Queue.Push(cmd.Context(), args[0], decodeValue(args[1]), priority, dedupID, ttlPtr)
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"queue": args[0], "receipt": pushed.Receipt}, "receipt")
		},
	}
	pushCmd.Flags().Int32Var(&priority, "priority", 0, "lower values pop first")
	pushCmd.Flags().StringVar(&dedupID, "dedup-id", "", "suppress duplicate pushes of this id within the dedup window")
	pushCmd.Flags().Int64Var(&ttl, "ttl", 0, "expire this item after ttl seconds if never popped")

	var visibility time.Duration
	popCmd := &cobra.Command{
		Use:   "pop <name>",
		Short: "Pop the next item by (priority, timestamp, uuid) order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("visibility") {
				visibility = app.Config.QueueVisibility
			}
			popped, err := app.Queue.Pop(cmd.Context(), args[0], visibility)
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{
				"queue": args[0], "body": popped.Body, "receipt": popped.Receipt, "visibilityTimeout": popped.VisibilityTimeout,
			}, "body")
		},
	}
	popCmd.Flags().DurationVar(&visibility, "visibility", 0, "hide the popped item from other consumers for this long instead of deleting it immediately")

	ackCmd := &cobra.Command{
		Use:   "ack <name> <receipt>",
		Short: "Acknowledge (delete) a previously popped item by its receipt",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Queue.Ack(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"queue": args[0], "acked": true}, "acked")
		},
	}

	var peekCount int32
	peekCmd := &cobra.Command{
		Use:   "peek <name>",
		Short: "Read up to --count items without removing them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := app.Queue.Peek(cmd.Context(), args[0], peekCount)
			if err != nil {
				return err
			}
			out := make([]output.Record, 0, len(items))
			for _, it := range items {
				out = append(out, output.Record{"queue": args[0], "body": it.Value, "receipt": it.SortKey})
			}
			return app.Writer.WriteMany(out, "body")
		},
	}
	peekCmd.Flags().Int32Var(&peekCount, "count", 10, "maximum number of items to read")

	sizeCmd := &cobra.Command{
		Use:   "size <name>",
		Short: "Count items currently in name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := app.Queue.Size(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"queue": args[0], "size": n}, "size")
		},
	}

	cmd.AddCommand(pushCmd, popCmd, ackCmd, peekCmd, sizeCmd)
	return cmd
}
