package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dnvriend/aws-primitives-tool/internal/output"
	"github.com/dnvriend/aws-primitives-tool/internal/primitive/lock"
)

func newLeaderCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leader",
		Short: "TTL-liveness leader election over a named pool",
	}

	var id string
	var ttl time.Duration
	electCmd := &cobra.Command{
		Use:   "elect <pool>",
		Short: "Attempt to become leader of pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				id = lock.NewOwnerID("leader")
			}
			if ttl <= 0 {
				ttl = app.Config.LockTTL
			}
			l, err := app.Leader.Elect(cmd.Context(), args[0], id, ttl)
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"pool": args[0], "id": l.ID, "ttl": l.TTLSeconds}, "id")
		},
	}
	electCmd.Flags().StringVar(&id, "id", "", "candidate identity (default: a generated uuid-suffixed id)")
	electCmd.Flags().DurationVar(&ttl, "ttl", 0, "liveness TTL")

	var heartbeatID string
	var heartbeatTTL time.Duration
	heartbeatCmd := &cobra.Command{
		Use:   "heartbeat <pool>",
		Short: "Extend --id's leadership TTL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if heartbeatTTL <= 0 {
				heartbeatTTL = app.Config.LockTTL
			}
			l, err := app.Leader.Heartbeat(cmd.Context(), args[0], heartbeatID, heartbeatTTL)
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"pool": args[0], "id": l.ID, "ttl": l.TTLSeconds}, "id")
		},
	}
	heartbeatCmd.Flags().StringVar(&heartbeatID, "id", "", "this process's leader identity")
	heartbeatCmd.Flags().DurationVar(&heartbeatTTL, "ttl", 0, "new TTL duration from now")

	checkCmd := &cobra.Command{
		Use:   "check <pool>",
		Short: "Report pool's current leader, if any",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, has, err := app.Leader.Check(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !has {
				return app.Writer.WriteOne(output.Record{"pool": args[0], "leader": false}, "leader")
			}
			return app.Writer.WriteOne(output.Record{"pool": args[0], "leader": true, "id": l.ID, "ttl": l.TTLSeconds}, "leader")
		},
	}

	var resignID string
	resignCmd := &cobra.Command{
		Use:   "resign <pool>",
		Short: "Relinquish --id's leadership of pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Leader.Resign(cmd.Context(), args[0], resignID); err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"pool": args[0], "resigned": true}, "resigned")
		},
	}
	resignCmd.Flags().StringVar(&resignID, "id", "", "this process's leader identity")

	cmd.AddCommand(electCmd, heartbeatCmd, checkCmd, resignCmd)
	return cmd
}
