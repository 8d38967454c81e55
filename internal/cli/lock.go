package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/dnvriend/aws-primitives-tool/internal/output"
	"github.com/dnvriend/aws-primitives-tool/internal/primitive/lock"
)

func newLockCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Distributed mutual-exclusion locks with fencing tokens",
	}

	var owner string
	var ttl, wait time.Duration
	acquireCmd := &cobra.Command{
		Use:   "acquire <name>",
		Short: "Acquire name for ttl, optionally blocking up to --wait",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if owner == "" {
				owner = lock.NewOwnerID("owner")
			}
			if ttl <= 0 {
				ttl = app.Config.LockTTL
			}
			acq, err := app.Lock.Acquire(cmd.Context(), args[0], owner, ttl, wait)
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{
				"lock": args[0], "owner": acq.Owner, "ttl": acq.TTLSeconds, "version": acq.Version,
			}, "owner")
		},
	}
	acquireCmd.Flags().StringVar(&owner, "owner", "", "owner identity (default: a generated uuid-suffixed id)")
	acquireCmd.Flags().DurationVar(&ttl, "ttl", 0, "how long the lock is held before it is eligible for re-acquisition")
	acquireCmd.Flags().DurationVar(&wait, "wait", 0, "block retrying with backoff for up to this long")

	var releaseOwner string
	releaseCmd := &cobra.Command{
		Use:   "release <name>",
		Short: "Release name, conditioned on --owner matching the current holder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Lock.Release(cmd.Context(), args[0], releaseOwner); err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"lock": args[0], "released": true}, "released")
		},
	}
	releaseCmd.Flags().StringVar(&releaseOwner, "owner", "", "owner identity that currently holds the lock")

	var extendOwner string
	var extendTTL time.Duration
	extendCmd := &cobra.Command{
		Use:   "extend <name>",
		Short: "Extend name's TTL, conditioned on --owner matching",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if extendTTL <= 0 {
				extendTTL = app.Config.LockTTL
			}
			acq, err := app.Lock.Extend(cmd.Context(), args[0], extendOwner, extendTTL)
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{
				"lock": args[0], "owner": acq.Owner, "ttl": acq.TTLSeconds, "version": acq.Version,
			}, "owner")
		},
	}
	extendCmd.Flags().StringVar(&extendOwner, "owner", "", "owner identity that currently holds the lock")
	extendCmd.Flags().DurationVar(&extendTTL, "ttl", 0, "new TTL duration from now")

	checkCmd := &cobra.Command{
		Use:   "check <name>",
		Short: "Report whether name is currently held",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			acq, held, err := app.Lock.Check(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !held {
				return app.Writer.WriteOne(output.Record{"lock": args[0], "held": false}, "held")
			}
			return app.Writer.WriteOne(output.Record{
				"lock": args[0], "held": true, "owner": acq.Owner, "ttl": acq.TTLSeconds, "version": acq.Version,
			}, "held")
		},
	}

	cmd.AddCommand(acquireCmd, releaseCmd, extendCmd, checkCmd)
	return cmd
}
