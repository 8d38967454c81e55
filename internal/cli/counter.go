package cli

import (
	"github.com/spf13/cobra"

	"github.com/dnvriend/aws-primitives-tool/internal/output"
)

func newCounterCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "counter",
		Short: "Atomic integer counters",
	}

	var by int64
	var create bool
	incCmd := &cobra.Command{
		Use:   "inc <key>",
		Short: "Add --by (default 1) to key, returning the new value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := app.Counter.Add(cmd.Context(), args[0], by, create)
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"key": args[0], "value": v}, "value")
		},
	}
	incCmd.Flags().Int64Var(&by, "by", 1, "delta to add; negative decrements")
	incCmd.Flags().BoolVar(&create, "create", false, "initialize the counter at 0 if it does not yet exist")

	var decBy int64
	decCmd := &cobra.Command{
		Use:   "dec <key>",
		Short: "Subtract --by (default 1) from key, returning the new value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := app.Counter.Add(cmd.Context(), args[0], -decBy, create)
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"key": args[0], "value": v}, "value")
		},
	}
	decCmd.Flags().Int64Var(&decBy, "by", 1, "delta to subtract")
	decCmd.Flags().BoolVar(&create, "create", false, "initialize the counter at 0 if it does not yet exist")

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Read key's current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := app.Counter.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"key": args[0], "value": v}, "value")
		},
	}

	delCmd := &cobra.Command{
		Use:   "del <key>",
		Short: "Delete a counter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Counter.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"key": args[0], "deleted": true}, "deleted")
		},
	}

	cmd.AddCommand(incCmd, decCmd, getCmd, delCmd)
	return cmd
}
