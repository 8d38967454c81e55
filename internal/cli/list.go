package cli

import (
	"github.com/spf13/cobra"

	"github.com/dnvriend/aws-primitives-tool/internal/output"
	"github.com/dnvriend/aws-primitives-tool/internal/primitive/list"
)

func newListCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Ordered lists with push/pop at either end and range reads",
	}

	lpushCmd := &cobra.Command{
		Use:   "lpush <name> <value>",
		Short: "Push value onto the left (head) end of name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := app.List.Push(cmd.Context(), args[0], decodeValue(args[1]), list.Left)
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"list": args[0], "index": idx}, "index")
		},
	}

	rpushCmd := &cobra.Command{
		Use:   "rpush <name> <value>",
		Short: "Push value onto the right (tail) end of name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := app.List.Push(cmd.Context(), args[0], decodeValue(args[1]), list.Right)
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"list": args[0], "index": idx}, "index")
		},
	}

	lpopCmd := &cobra.Command{
		Use:   "lpop <name>",
		Short: "Pop and return the left (head) element of name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := app.List.Pop(cmd.Context(), args[0], list.Left)
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"list": args[0], "value": v}, "value")
		},
	}

	rpopCmd := &cobra.Command{
		Use:   "rpop <name>",
		Short: "Pop and return the right (tail) element of name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := app.List.Pop(cmd.Context(), args[0], list.Right)
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"list": args[0], "value": v}, "value")
		},
	}

	var start, stop int64
	lrangeCmd := &cobra.Command{
		Use:   "lrange <name>",
		Short: "Read logical indices [--start, --stop] inclusive, negative indices count from the tail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := app.List.Range(cmd.Context(), args[0], start, stop)
			if err != nil {
				return err
			}
			out := make([]output.Record, 0, len(values))
			for _, v := range values {
				out = append(out, output.Record{"list": args[0], "value": v})
			}
			return app.Writer.WriteMany(out, "value")
		},
	}
	lrangeCmd.Flags().Int64Var(&start, "start", 0, "starting logical index, inclusive")
	lrangeCmd.Flags().Int64Var(&stop, "stop", -1, "ending logical index, inclusive")

	llenCmd := &cobra.Command{
		Use:   "llen <name>",
		Short: "Count elements currently in name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := app.List.Len(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"list": args[0], "len": n}, "len")
		},
	}

	cmd.AddCommand(lpushCmd, rpushCmd, lpopCmd, rpopCmd, lrangeCmd, llenCmd)
	return cmd
}
