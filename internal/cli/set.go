package cli

import (
	"github.com/spf13/cobra"

	"github.com/dnvriend/aws-primitives-tool/internal/output"
)

func newSetCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Unordered sets of string members",
	}

	addCmd := &cobra.Command{
		Use:   "add <name> <member>",
		Short: "Add member to name, idempotently",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Set.Add(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"set": args[0], "member": args[1], "added": true}, "added")
		},
	}

	remCmd := &cobra.Command{
		Use:   "rem <name> <member>",
		Short: "Remove member from name, idempotently",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Set.Rem(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"set": args[0], "member": args[1], "removed": true}, "removed")
		},
	}

	isMemberCmd := &cobra.Command{
		Use:   "ismember <name> <member>",
		Short: "Report whether member is in name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := app.Set.IsMember(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"set": args[0], "member": args[1], "isMember": ok}, "isMember")
		},
	}

	membersCmd := &cobra.Command{
		Use:   "members <name>",
		Short: "List all members of name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			members, err := app.Set.Members(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := make([]output.Record, 0, len(members))
			for _, m := range members {
				out = append(out, output.Record{"set": args[0], "member": m})
			}
			return app.Writer.WriteMany(out, "member")
		},
	}

	cardCmd := &cobra.Command{
		Use:   "card <name>",
		Short: "Count members of name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := app.Set.Card(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"set": args[0], "card": n}, "card")
		},
	}

	cmd.AddCommand(addCmd, remCmd, isMemberCmd, membersCmd, cardCmd)
	return cmd
}
