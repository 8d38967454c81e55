package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the full command tree rooted at
// "aws-primitives-tool", binding the global persistent flags from
// spec.md section 6 and deferring construction of every AWS client and
// primitive to PersistentPreRunE, once flags have been parsed.
func NewRootCommand(version string) (*cobra.Command, *App) {
	app := NewApp()
	var flags GlobalFlags
	var timeoutSeconds int64
	var cancelTimeout context.CancelFunc

	root := &cobra.Command{
		Use:           "aws-primitives-tool",
		Short:         "Durable, cloud-backed distributed-systems primitives as shell commands",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			flags.Timeout = timeoutSeconds
			if err := app.Init(cmd.Context(), flags); err != nil {
				return err
			}
			// spec.md section 5: --timeout bounds the entire operation,
			// including any retries a primitive runs internally, not just
			// the initial request.
			ctx, cancel := context.WithTimeout(cmd.Context(), app.Config.Timeout)
			cancelTimeout = cancel
			cmd.SetContext(ctx)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if cancelTimeout != nil {
				cancelTimeout()
			}
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVar(&flags.Table, "table", "", "item-store table name (default: $AWSPRIM_TABLE or \"aws-primitives-tool\")")
	pf.StringVar(&flags.Region, "region", "", "AWS region (default: $AWS_REGION)")
	pf.StringVar(&flags.Profile, "profile", "", "AWS shared-config profile (default: $AWS_PROFILE)")
	pf.StringVar(&flags.Format, "format", "", "output format: json|json-lines|value|table (default: json)")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "verbose logging and error causes on stderr")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress non-essential stderr output")
	pf.Int64Var(&timeoutSeconds, "timeout", 0, "per-command timeout in seconds (default: 30)")

	root.AddCommand(
		newTableCommand(app),
		newInfoCommand(app),
		newKVCommand(app),
		newCounterCommand(app),
		newLockCommand(app),
		newLeaderCommand(app),
		newQueueCommand(app),
		newSetCommand(app),
		newListCommand(app),
		newTxnCommand(app),
		newBlobCommand(app),
		newTopicCommand(app),
		newMQCommand(app),
	)
	return root, app
}
