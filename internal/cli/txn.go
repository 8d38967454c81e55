package cli

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dnvriend/aws-primitives-tool/internal/errs"
	"github.com/dnvriend/aws-primitives-tool/internal/output"
	"github.com/dnvriend/aws-primitives-tool/internal/primitive/txn"
)

func newTxnCommand(app *App) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "txn",
		Short: "Execute a batch of put/update/delete/check ops as one transaction",
		Long: "Reads a JSON batch of the form {\"ops\": [...]} from --file, or from " +
			"stdin when --file is omitted or \"-\", and applies every op atomically.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closeFn, err := openBatchSource(file)
			if err != nil {
				return err
			}
			if closeFn != nil {
				defer closeFn()
			}

			var batch txn.Batch
			if err := json.NewDecoder(r).Decode(&batch); err != nil {
				return errs.InvalidArgument("could not parse transaction batch as JSON: " + err.Error())
			}

			result, err := app.Txn.Execute(cmd.Context(), batch)
			if err != nil {
				if result != nil {
					_ = app.Writer.WriteOne(output.Record{
						"applied": result.Applied, "failedOps": result.FailedOps,
					}, "applied")
				}
				return err
			}
			return app.Writer.WriteOne(output.Record{"applied": result.Applied}, "applied")
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to a JSON batch file (default: read from stdin)")
	return cmd
}

func openBatchSource(file string) (io.Reader, func() error, error) {
	if file == "" || file == "-" {
		return os.Stdin, nil, nil
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, nil, errs.InvalidArgument("opening transaction batch file: " + err.Error())
	}
	return f, f.Close, nil
}
