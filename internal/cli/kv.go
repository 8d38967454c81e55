package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/dnvriend/aws-primitives-tool/internal/output"
	"github.com/dnvriend/aws-primitives-tool/internal/primitive/kv"
	"github.com/dnvriend/aws-primitives-tool/internal/util"
)

func newKVCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kv",
		Short: "Get, set, delete, and list key-value pairs",
	}

	var ttl int64
	var ifAbsent bool
	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set key to value, optionally only if absent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := kv.ModeOverwrite
			if ifAbsent {
				mode = kv.ModeIfAbsent
			}
			var ttlPtr *int64
			if ttl > 0 {
				expiresAt := util.NowUnix() + ttl
				ttlPtr = &expiresAt
			}
			value := decodeValue(args[1])
			if _, err := app.KV.Set(cmd.Context(), args[0], value, ttlPtr, mode); err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"key": args[0], "value": value}, "value")
		},
	}
	setCmd.Flags().Int64Var(&ttl, "ttl", 0, "expire this key after ttl seconds")
	setCmd.Flags().BoolVar(&ifAbsent, "if-absent", false, "fail with AlreadyExists if the key is already set")

	var defaultValue string
	var hasDefault bool
	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Get key's value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			useDefault := hasDefault || defaultValue != ""
			var def any
			if useDefault {
				def = decodeValue(defaultValue)
			}
			rec, isDefault, err := app.KV.Get(cmd.Context(), args[0], def, useDefault)
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"key": args[0], "value": rec.Value, "default": isDefault}, "value")
		},
	}
	getCmd.Flags().StringVar(&defaultValue, "default", "", "value to return if the key is absent, instead of NotFound")
	getCmd.Flags().BoolVar(&hasDefault, "has-default", false, "treat --default as set even if it is the empty string")

	var ifValue string
	var hasIfValue bool
	delCmd := &cobra.Command{
		Use:   "del <key>",
		Short: "Delete key, optionally only if its value matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			useIfValue := hasIfValue || ifValue != ""
			var want any
			if useIfValue {
				want = decodeValue(ifValue)
			}
			if err := app.KV.Delete(cmd.Context(), args[0], want, useIfValue); err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"key": args[0], "deleted": true}, "deleted")
		},
	}
	delCmd.Flags().StringVar(&ifValue, "if-value", "", "only delete if the stored value equals this")
	delCmd.Flags().BoolVar(&hasIfValue, "has-if-value", false, "treat --if-value as set even if it is the empty string")

	existsCmd := &cobra.Command{
		Use:   "exists <key>",
		Short: "Check whether key exists and is unexpired",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := app.KV.Exists(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"key": args[0], "exists": ok}, "exists")
		},
	}

	var limit int32
	listCmd := &cobra.Command{
		Use:   "list [prefix]",
		Short: "List kv keys, optionally filtered by prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			recs, err := app.KV.List(cmd.Context(), prefix, limit)
			if err != nil {
				return err
			}
			out := make([]output.Record, 0, len(recs))
			for _, r := range recs {
				out = append(out, output.Record{"key": r.PartitionKey, "value": r.Value})
			}
			return app.Writer.WriteMany(out, "value")
		},
	}
	listCmd.Flags().Int32Var(&limit, "limit", 0, "maximum number of keys to return (0 means unbounded)")

	cmd.AddCommand(setCmd, getCmd, delCmd, existsCmd, listCmd)
	return cmd
}

// decodeValue lets kv/list/queue callers pass either a JSON literal
// (numbers, booleans, objects, arrays) or a bare string, matching
// spec.md section 6's canonical-record examples where "value" can be
// any JSON type.
func decodeValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}
