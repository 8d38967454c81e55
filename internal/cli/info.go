package cli

import (
	"github.com/spf13/cobra"

	"github.com/dnvriend/aws-primitives-tool/internal/output"
	"github.com/dnvriend/aws-primitives-tool/internal/store"
)

// newInfoCommand exposes admin.Primitive.Info, the cross-primitive key
// lookup: a Query on the base table's partition key that answers "what
// is this key, and what type of primitive owns it" without the caller
// already knowing. It does not read the type-updatedAt-index.
func newInfoCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <namespace> <key>",
		Short: "Show metadata about a key: its primitive type, timestamps, TTL, and type-specific detail",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns := store.Namespace(args[0])
			info, err := app.Admin.Info(cmd.Context(), ns, args[1])
			if err != nil {
				return err
			}

			rec := output.Record{
				"key":       info.Key,
				"type":      info.Type,
				"createdAt": info.CreatedAt,
				"updatedAt": info.UpdatedAt,
			}
			if info.TTL != nil {
				rec["ttl"] = *info.TTL
			}
			switch store.Namespace(info.Type) {
			case store.NamespaceCounter:
				rec["value"] = info.Value
			case store.NamespaceKV:
				rec["valueSize"] = info.ValueSize
			case store.NamespaceList, store.NamespaceQueue:
				rec["itemCount"] = info.ItemCount
			case store.NamespaceSet:
				rec["memberCount"] = info.MemberCount
			case store.NamespaceLock:
				rec["owner"] = info.Owner
				rec["acquiredAt"] = info.AcquiredAt
			case store.NamespaceLeader:
				rec["nodeId"] = info.NodeID
				rec["electedAt"] = info.ElectedAt
			}
			return app.Writer.WriteOne(rec, "type")
		},
	}
	return cmd
}
