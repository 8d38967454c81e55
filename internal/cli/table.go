package cli

import (
	"github.com/spf13/cobra"

	"github.com/dnvriend/aws-primitives-tool/internal/output"
	"github.com/dnvriend/aws-primitives-tool/internal/primitive/admin"
)

func newTableCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Provision, destroy, and inspect the backing table",
	}

	var billing string
	var readCapacity, writeCapacity int64
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create the backing table with its type-updatedAt-index and TTL enabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := admin.BillingOnDemand
			if billing == "provisioned" {
				mode = admin.BillingProvisioned
			}
			if err := app.Admin.Create(cmd.Context(), mode, readCapacity, writeCapacity); err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"table": app.Config.Table, "created": true}, "created")
		},
	}
	createCmd.Flags().StringVar(&billing, "billing", "on-demand", "billing mode: on-demand|provisioned")
	createCmd.Flags().Int64Var(&readCapacity, "read-capacity", 0, "provisioned read capacity units (required with --billing provisioned)")
	createCmd.Flags().Int64Var(&writeCapacity, "write-capacity", 0, "provisioned write capacity units (required with --billing provisioned)")

	var approve bool
	dropCmd := &cobra.Command{
		Use:     "drop",
		Aliases: []string{"delete"},
		Short:   "Permanently delete the backing table and all its data",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Admin.Drop(cmd.Context(), approve); err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"table": app.Config.Table, "dropped": true}, "dropped")
		},
	}
	dropCmd.Flags().BoolVar(&approve, "approve", false, "confirm the destructive delete")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the backing table's health, capacity, and last-hour usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.Admin.Status(cmd.Context())
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{
				"tableName":             st.TableName,
				"status":                st.TableStatus,
				"arn":                   st.ARN,
				"creationTime":          st.CreationTime,
				"itemCount":             st.ItemCount,
				"sizeBytes":             st.SizeBytes,
				"billingMode":           st.BillingMode,
				"readCapacityUnits":     st.ReadCapacityUnits,
				"writeCapacityUnits":    st.WriteCapacityUnits,
				"readConsumedLastHour":  st.ReadConsumedLastHour,
				"writeConsumedLastHour": st.WriteConsumedLastHour,
				"globalSecondaryIndexes": st.GlobalSecondaryIndexes,
			}, "status")
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Scan the backing table and report inventory counts grouped by primitive type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.Admin.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{
				"counters":   st.Counters,
				"lists":      st.Lists,
				"sets":       st.Sets,
				"queues":     st.Queues,
				"locks":      st.Locks,
				"leaders":    st.Leaders,
				"kvPairs":    st.KVPairs,
				"totalItems": st.TotalItems,
			}, "totalItems")
		},
	}

	cmd.AddCommand(createCmd, dropCmd, statusCmd, statsCmd)
	return cmd
}
