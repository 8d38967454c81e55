package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dnvriend/aws-primitives-tool/internal/errs"
	"github.com/dnvriend/aws-primitives-tool/internal/output"
)

func newTopicCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topic",
		Short: "Create and publish to SNS fan-out topics",
	}

	var ordered, contentDedup bool
	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Provision a topic, appending .fifo automatically when --ordered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arn, err := app.Topic.Create(cmd.Context(), args[0], ordered, contentDedup)
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"name": args[0], "topicArn": arn}, "topicArn")
		},
	}
	createCmd.Flags().BoolVar(&ordered, "ordered", false, "provision a FIFO topic")
	createCmd.Flags().BoolVar(&contentDedup, "content-dedup", false, "enable content-based deduplication (FIFO only)")

	var groupID, dedupID, subject string
	var attrPairs []string
	publishCmd := &cobra.Command{
		Use:   "publish <topic-arn> [body]",
		Short: "Publish body (default: read from stdin) to topic-arn",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := ""
			if len(args) == 2 {
				body = args[1]
			} else {
				data, err := readAllStdin()
				if err != nil {
					return err
				}
				body = data
			}
			id, err := app.Topic.Publish(cmd.Context(), args[0], body, groupID, dedupID, subject, parseKV(attrPairs))
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"topicArn": args[0], "messageId": id}, "messageId")
		},
	}
	publishCmd.Flags().StringVar(&groupID, "group-id", "", "message group id, required for FIFO topics")
	publishCmd.Flags().StringVar(&dedupID, "dedup-id", "", "message deduplication id")
	publishCmd.Flags().StringVar(&subject, "subject", "", "message subject")
	publishCmd.Flags().StringArrayVar(&attrPairs, "attr", nil, "key=value message attribute, repeatable")

	listTopicsCmd := &cobra.Command{
		Use:   "list-topics",
		Short: "List every topic in the account/region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			arns, err := app.Topic.ListTopics(cmd.Context())
			if err != nil {
				return err
			}
			out := make([]output.Record, 0, len(arns))
			for _, a := range arns {
				out = append(out, output.Record{"topicArn": a})
			}
			return app.Writer.WriteMany(out, "topicArn")
		},
	}

	deleteTopicCmd := &cobra.Command{
		Use:   "delete-topic <topic-arn>",
		Short: "Delete a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Topic.DeleteTopic(cmd.Context(), args[0]); err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"topicArn": args[0], "deleted": true}, "deleted")
		},
	}

	getAttributesCmd := &cobra.Command{
		Use:   "get-attributes <topic-arn>",
		Short: "Read a topic's attribute map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, err := app.Topic.GetAttributes(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rec := output.Record{"topicArn": args[0]}
			for k, v := range attrs {
				rec[k] = v
			}
			return app.Writer.WriteOne(rec, "topicArn")
		},
	}

	listSubscriptionsCmd := &cobra.Command{
		Use:   "list-subscriptions <topic-arn>",
		Short: "List a topic's subscriptions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subs, err := app.Topic.ListSubscriptions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := make([]output.Record, 0, len(subs))
			for _, s := range subs {
				out = append(out, output.Record{
					"subscriptionArn": s.SubscriptionArn, "protocol": s.Protocol, "endpoint": s.Endpoint,
				})
			}
			return app.Writer.WriteMany(out, "subscriptionArn")
		},
	}

	setAccessPolicyCmd := &cobra.Command{
		Use:   "set-access-policy <topic-arn> <policy-json>",
		Short: "Replace a topic's resource policy document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Topic.SetAccessPolicy(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"topicArn": args[0], "policySet": true}, "policySet")
		},
	}

	cmd.AddCommand(createCmd, publishCmd, listTopicsCmd, deleteTopicCmd, getAttributesCmd, listSubscriptionsCmd, setAccessPolicyCmd)
	return cmd
}

func readAllStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", errs.InvalidArgument("reading body from stdin").WithCause(err)
	}
	return string(data), nil
}
