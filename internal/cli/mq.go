package cli

import (
	"github.com/spf13/cobra"

	"github.com/dnvriend/aws-primitives-tool/internal/mq"
	"github.com/dnvriend/aws-primitives-tool/internal/output"
)

func newMQCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mq",
		Short: "Create and drive SQS message queues",
	}

	var opts mq.CreateOptions
	var dlqArn string
	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Provision a queue, appending .fifo automatically when --ordered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DeadLetterQueueArn = dlqArn
			url, err := app.MQ.Create(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"name": args[0], "queueUrl": url}, "queueUrl")
		},
	}
	createCmd.Flags().BoolVar(&opts.Ordered, "ordered", false, "provision a FIFO queue")
	createCmd.Flags().Int32Var(&opts.VisibilityTimeoutSeconds, "visibility-timeout", 0, "default visibility timeout in seconds")
	createCmd.Flags().Int32Var(&opts.RetentionSeconds, "retention", 0, "message retention period in seconds")
	createCmd.Flags().Int32Var(&opts.DeliveryDelaySeconds, "delay", 0, "delivery delay in seconds")
	createCmd.Flags().Int32Var(&opts.ReceiveWaitSeconds, "receive-wait", 0, "long-poll wait time in seconds")
	createCmd.Flags().StringVar(&dlqArn, "dlq-arn", "", "dead-letter queue ARN")
	createCmd.Flags().Int32Var(&opts.MaxReceiveCount, "max-receive-count", 0, "redrive to the DLQ after this many receives")
	createCmd.Flags().BoolVar(&opts.ContentDedup, "content-dedup", false, "enable content-based deduplication (FIFO only)")

	var groupID, dedupID string
	var delaySeconds int32
	var attrPairs []string
	sendCmd := &cobra.Command{
		Use:   "send <queue-url> <body>",
		Short: "Send body to queue-url",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := app.MQ.Send(cmd.Context(), args[0], args[1], groupID, dedupID, delaySeconds, parseKV(attrPairs))
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"queueUrl": args[0], "messageId": id}, "messageId")
		},
	}
	sendCmd.Flags().StringVar(&groupID, "group-id", "", "message group id, required for FIFO queues")
	sendCmd.Flags().StringVar(&dedupID, "dedup-id", "", "message deduplication id")
	sendCmd.Flags().Int32Var(&delaySeconds, "delay", 0, "delay delivery by this many seconds")
	sendCmd.Flags().StringArrayVar(&attrPairs, "attr", nil, "key=value message attribute, repeatable")

	var maxMessages, visibilityTimeout, waitSeconds int32
	var autoDelete bool
	receiveCmd := &cobra.Command{
		Use:   "receive <queue-url>",
		Short: "Poll queue-url for up to --max messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msgs, err := app.MQ.Receive(cmd.Context(), args[0], maxMessages, visibilityTimeout, waitSeconds, autoDelete)
			if err != nil {
				return err
			}
			out := make([]output.Record, 0, len(msgs))
			for _, m := range msgs {
				out = append(out, output.Record{"queueUrl": args[0], "body": m.Body, "receipt": m.ReceiptHandle, "attributes": m.Attributes})
			}
			return app.Writer.WriteMany(out, "body")
		},
	}
	receiveCmd.Flags().Int32Var(&maxMessages, "max", 1, "maximum messages to receive, 1-10")
	receiveCmd.Flags().Int32Var(&visibilityTimeout, "visibility-timeout", 0, "visibility timeout override in seconds")
	receiveCmd.Flags().Int32Var(&waitSeconds, "wait-seconds", 0, "long-poll wait time, 0-20 seconds")
	receiveCmd.Flags().BoolVar(&autoDelete, "auto-delete", false, "delete each message immediately after receiving it")

	deleteCmd := &cobra.Command{
		Use:   "delete <queue-url> <receipt>",
		Short: "Delete a message by its receipt handle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.MQ.Delete(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"queueUrl": args[0], "deleted": true}, "deleted")
		},
	}

	purgeCmd := &cobra.Command{
		Use:   "purge <queue-url>",
		Short: "Delete every message currently in a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.MQ.Purge(cmd.Context(), args[0]); err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"queueUrl": args[0], "purged": true}, "purged")
		},
	}

	deleteQueueCmd := &cobra.Command{
		Use:   "delete-queue <queue-url>",
		Short: "Delete a queue entirely",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.MQ.DeleteQueue(cmd.Context(), args[0]); err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"queueUrl": args[0], "deleted": true}, "deleted")
		},
	}

	getAttributesCmd := &cobra.Command{
		Use:   "get-attributes <queue-url>",
		Short: "Read a queue's attribute map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, err := app.MQ.GetAttributes(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rec := output.Record{"queueUrl": args[0]}
			for k, v := range attrs {
				rec[k] = v
			}
			return app.Writer.WriteOne(rec, "queueUrl")
		},
	}

	var attrSetPairs []string
	setAttributesCmd := &cobra.Command{
		Use:   "set-attributes <queue-url>",
		Short: "Replace one or more of a queue's attributes via --attr key=value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.MQ.SetAttributes(cmd.Context(), args[0], parseKV(attrSetPairs)); err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"queueUrl": args[0], "attributesSet": true}, "attributesSet")
		},
	}
	setAttributesCmd.Flags().StringArrayVar(&attrSetPairs, "attr", nil, "key=value queue attribute, repeatable")

	var rawDelivery bool
	var filterPolicy, filterScope string
	subscribeCmd := &cobra.Command{
		Use:   "subscribe-to-topic <queue-url> <queue-arn> <topic-arn>",
		Short: "Subscribe a queue to an SNS topic, enforcing the ordered-topic-to-ordered-queue rule",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			arn, err := app.MQ.SubscribeToTopic(cmd.Context(), args[0], args[1], args[2], rawDelivery, filterPolicy, filterScope)
			if err != nil {
				return err
			}
			return app.Writer.WriteOne(output.Record{"queueUrl": args[0], "subscriptionArn": arn}, "subscriptionArn")
		},
	}
	subscribeCmd.Flags().BoolVar(&rawDelivery, "raw-delivery", false, "deliver the raw message body instead of the SNS envelope")
	subscribeCmd.Flags().StringVar(&filterPolicy, "filter-policy", "", "JSON filter policy document")
	subscribeCmd.Flags().StringVar(&filterScope, "filter-scope", "", "MessageAttributes or MessageBody")

	cmd.AddCommand(createCmd, sendCmd, receiveCmd, deleteCmd, purgeCmd, deleteQueueCmd, getAttributesCmd, setAttributesCmd, subscribeCmd)
	return cmd
}
