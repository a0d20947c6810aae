package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
)

func newOutboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and requeue events the publisher dead-lettered",
	}

	deadLetters := &cobra.Command{
		Use:   "dead-letters",
		Short: "List the most recent dead-lettered events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			var filter *enums.OutboxEventType
			if raw, _ := cmd.Flags().GetString("event-type"); raw != "" {
				parsed, err := enums.ParseOutboxEventType(raw)
				if err != nil {
					return err
				}
				filter = &parsed
			}
			rows, err := a.services.DeadLetters.Recent(cmd.Context(), filter, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rows)
		},
	}
	deadLetters.Flags().Int("limit", 50, "maximum rows to print")
	deadLetters.Flags().String("event-type", "", "only show this event type, e.g. invoice_paid")

	requeue := &cobra.Command{
		Use:     "requeue <event-id>",
		Short:   "Drop the dead letter and let the publisher retry the event",
		Example: "  shopctl outbox requeue 3f1c2a9e-5d0b-4c7e-9a61-0f2d8b7c4e11",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			eventID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid event id: %w", err)
			}
			if err := a.services.DeadLetters.Requeue(cmd.Context(), eventID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "requeued %s\n", eventID)
			return nil
		},
	}

	cmd.AddCommand(deadLetters, requeue)
	return cmd
}
