package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "verify <reference>",
		Short:   "Verify a gateway reference with Paystack and apply it if successful",
		Example: "  shopctl verify MM_INV-0042",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if a.services.Gateway == nil {
				return fmt.Errorf("paystack is not configured")
			}
			result, err := a.services.Gateway.VerifyAndApply(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newExpireAttemptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expire-attempts",
		Short: "Expire pending gateway attempts older than --older-than",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if a.services.Gateway == nil {
				return fmt.Errorf("paystack is not configured")
			}
			olderThan, _ := cmd.Flags().GetDuration("older-than")
			n, err := a.services.Gateway.ExpireStaleAttempts(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d attempts\n", n)
			return nil
		},
	}
	cmd.Flags().Duration("older-than", 24*time.Hour, "age after which a pending attempt expires")
	return cmd
}
