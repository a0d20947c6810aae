package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newSweepOverdueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep-overdue",
		Short: "Mark SENT invoices past their due date as OVERDUE",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			asOf := time.Now().UTC()
			if raw, _ := cmd.Flags().GetString("as-of"); raw != "" {
				asOf, err = time.Parse(time.DateOnly, raw)
				if err != nil {
					return fmt.Errorf("invalid --as-of, use YYYY-MM-DD: %w", err)
				}
			}
			n, err := a.services.Invoices.MarkOverdue(cmd.Context(), asOf)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "marked %d invoices overdue\n", n)
			return nil
		},
	}
	cmd.Flags().String("as-of", "", "evaluate due dates against this day (YYYY-MM-DD, default today)")
	return cmd
}

func newInvoiceCmd() *cobra.Command {
	invoice := &cobra.Command{
		Use:   "invoice",
		Short: "Inspect invoices",
	}

	show := &cobra.Command{
		Use:   "show <invoice-number>",
		Short: "Print an invoice with its items and payments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			inv, err := a.services.Invoices.GetByNumber(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), inv)
		},
	}

	pdf := &cobra.Command{
		Use:   "pdf <invoice-id>",
		Short: "Render an invoice PDF to --out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid invoice id: %w", err)
			}
			body, filename, err := a.services.Invoices.RenderPDF(cmd.Context(), id)
			if err != nil {
				return err
			}
			dir, _ := cmd.Flags().GetString("out")
			path := filepath.Join(dir, filename)
			if err := os.WriteFile(path, body, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	pdf.Flags().String("out", ".", "directory to write the PDF into")

	invoice.AddCommand(show, pdf)
	return invoice
}
