package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/plunoo/biskakenauto-sub000/internal/inventory"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
)

func newStockCmd() *cobra.Command {
	stock := &cobra.Command{
		Use:   "stock",
		Short: "Inspect and adjust part stock",
	}

	adjust := &cobra.Command{
		Use:     "adjust <part-id>",
		Short:   "Apply an administrative stock adjustment",
		Example: "  shopctl stock adjust 6f1c8f7e-5df2-4f86-9c2a-8b8db1a1f1d2 --mode add --quantity 12 --reason delivery",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			partID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid part id: %w", err)
			}
			rawMode, _ := cmd.Flags().GetString("mode")
			mode, err := enums.ParseStockAdjustMode(strings.ToUpper(rawMode))
			if err != nil {
				return err
			}
			quantity, _ := cmd.Flags().GetInt("quantity")
			input := inventory.AdjustInput{PartID: partID, Quantity: quantity, Mode: mode}
			if reason, _ := cmd.Flags().GetString("reason"); reason != "" {
				input.Reason = &reason
			}
			result, err := a.services.Inventory.Adjust(cmd.Context(), input)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	adjust.Flags().String("mode", "add", "add, remove or set")
	adjust.Flags().Int("quantity", 0, "units to add, remove or set")
	adjust.Flags().String("reason", "", "audit note stored on the stock movement")
	_ = adjust.MarkFlagRequired("quantity")

	low := &cobra.Command{
		Use:   "low",
		Short: "List parts at or below their reorder level",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			parts, err := a.services.Inventory.LowStock(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), parts)
		},
	}

	stock.AddCommand(adjust, low)
	return stock
}
