package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/plunoo/biskakenauto-sub000/internal/bootstrap"
)

// app holds the clients opened for a single command invocation.
type app struct {
	*bootstrap.Runtime
	services *bootstrap.Services
}

type appKey struct{}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shopctl",
		Short:         "Operator tooling for invoices, payments and stock",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a, ok := cmd.Context().Value(appKey{}).(*app); ok {
				a.close()
			}
			return nil
		},
	}
	root.SetContext(context.Background())

	root.AddCommand(
		newVerifyCmd(),
		newSweepOverdueCmd(),
		newExpireAttemptsCmd(),
		newStockCmd(),
		newInvoiceCmd(),
		newOutboxCmd(),
	)
	return root
}

// Redis only guards concurrent webhook deliveries; the CLI works without it.
func openApp(ctx context.Context) (*app, error) {
	rt, err := bootstrap.Open(ctx, bootstrap.RuntimeOptions{Service: "shopctl", Redis: bootstrap.RedisOptional})
	if err != nil {
		return nil, err
	}
	services, err := rt.Services(nil)
	if err != nil {
		rt.Close()
		return nil, err
	}
	return &app{Runtime: rt, services: services}, nil
}

func (a *app) close() {
	a.Runtime.Close()
}

func appFrom(cmd *cobra.Command) (*app, error) {
	a, ok := cmd.Context().Value(appKey{}).(*app)
	if !ok {
		return nil, fmt.Errorf("shopctl not initialised")
	}
	return a, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
