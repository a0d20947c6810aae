package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/plunoo/biskakenauto-sub000/internal/bootstrap"
	"github.com/plunoo/biskakenauto-sub000/pkg/migrate"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

var dir string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply and author goose schema migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dir, "dir", "", "read migrations from this directory instead of the embedded set")

	root.AddCommand(
		withRunner("up", "Apply all pending migrations", cobra.NoArgs, func(ctx context.Context, cmd *cobra.Command, r *migrate.Runner, _ []string) error {
			n, err := r.Up(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migrations\n", n)
			return err
		}),
		withRunner("down", "Roll back the latest migration", cobra.NoArgs, func(ctx context.Context, _ *cobra.Command, r *migrate.Runner, _ []string) error {
			return r.Down(ctx)
		}),
		withRunner("to <version>", "Migrate up or down to a YYYYMMDDHHMMSS version", cobra.ExactArgs(1), func(ctx context.Context, _ *cobra.Command, r *migrate.Runner, args []string) error {
			version, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("version %q: %w", args[0], err)
			}
			return r.To(ctx, version)
		}),
		withRunner("status", "List applied and pending migrations", cobra.NoArgs, printStatus),
		newCreateCmd(),
		newValidateCmd(),
	)
	return root
}

type runnerFunc func(ctx context.Context, cmd *cobra.Command, r *migrate.Runner, args []string) error

// withRunner connects to the configured database before fn and closes the
// connection afterwards.
func withRunner(use, short string, args cobra.PositionalArgs, fn runnerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, argv []string) error {
			rt, err := bootstrap.Open(cmd.Context(), bootstrap.RuntimeOptions{Service: "migrate", Redis: bootstrap.RedisSkip})
			if err != nil {
				return err
			}
			defer rt.Close()
			logg := rt.Logger
			ctx := logg.WithField(cmd.Context(), "command", cmd.Name())

			sqlDB, err := rt.DB.DB().DB()
			if err != nil {
				return err
			}
			runner, err := migrate.NewRunner(sqlDB, migrate.Source(dir))
			if err != nil {
				return err
			}
			if err := fn(ctx, cmd, runner, argv); err != nil {
				logg.Error(ctx, "migration command failed", err)
				return err
			}
			version, err := runner.Version(ctx)
			if err == nil {
				logg.Info(logg.WithField(ctx, "version", version), "migration command finished")
			}
			return nil
		},
	}
}

func printStatus(ctx context.Context, cmd *cobra.Command, r *migrate.Runner, _ []string) error {
	statuses, err := r.Status(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
	for _, s := range statuses {
		applied := "-"
		if !s.AppliedAt.IsZero() {
			applied = s.AppliedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
	}
	return tw.Flush()
}

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "create <name>",
		Short:   "Write an empty timestamped SQL migration",
		Example: "  migrate create add_refund_events",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := dir
			if target == "" {
				target = migrate.SourceDir
			}
			path, err := migrate.NewSQLFile(target, args[0], time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created", path)
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check migration names and goose annotations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := migrate.Validate(migrate.Source(dir)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations ok")
			return nil
		},
	}
}
