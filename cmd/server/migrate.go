package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"pharmacy/internal/config"
	"pharmacy/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				count, err := db.RunMigrations(ctx, pool)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				statuses, err := db.Status(ctx, pool)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT")
				for _, s := range statuses {
					state, at := "pending", "-"
					if s.Applied {
						state, at = "applied", s.AppliedAt.Format(time.RFC3339)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Version, state, at)
				}
				return tw.Flush()
			})
		},
	})

	return cmd
}

func withPool(ctx context.Context, fn func(context.Context, *pgxpool.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, pool)
}
