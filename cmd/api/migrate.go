package main

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/pkordes/travel-karte/internal/config"
	"github.com/pkordes/travel-karte/migrations"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the embedded schema migrations",
	}
	cmd.AddCommand(
		migrateStep("up", "Apply all pending migrations", func(p *goose.Provider, cmd *cobra.Command) ([]*goose.MigrationResult, error) {
			return p.Up(cmd.Context())
		}),
		migrateStep("down", "Roll back the most recent migration", func(p *goose.Provider, cmd *cobra.Command) ([]*goose.MigrationResult, error) {
			res, err := p.Down(cmd.Context())
			if res == nil {
				return nil, err
			}
			return []*goose.MigrationResult{res}, err
		}),
		&cobra.Command{
			Use:   "status",
			Short: "Show which migrations have been applied",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withProvider(func(p *goose.Provider) error {
					statuses, err := p.Status(cmd.Context())
					if err != nil {
						return err
					}
					for _, s := range statuses {
						applied := "pending"
						if s.State == goose.StateApplied {
							applied = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
						fmt.Fprintf(cmd.OutOrStdout(), "%-6d %-40s %s\n", s.Source.Version, s.Source.Path, applied)
					}
					return nil
				})
			},
		},
	)
	return cmd
}

func migrateStep(use, short string, run func(*goose.Provider, *cobra.Command) ([]*goose.MigrationResult, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withProvider(func(p *goose.Provider) error {
				results, err := run(p, cmd)
				for _, r := range results {
					fmt.Fprintln(cmd.OutOrStdout(), r.String())
				}
				return err
			})
		},
	}
}

// withProvider opens the configured database through database/sql, which
// goose requires, and builds a provider over the embedded migrations.
func withProvider(fn func(*goose.Provider) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	return fn(provider)
}
