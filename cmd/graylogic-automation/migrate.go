package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-automation/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-automation/migrations"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect or change the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE:  runMigrateStatus,
		},
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			Args:  cobra.NoArgs,
			RunE: withDatabase(func(cmd *cobra.Command, db *database.DB) error {
				if err := db.Migrate(cmd.Context(), migrations.FS); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: withDatabase(func(cmd *cobra.Command, db *database.DB) error {
				if err := db.MigrateDown(cmd.Context(), migrations.FS); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "rolled back one migration")
				return nil
			}),
		},
	)
	return cmd
}

var runMigrateStatus = withDatabase(func(cmd *cobra.Command, db *database.DB) error {
	applied, pending, err := db.MigrationStatus(cmd.Context(), migrations.FS)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, r := range applied {
		fmt.Fprintf(out, "applied  %s  %s\n", r.Version, r.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	for _, m := range pending {
		fmt.Fprintf(out, "pending  %s  %s\n", m.Version, m.Name)
	}
	return nil
})

// withDatabase opens the configured database without migrating it.
func withDatabase(fn func(cmd *cobra.Command, db *database.DB) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		db, err := database.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()
		return fn(cmd, db)
	}
}
