package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-automation/internal/item"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <items.yaml>",
		Short: "Create or update items from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := openDatabase(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	registry := item.NewRegistry(item.NewSQLiteRepository(db.DB))
	if err := registry.RefreshCache(cmd.Context()); err != nil {
		return fmt.Errorf("loading items: %w", err)
	}

	created, updated, err := registry.ImportFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d items (%d created, %d updated)\n", created+updated, created, updated)
	return nil
}
