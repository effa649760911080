package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-automation/internal/automation"
)

// errInvalidModels is returned when at least one file failed validation.
var errInvalidModels = errors.New("invalid rule models")

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.rules>...",
		Short: "Check rule model files without loading them",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	failed := 0
	for _, path := range args {
		data, err := os.ReadFile(path) //nolint:gosec // Path is a command argument
		if err != nil {
			fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
			failed++
			continue
		}
		m, err := automation.ParseModel(filepath.Base(path), data)
		if err != nil {
			fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "ok   %s (%d rules)\n", path, len(m.Rules))
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d files", errInvalidModels, failed, len(args))
	}
	return nil
}
