// Command graylogic-automation runs the Gray Logic automation core: the
// event bus, job scheduler and rule engine, bridged to MQTT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "graylogic-automation",
		Short: "Gray Logic automation core",
		Long:  "graylogic-automation runs rules against item events and bridges them to MQTT.",
		// SilenceUsage prevents printing usage on every error
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "Config file (default $GRAYLOGIC_CONFIG or configs/config.yaml)")

	root.Version = version
	root.SetVersionTemplate(fmt.Sprintf("graylogic-automation version %s\n", version))

	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newImportCmd())
	root.AddCommand(newMigrateCmd())
	return root
}
