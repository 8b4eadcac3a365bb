package cmd

import (
	"os"

	"github.com/appdock/appdock/internal/config"
	"github.com/appdock/appdock/internal/telemetry"
	"github.com/appdock/appdock/pkg/sandbox/daemon"
	"github.com/spf13/cobra"
)

var sandboxDaemonCmd = &cobra.Command{
	Use:   "sandbox-daemon",
	Short: "Start Sandbox Daemon",
	Run: func(cmd *cobra.Command, args []string) {
		conf := config.ReadConfig()

		os.Setenv("OTEL_SERVICE_NAME", "sandbox-daemon")

		shutdownTelemetry := telemetry.NewProvider(conf.OTEL_EXPORTER_OTLP_ENDPOINT)
		defer shutdownTelemetry()

		daemon.Run()
	},
}

// Register the "sandbox-daemon" command
func init() {
	rootCmd.AddCommand(sandboxDaemonCmd)
}
