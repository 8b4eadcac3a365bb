package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/appdock/appdock/internal/config"
	"github.com/appdock/appdock/internal/services"
	"github.com/appdock/appdock/internal/services/lifecycle"
	"github.com/appdock/appdock/internal/telemetry"
	"github.com/spf13/cobra"
)

var reaperCmd = &cobra.Command{
	Use:   "reaper",
	Short: "Run the sandbox reaper standalone",
	Long:  "Periodically tears down registered sandboxes that outlived their TTL. Useful when the build server runs without background workers.",
	Run: func(cmd *cobra.Command, args []string) {
		conf := config.ReadConfig()

		os.Setenv("OTEL_SERVICE_NAME", "sandbox-reaper")

		shutdownTelemetry := telemetry.NewProvider(conf.OTEL_EXPORTER_OTLP_ENDPOINT)
		defer shutdownTelemetry()

		svc := services.NewServices(conf)
		if svc.Registry == nil || svc.Lifecycle == nil {
			log.Fatalln("reaper requires redis and a sandbox backend to be configured")
		}

		reaper := lifecycle.NewReaper(
			svc.Lifecycle,
			svc.Registry,
			time.Duration(conf.SANDBOX_TTL_MINUTES)*time.Minute,
			time.Duration(conf.REAPER_INTERVAL_MINUTES)*time.Minute,
		)
		reaper.Start()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c

		reaper.Stop()
	},
}

// Register the "reaper" command
func init() {
	rootCmd.AddCommand(reaperCmd)
}
