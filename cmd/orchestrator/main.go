// The orchestrator binary serves the post-quantum AKE orchestration API.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/pqops/ake-orchestrator/ake"
	"github.com/pqops/ake-orchestrator/api/akehandler"
	"github.com/pqops/ake-orchestrator/api/clients"
	"github.com/pqops/ake-orchestrator/cmd/flags"
	"github.com/pqops/ake-orchestrator/httpserver"
	"github.com/pqops/ake-orchestrator/probe"
)

var cliFlags = []cli.Flag{
	flags.ListenAddrFlag,
	flags.MetricsAddrFlag,
	flags.KyberAddrFlag,
	flags.DilithiumAddrFlag,
	flags.FalconAddrFlag,
	flags.RotationAddrFlag,
	flags.LogJSONFlag,
	flags.LogDebugFlag,
	flags.LogUIDFlag,
	flags.LogServiceFlag,
	flags.PprofFlag,
	flags.DrainSecondsFlag,
}

func main() {
	app := &cli.App{
		Name:  "orchestrator",
		Usage: "Serve the post-quantum AKE orchestration API",
		Flags: cliFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			backends := flags.ConfigureBackends(cCtx)
			cfg := flags.ConfigureServer(cCtx, logger)

			orchestrator := ake.NewOrchestrator(
				probe.New(),
				backends,
				clients.NewKEMClient(),
				clients.NewSignerClient(),
				clients.NewRotationClient(),
				logger,
			)

			handler := akehandler.NewHandler(orchestrator, logger)

			server, err := httpserver.New(cfg, handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			logger.Info("Starting server")
			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
