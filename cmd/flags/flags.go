// Package flags holds the CLI flag definitions and configuration helpers
// shared by the module's binaries.
package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pqops/ake-orchestrator/common"
	"github.com/pqops/ake-orchestrator/config"
	"github.com/pqops/ake-orchestrator/httpserver"
)

// SetupLogger builds the process logger from the logging flags.
func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJSONFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUIDFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

// ConfigureServer builds the HTTP server configuration from the server
// flags.
func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *httpserver.HTTPServerConfig {
	return &httpserver.HTTPServerConfig{
		ListenAddr:               cCtx.String(ListenAddrFlag.Name),
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// ConfigureBackends builds the immutable backend candidate lists from the
// override flags.
func ConfigureBackends(cCtx *cli.Context) config.Backends {
	return config.NewBackends(config.Overrides{
		Kyber:     cCtx.String(KyberAddrFlag.Name),
		Dilithium: cCtx.String(DilithiumAddrFlag.Name),
		Falcon:    cCtx.String(FalconAddrFlag.Name),
		Rotation:  cCtx.String(RotationAddrFlag.Name),
	})
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}

var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var KyberAddrFlag = &cli.StringFlag{
	Name:  "kyber-addr",
	Usage: "explicit base URL of the KEM backend, probed before the fixed fallbacks",
}

var DilithiumAddrFlag = &cli.StringFlag{
	Name:  "dilithium-addr",
	Usage: "explicit base URL of the Dilithium signature backend",
}

var FalconAddrFlag = &cli.StringFlag{
	Name:  "falcon-addr",
	Usage: "explicit base URL of the Falcon signature backend",
}

var RotationAddrFlag = &cli.StringFlag{
	Name:  "rotation-addr",
	Usage: "explicit base URL of the optional key-rotation backend",
}

var LogJSONFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}

var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}

var LogUIDFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: common.PackageName,
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}

var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
