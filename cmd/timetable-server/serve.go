package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/coregx/timetable/system"
)

func newServeCmd() *cobra.Command {
	var (
		configFile  string
		port        int
		algosDir    string
		runTimeout  int
		tempDir     string
		metricsAddr string
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the scheduling job server and block until shutdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			// LoadConfig binds cmd.Flags() onto its own viper instance
			// (system/config.go's flagKeys), so flag values already take
			// precedence over the config file and environment per
			// viper's own layering — no manual flags.Changed overrides
			// needed here.
			cfg, err := system.LoadConfig(configFile, cmd.Flags())
			if err != nil {
				return err
			}

			log, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			sys := system.New(cfg, log)
			if err := sys.Start(); err != nil {
				return err
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			log.Info("received shutdown signal")
			return sys.Stop()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "path to a config file (yaml/json/toml)")
	flags.IntVar(&port, "port", system.DefaultConfig().Port, "TCP port to listen on")
	flags.StringVar(&algosDir, "algos-dir", system.DefaultConfig().AlgosDir, "directory to scan for algorithm executables")
	flags.IntVar(&runTimeout, "run-timeout", system.DefaultConfig().RunTimeoutSeconds, "default algorithm run timeout in seconds (0 = built-in default)")
	flags.StringVar(&tempDir, "temp-dir", system.DefaultConfig().TempDir, "directory for per-run temp files (empty = OS default)")
	flags.StringVar(&metricsAddr, "metrics-addr", system.DefaultConfig().MetricsAddr, "address to serve Prometheus /metrics on (empty = disabled)")
	flags.StringVar(&logLevel, "log-level", system.DefaultConfig().LogLevel, "log level: debug|info|warn|error")

	return cmd
}

func newLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
