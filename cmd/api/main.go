package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"cementops/admin/internal/config"
	"cementops/admin/internal/logging"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "api",
		Short:         "CementOps admin backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	serve := newServeCmd()
	cmd.RunE = serve.RunE
	cmd.AddCommand(serve, newMigrateCmd(), newSeedCmd())
	return cmd
}

// setup loads the config and builds the process logger. Errors are logged
// here so every subcommand reports them the same way.
func setup() (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Error("load config")
		return config.Config{}, nil, err
	}
	return cfg, logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr), nil
}
