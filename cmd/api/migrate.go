package main

import (
	"github.com/spf13/cobra"

	"cementops/admin/internal/db"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [command] [args...]",
		Short: "Run a goose migration command (default: up)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			command := "up"
			if len(args) > 0 {
				command, args = args[0], args[1:]
			}
			if err := db.Migrate(cmd.Context(), cfg.DatabaseURL, cfg.MigrationsDir, command, args...); err != nil {
				log.WithError(err).Error("migrate")
				return err
			}
			log.WithField("command", command).Info("migrate done")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create or refresh the default admin users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			pool, err := db.Connect(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				log.WithError(err).Error("db connect")
				return err
			}
			defer pool.Close()

			if err := db.Seed(cmd.Context(), pool, db.SeedOptions{AdminPassword: cfg.SeedAdminPassword, APIToken: cfg.SeedAPIToken}); err != nil {
				log.WithError(err).Error("seed")
				return err
			}
			log.Info("seed done")
			return nil
		},
	}
}
