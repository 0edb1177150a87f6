package main

import (
	"fmt"
	"os"

	"carbook/internal/config"
	"carbook/internal/database"
	"carbook/internal/logging"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type env struct {
	cfg    *config.Config
	db     *database.DB
	logger *zerolog.Logger
}

func (e *env) Close() {
	if e.db != nil {
		_ = e.db.Close()
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "fleetctl",
		Short: "Admin tool for the carbook booking service",
		Long: `fleetctl manages users, cars and database backups of a carbook installation.

It reads the same YAML config as the API server.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "configs/config.yaml"
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", defaultConfig, "path to config file")

	open := func() (*env, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		logger := logging.NewWithWriter(os.Stderr, cfg.Logging.Level, cfg.App)
		db, err := database.NewDB(cfg.Database.Path, logger, database.WithAllowOverlap(cfg.Booking.AllowOverlap))
		if err != nil {
			return nil, err
		}
		return &env{cfg: cfg, db: db, logger: logger}, nil
	}

	cmd.AddCommand(
		newUserCmd(open),
		newCarCmd(open),
		newCalendarCmd(open),
		newBackupCmd(open),
		newSeedCmd(open),
	)
	return cmd
}
