// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/tomtom215/yaiss/internal/config"
	"github.com/tomtom215/yaiss/internal/database"
	"github.com/tomtom215/yaiss/internal/logging"
)

// Build information, set with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "yaiss",
		Short: "Yaiss - image upload service",
		Long: `Yaiss stores uploaded images and serves them over HTTP.

Configuration is read from the INI file named by INI_CONFIGURATION and
reloaded whenever that file is modified.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the service until SIGTERM or SIGINT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ResolvePath()
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			logging.Init(loggingConfig(cfg))
			return runMigrate(cmd.Context(), cfg)
		},
	}
}

func runMigrate(ctx context.Context, cfg *config.Config) error {
	db, err := database.Open(ctx, cfg.DatabaseURL())
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	applied, err := db.Migrate(ctx, cfg.MigrationsPath())
	if err != nil {
		return err
	}
	current, err := db.SchemaVersion(ctx, cfg.MigrationsPath())
	if err != nil {
		return err
	}
	logging.Info().Int("applied", applied).Int64("version", current).Msg("Migrations complete")
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "yaiss %s (commit %s, %s)\n", version, commit, runtime.Version())
		},
	}
}

// loggingConfig maps the [LOGGING] section onto the logger settings.
func loggingConfig(cfg *config.Config) logging.Config {
	lc := logging.DefaultConfig()
	if cfg.Logging.Level != "" {
		lc.Level = cfg.Logging.Level
	}
	if cfg.Logging.Format != "" {
		lc.Format = cfg.Logging.Format
	}
	lc.Caller = cfg.Logging.Caller
	return lc
}
