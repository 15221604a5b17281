// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

package database

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pressly/goose/v3"

	"github.com/tomtom215/yaiss/internal/logging"
	"github.com/tomtom215/yaiss/internal/metrics"
)

// Migrate applies every pending goose migration found in dir and returns the
// number applied. A directory without migration files is an error: the
// service cannot run without its schema.
func (db *DB) Migrate(ctx context.Context, dir string) (int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return 0, fmt.Errorf("migrations directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("migrations path %s is not a directory", dir)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db.conn, os.DirFS(dir))
	if err != nil {
		if errors.Is(err, goose.ErrNoMigrations) {
			return 0, fmt.Errorf("no migrations found in %s: %w", dir, err)
		}
		return 0, fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to apply migrations from %s: %w", dir, err)
	}

	for _, r := range results {
		logging.Info().
			Int64("version", r.Source.Version).
			Str("file", r.Source.Path).
			Dur("duration", r.Duration).
			Msg("Applied migration")
	}
	metrics.DBMigrationsApplied.Add(float64(len(results)))
	return len(results), nil
}

// SchemaVersion returns the highest applied migration version.
func (db *DB) SchemaVersion(ctx context.Context, dir string) (int64, error) {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db.conn, os.DirFS(dir))
	if err != nil {
		return 0, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return provider.GetDBVersion(ctx)
}
