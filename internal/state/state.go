// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

// Package state builds the application state shared by request handlers: the
// storage handle and the static image directory.
//
// An AppState is built fresh from every configuration snapshot, including a
// new database connection and a new migration run. It is reference counted:
// the server supervisor holds one reference and every in-flight request holds
// another, so the previous state's database closes only after the last
// request that started before a reload has finished.
package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/yaiss/internal/config"
	"github.com/tomtom215/yaiss/internal/database"
	"github.com/tomtom215/yaiss/internal/logging"
)

// ErrReleased is returned by Retain after the last reference was released.
var ErrReleased = errors.New("state: already released")

// AppState is an immutable snapshot built from one configuration.
type AppState struct {
	DB             *database.DB
	ImagesBasePath string

	refs atomic.Int64
}

// New wraps an already opened database. The returned state holds one
// reference owned by the caller.
func New(db *database.DB, imagesBasePath string) *AppState {
	st := &AppState{DB: db, ImagesBasePath: imagesBasePath}
	st.refs.Store(1)
	return st
}

// Build opens the database, applies migrations and prepares the image
// directory. The work runs on its own goroutine and Build waits for it, so
// slow disk I/O never runs on the caller's goroutine while still returning
// synchronously. On failure everything opened so far is closed.
func Build(ctx context.Context, cfg *config.Config) (*AppState, error) {
	var st *AppState

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		built, err := build(gctx, cfg)
		if err != nil {
			return err
		}
		st = built
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return st, nil
}

func build(ctx context.Context, cfg *config.Config) (*AppState, error) {
	db, err := database.Open(ctx, cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	applied, err := db.Migrate(ctx, cfg.MigrationsPath())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate storage: %w", err)
	}

	if err := os.MkdirAll(cfg.ImagesBasePath(), 0o750); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create image directory %s: %w", cfg.ImagesBasePath(), err)
	}

	logging.Info().
		Str("database", db.Path()).
		Int("migrations_applied", applied).
		Str("images_base_path", cfg.ImagesBasePath()).
		Msg("Application state built")

	return New(db, cfg.ImagesBasePath()), nil
}

// Retain adds a reference. It fails once the state has been fully released.
func (s *AppState) Retain() error {
	for {
		n := s.refs.Load()
		if n <= 0 {
			return ErrReleased
		}
		if s.refs.CompareAndSwap(n, n+1) {
			return nil
		}
	}
}

// Release drops a reference and closes the database when it was the last.
func (s *AppState) Release() {
	n := s.refs.Add(-1)
	switch {
	case n == 0:
		if err := s.DB.Close(); err != nil {
			logging.Warn().Err(err).Str("database", s.DB.Path()).Msg("Failed to close released database")
			return
		}
		logging.Debug().Str("database", s.DB.Path()).Msg("Released application state")
	case n < 0:
		logging.Error().Int64("refs", n).Msg("AppState released more times than retained")
	}
}

// Refs returns the current reference count.
func (s *AppState) Refs() int64 {
	return s.refs.Load()
}
