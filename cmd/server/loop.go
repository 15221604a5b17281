// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tomtom215/yaiss/internal/config"
	"github.com/tomtom215/yaiss/internal/logging"
	"github.com/tomtom215/yaiss/internal/state"
)

// configSource is the part of config.Source the loop drives.
type configSource interface {
	HasChange(ctx context.Context) error
	Reload() (*config.Config, error)
}

// serverSupervisor is the part of supervisor.ServerSupervisor the loop drives.
type serverSupervisor interface {
	Reload(ctx context.Context, st *state.AppState, cfg *config.Config) error
	Stop(ctx context.Context) error
}

// stateBuilder builds a fresh AppState for a configuration. state.Build
// satisfies it.
type stateBuilder func(ctx context.Context, cfg *config.Config) (*state.AppState, error)

// runLoop waits for SIGTERM, SIGINT or a configuration change. A change
// reloads the configuration, builds a new state and hands both to the
// supervisor. A signal or any reload failure ends the loop. The server is
// stopped exactly once on the way out.
func runLoop(ctx context.Context, src configSource, sup serverSupervisor, build stateBuilder, sigterm, sigint <-chan os.Signal) error {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	changes := make(chan struct{})
	watchErr := make(chan error, 1)
	go func() {
		for {
			if err := src.HasChange(watchCtx); err != nil {
				watchErr <- err
				return
			}
			select {
			case changes <- struct{}{}:
			case <-watchCtx.Done():
				return
			}
		}
	}()

	var loopErr error
loop:
	for {
		select {
		case <-sigterm:
			logging.Info().Msg("SIGTERM received, shutting down")
			break loop
		case <-sigint:
			logging.Info().Msg("SIGINT received, shutting down")
			break loop
		case <-ctx.Done():
			break loop
		case err := <-watchErr:
			loopErr = fmt.Errorf("watch configuration: %w", err)
			break loop
		case <-changes:
			logging.Info().Msg("Configuration changed, reloading")
			if err := reload(ctx, src, sup, build); err != nil {
				loopErr = err
				break loop
			}
		}
	}
	cancel()

	stopErr := sup.Stop(context.Background())
	if stopErr != nil {
		stopErr = fmt.Errorf("stop server: %w", stopErr)
	}
	return errors.Join(loopErr, stopErr)
}

func reload(ctx context.Context, src configSource, sup serverSupervisor, build stateBuilder) error {
	cfg, err := src.Reload()
	if err != nil {
		return fmt.Errorf("reload configuration: %w", err)
	}
	logging.Init(loggingConfig(cfg))

	st, err := build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build application state: %w", err)
	}
	if err := sup.Reload(ctx, st, cfg); err != nil {
		return fmt.Errorf("reload server: %w", err)
	}
	return nil
}
