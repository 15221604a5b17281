// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/yaiss/internal/api"
	"github.com/tomtom215/yaiss/internal/config"
	"github.com/tomtom215/yaiss/internal/logging"
	"github.com/tomtom215/yaiss/internal/state"
	"github.com/tomtom215/yaiss/internal/supervisor"
)

// treeStopTimeout bounds how long the supervisor tree gets to wind down after
// the server has already been drained.
const treeStopTimeout = 5 * time.Second

func runServe() error {
	src, err := config.NewSource()
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	defer func() { _ = src.Close() }()

	cfg := src.Config()
	logging.Init(loggingConfig(cfg))
	logging.Info().Str("config", src.Path()).Str("version", version).Msg("Starting yaiss")

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create supervisor tree")
		return err
	}

	treeCtx, cancelTree := context.WithCancel(context.Background())
	defer cancelTree()
	treeErr := tree.ServeBackground(treeCtx)

	ctx := context.Background()
	st, err := state.Build(ctx, cfg)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to build application state")
		return err
	}

	sup := supervisor.NewServerSupervisor(tree, api.NewRouter, st, cfg, supervisor.DefaultServerSupervisorConfig())
	defer sup.Close()
	if err := sup.Serve(); err != nil {
		logging.Error().Err(err).Msg("Failed to start server")
		return err
	}

	sigterm := make(chan os.Signal, 1)
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigterm, syscall.SIGTERM)
	signal.Notify(sigint, syscall.SIGINT)
	defer signal.Stop(sigterm)
	defer signal.Stop(sigint)

	loopErr := runLoop(ctx, src, sup, state.Build, sigterm, sigint)

	cancelTree()
	stopTree(tree, treeErr)

	if loopErr != nil {
		logging.Error().Err(loopErr).Msg("Server loop failed")
		return loopErr
	}
	logging.Info().Msg("Application stopped gracefully")
	return nil
}

// stopTree waits for the supervisor tree to return and reports services
// that did not stop in time.
func stopTree(tree *supervisor.SupervisorTree, treeErr <-chan error) {
	select {
	case err := <-treeErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Warn().Err(err).Msg("Supervisor tree stopped with error")
		}
	case <-time.After(treeStopTimeout):
		logging.Warn().Dur("timeout", treeStopTimeout).Msg("Supervisor tree did not stop in time")
	}

	unstopped, err := tree.UnstoppedServiceReport()
	if err != nil {
		logging.Warn().Err(err).Msg("Could not get unstopped service report")
		return
	}
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}
}
