// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"sync/atomic"
	"time"

	"github.com/tomtom215/yaiss/internal/config"
	"github.com/tomtom215/yaiss/internal/logging"
	"github.com/tomtom215/yaiss/internal/metrics"
	"github.com/tomtom215/yaiss/internal/state"
)

// RouterBuilder builds the request router for a state and configuration.
// api.NewRouter satisfies it.
type RouterBuilder func(st *state.AppState, cfg *config.Config) http.Handler

// ServerSupervisorConfig holds the drain timings.
type ServerSupervisorConfig struct {
	// GracePeriod bounds how long Stop waits for in-flight requests before
	// it stops waiting on the server and only polls the connection count.
	// Requests running past it are not killed.
	GracePeriod time.Duration

	// PollInterval is the connection count poll period while draining.
	PollInterval time.Duration
}

// DefaultServerSupervisorConfig returns the production drain timings.
func DefaultServerSupervisorConfig() ServerSupervisorConfig {
	return ServerSupervisorConfig{
		GracePeriod:  3 * time.Second,
		PollInterval: time.Second,
	}
}

// ServerSupervisor owns the HTTP listener and rebinds it on configuration
// changes.
//
// Serve, Reload and Stop must be called from a single goroutine. At most one
// listener exists at any time: a handle is present exactly while serving.
// The supervisor holds one reference on its current AppState.
type ServerSupervisor struct {
	tree   *SupervisorTree
	build  RouterBuilder
	config ServerSupervisorConfig

	handle atomic.Pointer[handle]

	address netip.AddrPort
	router  http.Handler
	state   *state.AppState
	cfg     *config.Config
}

// NewServerSupervisor creates a stopped supervisor for cfg. It takes over the
// caller's reference on st.
func NewServerSupervisor(tree *SupervisorTree, build RouterBuilder, st *state.AppState, cfg *config.Config, sc ServerSupervisorConfig) *ServerSupervisor {
	defaults := DefaultServerSupervisorConfig()
	if sc.GracePeriod <= 0 {
		sc.GracePeriod = defaults.GracePeriod
	}
	if sc.PollInterval <= 0 {
		sc.PollInterval = defaults.PollInterval
	}
	return &ServerSupervisor{
		tree:    tree,
		build:   build,
		config:  sc,
		address: cfg.Address(),
		router:  build(st, cfg),
		state:   st,
		cfg:     cfg,
	}
}

// Serve binds the current address and starts accepting in the background.
// It is a no-op while already serving. Bind errors are returned.
func (s *ServerSupervisor) Serve() error {
	if s.handle.Load() != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.address.String())
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.address, err)
	}

	h := newHandle(ln, s.router, s.cfg.HTTP.ReadHeaderTimeout, s.config.GracePeriod)
	s.handle.Store(h)
	s.tree.AddAPIService(h.loop)
	metrics.SetServing(true)

	logging.Info().Str("address", h.bound.String()).Msg("Starting server")
	return nil
}

// Reload applies a new state and configuration. When the address is
// unchanged nothing happens and st is released. Otherwise the server is
// stopped, the address, router and state are replaced and the server is
// started again on the new address.
func (s *ServerSupervisor) Reload(ctx context.Context, st *state.AppState, cfg *config.Config) error {
	addr := cfg.Address()
	if addr == s.address {
		st.Release()
		metrics.RecordReload(metrics.ReloadSkipped)
		logging.Info().Str("address", addr.String()).Msg("Address unchanged, keeping current server")
		return nil
	}

	if err := s.Stop(ctx); err != nil {
		st.Release()
		metrics.RecordReload(metrics.ReloadFailed)
		return fmt.Errorf("stop before rebind: %w", err)
	}

	previous := s.state
	s.address = addr
	s.cfg = cfg
	s.state = st
	s.router = s.build(st, cfg)
	previous.Release()

	if err := s.Serve(); err != nil {
		metrics.RecordReload(metrics.ReloadFailed)
		return err
	}
	metrics.RecordReload(metrics.ReloadRebound)
	return nil
}

// Stop shuts the server down gracefully and returns once every client
// connection is closed. It is a no-op when not serving.
//
// In-flight requests get the grace period to finish; after that the
// connection count is polled until it reaches zero. Connections are never
// forcibly closed. ctx cancels the wait, not the shutdown.
func (s *ServerSupervisor) Stop(ctx context.Context) error {
	h := s.handle.Swap(nil)
	if h == nil {
		return nil
	}
	metrics.SetServing(false)
	start := time.Now()

	graceCtx, cancel := context.WithTimeout(ctx, s.config.GracePeriod)
	err := h.server.Shutdown(graceCtx)
	cancel()
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown %s: %w", h.bound, err)
	}
	if err != nil {
		logging.Info().
			Int64("connections", h.connections()).
			Dur("grace_period", s.config.GracePeriod).
			Msg("Grace period elapsed, waiting for connections to close")
	}

	select {
	case <-h.loop.Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := s.waitForConnections(ctx, h); err != nil {
		return err
	}

	elapsed := time.Since(start)
	metrics.RecordDrain(elapsed)
	logging.Info().Str("address", h.bound.String()).Dur("drain", elapsed).Msg("Stopping server")
	return nil
}

func (s *ServerSupervisor) waitForConnections(ctx context.Context, h *handle) error {
	if h.connections() <= 0 {
		return nil
	}

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()
	for h.connections() > 0 {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close releases the supervisor's reference on its state. Call it once,
// after the final Stop.
func (s *ServerSupervisor) Close() {
	s.state.Release()
}

// Addr returns the bound listener address and whether the supervisor is
// serving. With port 0 configured it reports the ephemeral port.
func (s *ServerSupervisor) Addr() (netip.AddrPort, bool) {
	h := s.handle.Load()
	if h == nil {
		return netip.AddrPort{}, false
	}
	return h.bound, true
}

// Connections returns the live client connection count, 0 when stopped.
func (s *ServerSupervisor) Connections() int64 {
	h := s.handle.Load()
	if h == nil {
		return 0
	}
	return h.connections()
}
