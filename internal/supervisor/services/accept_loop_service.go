// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

package services

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/yaiss/internal/logging"
)

// HTTPServer interface matches the *http.Server methods the accept loop uses.
type HTTPServer interface {
	Serve(l net.Listener) error
	Shutdown(ctx context.Context) error
}

// AcceptLoopService runs an HTTP server's accept loop on an already bound
// listener as a supervised service.
//
// Binding happens before the service is added to the tree, so bind errors
// reach the caller synchronously. The loop ends for good once the server is
// shut down or the listener fails: Serve then returns suture.ErrDoNotRestart
// and Done is closed. A panic escaping the loop is left to suture, which
// logs it and restarts the loop on the same listener.
type AcceptLoopService struct {
	server          HTTPServer
	listener        net.Listener
	shutdownTimeout time.Duration
	name            string

	done     chan struct{}
	doneOnce sync.Once
}

// NewAcceptLoopService creates an accept loop for server on listener.
//
// shutdownTimeout bounds the graceful shutdown issued when the supervisor
// tree itself is stopping. The owner normally shuts the server down first.
func NewAcceptLoopService(server HTTPServer, listener net.Listener, shutdownTimeout time.Duration) *AcceptLoopService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 3 * time.Second
	}
	return &AcceptLoopService{
		server:          server,
		listener:        listener,
		shutdownTimeout: shutdownTimeout,
		name:            "accept-loop " + listener.Addr().String(),
		done:            make(chan struct{}),
	}
}

// Serve implements suture.Service.
func (s *AcceptLoopService) Serve(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			if err := s.server.Shutdown(shutdownCtx); err != nil {
				logging.Warn().Err(err).Str("service", s.name).Msg("Shutdown on tree stop did not complete")
			}
		case <-stop:
		}
	}()

	err := s.server.Serve(s.listener)
	if !errors.Is(err, http.ErrServerClosed) {
		logging.Error().Err(err).Str("service", s.name).Msg("Accept loop failed")
	}
	s.doneOnce.Do(func() { close(s.done) })
	return suture.ErrDoNotRestart
}

// Done is closed when the accept loop has ended for good.
func (s *AcceptLoopService) Done() <-chan struct{} {
	return s.done
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (s *AcceptLoopService) String() string {
	return s.name
}
