// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

package supervisor

import (
	"net"
	"net/http"
	"net/netip"
	"sync/atomic"
	"time"

	"github.com/tomtom215/yaiss/internal/metrics"
	"github.com/tomtom215/yaiss/internal/supervisor/services"
)

// handle is one bound listener and the server accepting on it.
type handle struct {
	server   *http.Server
	listener net.Listener
	bound    netip.AddrPort
	loop     *services.AcceptLoopService

	// conns counts connections between StateNew and StateClosed or
	// StateHijacked.
	conns atomic.Int64
}

func newHandle(ln net.Listener, router http.Handler, readHeaderTimeout, shutdownTimeout time.Duration) *handle {
	h := &handle{listener: ln}
	if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
		h.bound = tcp.AddrPort()
	}
	h.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
		ConnState:         h.trackConn,
	}
	h.loop = services.NewAcceptLoopService(h.server, ln, shutdownTimeout)
	return h
}

func (h *handle) trackConn(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		h.conns.Add(1)
		metrics.ServerConnections.Inc()
	case http.StateHijacked, http.StateClosed:
		h.conns.Add(-1)
		metrics.ServerConnections.Dec()
	}
}

// connections returns the number of live client connections.
func (h *handle) connections() int64 {
	return h.conns.Load()
}
