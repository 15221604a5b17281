// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

package middleware

import (
	"net/http"

	"github.com/tomtom215/yaiss/internal/logging"
)

// Holder is a reference counted resource. *state.AppState implements it.
type Holder interface {
	Retain() error
	Release()
}

// Hold retains h for the duration of each request and releases it when the
// handler returns. Requests arriving after h was fully released get 503.
func Hold(h Holder) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if err := h.Retain(); err != nil {
				logging.Ctx(r.Context()).Warn().Err(err).Msg("Request arrived after state release")
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
			defer h.Release()
			next(w, r)
		}
	}
}
