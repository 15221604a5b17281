// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/yaiss/internal/config"
	"github.com/tomtom215/yaiss/internal/images"
	"github.com/tomtom215/yaiss/internal/middleware"
	"github.com/tomtom215/yaiss/internal/state"
)

const apiPrefix = "/api/v1"

// NewRouter builds the request router over st. The router holds no reference
// of its own; each request retains st while it runs.
func NewRouter(st *state.AppState, cfg *config.Config) http.Handler {
	svc := images.NewService(st.DB, st.ImagesBasePath, images.WithMaxPixels(cfg.HTTP.MaxImagePixels))
	h := NewHandler(svc, cfg.HTTP.MaxUploadBytes)
	mw := NewChiMiddleware(ChiMiddlewareConfigFrom(cfg.HTTP))

	r := chi.NewRouter()

	// Global middleware, applied to all routes in order
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS()) // CORS must be global to handle OPTIONS preflight
	r.Use(chiMiddleware(middleware.Hold(st)))

	r.Get("/", h.Home)
	r.Handle("/metrics", promhttp.Handler())

	r.Route(apiPrefix, func(r chi.Router) {
		r.Use(mw.RateLimit())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Route("/images", func(r chi.Router) {
			r.Post("/", h.UploadImages)
			r.Get("/", h.ListImages)
			r.Post("/batch_delete", h.BatchDeleteImages)
			r.Get("/content/{id}", h.GetImageContent)
			r.Get("/{id}", h.GetImage)
			r.Delete("/{id}", h.DeleteImage)
		})
	})

	return r
}
