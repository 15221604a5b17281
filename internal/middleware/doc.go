// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

/*
Package middleware provides HTTP middleware shared by the request router.

Key Components:

  - RequestID: UUID-based request tracking, also attached to the logging
    context so every log line of a request carries request_id
  - PrometheusMetrics: request count, latency and in-flight instrumentation
    labelled by the chi route pattern
  - Hold: pins the application state for the lifetime of a request so a
    reload cannot close the database under a running handler

Middleware in this package uses the func(http.HandlerFunc) http.HandlerFunc
shape; the api package adapts it to chi's r.Use.
*/
package middleware
