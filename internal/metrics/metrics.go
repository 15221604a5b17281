// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

// Package metrics holds the Prometheus collectors of the service:
// SQLite query performance, API throughput, image traffic and the
// lifecycle of the HTTP listener.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlite_query_duration_seconds",
			Help:    "Duration of SQLite queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlite_query_errors_total",
			Help: "Total number of SQLite query errors",
		},
		[]string{"operation", "table"},
	)

	DBMigrationsApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlite_migrations_applied_total",
			Help: "Total number of schema migrations applied",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Image Metrics
	ImagesStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "images_stored_total",
			Help: "Total number of images written to the image store",
		},
	)

	ImagesStoredBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "images_stored_bytes_total",
			Help: "Total number of encoded image bytes written to disk",
		},
	)

	ImagesDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "images_deleted_total",
			Help: "Total number of images removed from the image store",
		},
	)

	// Server Lifecycle Metrics
	ServerConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_server_connections",
			Help: "Current number of open client connections on the listener",
		},
	)

	ServerServing = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_server_serving",
			Help: "1 while a listener is bound, 0 otherwise",
		},
	)

	ServerReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_reloads_total",
			Help: "Total number of reload requests by outcome",
		},
		[]string{"outcome"},
	)

	ServerDrainDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "http_server_drain_duration_seconds",
			Help:    "Time from stop request until the last connection closed",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 3, 5, 10, 30},
		},
	)

	ConfigReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "config_reloads_total",
			Help: "Total number of configuration reloads by result",
		},
		[]string{"result"},
	)
)

// Reload outcomes recorded by the server supervisor.
const (
	ReloadSkipped = "skipped"
	ReloadRebound = "rebound"
	ReloadFailed  = "failed"
)

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordImageStored records one image written to disk.
func RecordImageStored(size int64) {
	ImagesStored.Inc()
	ImagesStoredBytes.Add(float64(size))
}

// RecordImagesDeleted records n images removed from the store.
func RecordImagesDeleted(n int) {
	ImagesDeleted.Add(float64(n))
}

// SetServing records whether a listener is currently bound.
func SetServing(serving bool) {
	if serving {
		ServerServing.Set(1)
	} else {
		ServerServing.Set(0)
	}
}

// RecordReload records the outcome of a supervisor reload.
func RecordReload(outcome string) {
	ServerReloads.WithLabelValues(outcome).Inc()
}

// RecordDrain records how long a stop took to drain all connections.
func RecordDrain(duration time.Duration) {
	ServerDrainDuration.Observe(duration.Seconds())
}

// RecordConfigReload records a configuration reload attempt.
func RecordConfigReload(err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	ConfigReloads.WithLabelValues(result).Inc()
}
