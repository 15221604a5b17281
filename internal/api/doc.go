// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

/*
Package api builds the HTTP request router served by the server supervisor.

A router is built from one application state snapshot and one configuration
snapshot. Every request retains the state for its duration, so a reload can
release the previous state while requests against it are still running.

Routes:

	GET    /                              liveness text
	GET    /metrics                       Prometheus exposition
	POST   /api/v1/images                 multipart upload, one image per part
	GET    /api/v1/images?count=&offset=  page of image records
	GET    /api/v1/images/{id}            one image record
	GET    /api/v1/images/content/{id}    stored image bytes
	DELETE /api/v1/images/{id}            delete one image
	POST   /api/v1/images/batch_delete    delete up to 50 images by ID

Errors are returned as {"error": "<message>"}.
*/
package api
