// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

// Package models holds the records shared by storage, the image service and
// the HTTP layer.
package models

import "time"

// Image is one stored image record. Path is the file location on disk and is
// never exposed through the API.
type Image struct {
	ID        int64     `json:"id"`
	Path      string    `json:"-"`
	UpdatedOn time.Time `json:"updated_on"`
}

// ImageList is the response body of the image listing endpoint.
type ImageList struct {
	Images []Image `json:"images"`
}

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
}
