// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

package api

import (
	"fmt"

	"github.com/tomtom215/yaiss/internal/images"
)

// Client-facing error messages.
const (
	msgInternalError     = "Internal error"
	msgImageNotFound     = "Image not found"
	msgInvalidImage      = "Invalid image"
	msgInvalidRequest    = "Invalid request"
	msgInvalidIdentifier = "Invalid identifier"
	msgPayloadTooLarge   = "Payload too large"
)

var msgTooManyImages = fmt.Sprintf("Too many images to delete. Max: %d", images.MaxBatchDelete)
