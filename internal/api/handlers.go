// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/yaiss/internal/images"
	"github.com/tomtom215/yaiss/internal/logging"
	"github.com/tomtom215/yaiss/internal/models"
)

// Handler serves the image endpoints for one application state.
type Handler struct {
	images         *images.Service
	maxUploadBytes int64
}

// NewHandler creates a handler. maxUploadBytes bounds a whole upload request.
func NewHandler(svc *images.Service, maxUploadBytes int64) *Handler {
	return &Handler{images: svc, maxUploadBytes: maxUploadBytes}
}

// Home answers the liveness probe at /.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "Hello world!")
}

// UploadImages stores every part of a multipart body as one image.
// Parts stored before a failing part are kept.
func (h *Handler) UploadImages(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	mr, err := r.MultipartReader()
	if err != nil {
		respondError(w, r, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	uploaded := 0
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			h.uploadError(w, r, err)
			return
		}

		_, err = h.images.Upload(r.Context(), part)
		_ = part.Close()
		if err != nil {
			h.uploadError(w, r, err)
			return
		}
		uploaded++
	}

	logging.Ctx(r.Context()).Debug().Int("count", uploaded).Msg("Upload complete")
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) uploadError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		respondError(w, r, http.StatusRequestEntityTooLarge, msgPayloadTooLarge, nil)
	case errors.Is(err, images.ErrInvalidImage):
		respondError(w, r, http.StatusBadRequest, msgInvalidImage, nil)
	default:
		respondInternal(w, r, err)
	}
}

// ListImages returns a page of image records. count defaults to 50 and
// offset to 0.
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	page := images.DefaultPage()
	query := r.URL.Query()

	var err error
	if v := query.Get("count"); v != "" {
		if page.Count, err = strconv.Atoi(v); err != nil {
			respondError(w, r, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}
	if v := query.Get("offset"); v != "" {
		if page.Offset, err = strconv.Atoi(v); err != nil {
			respondError(w, r, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}

	list, err := h.images.List(r.Context(), page)
	if errors.Is(err, images.ErrInvalidPagination) {
		respondError(w, r, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	if list == nil {
		list = []models.Image{}
	}
	respondJSON(w, r, http.StatusOK, models.ImageList{Images: list})
}

// GetImage returns one image record.
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := imageID(w, r)
	if !ok {
		return
	}

	img, err := h.images.Get(r.Context(), id)
	if err != nil {
		h.lookupError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, img)
}

// GetImageContent streams the stored image file.
func (h *Handler) GetImageContent(w http.ResponseWriter, r *http.Request) {
	id, ok := imageID(w, r)
	if !ok {
		return
	}

	img, f, err := h.images.Open(r.Context(), id)
	if err != nil {
		h.lookupError(w, r, err)
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", images.ContentType)
	http.ServeContent(w, r, "", img.UpdatedOn, f)
}

// DeleteImage removes one image.
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := imageID(w, r)
	if !ok {
		return
	}

	if err := h.images.Delete(r.Context(), id); err != nil {
		h.lookupError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// BatchDeleteImages removes the images named by a JSON array of IDs.
// Unknown IDs are ignored.
func (h *Handler) BatchDeleteImages(w http.ResponseWriter, r *http.Request) {
	var ids []int64
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		respondError(w, r, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	n, err := h.images.BatchDelete(r.Context(), ids)
	if errors.Is(err, images.ErrTooManyImages) {
		respondError(w, r, http.StatusInternalServerError, msgTooManyImages, nil)
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Debug().Int("requested", len(ids)).Int("deleted", n).Msg("Batch delete complete")
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) lookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, images.ErrNotFound) {
		respondError(w, r, http.StatusNotFound, msgImageNotFound, nil)
		return
	}
	respondInternal(w, r, err)
}

// imageID parses the {id} URL parameter, answering 400 when it is not an
// integer.
func imageID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, msgInvalidIdentifier, nil)
		return 0, false
	}
	return id, true
}
