// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

// Package images implements the image store: uploads are decoded, re-encoded
// as PNG under the configured base directory and recorded in the database.
package images

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoders for image.Decode
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/tomtom215/yaiss/internal/database"
	"github.com/tomtom215/yaiss/internal/logging"
	"github.com/tomtom215/yaiss/internal/metrics"
	"github.com/tomtom215/yaiss/internal/models"
	"github.com/tomtom215/yaiss/internal/validation"
)

// Limits on a single request.
const (
	DefaultPageSize = 50
	MaxPageSize     = 50
	MaxBatchDelete  = 50

	// DefaultMaxPixels caps width × height of an upload. Decoders allocate
	// the full pixel buffer from the header before reading any pixel data.
	DefaultMaxPixels = 50_000_000
)

// ContentType is the media type of every stored image.
const ContentType = "image/png"

var (
	// ErrNotFound is returned when no image has the requested ID.
	ErrNotFound = errors.New("images: image not found")

	// ErrInvalidImage is returned when an upload cannot be decoded.
	ErrInvalidImage = errors.New("images: invalid image")

	// ErrImageTooLarge is returned when an upload declares more pixels than
	// the service accepts. It matches ErrInvalidImage.
	ErrImageTooLarge = fmt.Errorf("%w: dimensions exceed limit", ErrInvalidImage)

	// ErrInvalidPagination is returned for a count outside 1..50 or a
	// negative offset.
	ErrInvalidPagination = errors.New("images: invalid pagination")

	// ErrTooManyImages is returned when a batch delete names too many IDs.
	ErrTooManyImages = fmt.Errorf("images: too many images to delete, max %d", MaxBatchDelete)
)

// Store is the persistence the service needs. *database.DB implements it.
type Store interface {
	InsertImage(ctx context.Context, path string, updatedOn time.Time) (models.Image, error)
	GetImage(ctx context.Context, id int64) (models.Image, error)
	ListImages(ctx context.Context, limit, offset int) ([]models.Image, error)
	DeleteImage(ctx context.Context, id int64) (models.Image, error)
	DeleteImages(ctx context.Context, ids []int64) ([]models.Image, error)
}

// Page selects a window of the image listing.
type Page struct {
	Count  int `validate:"gte=1,lte=50"`
	Offset int `validate:"gte=0"`
}

// DefaultPage is used when the request names no window.
func DefaultPage() Page {
	return Page{Count: DefaultPageSize, Offset: 0}
}

// Service implements the image operations on top of a Store and a directory.
type Service struct {
	store     Store
	basePath  string
	maxPixels int64
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMaxPixels sets the largest accepted width × height. Values below 1
// keep DefaultMaxPixels.
func WithMaxPixels(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPixels = n
		}
	}
}

// NewService creates a service writing files below basePath.
func NewService(store Store, basePath string, opts ...Option) *Service {
	s := &Service{store: store, basePath: basePath, maxPixels: DefaultMaxPixels, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload decodes one image from r, stores it as PNG and records it.
func (s *Service) Upload(ctx context.Context, r io.Reader) (models.Image, error) {
	img, format, err := s.decode(r)
	if err != nil {
		return models.Image{}, err
	}

	path := filepath.Join(s.basePath, uuid.NewString()+".png")
	size, err := writePNG(s.basePath, path, img)
	if err != nil {
		return models.Image{}, fmt.Errorf("store image: %w", err)
	}

	record, err := s.store.InsertImage(ctx, path, s.now())
	if err != nil {
		removeFile(ctx, path)
		return models.Image{}, fmt.Errorf("record image: %w", err)
	}

	metrics.RecordImageStored(size)
	logging.Ctx(ctx).Info().
		Int64("image_id", record.ID).
		Str("source_format", format).
		Int64("bytes", size).
		Msg("Image stored")
	return record, nil
}

// decode reads the image header first and refuses oversized dimensions
// before any pixel buffer is allocated. The header bytes are replayed into
// the full decode.
func (s *Service) decode(r io.Reader) (image.Image, string, error) {
	br := bufio.NewReader(r)
	var head bytes.Buffer

	cfg, _, err := image.DecodeConfig(io.TeeReader(br, &head))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > s.maxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d, max %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, s.maxPixels)
	}

	img, format, err := image.Decode(io.MultiReader(&head, br))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	return img, format, nil
}

// writePNG encodes img into a temporary file in dir and renames it to path,
// so a partially written image is never visible under its final name.
func writePNG(dir, path string, img image.Image) (int64, error) {
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return 0, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	encodeErr := png.Encode(tmp, img)
	info, statErr := tmp.Stat()
	closeErr := tmp.Close()
	if err := errors.Join(encodeErr, statErr, closeErr); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Get returns the record with the given ID.
func (s *Service) Get(ctx context.Context, id int64) (models.Image, error) {
	img, err := s.store.GetImage(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return models.Image{}, ErrNotFound
	}
	return img, err
}

// Open returns the record and an open handle on its file. The caller closes
// the file.
func (s *Service) Open(ctx context.Context, id int64) (models.Image, *os.File, error) {
	img, err := s.Get(ctx, id)
	if err != nil {
		return models.Image{}, nil, err
	}

	f, err := os.Open(img.Path)
	if errors.Is(err, os.ErrNotExist) {
		logging.Ctx(ctx).Warn().Int64("image_id", id).Str("path", img.Path).Msg("Image file missing on disk")
		return models.Image{}, nil, ErrNotFound
	}
	if err != nil {
		return models.Image{}, nil, fmt.Errorf("open image %d: %w", id, err)
	}
	return img, f, nil
}

// List returns one page of records ordered by modification time.
func (s *Service) List(ctx context.Context, page Page) ([]models.Image, error) {
	if err := validation.ValidateStruct(page); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPagination, err)
	}
	return s.store.ListImages(ctx, page.Count, page.Offset)
}

// Delete removes the record and its file.
func (s *Service) Delete(ctx context.Context, id int64) error {
	img, err := s.store.DeleteImage(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	removeFile(ctx, img.Path)
	metrics.RecordImagesDeleted(1)
	return nil
}

// BatchDelete removes up to MaxBatchDelete records and their files and
// returns how many existed. Unknown IDs are ignored.
func (s *Service) BatchDelete(ctx context.Context, ids []int64) (int, error) {
	if len(ids) > MaxBatchDelete {
		return 0, ErrTooManyImages
	}
	if len(ids) == 0 {
		return 0, nil
	}

	deleted, err := s.store.DeleteImages(ctx, ids)
	if err != nil {
		return 0, err
	}
	for _, img := range deleted {
		removeFile(ctx, img.Path)
	}
	metrics.RecordImagesDeleted(len(deleted))
	return len(deleted), nil
}

// removeFile deletes an image file. The record is the source of truth, so
// a file that cannot be removed is only logged.
func removeFile(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("Failed to remove image file")
	}
}
