// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

package images

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/yaiss/internal/database"
	"github.com/tomtom215/yaiss/internal/models"
)

// newTestService returns a service over an in-memory database and a temp dir.
func newTestService(t *testing.T) (*Service, *database.DB, string) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Migrate(ctx, "../../migrations"); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	return NewService(db, dir), db, dir
}

func testImage(encode func(*bytes.Buffer, image.Image) error) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 5, 2))
	for x := 0; x < 5; x++ {
		for y := 0; y < 2; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 40), B: uint8(y * 90), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func pngBytes() []byte {
	return testImage(func(b *bytes.Buffer, i image.Image) error { return png.Encode(b, i) })
}

func jpegBytes() []byte {
	return testImage(func(b *bytes.Buffer, i image.Image) error { return jpeg.Encode(b, i, nil) })
}

func TestUpload(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"png", pngBytes()},
		{"jpeg", jpegBytes()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, dir := newTestService(t)
			ctx := context.Background()

			img, err := svc.Upload(ctx, bytes.NewReader(tt.data))
			if err != nil {
				t.Fatalf("Upload() error = %v", err)
			}

			if filepath.Dir(img.Path) != dir || !strings.HasSuffix(img.Path, ".png") {
				t.Errorf("Path = %q, want a .png file in %s", img.Path, dir)
			}

			f, err := os.Open(img.Path)
			if err != nil {
				t.Fatalf("stored file: %v", err)
			}
			defer func() { _ = f.Close() }()
			decoded, format, err := image.Decode(f)
			if err != nil || format != "png" {
				t.Fatalf("stored file is not png: %v %q", err, format)
			}
			if decoded.Bounds().Dx() != 5 || decoded.Bounds().Dy() != 2 {
				t.Errorf("stored bounds = %v", decoded.Bounds())
			}

			got, err := svc.Get(ctx, img.ID)
			if err != nil || got.Path != img.Path {
				t.Errorf("Get() = %+v, %v", got, err)
			}

			entries, _ := os.ReadDir(dir)
			if len(entries) != 1 {
				t.Errorf("directory has %d entries, want only the image", len(entries))
			}
		})
	}
}

func TestUpload_InvalidImage(t *testing.T) {
	svc, db, dir := newTestService(t)

	for _, data := range [][]byte{nil, []byte("definitely not an image")} {
		_, err := svc.Upload(context.Background(), bytes.NewReader(data))
		if !errors.Is(err, ErrInvalidImage) {
			t.Errorf("Upload(%q) error = %v, want ErrInvalidImage", data, err)
		}
	}

	if n, _ := db.CountImages(context.Background()); n != 0 {
		t.Errorf("CountImages() = %d, want 0", n)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("directory has %d entries, want none", len(entries))
	}
}

// pngWithDimensions returns a valid small PNG whose IHDR claims width×height.
// Only the header is rewritten; the pixel data still describes a 5x2 image.
func pngWithDimensions(width, height uint32) []byte {
	data := pngBytes()
	// signature (8) + length (4) + "IHDR" (4), then width and height.
	binary.BigEndian.PutUint32(data[16:20], width)
	binary.BigEndian.PutUint32(data[20:24], height)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestUpload_RejectsOversizedDimensions(t *testing.T) {
	svc, db, dir := newTestService(t)

	_, err := svc.Upload(context.Background(), bytes.NewReader(pngWithDimensions(60000, 60000)))
	if !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("Upload() error = %v, want ErrImageTooLarge", err)
	}
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("Upload() error = %v, want it to match ErrInvalidImage", err)
	}

	if n, _ := db.CountImages(context.Background()); n != 0 {
		t.Errorf("CountImages() = %d, want 0", n)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("directory has %d entries, want none", len(entries))
	}
}

func TestUpload_MaxPixels(t *testing.T) {
	tests := []struct {
		name      string
		maxPixels int64
		wantErr   error
	}{
		{"exactly at limit", 10, nil},
		{"below image size", 9, ErrImageTooLarge},
		{"zero keeps default", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, db, dir := newTestService(t)
			svc := NewService(db, dir, WithMaxPixels(tt.maxPixels))

			_, err := svc.Upload(context.Background(), bytes.NewReader(pngBytes()))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Upload() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// failingStore rejects every insert.
type failingStore struct {
	Store
}

func (failingStore) InsertImage(context.Context, string, time.Time) (models.Image, error) {
	return models.Image{}, errors.New("disk I/O error")
}

func TestUpload_InsertFailureRemovesFile(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(failingStore{}, dir)

	if _, err := svc.Upload(context.Background(), bytes.NewReader(pngBytes())); err == nil {
		t.Fatal("Upload() error = nil, want insert error")
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("directory has %d entries, want the orphaned file removed", len(entries))
	}
}

func TestGet_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.Get(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestOpen(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	img, err := svc.Upload(ctx, bytes.NewReader(pngBytes()))
	if err != nil {
		t.Fatal(err)
	}

	got, f, err := svc.Open(ctx, img.ID)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	_ = f.Close()
	if got.ID != img.ID {
		t.Errorf("Open() ID = %d, want %d", got.ID, img.ID)
	}

	if err := os.Remove(img.Path); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Open(ctx, img.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open() with missing file error = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return at }
		if _, err := svc.Upload(ctx, bytes.NewReader(pngBytes())); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name    string
		page    Page
		wantLen int
		wantErr error
	}{
		{"default page", DefaultPage(), 3, nil},
		{"window", Page{Count: 1, Offset: 1}, 1, nil},
		{"max count", Page{Count: MaxPageSize}, 3, nil},
		{"count too large", Page{Count: MaxPageSize + 1}, 0, ErrInvalidPagination},
		{"zero count", Page{Count: 0}, 0, ErrInvalidPagination},
		{"negative count", Page{Count: -1}, 0, ErrInvalidPagination},
		{"negative offset", Page{Count: 1, Offset: -1}, 0, ErrInvalidPagination},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.List(ctx, tt.page)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("List() error = %v, want %v", err, tt.wantErr)
			}
			if len(got) != tt.wantLen {
				t.Errorf("List() returned %d images, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	img, err := svc.Upload(ctx, bytes.NewReader(pngBytes()))
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, img.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(img.Path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("file still present after Delete(): %v", err)
	}
	if err := svc.Delete(ctx, img.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestBatchDelete(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	var ids []int64
	var paths []string
	for i := 0; i < 3; i++ {
		img, err := svc.Upload(ctx, bytes.NewReader(pngBytes()))
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, img.ID)
		paths = append(paths, img.Path)
	}

	n, err := svc.BatchDelete(ctx, []int64{ids[0], ids[1], 9999})
	if err != nil {
		t.Fatalf("BatchDelete() error = %v", err)
	}
	if n != 2 {
		t.Errorf("BatchDelete() = %d, want 2", n)
	}
	for _, p := range paths[:2] {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("file %s still present", p)
		}
	}
	if left, _ := db.CountImages(ctx); left != 1 {
		t.Errorf("CountImages() = %d, want 1", left)
	}

	if n, err := svc.BatchDelete(ctx, nil); n != 0 || err != nil {
		t.Errorf("BatchDelete(nil) = %d, %v", n, err)
	}
}

func TestBatchDelete_TooMany(t *testing.T) {
	svc, _, _ := newTestService(t)

	ids := make([]int64, MaxBatchDelete+1)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	if _, err := svc.BatchDelete(context.Background(), ids); !errors.Is(err, ErrTooManyImages) {
		t.Fatalf("BatchDelete() error = %v, want ErrTooManyImages", err)
	}

	if _, err := svc.BatchDelete(context.Background(), ids[:MaxBatchDelete]); err != nil {
		t.Fatalf("BatchDelete() at the limit error = %v", err)
	}
}
