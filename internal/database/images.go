// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/yaiss/internal/metrics"
	"github.com/tomtom215/yaiss/internal/models"
)

const imagesTable = "images"

// Timestamps are stored as fixed-width RFC 3339 text in UTC so that ORDER BY
// on the text column sorts chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// InsertImage stores a new record and returns it with its assigned ID.
func (db *DB) InsertImage(ctx context.Context, path string, updatedOn time.Time) (_ models.Image, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("INSERT", imagesTable, time.Since(start), err) }()

	updatedOn = updatedOn.UTC()
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO images (path, updated_on) VALUES (?, ?)`,
		path, updatedOn.Format(timeLayout))
	if err != nil {
		return models.Image{}, fmt.Errorf("insert image: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.Image{}, fmt.Errorf("insert image: %w", err)
	}
	return models.Image{ID: id, Path: path, UpdatedOn: updatedOn}, nil
}

// GetImage returns the record with the given ID or ErrNotFound.
func (db *DB) GetImage(ctx context.Context, id int64) (_ models.Image, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("SELECT", imagesTable, time.Since(start), ignoreNotFound(err)) }()

	row := db.conn.QueryRowContext(ctx,
		`SELECT id, path, updated_on FROM images WHERE id = ?`, id)
	img, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Image{}, ErrNotFound
	}
	if err != nil {
		return models.Image{}, fmt.Errorf("query image %d: %w", id, err)
	}
	return img, nil
}

// ListImages returns up to limit records ordered by modification time.
func (db *DB) ListImages(ctx context.Context, limit, offset int) (_ []models.Image, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("SELECT", imagesTable, time.Since(start), err) }()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, path, updated_on FROM images ORDER BY updated_on, id LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer closeWithLog(rows, "rows")

	images := make([]models.Image, 0, max(limit, 0))
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate images: %w", err)
	}
	return images, nil
}

// CountImages returns the number of stored records.
func (db *DB) CountImages(ctx context.Context) (n int64, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("COUNT", imagesTable, time.Since(start), err) }()

	err = db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM images`).Scan(&n)
	return n, err
}

// DeleteImage removes a record and returns it so the caller can remove the
// file. Returns ErrNotFound when no record matched.
func (db *DB) DeleteImage(ctx context.Context, id int64) (_ models.Image, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("DELETE", imagesTable, time.Since(start), ignoreNotFound(err)) }()

	row := db.conn.QueryRowContext(ctx,
		`DELETE FROM images WHERE id = ? RETURNING id, path, updated_on`, id)
	img, err := scanImage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Image{}, ErrNotFound
	}
	if err != nil {
		return models.Image{}, fmt.Errorf("delete image %d: %w", id, err)
	}
	return img, nil
}

// DeleteImages removes every record whose ID is in ids and returns the
// removed records. Unknown IDs are skipped.
func (db *DB) DeleteImages(ctx context.Context, ids []int64) (_ []models.Image, err error) {
	if len(ids) == 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() { metrics.RecordDBQuery("DELETE", imagesTable, time.Since(start), err) }()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	//nolint:gosec // placeholders contains only "?" characters
	query := `DELETE FROM images WHERE id IN (` + placeholders + `) RETURNING id, path, updated_on`
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("delete images: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var deleted []models.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deleted image: %w", err)
		}
		deleted = append(deleted, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delete images: %w", err)
	}
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (models.Image, error) {
	var (
		img       models.Image
		updatedOn string
	)
	if err := row.Scan(&img.ID, &img.Path, &updatedOn); err != nil {
		return models.Image{}, err
	}

	t, err := time.Parse(timeLayout, updatedOn)
	if err != nil {
		return models.Image{}, fmt.Errorf("image %d has invalid updated_on %q: %w", img.ID, updatedOn, err)
	}
	img.UpdatedOn = t
	return img, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
