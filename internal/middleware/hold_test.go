// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type countingHolder struct {
	refs     int
	released bool
}

func (h *countingHolder) Retain() error {
	if h.released {
		return errors.New("released")
	}
	h.refs++
	return nil
}

func (h *countingHolder) Release() { h.refs-- }

func TestHold(t *testing.T) {
	h := &countingHolder{refs: 1}

	var during int
	handler := Hold(h)(func(w http.ResponseWriter, r *http.Request) {
		during = h.refs
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if during != 2 {
		t.Errorf("refs during request = %d, want 2", during)
	}
	if h.refs != 1 {
		t.Errorf("refs after request = %d, want 1", h.refs)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestHold_ReleasedState(t *testing.T) {
	h := &countingHolder{released: true}

	called := false
	handler := Hold(h)(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if called {
		t.Error("handler ran on a released state")
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHold_ReleasesOnPanic(t *testing.T) {
	h := &countingHolder{refs: 1}
	handler := Hold(h)(func(w http.ResponseWriter, r *http.Request) { panic("boom") })

	func() {
		defer func() { _ = recover() }()
		handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}()

	if h.refs != 1 {
		t.Errorf("refs after panic = %d, want 1", h.refs)
	}
}
