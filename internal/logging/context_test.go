// Yaiss - Image Upload Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/yaiss

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestGenerateRequestID(t *testing.T) {
	t.Parallel()

	id1 := GenerateRequestID()
	id2 := GenerateRequestID()

	if len(id1) != 36 {
		t.Errorf("expected 36-character request ID, got %d", len(id1))
	}
	if id1 == id2 {
		t.Error("expected unique request IDs")
	}
}

func TestRequestIDContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if id := RequestIDFromContext(ctx); id != "" {
		t.Errorf("expected empty request ID, got %s", id)
	}

	ctx = ContextWithRequestID(ctx, "req-42")
	if id := RequestIDFromContext(ctx); id != "req-42" {
		t.Errorf("expected 'req-42', got '%s'", id)
	}
}

func TestCtx(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))

	t.Run("with request id", func(t *testing.T) {
		buf.Reset()
		ctx := ContextWithRequestID(context.Background(), "req-7")
		Ctx(ctx).Info().Msg("handled")
		if !strings.Contains(buf.String(), `"request_id":"req-7"`) {
			t.Errorf("expected request_id in output: %s", buf.String())
		}
	})

	t.Run("without request id", func(t *testing.T) {
		buf.Reset()
		Ctx(context.Background()).Info().Msg("handled")
		if strings.Contains(buf.String(), "request_id") {
			t.Errorf("unexpected request_id in output: %s", buf.String())
		}
	})
}
