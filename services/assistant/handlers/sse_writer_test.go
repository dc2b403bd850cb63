// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noFlushWriter is an http.ResponseWriter without http.Flusher.
type noFlushWriter struct{}

func (noFlushWriter) Header() http.Header { return http.Header{} }

func (noFlushWriter) Write(p []byte) (int, error) { return len(p), nil }

func (noFlushWriter) WriteHeader(int) {}

func TestNewEventWriter_RequiresFlusher(t *testing.T) {
	_, err := NewEventWriter(noFlushWriter{})

	assert.Error(t, err)
}

func TestWriteEvent_WireFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewEventWriter(rec)
	require.NoError(t, err)

	err = w.WriteEvent("status-update", map[string]any{"status": "in_progress"})

	require.NoError(t, err)
	assert.Equal(t, "event: status-update\ndata: {\"status\":\"in_progress\"}\n\n", rec.Body.String())
	assert.True(t, rec.Flushed)
}

func TestWriteEvent_UnmarshalablePayload(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewEventWriter(rec)
	require.NoError(t, err)

	err = w.WriteEvent("bad", make(chan int))

	assert.Error(t, err)
	assert.Empty(t, rec.Body.String())
}

func TestSetSSEHeaders(t *testing.T) {
	rec := httptest.NewRecorder()

	SetSSEHeaders(rec)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", rec.Header().Get("Connection"))
	assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))
}
