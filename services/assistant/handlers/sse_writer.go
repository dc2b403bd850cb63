// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// =============================================================================
// Interface Definition
// =============================================================================

// EventWriter defines the contract for writing Server-Sent Events to HTTP
// responses.
//
// # Description
//
// EventWriter abstracts SSE event serialization and writing, enabling
// testability and separation from HTTP response mechanics. Implementations
// handle the SSE wire format (event: name\ndata: json\n\n) internally and
// flush after every event so the client sees frames as they are emitted.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. The streaming handler
// emits chunk events from the request goroutine while the poll observer
// may still be flushing progress events.
//
// # Assumptions
//
//   - Caller has set SSE headers via SetSSEHeaders before the first write
type EventWriter interface {
	// WriteEvent serializes payload to JSON and writes one named SSE
	// frame, flushing immediately.
	//
	// # Inputs
	//
	//   - name: Event name from the datatypes event vocabulary.
	//   - payload: JSON-serializable payload struct.
	//
	// # Outputs
	//
	//   - error: Non-nil if marshaling or the underlying write failed. A
	//     write error usually means the client disconnected; stop emitting.
	WriteEvent(name string, payload any) error
}

// =============================================================================
// Struct Definition
// =============================================================================

// sseWriter implements EventWriter over an http.ResponseWriter.
//
// # Fields
//
//   - writer: Underlying http.ResponseWriter
//   - flusher: http.Flusher interface for immediate send
//   - mu: Mutex serializing frame writes
//
// # Limitations
//
//   - Cannot be reused across requests
type sseWriter struct {
	writer  http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
}

// NewEventWriter creates an EventWriter for the given ResponseWriter.
//
// Returns an error when the ResponseWriter does not support http.Flusher,
// in which case the caller must fail the request before any SSE bytes are
// written.
func NewEventWriter(w http.ResponseWriter) (EventWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}
	return &sseWriter{writer: w, flusher: flusher}, nil
}

// WriteEvent writes a single SSE frame and flushes it.
func (w *sseWriter) WriteEvent(name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", name, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := fmt.Fprintf(w.writer, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return fmt.Errorf("write %s event: %w", name, err)
	}
	w.flusher.Flush()
	return nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// SetSSEHeaders configures HTTP response headers for SSE streaming.
//
// Sets Content-Type, disables caching and proxy buffering. Must be called
// before writing any response body.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// =============================================================================
// Compile-time Interface Check
// =============================================================================

var _ EventWriter = (*sseWriter)(nil)
