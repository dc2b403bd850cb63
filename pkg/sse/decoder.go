// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package sse decodes Server-Sent Event streams.
//
// The decoder is transport-independent: callers feed it raw byte reads in
// whatever sizes the network delivers and receive complete events back.
// A frame split across two reads is buffered until its double-newline
// terminator arrives, so arbitrary read boundaries never corrupt or
// duplicate events.
package sse

import (
	"bytes"
	"io"
	"strings"
)

// Event is one decoded SSE frame.
type Event struct {
	// Name is the event name, or "message" when the frame had no event
	// field.
	Name string

	// Data is the frame's data payload. Multiple data lines are joined
	// with newlines.
	Data []byte
}

// Decoder incrementally decodes an SSE byte stream. The zero value is
// ready to use. Not safe for concurrent use.
type Decoder struct {
	buf bytes.Buffer
}

// Feed appends p to the internal buffer and returns every event completed
// by it, in stream order. Comment-only frames (keepalive pings) are
// dropped.
func (d *Decoder) Feed(p []byte) []Event {
	d.buf.Write(p)

	var events []Event
	for {
		raw := d.buf.Bytes()
		idx := bytes.Index(raw, []byte("\n\n"))
		if idx < 0 {
			break
		}
		frame := string(raw[:idx])
		d.buf.Next(idx + 2)

		if ev, ok := parseFrame(frame); ok {
			events = append(events, ev)
		}
	}
	return events
}

// parseFrame decodes one terminator-stripped frame. Returns false for
// frames with no data (comments, stray blank lines).
func parseFrame(frame string) (Event, bool) {
	ev := Event{Name: "message"}
	var dataLines []string

	for _, line := range strings.Split(frame, "\n") {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case strings.HasPrefix(line, ":"):
			// Comment line, ignored.
		case strings.HasPrefix(line, "event:"):
			ev.Name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}

	if len(dataLines) == 0 {
		return Event{}, false
	}
	ev.Data = []byte(strings.Join(dataLines, "\n"))
	return ev, true
}

// DecodeStream reads r to EOF, invoking fn for each decoded event. fn
// returning an error stops the decode and propagates the error. A clean
// EOF returns nil; a trailing partial frame is discarded, matching
// browser EventSource behavior.
func DecodeStream(r io.Reader, fn func(Event) error) error {
	var d Decoder
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, ev := range d.Feed(buf[:n]) {
				if ferr := fn(ev); ferr != nil {
					return ferr
				}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
