// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rua-innovation/policy-assistant/pkg/sse"
	"github.com/rua-innovation/policy-assistant/services/assistant/agent"
	"github.com/rua-innovation/policy-assistant/services/assistant/datatypes"
	"github.com/rua-innovation/policy-assistant/services/assistant/store"
)

// unpacedConfig disables chunk pacing so stream tests run instantly.
var unpacedConfig = StreamConfig{
	AnswerChunkDelay:   -1,
	DocumentChunkDelay: -1,
}

func performAskStream(t *testing.T, h *StreamHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/v1/ask/stream", h.HandleAskStream)

	req := httptest.NewRequest(http.MethodPost, "/v1/ask/stream", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEvents(t *testing.T, w *httptest.ResponseRecorder) []sse.Event {
	t.Helper()
	var d sse.Decoder
	return d.Feed(w.Body.Bytes())
}

func eventNames(events []sse.Event) []string {
	names := make([]string, len(events))
	for i, ev := range events {
		names[i] = ev.Name
	}
	return names
}

// reassemble concatenates the chunk payloads of every event named chunkEvent.
func reassemble(t *testing.T, events []sse.Event, chunkEvent string) string {
	t.Helper()
	var b strings.Builder
	for _, ev := range events {
		if ev.Name != chunkEvent {
			continue
		}
		var p datatypes.ChunkPayload
		require.NoError(t, json.Unmarshal(ev.Data, &p))
		b.WriteString(p.Chunk)
	}
	return b.String()
}

// =============================================================================
// Validation
// =============================================================================

func TestHandleAskStream_EmptyMessageFailsBeforeSSE(t *testing.T) {
	sub := &stubSubmitter{}
	h := NewStreamHandler(sub, store.NewDeduplicator(time.Second), unpacedConfig)

	w := performAskStream(t, h, `{"message":""}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEqual(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, datatypes.ErrMsgMessageRequired, decodeErrorBody(t, w).Error)
	assert.Equal(t, 0, sub.calls)
}

// =============================================================================
// Full Stream
// =============================================================================

func TestHandleAskStream_FullEventSequence(t *testing.T) {
	transcript := "ANSWER: Patients must authorize all PHI disclosures【4:0†hipaa.pdf】.\n\n" +
		"FULL_POLICY_DOCUMENT: RUSH UNIVERSITY SYSTEM FOR HEALTH\n" +
		"Policy Title: HIPAA Privacy | Policy Number: HIPAA-001\n" +
		"I. Policy\nProtected health information may only be disclosed with authorization【4:0†hipaa.pdf】.\n"
	sub := &stubSubmitter{transcript: transcript}
	h := NewStreamHandler(sub, store.NewDeduplicator(time.Second), unpacedConfig)

	w := performAskStream(t, h, `{"message":"What is the HIPAA privacy policy?"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))

	events := decodeEvents(t, w)
	names := eventNames(events)

	require.NotEmpty(t, names)
	assert.Equal(t, datatypes.EventStart, names[0])
	assert.Equal(t, datatypes.EventDone, names[len(names)-1])
	assert.Contains(t, names, datatypes.EventAnswerStart)
	assert.Contains(t, names, datatypes.EventAnswerComplete)
	assert.Contains(t, names, datatypes.EventDocumentStart)
	assert.Contains(t, names, datatypes.EventDocumentComplete)
	assert.NotContains(t, names, datatypes.EventError)

	answer := reassemble(t, events, datatypes.EventAnswerChunk)
	document := reassemble(t, events, datatypes.EventDocumentChunk)

	// Citation glyphs are stripped before streaming.
	assert.NotContains(t, answer, "【")
	assert.NotContains(t, document, "【")
	assert.Contains(t, answer, "Patients must authorize all PHI disclosures")
	assert.Contains(t, document, "Policy Title: HIPAA Privacy")
	assert.NotContains(t, document, "SOURCE CITATIONS")

	// Complete events carry the same text the chunks assembled.
	for _, ev := range events {
		switch ev.Name {
		case datatypes.EventAnswerComplete:
			var p datatypes.AnswerCompletePayload
			require.NoError(t, json.Unmarshal(ev.Data, &p))
			assert.Equal(t, answer, p.Answer)
		case datatypes.EventDocumentComplete:
			var p datatypes.DocumentCompletePayload
			require.NoError(t, json.Unmarshal(ev.Data, &p))
			assert.Equal(t, document, p.FullDocument)
		case datatypes.EventDone:
			var p datatypes.DonePayload
			require.NoError(t, json.Unmarshal(ev.Data, &p))
			assert.True(t, p.Success)
			assert.Equal(t, len([]rune(answer)), p.AnswerLength)
			assert.Equal(t, len([]rune(document)), p.DocumentLength)
		}
	}
}

func TestHandleAskStream_ChunkProgressIsCumulative(t *testing.T) {
	transcript := "ANSWER: " + strings.Repeat("x", 120)
	sub := &stubSubmitter{transcript: transcript}
	cfg := unpacedConfig
	cfg.AnswerChunkSize = 50
	h := NewStreamHandler(sub, store.NewDeduplicator(time.Second), cfg)

	w := performAskStream(t, h, `{"message":"q"}`)
	events := decodeEvents(t, w)

	var progresses []int
	total := 0
	for _, ev := range events {
		if ev.Name != datatypes.EventAnswerChunk {
			continue
		}
		var p datatypes.ChunkPayload
		require.NoError(t, json.Unmarshal(ev.Data, &p))
		progresses = append(progresses, p.Progress)
		total = p.Total
	}

	assert.Equal(t, []int{50, 100, 120}, progresses)
	assert.Equal(t, 120, total)
}

func TestHandleAskStream_AnswerOnlyTranscriptSkipsDocumentEvents(t *testing.T) {
	sub := &stubSubmitter{transcript: "ANSWER: I cannot find this information in the Rush PolicyTech database. Please contact PolicyTech directly."}
	h := NewStreamHandler(sub, store.NewDeduplicator(time.Second), unpacedConfig)

	w := performAskStream(t, h, `{"message":"q"}`)
	names := eventNames(decodeEvents(t, w))

	assert.Contains(t, names, datatypes.EventAnswerStart)
	assert.NotContains(t, names, datatypes.EventDocumentStart)
	assert.Equal(t, datatypes.EventDone, names[len(names)-1])
}

func TestHandleAskStream_ObserverEventsForwarded(t *testing.T) {
	sub := &observingSubmitter{transcript: "ANSWER: ok"}
	h := NewStreamHandler(sub, store.NewDeduplicator(time.Second), unpacedConfig)

	w := performAskStream(t, h, `{"message":"q"}`)
	events := decodeEvents(t, w)
	names := eventNames(events)

	assert.Contains(t, names, datatypes.EventRunCreated)
	assert.Contains(t, names, datatypes.EventStatusUpdate)
	assert.Contains(t, names, datatypes.EventHeartbeat)

	for _, ev := range events {
		if ev.Name == datatypes.EventRunCreated {
			var p datatypes.RunCreatedPayload
			require.NoError(t, json.Unmarshal(ev.Data, &p))
			assert.Equal(t, "run_42", p.RunID)
			assert.Equal(t, "queued", p.Status)
		}
	}
}

// observingSubmitter exercises the observer callbacks before returning.
type observingSubmitter struct {
	transcript string
}

func (s *observingSubmitter) Submit(ctx context.Context, question string, opts agent.SubmitOptions) (string, error) {
	if opts.Observer != nil {
		opts.Observer.RunCreated("run_42", "queued")
		opts.Observer.StatusChanged("in_progress", 1)
		opts.Observer.Heartbeat(5)
	}
	return s.transcript, nil
}

func (s *observingSubmitter) ResetSession() {}

// =============================================================================
// Duplicate Suppression
// =============================================================================

func TestHandleAskStream_DuplicateSkipsRunPhase(t *testing.T) {
	transcript := "ANSWER: cached answer【4:0†a.pdf】"
	sub := &stubSubmitter{transcript: transcript}
	dedup := store.NewDeduplicator(time.Minute)
	h := NewStreamHandler(sub, dedup, unpacedConfig)

	w := performAskStream(t, h, `{"message":"q"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, sub.calls)

	w = performAskStream(t, h, `{"message":"q"}`)
	events := decodeEvents(t, w)
	names := eventNames(events)

	assert.Equal(t, 1, sub.calls, "duplicate must not reach the agent")
	assert.NotContains(t, names, datatypes.EventRunCreated)
	assert.Contains(t, names, datatypes.EventAnswerStart)
	assert.Equal(t, datatypes.EventDone, names[len(names)-1])
	assert.Contains(t, reassemble(t, events, datatypes.EventAnswerChunk), "cached answer")
}

// =============================================================================
// Failure Path
// =============================================================================

func TestHandleAskStream_AgentFailureEmitsErrorEvent(t *testing.T) {
	sub := &stubSubmitter{err: &agent.RunTimeoutError{Polls: 120, Elapsed: 2 * time.Minute}}
	h := NewStreamHandler(sub, store.NewDeduplicator(time.Second), unpacedConfig)

	w := performAskStream(t, h, `{"message":"q"}`)

	// SSE streams always report HTTP 200; failure rides the error event.
	require.Equal(t, http.StatusOK, w.Code)
	events := decodeEvents(t, w)
	names := eventNames(events)

	require.NotEmpty(t, names)
	assert.Equal(t, datatypes.EventError, names[len(names)-1])
	assert.NotContains(t, names, datatypes.EventDone)

	var p datatypes.ErrorPayload
	require.NoError(t, json.Unmarshal(events[len(events)-1].Data, &p))
	assert.Equal(t, errMsgTimeout, p.Error)
	assert.Equal(t, "timeout", p.ErrorType)
}
