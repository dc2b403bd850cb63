// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rua-innovation/policy-assistant/services/assistant/agent"
	"github.com/rua-innovation/policy-assistant/services/assistant/datatypes"
	"github.com/rua-innovation/policy-assistant/services/assistant/observability"
	"github.com/rua-innovation/policy-assistant/services/assistant/policydoc"
	"github.com/rua-innovation/policy-assistant/services/assistant/store"
)

// =============================================================================
// Stream Pacing
// =============================================================================

// Chunk sizes and pacing mirror the UI's typewriter rendering: the short
// answer streams slowly enough to read, the long document catches up in
// larger strides.
const (
	defaultAnswerChunkSize   = 50
	defaultDocumentChunkSize = 200

	defaultAnswerChunkDelay   = 30 * time.Millisecond
	defaultDocumentChunkDelay = 20 * time.Millisecond
)

// StreamConfig tunes chunking and pacing. Zero values select the
// defaults; tests set the delays to a negative value to disable pacing.
type StreamConfig struct {
	AnswerChunkSize    int
	DocumentChunkSize  int
	AnswerChunkDelay   time.Duration
	DocumentChunkDelay time.Duration
}

func (c StreamConfig) withDefaults() StreamConfig {
	if c.AnswerChunkSize <= 0 {
		c.AnswerChunkSize = defaultAnswerChunkSize
	}
	if c.DocumentChunkSize <= 0 {
		c.DocumentChunkSize = defaultDocumentChunkSize
	}
	if c.AnswerChunkDelay == 0 {
		c.AnswerChunkDelay = defaultAnswerChunkDelay
	}
	if c.DocumentChunkDelay == 0 {
		c.DocumentChunkDelay = defaultDocumentChunkDelay
	}
	return c
}

// =============================================================================
// Streaming Ask Handler
// =============================================================================

// StreamHandler serves POST /v1/ask/stream: the SSE variant of ask.
//
// # Description
//
// The stream has two phases. During the run phase the poll loop's progress
// is forwarded as run-created / status-update / heartbeat events so the
// connection stays alive while the agent works. Once the transcript is in
// hand it is validated, post-processed, parsed, and re-streamed section by
// section as paced chunk events, closing with exactly one done or error
// event.
type StreamHandler struct {
	driver QuestionSubmitter
	dedup  *store.Deduplicator
	cfg    StreamConfig
	tracer trace.Tracer
}

// NewStreamHandler creates the streaming ask handler.
func NewStreamHandler(driver QuestionSubmitter, dedup *store.Deduplicator, cfg StreamConfig) *StreamHandler {
	return &StreamHandler{
		driver: driver,
		dedup:  dedup,
		cfg:    cfg.withDefaults(),
		tracer: otel.Tracer("policyassistant.handlers.ask_stream"),
	}
}

// runEventObserver forwards poll-loop progress as SSE events. Write errors
// are ignored here; the poll loop finishes on its own terms and the chunk
// phase notices the dead connection immediately after.
type runEventObserver struct {
	w     EventWriter
	polls int
}

func (o *runEventObserver) RunCreated(runID, status string) {
	_ = o.w.WriteEvent(datatypes.EventRunCreated, datatypes.RunCreatedPayload{RunID: runID, Status: status})
}

func (o *runEventObserver) StatusChanged(status string, pollCount int) {
	o.polls = pollCount
	_ = o.w.WriteEvent(datatypes.EventStatusUpdate, datatypes.StatusUpdatePayload{Status: status, PollCount: pollCount})
}

func (o *runEventObserver) Heartbeat(pollCount int) {
	o.polls = pollCount
	_ = o.w.WriteEvent(datatypes.EventHeartbeat, datatypes.HeartbeatPayload{PollCount: pollCount, Elapsed: pollCount})
}

var _ agent.RunObserver = (*runEventObserver)(nil)

// HandleAskStream processes one streaming ask request.
//
// # Description
//
// Flow:
//  1. Bind and validate (fail 400 as JSON, before any SSE bytes).
//  2. Check the dedup cache; a fresh duplicate skips the run phase and
//     re-streams the cached transcript.
//  3. Switch the response to SSE and emit start.
//  4. Run the agent under the streaming poll ceiling, forwarding progress
//     events.
//  5. Validate (advisory), post-process, parse.
//  6. Stream the answer then the document as paced chunk sequences.
//  7. Emit done. On any failure after step 3, emit error and close.
func (h *StreamHandler) HandleAskStream(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "HandleAskStream")
	defer span.End()

	requestID := uuid.New().String()
	log := slog.With("request_id", requestID, "endpoint", "ask_stream")

	// Step 1: Bind and validate
	var req datatypes.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, datatypes.ErrorResponse{Error: datatypes.ErrMsgMessageRequired})
		recordError(observability.EndpointAskStream, observability.ErrorCodeValidation)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
		recordError(observability.EndpointAskStream, observability.ErrorCodeValidation)
		return
	}
	span.SetAttributes(attribute.Int("request.message_chars", len(req.Message)))

	// Step 2: Duplicate suppression
	hash := store.HashMessage(req.Message)
	cached, fromCache := h.dedup.CheckDuplicate(hash)
	if fromCache {
		log.Info("duplicate submission, re-streaming cached transcript")
		if m := observability.DefaultMetrics; m != nil {
			m.RecordDedupHit()
		}
	}

	// Step 3: Switch to SSE
	SetSSEHeaders(c.Writer)
	writer, err := NewEventWriter(c.Writer)
	if err != nil {
		respondError(c, http.StatusInternalServerError, datatypes.ErrorResponse{Error: "Streaming not supported"})
		recordError(observability.EndpointAskStream, observability.ErrorCodeInternal)
		return
	}

	start := time.Now()
	if m := observability.DefaultMetrics; m != nil {
		m.StreamStarted()
		defer m.StreamEnded()
	}

	success := false
	defer func() {
		if m := observability.DefaultMetrics; m != nil {
			m.RecordRequest(observability.EndpointAskStream, success)
			m.RecordStreamDuration(observability.EndpointAskStream, time.Since(start).Seconds(), success)
		}
	}()

	if err := writer.WriteEvent(datatypes.EventStart, datatypes.StartPayload{Message: "Starting agent run"}); err != nil {
		log.Warn("client gone before start event", "error", err)
		return
	}

	// Step 4: Acquire the transcript
	transcript := cached
	if !fromCache {
		obs := &runEventObserver{w: writer}
		transcript, err = h.driver.Submit(ctx, req.Message, agent.SubmitOptions{
			ResetSession: req.ResetConversation,
			MaxPolls:     agent.MaxPollsStreaming,
			Observer:     obs,
		})
		if err != nil {
			_, body, code := mapAgentError(err)
			log.Error("agent submission failed", "error", err, "error_code", string(code))
			recordError(observability.EndpointAskStream, code)
			_ = writer.WriteEvent(datatypes.EventError, datatypes.ErrorPayload{
				Error:     body.Error,
				ErrorType: string(code),
				Details:   body.Details,
			})
			return
		}
		h.dedup.Store(hash, transcript)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordRunPolls(observability.EndpointAskStream, obs.polls)
		}
	}

	// Step 5: Validate, post-process, parse
	report := policydoc.Validate(transcript)
	logValidation(log, report)
	if m := observability.DefaultMetrics; m != nil {
		m.RecordValidationWarnings(observability.EndpointAskStream, len(report.Warnings))
	}
	parsed := policydoc.Parse(policydoc.PostProcess(transcript))

	// Step 6: Stream sections
	answerRunes := []rune(parsed.Answer)
	documentRunes := []rune(parsed.FullDocument)

	if len(answerRunes) > 0 {
		err = h.streamSection(ctx, writer, sectionEvents{
			start: datatypes.EventAnswerStart,
			chunk: datatypes.EventAnswerChunk,
		}, answerRunes, h.cfg.AnswerChunkSize, h.cfg.AnswerChunkDelay)
		if err != nil {
			log.Warn("answer stream interrupted", "error", err)
			return
		}
		if err := writer.WriteEvent(datatypes.EventAnswerComplete, datatypes.AnswerCompletePayload{Answer: parsed.Answer}); err != nil {
			return
		}
	}

	if len(documentRunes) > 0 {
		err = h.streamSection(ctx, writer, sectionEvents{
			start: datatypes.EventDocumentStart,
			chunk: datatypes.EventDocumentChunk,
		}, documentRunes, h.cfg.DocumentChunkSize, h.cfg.DocumentChunkDelay)
		if err != nil {
			log.Warn("document stream interrupted", "error", err)
			return
		}
		if err := writer.WriteEvent(datatypes.EventDocumentComplete, datatypes.DocumentCompletePayload{FullDocument: parsed.FullDocument}); err != nil {
			return
		}
	}

	// Step 7: Close the stream
	success = true
	log.Info("stream completed",
		"answer_chars", len(answerRunes),
		"document_chars", len(documentRunes),
		"citations", report.CitationCount)
	_ = writer.WriteEvent(datatypes.EventDone, datatypes.DonePayload{
		Success:        true,
		AnswerLength:   len(answerRunes),
		DocumentLength: len(documentRunes),
	})
}

type sectionEvents struct {
	start string
	chunk string
}

// streamSection emits one section as a start event followed by paced,
// fixed-size chunks with cumulative progress. The final chunk is clipped
// to the section length. Stops as soon as the context dies or a write
// fails.
func (h *StreamHandler) streamSection(ctx context.Context, w EventWriter, events sectionEvents, runes []rune, chunkSize int, delay time.Duration) error {
	total := len(runes)
	if err := w.WriteEvent(events.start, datatypes.SectionStartPayload{TotalChars: total}); err != nil {
		return err
	}
	for i := 0; i < total; i += chunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(i+chunkSize, total)
		err := w.WriteEvent(events.chunk, datatypes.ChunkPayload{
			Chunk:    string(runes[i:end]),
			Progress: end,
			Total:    total,
		})
		if err != nil {
			return err
		}
		if end < total && delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return nil
}
