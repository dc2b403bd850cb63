// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the HTTP endpoints of the assistant service.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

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
// Error Messages
// =============================================================================

// Client-facing error strings. The UI matches on Error, so these are part
// of the external contract.
const (
	errMsgAuthFailed       = "Authentication failed"
	errMsgConnectionFailed = "Azure connection failed"
	errMsgRunFailed        = "Agent run failed"
	errMsgTimeout          = "The agent took too long to respond. Please try again."
	errMsgNoResponse       = "No response from agent"

	hintAuth    = "Check that the agent API key is valid and has access to the project."
	hintNetwork = "Cannot reach the agent endpoint. This might be due to network restrictions."
)

// =============================================================================
// Dependencies
// =============================================================================

// QuestionSubmitter is the slice of the agent driver the handlers use.
// *agent.Driver satisfies it; tests substitute a mock.
type QuestionSubmitter interface {
	Submit(ctx context.Context, question string, opts agent.SubmitOptions) (string, error)
	ResetSession()
}

// =============================================================================
// Blocking Ask Handler
// =============================================================================

// AskHandler serves POST /v1/ask: submit a question, wait for the agent
// run to finish, return the post-processed transcript in one response.
type AskHandler struct {
	driver QuestionSubmitter
	dedup  *store.Deduplicator
	tracer trace.Tracer
}

// NewAskHandler creates the blocking ask handler.
func NewAskHandler(driver QuestionSubmitter, dedup *store.Deduplicator) *AskHandler {
	return &AskHandler{
		driver: driver,
		dedup:  dedup,
		tracer: otel.Tracer("policyassistant.handlers.ask"),
	}
}

// HandleAsk processes one blocking ask request.
//
// # Description
//
// Flow:
//  1. Bind and validate the request (fail 400 before any remote call).
//  2. Check the dedup cache; a fresh duplicate is answered from cache.
//  3. Submit the question to the agent under the blocking poll ceiling.
//  4. Validate the transcript (advisory, logged only).
//  5. Post-process and return it, caching the raw transcript for
//     duplicate suppression.
func (h *AskHandler) HandleAsk(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "HandleAsk")
	defer span.End()

	requestID := uuid.New().String()
	log := slog.With("request_id", requestID, "endpoint", "ask")

	// Step 1: Bind and validate
	var req datatypes.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, datatypes.ErrorResponse{Error: datatypes.ErrMsgMessageRequired})
		recordError(observability.EndpointAsk, observability.ErrorCodeValidation)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
		recordError(observability.EndpointAsk, observability.ErrorCodeValidation)
		return
	}
	span.SetAttributes(attribute.Int("request.message_chars", len(req.Message)))

	// Step 2: Duplicate suppression
	hash := store.HashMessage(req.Message)
	if cached, ok := h.dedup.CheckDuplicate(hash); ok {
		log.Info("duplicate submission answered from cache")
		if m := observability.DefaultMetrics; m != nil {
			m.RecordDedupHit()
			m.RecordRequest(observability.EndpointAsk, true)
		}
		c.JSON(http.StatusOK, datatypes.AskResponse{Response: policydoc.PostProcess(cached)})
		return
	}

	// Step 3: Run the agent
	transcript, err := h.driver.Submit(ctx, req.Message, agent.SubmitOptions{
		ResetSession: req.ResetConversation,
		MaxPolls:     agent.MaxPollsBlocking,
	})
	if err != nil {
		status, body, code := mapAgentError(err)
		log.Error("agent submission failed", "error", err, "error_code", string(code))
		respondError(c, status, body)
		recordError(observability.EndpointAsk, code)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordRequest(observability.EndpointAsk, false)
		}
		return
	}

	// Step 4: Advisory validation
	report := policydoc.Validate(transcript)
	logValidation(log, report)
	if m := observability.DefaultMetrics; m != nil {
		m.RecordValidationWarnings(observability.EndpointAsk, len(report.Warnings))
	}

	// Step 5: Post-process and respond
	h.dedup.Store(hash, transcript)
	if m := observability.DefaultMetrics; m != nil {
		m.RecordRequest(observability.EndpointAsk, true)
	}
	log.Info("ask completed", "transcript_chars", len(transcript), "citations", report.CitationCount)
	c.JSON(http.StatusOK, datatypes.AskResponse{Response: policydoc.PostProcess(transcript)})
}

// =============================================================================
// Shared Helpers
// =============================================================================

func respondError(c *gin.Context, status int, body datatypes.ErrorResponse) {
	c.JSON(status, body)
}

func recordError(endpoint observability.Endpoint, code observability.ErrorCode) {
	if m := observability.DefaultMetrics; m != nil {
		m.RecordError(endpoint, code)
	}
}

// logValidation logs the advisory transcript report. Warnings never block
// the response.
func logValidation(log *slog.Logger, report datatypes.ValidationReport) {
	if report.IsValid {
		log.Info("transcript validation passed", "citations", report.CitationCount)
		return
	}
	log.Warn("transcript validation warnings",
		"warnings", report.Warnings,
		"citations", report.CitationCount,
		"has_answer", report.HasAnswer,
		"has_document", report.HasDocument)
}

// mapAgentError converts a driver error into an HTTP status, client body,
// and metrics code.
func mapAgentError(err error) (int, datatypes.ErrorResponse, observability.ErrorCode) {
	var authErr *agent.AuthError
	if errors.As(err, &authErr) {
		return http.StatusInternalServerError, datatypes.ErrorResponse{
			Error:   errMsgAuthFailed,
			Details: authErr.Error(),
			Hint:    hintAuth,
		}, observability.ErrorCodeAuth
	}

	var netErr *agent.NetworkError
	if errors.As(err, &netErr) {
		return http.StatusInternalServerError, datatypes.ErrorResponse{
			Error:   errMsgConnectionFailed,
			Details: netErr.Error(),
			Hint:    hintNetwork,
		}, observability.ErrorCodeNetwork
	}

	var timeoutErr *agent.RunTimeoutError
	if errors.As(err, &timeoutErr) {
		return http.StatusGatewayTimeout, datatypes.ErrorResponse{
			Error:   errMsgTimeout,
			Details: timeoutErr.Error(),
		}, observability.ErrorCodeTimeout
	}

	var runErr *agent.RunFailedError
	if errors.As(err, &runErr) {
		return http.StatusInternalServerError, datatypes.ErrorResponse{
			Error:   errMsgRunFailed,
			Details: runErr.Error(),
		}, observability.ErrorCodeRunFailed
	}

	if errors.Is(err, agent.ErrNoResponse) {
		return http.StatusInternalServerError, datatypes.ErrorResponse{
			Error: errMsgNoResponse,
		}, observability.ErrorCodeNoResponse
	}

	return http.StatusInternalServerError, datatypes.ErrorResponse{
		Error:   errMsgConnectionFailed,
		Details: err.Error(),
	}, observability.ErrorCodeInternal
}
