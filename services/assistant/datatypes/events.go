// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file defines the server-sent event vocabulary for the streaming ask
// endpoint. Event names and payload shapes are a wire contract with the UI;
// changing either breaks deployed clients.
package datatypes

// =============================================================================
// Event Names
// =============================================================================

const (
	EventStart            = "start"
	EventRunCreated       = "run-created"
	EventStatusUpdate     = "status-update"
	EventHeartbeat        = "heartbeat"
	EventAnswerStart      = "answer-start"
	EventAnswerChunk      = "answer-chunk"
	EventAnswerComplete   = "answer-complete"
	EventDocumentStart    = "document-start"
	EventDocumentChunk    = "document-chunk"
	EventDocumentComplete = "document-complete"
	EventDone             = "done"
	EventError            = "error"
)

// =============================================================================
// Event Payloads
// =============================================================================

// StartPayload acknowledges the request before the agent run begins.
type StartPayload struct {
	Message string `json:"message"`
}

// RunCreatedPayload reports the agent run identifier once the run exists.
type RunCreatedPayload struct {
	RunID  string `json:"runId"`
	Status string `json:"status"`
}

// StatusUpdatePayload reports an agent run status transition during polling.
type StatusUpdatePayload struct {
	Status    string `json:"status"`
	PollCount int    `json:"pollCount"`
}

// HeartbeatPayload keeps the connection alive while the run status is
// unchanged. Elapsed is whole seconds since polling began.
type HeartbeatPayload struct {
	PollCount int `json:"pollCount"`
	Elapsed   int `json:"elapsed"`
}

// SectionStartPayload opens an answer or document chunk sequence.
type SectionStartPayload struct {
	TotalChars int `json:"totalChars"`
}

// ChunkPayload carries one slice of a streamed section. Progress is the
// cumulative character count delivered so far, Total the section length.
type ChunkPayload struct {
	Chunk    string `json:"chunk"`
	Progress int    `json:"progress"`
	Total    int    `json:"total"`
}

// AnswerCompletePayload closes the answer sequence with the full text so
// clients never depend on chunk reassembly being lossless.
type AnswerCompletePayload struct {
	Answer string `json:"answer"`
}

// DocumentCompletePayload closes the document sequence with the full text.
type DocumentCompletePayload struct {
	FullDocument string `json:"fullDocument"`
}

// DonePayload terminates a successful stream. Exactly one of done or error
// ends every stream.
type DonePayload struct {
	Success        bool `json:"success"`
	AnswerLength   int  `json:"answerLength"`
	DocumentLength int  `json:"documentLength"`
}

// ErrorPayload terminates a failed stream.
type ErrorPayload struct {
	Error     string `json:"error"`
	ErrorType string `json:"errorType,omitempty"`
	Details   string `json:"details,omitempty"`
}
