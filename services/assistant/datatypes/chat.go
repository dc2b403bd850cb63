// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides data structures for the assistant service.
//
// This file contains request and response types for the ask endpoints
// (blocking and streaming). For streamed event payloads, see events.go.
// For parsed policy-document types, see policy.go.
package datatypes

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Constants for Request Limits
// =============================================================================

const (
	// MaxMessageChars is the maximum length of an inbound question in
	// characters. Oversized messages are rejected before any remote call.
	MaxMessageChars = 2000
)

// Validation error messages returned to clients. Kept identical between the
// blocking and streaming endpoints so the UI can match on them.
const (
	ErrMsgMessageRequired = "Message is required"
	ErrMsgMessageTooLong  = "Message too long. Maximum 2000 characters allowed."
)

var (
	errMessageRequired = errors.New(ErrMsgMessageRequired)
	errMessageTooLong  = errors.New(ErrMsgMessageTooLong)
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// askValidate is the validator instance for ask datatypes.
var askValidate *validator.Validate

func init() {
	askValidate = validator.New()
}

// =============================================================================
// Ask Request Types
// =============================================================================

// AskRequest represents the body of POST /v1/ask and POST /v1/ask/stream.
//
// # Description
//
// AskRequest carries a single user question for the policy assistant. The
// conversation model is request-scoped by default; when the service runs in
// stateful mode, ResetConversation discards the current agent thread before
// the question is submitted.
//
// # Fields
//
//   - Message: Required. The user question, 1-2000 characters. The raw text
//     is never interpolated into the agent instruction without escaping.
//   - ResetConversation: Optional. In stateful mode, start a fresh agent
//     thread for this request. Ignored in stateless mode.
//
// # Validation
//
// Uses go-playground/validator:
//   - Message: required, max 2000 characters
//
// # Limitations
//
//   - No conversation history field. History lives server-side in the agent
//     thread (stateful mode) or not at all (stateless mode).
type AskRequest struct {
	Message           string `json:"message" validate:"required,max=2000"`
	ResetConversation bool   `json:"resetConversation"`
}

// Validate validates the AskRequest fields.
//
// Returns an error whose message is safe to surface to clients verbatim.
func (r *AskRequest) Validate() error {
	if err := askValidate.Struct(r); err != nil {
		for _, fe := range err.(validator.ValidationErrors) {
			if fe.Field() == "Message" {
				if fe.Tag() == "required" {
					return errMessageRequired
				}
				return errMessageTooLong
			}
		}
		return err
	}
	return nil
}

// =============================================================================
// Ask Response Types
// =============================================================================

// AskResponse represents the body of a successful blocking ask.
//
// Response carries the full post-processed agent transcript: the direct
// answer, the reproduced policy document, and the SOURCE CITATIONS footer
// when the transcript contained citation markers.
type AskResponse struct {
	Response string `json:"response"`
}

// ErrorResponse is the error body shape shared by all endpoints.
//
// Details and Hint are optional operator-facing elaborations; Error is the
// stable client-facing message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}
