// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package agent

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ErrNoResponse means a run reached the completed state but the thread
// held no assistant message with text content. Distinct from RunFailedError
// so callers do not present it as a remote failure.
var ErrNoResponse = errors.New("no response from agent")

// RunFailedError reports a run that ended in a failed terminal state
// (failed, expired, cancelled, or requires_action, which this service
// never satisfies).
type RunFailedError struct {
	Status  string
	Code    string
	Message string
}

func (e *RunFailedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("agent run %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("agent run %s", e.Status)
}

// RunTimeoutError reports a run still not terminal after the poll ceiling.
type RunTimeoutError struct {
	Polls   int
	Elapsed time.Duration
}

func (e *RunTimeoutError) Error() string {
	return fmt.Sprintf("agent run not terminal after %d polls (%s)", e.Polls, e.Elapsed)
}

// AuthError reports a credential rejection (401/403). Never retried.
type AuthError struct {
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("agent authentication failed (HTTP %d): %v", e.StatusCode, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NetworkError reports a transient failure that survived every retry.
type NetworkError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("agent %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// authStatusCode returns the HTTP status of err when it is a credential
// rejection, or 0 otherwise.
func authStatusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden {
			return apiErr.HTTPStatusCode
		}
		return 0
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusUnauthorized || reqErr.HTTPStatusCode == http.StatusForbidden {
			return reqErr.HTTPStatusCode
		}
	}
	return 0
}
