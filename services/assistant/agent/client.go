// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package agent drives conversations against a remote Assistants-style
// agent: create or reuse a thread, post the instruction-wrapped question,
// start a run, poll it to a terminal state, and read back the transcript.
package agent

import (
	"context"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/rua-innovation/policy-assistant/services/assistant/store"
)

// =============================================================================
// Defaults
// =============================================================================

const (
	// DefaultPollInterval is the delay between run status polls.
	DefaultPollInterval = 1 * time.Second

	// DefaultMaxRetries caps attempts for any single remote call.
	DefaultMaxRetries = 3

	// DefaultRetryBaseDelay is the first retry delay; it doubles per
	// attempt.
	DefaultRetryBaseDelay = 1 * time.Second

	// MaxPollsStreaming bounds the poll loop for the streaming endpoint
	// (2 minutes at the default interval).
	MaxPollsStreaming = 120

	// MaxPollsBlocking bounds the poll loop for the blocking endpoint,
	// which holds the whole HTTP response open while polling.
	MaxPollsBlocking = 30

	// heartbeatEvery is how many unchanged polls pass between heartbeats.
	heartbeatEvery = 5
)

// =============================================================================
// Remote API Surface
// =============================================================================

// assistantAPI is the slice of the Assistants API the driver uses.
// *openai.Client satisfies it; tests substitute a mock.
type assistantAPI interface {
	CreateThread(ctx context.Context, request openai.ThreadRequest) (openai.Thread, error)
	CreateMessage(ctx context.Context, threadID string, request openai.MessageRequest) (openai.Message, error)
	CreateRun(ctx context.Context, threadID string, request openai.RunRequest) (openai.Run, error)
	RetrieveRun(ctx context.Context, threadID string, runID string) (openai.Run, error)
	ListMessage(ctx context.Context, threadID string, limit *int, order *string, after *string, before *string, runID *string) (openai.MessagesList, error)
}

var _ assistantAPI = (*openai.Client)(nil)

// RunObserver receives progress callbacks from the poll loop. The
// streaming endpoint forwards them as SSE events; the blocking endpoint
// passes no observer.
type RunObserver interface {
	RunCreated(runID, status string)
	StatusChanged(status string, pollCount int)
	Heartbeat(pollCount int)
}

// SubmitOptions tunes a single question submission.
type SubmitOptions struct {
	// ResetSession discards any retained thread before submitting.
	ResetSession bool

	// MaxPolls bounds the status poll loop. Zero selects
	// MaxPollsBlocking.
	MaxPolls int

	// Observer, when non-nil, receives run progress callbacks.
	Observer RunObserver
}

// =============================================================================
// Driver
// =============================================================================

// Config holds driver construction parameters.
type Config struct {
	// AssistantID is the remote agent identifier runs execute against.
	AssistantID string

	// PollInterval overrides DefaultPollInterval. Tests set it near zero.
	PollInterval time.Duration

	// MaxRetries overrides DefaultMaxRetries.
	MaxRetries int

	// RetryBaseDelay overrides DefaultRetryBaseDelay.
	RetryBaseDelay time.Duration
}

// Driver owns the thread/run lifecycle against the remote agent.
//
// # Description
//
// Submit is the single entry point: it acquires a thread (fresh, or the
// retained one in stateful mode), posts the instruction-wrapped question,
// starts a run, polls it to a terminal state under a ceiling, and returns
// the newest assistant message text. Remote calls retry with exponential
// backoff on transient failures; credential rejections (401/403) fail
// immediately.
//
// # Assumptions
//
//   - The remote agent performs its own document retrieval. The driver
//     treats it as opaque.
//   - One Driver is shared by all handlers; it holds no per-request state.
type Driver struct {
	api         assistantAPI
	assistantID string
	sessions    *store.SessionStore

	pollInterval   time.Duration
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewDriver creates a driver over api, retaining threads via sessions.
func NewDriver(api assistantAPI, sessions *store.SessionStore, cfg Config) *Driver {
	d := &Driver{
		api:            api,
		assistantID:    cfg.AssistantID,
		sessions:       sessions,
		pollInterval:   cfg.PollInterval,
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
	}
	if d.pollInterval <= 0 {
		d.pollInterval = DefaultPollInterval
	}
	if d.maxRetries <= 0 {
		d.maxRetries = DefaultMaxRetries
	}
	if d.retryBaseDelay <= 0 {
		d.retryBaseDelay = DefaultRetryBaseDelay
	}
	return d
}

// ResetSession discards the retained conversation thread, if any.
func (d *Driver) ResetSession() {
	d.sessions.Reset()
}

// Submit runs one question through the agent and returns the raw
// transcript of the newest assistant message.
//
// # Inputs
//
//   - ctx: Cancels waits between polls and retries. The poll ceiling in
//     opts bounds the loop even when ctx never fires.
//   - question: Raw user question. Escaped and wrapped in the instruction
//     template here; callers pass it unmodified.
//   - opts: Session reset, poll ceiling, optional progress observer.
//
// # Outputs
//
//   - string: Raw transcript. Parse, validate, and post-process it with
//     the policydoc package.
//   - error: One of the package error types, or a context error.
func (d *Driver) Submit(ctx context.Context, question string, opts SubmitOptions) (string, error) {
	maxPolls := opts.MaxPolls
	if maxPolls <= 0 {
		maxPolls = MaxPollsBlocking
	}

	if opts.ResetSession {
		d.sessions.Reset()
	}

	threadID, err := d.acquireThread(ctx)
	if err != nil {
		return "", err
	}

	prompt := BuildInstruction(EscapePromptInjection(question))
	err = d.withRetry(ctx, "create message", func() error {
		_, err := d.api.CreateMessage(ctx, threadID, openai.MessageRequest{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		})
		return err
	})
	if err != nil {
		return "", err
	}

	var run openai.Run
	err = d.withRetry(ctx, "create run", func() error {
		var rerr error
		run, rerr = d.api.CreateRun(ctx, threadID, openai.RunRequest{AssistantID: d.assistantID})
		return rerr
	})
	if err != nil {
		return "", err
	}
	if opts.Observer != nil {
		opts.Observer.RunCreated(run.ID, string(run.Status))
	}

	run, err = d.pollRun(ctx, threadID, run, maxPolls, opts.Observer)
	if err != nil {
		return "", err
	}

	return d.latestAssistantText(ctx, threadID)
}

// acquireThread returns the retained thread in stateful mode, creating and
// retaining a fresh one when none exists. Stateless mode always creates.
func (d *Driver) acquireThread(ctx context.Context) (string, error) {
	if id := d.sessions.Current(); id != "" {
		return id, nil
	}
	var thread openai.Thread
	err := d.withRetry(ctx, "create thread", func() error {
		var err error
		thread, err = d.api.CreateThread(ctx, openai.ThreadRequest{})
		return err
	})
	if err != nil {
		return "", err
	}
	d.sessions.Set(thread.ID)
	return thread.ID, nil
}

// pollRun polls run status once per interval until a terminal state or the
// poll ceiling. Observer callbacks fire on status transitions and, while
// the status is unchanged, every heartbeatEvery polls.
func (d *Driver) pollRun(ctx context.Context, threadID string, run openai.Run, maxPolls int, obs RunObserver) (openai.Run, error) {
	start := time.Now()
	lastStatus := run.Status

	for pollCount := 1; ; pollCount++ {
		if isTerminal(run.Status) {
			break
		}
		if pollCount > maxPolls {
			return run, &RunTimeoutError{Polls: maxPolls, Elapsed: time.Since(start)}
		}

		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-time.After(d.pollInterval):
		}

		err := d.withRetry(ctx, "retrieve run", func() error {
			var err error
			run, err = d.api.RetrieveRun(ctx, threadID, run.ID)
			return err
		})
		if err != nil {
			return run, err
		}

		if obs != nil {
			if run.Status != lastStatus {
				obs.StatusChanged(string(run.Status), pollCount)
			} else if pollCount%heartbeatEvery == 0 {
				obs.Heartbeat(pollCount)
			}
		}
		lastStatus = run.Status
	}

	if run.Status != openai.RunStatusCompleted {
		rfe := &RunFailedError{Status: string(run.Status)}
		if run.LastError != nil {
			rfe.Code = string(run.LastError.Code)
			rfe.Message = run.LastError.Message
		}
		return run, rfe
	}
	return run, nil
}

// isTerminal reports whether status ends the poll loop. Anything that is
// not actively progressing is terminal; pollRun decides afterwards whether
// it was success.
func isTerminal(status openai.RunStatus) bool {
	switch status {
	case openai.RunStatusQueued, openai.RunStatusInProgress, openai.RunStatusCancelling:
		return false
	}
	return true
}

// latestAssistantText lists thread messages newest-first and returns the
// text of the first assistant message.
func (d *Driver) latestAssistantText(ctx context.Context, threadID string) (string, error) {
	var list openai.MessagesList
	order := "desc"
	err := d.withRetry(ctx, "list messages", func() error {
		var err error
		list, err = d.api.ListMessage(ctx, threadID, nil, &order, nil, nil, nil)
		return err
	})
	if err != nil {
		return "", err
	}

	for _, msg := range list.Messages {
		if msg.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		for _, part := range msg.Content {
			if part.Type == "text" && part.Text != nil && part.Text.Value != "" {
				return part.Text.Value, nil
			}
		}
	}
	return "", ErrNoResponse
}

// withRetry runs op up to maxRetries times with doubling delays. Auth
// rejections and context cancellation end the attempts immediately.
func (d *Driver) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if code := authStatusCode(err); code != 0 {
			return &AuthError{StatusCode: code, Err: err}
		}
		if attempt == d.maxRetries {
			break
		}
		delay := d.retryBaseDelay << (attempt - 1)
		slog.Warn("agent call failed, retrying",
			"op", op,
			"attempt", attempt,
			"max_retries", d.maxRetries,
			"delay", delay,
			"error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return &NetworkError{Op: op, Attempts: d.maxRetries, Err: err}
}
