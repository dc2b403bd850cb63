// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import "sync"

// SessionStore holds the process-wide agent thread handle.
//
// # Description
//
// In stateless mode (the default) the store never retains a thread: every
// request gets a fresh one and conversation context does not accumulate.
// In stateful mode the store keeps a single process-wide thread ID so the
// agent sees prior turns, until Reset discards it. There is one
// conversation per process, not per client.
type SessionStore struct {
	mu       sync.Mutex
	threadID string
	stateful bool
}

// NewSessionStore creates a session store. stateful selects whether thread
// handles are retained across requests.
func NewSessionStore(stateful bool) *SessionStore {
	return &SessionStore{stateful: stateful}
}

// Stateful reports whether the store retains thread handles.
func (s *SessionStore) Stateful() bool {
	return s.stateful
}

// Current returns the retained thread ID, or "" when none is retained.
// Always "" in stateless mode.
func (s *SessionStore) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadID
}

// Set retains threadID for subsequent requests. No-op in stateless mode.
func (s *SessionStore) Set(threadID string) {
	if !s.stateful {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threadID = threadID
}

// Reset discards the retained thread handle. The next request starts a
// fresh conversation.
func (s *SessionStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threadID = ""
}
