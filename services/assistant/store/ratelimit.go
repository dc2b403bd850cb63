// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store holds the process-lifetime mutable state shared across
// requests: the rate-limit window map, the duplicate-submission cache, and
// the agent session handle. Stores are constructed once in main and passed
// to handlers; they are never torn down mid-process.
package store

import (
	"math/rand/v2"
	"sync"
	"time"
)

// =============================================================================
// Rate Limiter Defaults
// =============================================================================

const (
	// DefaultMaxRequests is the per-client request budget per window.
	DefaultMaxRequests = 20

	// DefaultRateWindow is the fixed rate-limit window.
	DefaultRateWindow = 60 * time.Second

	// cleanupProbability is the chance any single Allow call sweeps expired
	// windows. Lazy best-effort GC; expired entries are also replaced on
	// access, so missed sweeps self-heal.
	cleanupProbability = 0.01
)

// =============================================================================
// Rate Limiter
// =============================================================================

type rateWindow struct {
	count   int
	resetAt time.Time
}

// RateLimiter enforces a fixed-window request budget per client key.
//
// # Description
//
// On the first request for a key, or the first request after the key's
// window expired, the count resets to 1 and a fresh window opens. Within a
// live window requests are counted and rejected once the budget is spent.
// State is in-memory and per-instance; in a multi-instance deployment each
// instance limits independently, which is accepted.
//
// # Assumptions
//
//   - Clock and randomness hooks exist for tests only; production callers
//     use NewRateLimiter and never touch them.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow

	maxRequests int
	window      time.Duration

	now       func() time.Time
	randFloat func() float64
}

// NewRateLimiter creates a limiter allowing maxRequests per window per key.
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &RateLimiter{
		windows:     make(map[string]*rateWindow),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
		randFloat:   rand.Float64,
	}
}

// Allow reports whether clientKey may make a request right now, counting
// the request against the key's window when it may.
func (l *RateLimiter) Allow(clientKey string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.randFloat() < cleanupProbability {
		l.sweepLocked()
	}

	now := l.now()
	w, ok := l.windows[clientKey]
	if !ok || now.After(w.resetAt) {
		l.windows[clientKey] = &rateWindow{count: 1, resetAt: now.Add(l.window)}
		return true
	}
	if w.count >= l.maxRequests {
		return false
	}
	w.count++
	return true
}

// sweepLocked drops every expired window. Caller holds l.mu.
func (l *RateLimiter) sweepLocked() {
	now := l.now()
	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
		}
	}
}
