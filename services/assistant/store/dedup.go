// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// Deduplicator Defaults
// =============================================================================

const (
	// DefaultDedupTTL is how long a stored response answers duplicate
	// submissions. Short on purpose: this collapses double-clicks and
	// Enter-mashing, it is not a semantic cache.
	DefaultDedupTTL = 5 * time.Second

	// dedupPurgeThreshold triggers an expiry purge on Store once the map
	// grows past it.
	dedupPurgeThreshold = 150
)

var dedupNormalizeRe = regexp.MustCompile(`\s+`)

// HashMessage returns the stable dedup digest of a user message.
//
// The message is lower-cased, trimmed, and whitespace-collapsed first, so
// retries that differ only in spacing or case hit the same entry.
func HashMessage(message string) string {
	normalized := strings.ToLower(strings.TrimSpace(message))
	normalized = dedupNormalizeRe.ReplaceAllString(normalized, " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// =============================================================================
// Deduplicator
// =============================================================================

type dedupEntry struct {
	response string
	storedAt time.Time
}

// Deduplicator caches recent responses by message hash to absorb
// accidental rapid-fire duplicate submissions.
type Deduplicator struct {
	mu      sync.Mutex
	entries map[string]dedupEntry

	ttl time.Duration
	now func() time.Time
}

// NewDeduplicator creates a deduplicator with the given TTL. A
// non-positive TTL selects DefaultDedupTTL.
func NewDeduplicator(ttl time.Duration) *Deduplicator {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &Deduplicator{
		entries: make(map[string]dedupEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// CheckDuplicate returns the cached response for hash if one was stored
// within the TTL window. Expired entries are evicted on access.
func (d *Deduplicator) CheckDuplicate(hash string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.entries[hash]
	if !ok {
		return "", false
	}
	if d.now().Sub(e.storedAt) > d.ttl {
		delete(d.entries, hash)
		return "", false
	}
	return e.response, true
}

// Store records a response for hash. When the map has grown past the purge
// threshold, entries older than the TTL are dropped first.
func (d *Deduplicator) Store(hash, response string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.entries) > dedupPurgeThreshold {
		now := d.now()
		for k, e := range d.entries {
			if now.Sub(e.storedAt) > d.ttl {
				delete(d.entries, k)
			}
		}
	}
	d.entries[hash] = dedupEntry{response: response, storedAt: d.now()}
}
