// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDeduplicator(t *testing.T, ttl time.Duration) (*Deduplicator, func(time.Duration)) {
	t.Helper()
	d := NewDeduplicator(ttl)
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return current }
	return d, func(step time.Duration) { current = current.Add(step) }
}

func TestHashMessage_NormalizationEquivalence(t *testing.T) {
	base := HashMessage("What is the visitor policy?")

	assert.Equal(t, base, HashMessage("  What is   the visitor\tpolicy?  "))
	assert.Equal(t, base, HashMessage("WHAT IS THE VISITOR POLICY?"))
	assert.NotEqual(t, base, HashMessage("What is the visitor policy"))
}

func TestHashMessage_IsHexSHA256(t *testing.T) {
	h := HashMessage("anything")

	assert.Len(t, h, 64)
	assert.Regexp(t, "^[0-9a-f]+$", h)
}

func TestDeduplicator_HitWithinTTL(t *testing.T) {
	d, advance := newTestDeduplicator(t, 5*time.Second)
	hash := HashMessage("question")
	d.Store(hash, "cached response")

	advance(4 * time.Second)
	got, ok := d.CheckDuplicate(hash)

	require.True(t, ok)
	assert.Equal(t, "cached response", got)
}

func TestDeduplicator_MissAfterTTL(t *testing.T) {
	d, advance := newTestDeduplicator(t, 5*time.Second)
	hash := HashMessage("question")
	d.Store(hash, "cached response")

	advance(6 * time.Second)
	_, ok := d.CheckDuplicate(hash)

	assert.False(t, ok)

	// Expired entry is evicted on access, not just hidden.
	d.mu.Lock()
	_, present := d.entries[hash]
	d.mu.Unlock()
	assert.False(t, present)
}

func TestDeduplicator_UnknownHashMisses(t *testing.T) {
	d, _ := newTestDeduplicator(t, 5*time.Second)

	_, ok := d.CheckDuplicate(HashMessage("never stored"))

	assert.False(t, ok)
}

func TestDeduplicator_StorePurgesExpiredPastThreshold(t *testing.T) {
	d, advance := newTestDeduplicator(t, 5*time.Second)

	for i := 0; i < dedupPurgeThreshold+1; i++ {
		d.Store(fmt.Sprintf("hash-%d", i), "r")
	}
	advance(6 * time.Second)

	d.Store("fresh", "r")

	d.mu.Lock()
	size := len(d.entries)
	d.mu.Unlock()
	assert.Equal(t, 1, size)
}

func TestDeduplicator_DefaultTTLForNonPositiveArg(t *testing.T) {
	d := NewDeduplicator(0)

	assert.Equal(t, DefaultDedupTTL, d.ttl)
}
