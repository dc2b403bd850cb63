// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionStore_StatelessNeverRetains(t *testing.T) {
	s := NewSessionStore(false)

	s.Set("thread_abc")

	assert.False(t, s.Stateful())
	assert.Equal(t, "", s.Current())
}

func TestSessionStore_StatefulRetainsUntilReset(t *testing.T) {
	s := NewSessionStore(true)

	s.Set("thread_abc")
	assert.Equal(t, "thread_abc", s.Current())

	s.Set("thread_def")
	assert.Equal(t, "thread_def", s.Current())

	s.Reset()
	assert.Equal(t, "", s.Current())
}
