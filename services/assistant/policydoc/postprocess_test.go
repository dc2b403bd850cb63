// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package policydoc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostProcess_CollectsUniqueCitationsInFirstSeenOrder(t *testing.T) {
	raw := "Alpha【4:0†a.pdf】 beta【4:1†b.pdf】 gamma【4:0†a.pdf】."

	out := PostProcess(raw)

	assert.NotContains(t, out, "【")
	assert.NotContains(t, out, "】")
	require.Contains(t, out, "SOURCE CITATIONS")
	idx1 := strings.Index(out, "[1] 4:0†a.pdf")
	idx2 := strings.Index(out, "[2] 4:1†b.pdf")
	require.Positive(t, idx1)
	require.Positive(t, idx2)
	assert.Less(t, idx1, idx2)
	assert.NotContains(t, out, "[3]")
}

func TestPostProcess_NoCitationsNoFooter(t *testing.T) {
	out := PostProcess("Plain answer text.")

	assert.Equal(t, "Plain answer text.", out)
	assert.NotContains(t, out, "SOURCE CITATIONS")
}

func TestPostProcess_StripsBoldAndCollapsesNewlines(t *testing.T) {
	raw := "**Title**\n\n\n\nBody"

	out := PostProcess(raw)

	assert.Equal(t, "Title\n\nBody", out)
}

func TestPostProcess_Idempotent(t *testing.T) {
	raw := "Answer with source【4:2†policy.pdf】.\n\n\nMore text.\n"

	once := PostProcess(raw)
	twice := PostProcess(once)

	assert.Equal(t, once, twice)
}

func TestPostProcess_FooterFormat(t *testing.T) {
	out := PostProcess("Text【source.pdf】")

	expected := "Text\n\n" + citationDivider + "\nSOURCE CITATIONS\n" + citationDivider + "\n[1] source.pdf\n"
	assert.Equal(t, expected, out)
}
