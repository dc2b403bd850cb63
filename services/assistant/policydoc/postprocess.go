// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package policydoc

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	citationCaptureRe = regexp.MustCompile(`【([^】]+)】`)
	excessNewlinesRe  = regexp.MustCompile(`\n{3,}`)
)

// citationDivider frames the SOURCE CITATIONS footer.
var citationDivider = strings.Repeat("━", 70)

// PostProcess cleans a raw transcript for display.
//
// # Description
//
// In order:
//
//  1. Collect citation glyph contents in first-seen order, dropping
//     duplicates, and strip the glyphs from the body.
//  2. Remove ** bold markers.
//  3. Collapse runs of three or more newlines to two.
//  4. If any citations were collected, append a SOURCE CITATIONS footer
//     with 1-indexed entries.
//
// PostProcess is idempotent: a cleaned transcript passes through unchanged
// because the footer carries no glyphs for a second pass to collect.
func PostProcess(transcript string) string {
	var citations []string
	seen := make(map[string]struct{})
	for _, m := range citationCaptureRe.FindAllStringSubmatch(transcript, -1) {
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		citations = append(citations, m[1])
	}

	cleaned := citationCaptureRe.ReplaceAllString(transcript, "")
	cleaned = strings.ReplaceAll(cleaned, "**", "")
	cleaned = excessNewlinesRe.ReplaceAllString(cleaned, "\n\n")

	if len(citations) == 0 {
		return cleaned
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(cleaned, "\n"))
	b.WriteString("\n\n")
	b.WriteString(citationDivider)
	b.WriteString("\nSOURCE CITATIONS\n")
	b.WriteString(citationDivider)
	b.WriteString("\n")
	for i, citation := range citations {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, citation)
	}
	return b.String()
}
