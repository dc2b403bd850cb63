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

	"github.com/rua-innovation/policy-assistant/services/assistant/datatypes"
)

// =============================================================================
// Validation Limits
// =============================================================================

const (
	// MaxResponseChars flags abnormally large transcripts. Advisory only;
	// oversized transcripts are still returned.
	MaxResponseChars = 500000

	answerMarker   = "ANSWER:"
	documentMarker = "FULL_POLICY_DOCUMENT:"
)

// citationRe matches the retrieval citation glyphs the agent embeds, e.g.
// 【4:0†source†policy.pdf】.
var citationRe = regexp.MustCompile(`【[^】]+】`)

// hedgingPhrases signal the agent answered from model memory instead of a
// retrieved document. Matched case-insensitively as substrings.
var hedgingPhrases = []string{
	"based on my knowledge",
	"i believe",
	"typically",
	"usually",
	"generally speaking",
	"in my experience",
}

// =============================================================================
// Validate
// =============================================================================

// Validate scores a raw transcript for retrieval-grounding quality.
//
// # Description
//
// The report is advisory: warnings are logged and counted by callers but
// never block a response. A valid transcript cites its sources, carries the
// two-part ANSWER / FULL_POLICY_DOCUMENT structure, stays under the size
// bound, and avoids hedging language.
//
// # Outputs
//
//   - datatypes.ValidationReport: IsValid is true iff no warnings fired.
func Validate(transcript string) datatypes.ValidationReport {
	var warnings []string

	if len(transcript) > MaxResponseChars {
		warnings = append(warnings, "Response exceeds maximum size")
	}

	citationCount := len(citationRe.FindAllString(transcript, -1))
	if citationCount == 0 {
		warnings = append(warnings, "No citations found - possible hallucination")
	}

	hasAnswer := strings.Contains(transcript, answerMarker)
	hasDocument := strings.Contains(transcript, documentMarker)
	if !hasAnswer || !hasDocument {
		warnings = append(warnings, "Missing two-part structure (ANSWER + FULL_POLICY_DOCUMENT)")
	}

	lower := strings.ToLower(transcript)
	var hedging []string
	for _, phrase := range hedgingPhrases {
		if strings.Contains(lower, phrase) {
			hedging = append(hedging, phrase)
		}
	}
	if len(hedging) > 0 {
		warnings = append(warnings, fmt.Sprintf("Contains suspicious phrases: %s", strings.Join(hedging, ", ")))
	}

	return datatypes.ValidationReport{
		IsValid:       len(warnings) == 0,
		Warnings:      warnings,
		CitationCount: citationCount,
		HasAnswer:     hasAnswer,
		HasDocument:   hasDocument,
	}
}
