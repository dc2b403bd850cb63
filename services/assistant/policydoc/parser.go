// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package policydoc turns raw agent transcripts into structured policy
// responses: splitting the two-part answer/document format, scraping header
// metadata, scoring transcript quality, and relocating citations to a
// footer.
package policydoc

import (
	"regexp"
	"strings"

	"github.com/rua-innovation/policy-assistant/services/assistant/datatypes"
)

// =============================================================================
// Section Markers
// =============================================================================

var (
	// answerRe captures the conversational answer: everything after the
	// ANSWER: marker up to the PART 2 separator, the document marker, or
	// end of input.
	answerRe = regexp.MustCompile(`(?is)ANSWER:\s*(.*?)(?:━+\s*PART 2|FULL_POLICY_DOCUMENT:|$)`)

	// documentRe captures the reproduced document: everything after the
	// FULL_POLICY_DOCUMENT: marker up to the citations footer or end of
	// input.
	documentRe = regexp.MustCompile(`(?is)FULL_POLICY_DOCUMENT:\s*(.*?)(?:━+\s*SOURCE CITATIONS|$)`)

	// docHeaderRe is the fallback document anchor for transcripts where the
	// agent reproduced the document but dropped the marker.
	docHeaderRe = regexp.MustCompile(`(?is)(RUSH UNIVERSITY SYSTEM FOR HEALTH.*?)(?:━+\s*SOURCE CITATIONS|$)`)

	separatorRe  = regexp.MustCompile(`━+`)
	partHeaderRe = regexp.MustCompile(`(?i)PART \d+ - .*?\n`)
)

// =============================================================================
// Parse
// =============================================================================

// Parse splits a raw agent transcript into its answer and document sections
// and extracts document metadata.
//
// # Description
//
// Parse is a total function: it never fails, it degrades. Markers are
// matched case-insensitively. The fallback rules are deliberately
// asymmetric:
//
//   - Neither an answer nor a document anchor found: the whole transcript
//     becomes the document, so unstructured agent output still renders.
//   - An answer found but no document anchor: the document stays empty. The
//     transcript was conversational-only; folding it into the document
//     would duplicate the answer in both panes.
//
// # Inputs
//
//   - transcript: Raw or post-processed agent transcript. Run the
//     post-processor first when the answer must not carry citation glyphs.
//
// # Outputs
//
//   - datatypes.ParsedResponse: answer, document, and extracted metadata.
//     Answer and document may each be empty, never both unless the
//     transcript itself was empty.
func Parse(transcript string) datatypes.ParsedResponse {
	answer := ""
	if m := answerRe.FindStringSubmatch(transcript); m != nil {
		answer = separatorRe.ReplaceAllString(m[1], "")
		answer = partHeaderRe.ReplaceAllString(answer, "")
		answer = strings.TrimSpace(answer)
	}

	fullDocument := ""
	m := documentRe.FindStringSubmatch(transcript)
	if m == nil {
		m = docHeaderRe.FindStringSubmatch(transcript)
	}
	switch {
	case m != nil:
		fullDocument = strings.TrimSpace(m[1])
	case answer == "":
		// No structure at all. Keep the transcript verbatim so nothing
		// the agent said is lost.
		fullDocument = transcript
	}

	return datatypes.ParsedResponse{
		Answer:       answer,
		FullDocument: fullDocument,
		Metadata:     Extract(fullDocument),
	}
}
