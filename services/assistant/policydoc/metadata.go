// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package policydoc

import (
	"regexp"
	"strings"

	"github.com/rua-innovation/policy-assistant/services/assistant/datatypes"
)

// maxHeaderLines bounds how deep into a document the extractor scans.
// Header blocks live in the first few dozen lines; fields beyond the cap
// are reported as not specified rather than searched for.
const maxHeaderLines = 50

// =============================================================================
// Field Table
// =============================================================================

// fieldSpec binds one metadata field to its label-anchored pattern. Every
// spec is evaluated independently against the same header text; there is no
// ordering between them and no early exit.
type fieldSpec struct {
	name   string
	re     *regexp.Regexp
	assign func(m *datatypes.PolicyMetadata, value string)
}

// Value capture stops at a table-cell delimiter or end of line, so
// adjacent cells in a pipe-delimited header row cannot bleed into each
// other. Identifier-like fields additionally constrain the charset.
var metadataFields = []fieldSpec{
	{
		name:   "policyNumber",
		re:     regexp.MustCompile(`(?i)Policy\s*(?:Number\b|#)\s*:?\s*([A-Za-z0-9][A-Za-z0-9.\-]*)`),
		assign: func(m *datatypes.PolicyMetadata, v string) { m.PolicyNumber = v },
	},
	{
		name:   "policyTitle",
		re:     regexp.MustCompile(`(?i)Policy\s*Title\b\s*:?\s*([^|\n]+)`),
		assign: func(m *datatypes.PolicyMetadata, v string) { m.PolicyTitle = v },
	},
	{
		name:   "referenceNumber",
		re:     regexp.MustCompile(`(?i)Reference\s*Number\b\s*:?\s*([A-Za-z0-9][A-Za-z0-9.\-]*)`),
		assign: func(m *datatypes.PolicyMetadata, v string) { m.ReferenceNumber = v },
	},
	{
		name:   "effectiveDate",
		re:     regexp.MustCompile(`(?i)Effective\s*Date\b\s*:?\s*([^|\n]+)`),
		assign: func(m *datatypes.PolicyMetadata, v string) { m.EffectiveDate = v },
	},
	{
		name:   "department",
		re:     regexp.MustCompile(`(?i)Department\b\s*:?\s*([^|\n]+)`),
		assign: func(m *datatypes.PolicyMetadata, v string) { m.Department = v },
	},
	{
		name:   "documentOwner",
		re:     regexp.MustCompile(`(?i)Document\s*Owner\b\s*:?\s*([^|\n]+)`),
		assign: func(m *datatypes.PolicyMetadata, v string) { m.DocumentOwner = v },
	},
	{
		name:   "approver",
		re:     regexp.MustCompile(`(?i)Approver\b(?:\(s\))?\s*:?\s*([^|\n]+)`),
		assign: func(m *datatypes.PolicyMetadata, v string) { m.Approver = v },
	},
	{
		name:   "dateCreated",
		re:     regexp.MustCompile(`(?i)Date\s*Created\b\s*:?\s*([^|\n]+)`),
		assign: func(m *datatypes.PolicyMetadata, v string) { m.DateCreated = v },
	},
	{
		name:   "dateApproved",
		re:     regexp.MustCompile(`(?i)Date\s*Approved\b\s*:?\s*([^|\n]+)`),
		assign: func(m *datatypes.PolicyMetadata, v string) { m.DateApproved = v },
	},
	{
		name:   "dateUpdated",
		re:     regexp.MustCompile(`(?i)(?:Date|Last)\s*Updated\b\s*:?\s*([^|\n]+)`),
		assign: func(m *datatypes.PolicyMetadata, v string) { m.DateUpdated = v },
	},
	{
		name:   "reviewDue",
		re:     regexp.MustCompile(`(?i)Review\s*Due\b\s*:?\s*([^|\n]+)`),
		assign: func(m *datatypes.PolicyMetadata, v string) { m.ReviewDue = v },
	},
	{
		name:   "appliesTo",
		re:     regexp.MustCompile(`(?i)Applies\s*To\b\s*:?\s*([^|\n]+)`),
		assign: func(m *datatypes.PolicyMetadata, v string) { m.AppliesTo = v },
	},
}

// labelBoundaryRe truncates a captured value at the next known label on the
// same line, for header rows that pack several fields without delimiters.
var labelBoundaryRe = regexp.MustCompile(`(?i)\s*(?:Policy\s*(?:Number|Title)|Policy\s*#|Reference\s*Number|Effective\s*Date|Department|Document\s*Owner|Approver(?:\(s\))?|Date\s*Created|Date\s*Approved|(?:Date|Last)\s*Updated|Review\s*Due|Applies\s*To)\s*:.*`)

var whitespaceRe = regexp.MustCompile(`\s+`)

// checkboxReplacer normalizes checkbox glyphs agents copy out of PDF form
// fields.
var checkboxReplacer = strings.NewReplacer("☒", "[x]", "☑", "[x]", "☐", "[ ]")

// =============================================================================
// Extract
// =============================================================================

// Extract scrapes the policy header block out of a reproduced document.
//
// # Description
//
// Each field is extracted independently by a label-anchored pattern from
// the field table above; a pattern that finds nothing leaves its field for
// the sentinel pass, it never aborts the others. Extraction only scans the
// first maxHeaderLines lines of the document.
//
// After extraction:
//
//   - If the policy number is missing but a reference number was found, the
//     reference number is copied across. PolicyTech uses the labels
//     interchangeably.
//   - Every still-empty field is set to the NotSpecified sentinel.
//   - Institution and Notice always carry their fixed institutional values.
//
// # Outputs
//
//   - datatypes.PolicyMetadata: fully populated, no empty fields.
func Extract(documentText string) datatypes.PolicyMetadata {
	header := headerSlice(documentText)

	var meta datatypes.PolicyMetadata
	for _, f := range metadataFields {
		m := f.re.FindStringSubmatch(header)
		if m == nil {
			continue
		}
		f.assign(&meta, cleanFieldValue(m[1]))
	}

	if meta.PolicyNumber == "" && meta.ReferenceNumber != "" {
		meta.PolicyNumber = meta.ReferenceNumber
	}

	for _, field := range []*string{
		&meta.PolicyNumber, &meta.PolicyTitle, &meta.ReferenceNumber,
		&meta.EffectiveDate, &meta.Department, &meta.DocumentOwner,
		&meta.Approver, &meta.DateCreated, &meta.DateApproved,
		&meta.DateUpdated, &meta.ReviewDue, &meta.AppliesTo,
	} {
		if *field == "" {
			*field = datatypes.NotSpecified
		}
	}

	meta.Institution = datatypes.InstitutionName
	meta.Notice = datatypes.PrintedCopiesNotice
	return meta
}

// headerSlice returns at most the first maxHeaderLines lines of doc.
func headerSlice(doc string) string {
	lines := strings.SplitN(doc, "\n", maxHeaderLines+1)
	if len(lines) > maxHeaderLines {
		lines = lines[:maxHeaderLines]
	}
	return strings.Join(lines, "\n")
}

// cleanFieldValue normalizes one captured value: truncate at the next
// label, normalize checkbox glyphs, drop bold markers, collapse whitespace.
func cleanFieldValue(v string) string {
	if loc := labelBoundaryRe.FindStringIndex(v); loc != nil {
		v = v[:loc[0]]
	}
	v = checkboxReplacer.Replace(v)
	v = strings.ReplaceAll(v, "**", "")
	v = whitespaceRe.ReplaceAllString(v, " ")
	return strings.TrimSpace(v)
}
