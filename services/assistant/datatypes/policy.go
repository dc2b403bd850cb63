// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// This file contains the structured forms a raw agent transcript is parsed
// into: the two-part split (answer plus reproduced document) and the policy
// header metadata scraped from the document.
package datatypes

// NotSpecified is the sentinel for metadata fields absent from a document
// header. Clients render it literally.
const NotSpecified = "Not specified"

// Fixed institutional values attached to every extracted metadata block.
const (
	InstitutionName     = "RUSH UNIVERSITY SYSTEM FOR HEALTH"
	PrintedCopiesNotice = "Printed copies are for reference only. Please refer to the electronic copy for the latest version."
)

// ParsedResponse is the structured form of a raw agent transcript.
//
// Answer holds the conversational reply from the transcript's first part.
// FullDocument holds the reproduced policy document from the second part.
// Either may be empty; see the parser for the fallback rules when the
// transcript lacks section markers.
type ParsedResponse struct {
	Answer       string         `json:"answer"`
	FullDocument string         `json:"fullDocument"`
	Metadata     PolicyMetadata `json:"metadata"`
}

// PolicyMetadata is the header block scraped from a reproduced policy
// document. Every field is always present; fields the document does not
// state carry the NotSpecified sentinel. Institution and Notice are fixed
// institutional values, never extracted.
type PolicyMetadata struct {
	PolicyNumber    string `json:"policyNumber"`
	PolicyTitle     string `json:"policyTitle"`
	ReferenceNumber string `json:"referenceNumber"`
	EffectiveDate   string `json:"effectiveDate"`
	Department      string `json:"department"`
	DocumentOwner   string `json:"documentOwner"`
	Approver        string `json:"approver"`
	DateCreated     string `json:"dateCreated"`
	DateApproved    string `json:"dateApproved"`
	DateUpdated     string `json:"dateUpdated"`
	ReviewDue       string `json:"reviewDue"`
	AppliesTo       string `json:"appliesTo"`
	Institution     string `json:"institution"`
	Notice          string `json:"notice"`
}

// ValidationReport is the advisory quality report for a transcript. It never
// blocks a response; warnings are logged and counted, nothing more.
type ValidationReport struct {
	IsValid       bool     `json:"isValid"`
	Warnings      []string `json:"warnings"`
	CitationCount int      `json:"citationCount"`
	HasAnswer     bool     `json:"hasAnswer"`
	HasDocument   bool     `json:"hasDocument"`
}
