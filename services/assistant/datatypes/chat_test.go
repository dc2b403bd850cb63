// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAskRequestValidate(t *testing.T) {
	cases := []struct {
		name    string
		message string
		wantErr string
	}{
		{name: "valid", message: "What is the visitor policy?"},
		{name: "empty", message: "", wantErr: ErrMsgMessageRequired},
		{name: "at limit", message: strings.Repeat("a", MaxMessageChars)},
		{name: "over limit", message: strings.Repeat("a", MaxMessageChars+1), wantErr: ErrMsgMessageTooLong},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := AskRequest{Message: tc.message}

			err := req.Validate()

			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tc.wantErr)
			}
		})
	}
}

func TestAskRequestValidate_MultibyteCountsCharacters(t *testing.T) {
	// validator's max tag counts runes for strings, not bytes.
	req := AskRequest{Message: strings.Repeat("政", MaxMessageChars)}

	assert.NoError(t, req.Validate())
}
