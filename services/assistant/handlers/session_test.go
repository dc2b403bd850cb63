// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHandleReset_ResetsDriverSession(t *testing.T) {
	sub := &stubSubmitter{}
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/v1/session/reset", NewSessionHandler(sub).HandleReset)

	req := httptest.NewRequest(http.MethodPost, "/v1/session/reset", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, sub.resets)
	assert.Contains(t, w.Body.String(), "conversation reset")
}
