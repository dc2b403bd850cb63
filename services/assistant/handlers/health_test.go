// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rua-innovation/policy-assistant/services/assistant/config"
)

func performHealth(t *testing.T, cfg *config.Config) map[string]any {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", NewHealthHandler(cfg).HandleHealth)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandleHealth_ReportsConfigPresence(t *testing.T) {
	body := performHealth(t, &config.Config{
		AgentEndpoint:    "https://example.openai.azure.com",
		AgentID:          "asst_1",
		APIKey:           "secret-key",
		StatefulSessions: true,
	})

	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "stateful", body["sessionMode"])
	assert.Equal(t, true, body["agentEndpointSet"])
	assert.Equal(t, true, body["agentIdSet"])
	assert.Equal(t, true, body["credentialPresent"])
}

func TestHandleHealth_NeverEchoesSecrets(t *testing.T) {
	cfg := &config.Config{APIKey: "super-secret-key"}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", NewHealthHandler(cfg).HandleHealth)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.NotContains(t, w.Body.String(), "super-secret-key")
	assert.Contains(t, w.Body.String(), `"sessionMode":"stateless"`)
}
