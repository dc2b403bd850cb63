// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rua-innovation/policy-assistant/services/assistant/agent"
	"github.com/rua-innovation/policy-assistant/services/assistant/config"
	"github.com/rua-innovation/policy-assistant/services/assistant/handlers"
	"github.com/rua-innovation/policy-assistant/services/assistant/store"
)

type fixedSubmitter struct{}

func (fixedSubmitter) Submit(ctx context.Context, question string, opts agent.SubmitOptions) (string, error) {
	return "ANSWER: ok", nil
}

func (fixedSubmitter) ResetSession() {}

func newTestRouter(t *testing.T, limiter *store.RateLimiter) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	driver := fixedSubmitter{}
	dedup := store.NewDeduplicator(time.Second)
	router := gin.New()
	SetupRoutes(router, Deps{
		Ask:     handlers.NewAskHandler(driver, dedup),
		Stream:  handlers.NewStreamHandler(driver, dedup, handlers.StreamConfig{AnswerChunkDelay: -1, DocumentChunkDelay: -1}),
		Session: handlers.NewSessionHandler(driver),
		Health:  handlers.NewHealthHandler(&config.Config{AgentEndpoint: "e", AgentID: "a", APIKey: "k"}),
		Limiter: limiter,
	})
	return router
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Real-IP", "10.0.0.1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSetupRoutes_EndpointsRegistered(t *testing.T) {
	router := newTestRouter(t, store.NewRateLimiter(0, 0))

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/metrics", "").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/v1/ask", `{"message":"q"}`).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/v1/ask/stream", `{"message":"q2"}`).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/v1/session/reset", "{}").Code)
}

func TestSetupRoutes_AskEndpointsShareRateBudget(t *testing.T) {
	router := newTestRouter(t, store.NewRateLimiter(2, time.Minute))

	require.Equal(t, http.StatusOK, do(router, http.MethodPost, "/v1/ask", `{"message":"one"}`).Code)
	require.Equal(t, http.StatusOK, do(router, http.MethodPost, "/v1/ask/stream", `{"message":"two"}`).Code)

	assert.Equal(t, http.StatusTooManyRequests, do(router, http.MethodPost, "/v1/ask", `{"message":"three"}`).Code)
}

func TestSetupRoutes_UnlimitedEndpointsBypassLimiter(t *testing.T) {
	router := newTestRouter(t, store.NewRateLimiter(1, time.Minute))

	require.Equal(t, http.StatusOK, do(router, http.MethodPost, "/v1/ask", `{"message":"one"}`).Code)
	require.Equal(t, http.StatusTooManyRequests, do(router, http.MethodPost, "/v1/ask", `{"message":"two"}`).Code)

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/v1/session/reset", "{}").Code)
}
