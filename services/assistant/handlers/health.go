// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rua-innovation/policy-assistant/services/assistant/config"
)

// HealthHandler serves GET /health.
type HealthHandler struct {
	cfg *config.Config
}

// NewHealthHandler creates the health handler.
func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{cfg: cfg}
}

// HandleHealth reports liveness and a config presence summary. No secrets
// are echoed, only whether each required setting is present.
func (h *HealthHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"sessionMode":       h.cfg.Mode(),
		"agentEndpointSet":  h.cfg.AgentEndpoint != "",
		"agentIdSet":        h.cfg.AgentID != "",
		"credentialPresent": h.cfg.APIKey != "",
	})
}
