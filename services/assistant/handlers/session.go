// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionHandler serves POST /v1/session/reset.
type SessionHandler struct {
	driver QuestionSubmitter
}

// NewSessionHandler creates the session handler.
func NewSessionHandler(driver QuestionSubmitter) *SessionHandler {
	return &SessionHandler{driver: driver}
}

// HandleReset discards the retained conversation thread. Harmless in
// stateless mode, where no thread is ever retained.
func (h *SessionHandler) HandleReset(c *gin.Context) {
	h.driver.ResetSession()
	slog.Info("conversation reset")
	c.JSON(http.StatusOK, gin.H{"status": "conversation reset"})
}
