// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package routes wires HTTP endpoints to their handlers.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rua-innovation/policy-assistant/services/assistant/handlers"
	"github.com/rua-innovation/policy-assistant/services/assistant/middleware"
	"github.com/rua-innovation/policy-assistant/services/assistant/store"
)

// Deps carries the constructed handlers and shared stores.
type Deps struct {
	Ask     *handlers.AskHandler
	Stream  *handlers.StreamHandler
	Session *handlers.SessionHandler
	Health  *handlers.HealthHandler
	Limiter *store.RateLimiter
}

// SetupRoutes registers all service routes on router.
//
// The ask endpoints sit behind the rate limiter; health, metrics, and
// session reset do not consume request budget.
func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", deps.Health.HandleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		limited := v1.Group("", middleware.RateLimit(deps.Limiter))
		{
			limited.POST("/ask", deps.Ask.HandleAsk)
			limited.POST("/ask/stream", deps.Stream.HandleAskStream)
		}

		v1.POST("/session/reset", deps.Session.HandleReset)
	}
}
