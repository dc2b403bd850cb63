// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware provides gin middleware for the assistant service.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rua-innovation/policy-assistant/services/assistant/datatypes"
	"github.com/rua-innovation/policy-assistant/services/assistant/observability"
	"github.com/rua-innovation/policy-assistant/services/assistant/store"
)

// RateLimitedMessage is returned with a 429 when a client exhausts its
// request window.
const RateLimitedMessage = "Too many requests. Please wait a moment before trying again."

// ClientIP resolves the client address for rate limiting.
//
// Proxy headers are consulted before the socket address, in the order the
// deployment's proxy chain sets them: X-Forwarded-For (first hop),
// X-Real-IP, X-Client-IP, CF-Connecting-IP. Falls back to gin's
// remote-address resolution.
func ClientIP(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	for _, header := range []string{"X-Real-IP", "X-Client-IP", "CF-Connecting-IP"} {
		if v := c.GetHeader(header); v != "" {
			return v
		}
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// RateLimit rejects requests from clients that exhausted their fixed
// request window. Aborts with 429; allowed requests proceed untouched.
func RateLimit(limiter *store.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := ClientIP(c)
		if !limiter.Allow(ip) {
			slog.Warn("rate limit exceeded", "client_ip", ip, "path", c.Request.URL.Path)
			if m := observability.DefaultMetrics; m != nil {
				m.RecordRateLimited()
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, datatypes.ErrorResponse{
				Error: RateLimitedMessage,
			})
			return
		}
		c.Next()
	}
}
