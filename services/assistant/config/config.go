// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the assistant service configuration from the
// environment. Configuration is read once at process start and never
// mutated.
package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	defaultPort       = "12310"
	defaultAPIVersion = "2024-05-01-preview"

	// apiKeySecretFile is consulted when AZURE_OPENAI_API_KEY is unset,
	// for container deployments that mount credentials as secrets.
	apiKeySecretFile = "/run/secrets/azure_openai_api_key"
)

// Config is the immutable service configuration.
type Config struct {
	// Port the HTTP server listens on.
	Port string

	// AgentEndpoint is the remote agent service base URL.
	AgentEndpoint string

	// AgentID identifies the assistant runs execute against.
	AgentID string

	// APIKey authenticates against the remote agent service.
	APIKey string

	// APIVersion is the remote API version string.
	APIVersion string

	// StatefulSessions retains one process-wide conversation thread
	// across requests when true. Default is stateless.
	StatefulSessions bool

	// OTLPEndpoint receives traces. Empty selects the in-cluster
	// collector default (otel-collector:4317).
	OTLPEndpoint string
}

// Load reads the configuration from the environment.
//
// Required: AZURE_AI_ENDPOINT, AZURE_AI_AGENT_ID, and a credential from
// either AZURE_OPENAI_API_KEY or the mounted secret file. Everything else
// has defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             envOr("PORT", defaultPort),
		AgentEndpoint:    os.Getenv("AZURE_AI_ENDPOINT"),
		AgentID:          os.Getenv("AZURE_AI_AGENT_ID"),
		APIVersion:       envOr("AZURE_AI_API_VERSION", defaultAPIVersion),
		StatefulSessions: strings.EqualFold(os.Getenv("SESSION_MODE"), "stateful"),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if cfg.AgentEndpoint == "" {
		return nil, fmt.Errorf("AZURE_AI_ENDPOINT is required")
	}
	if cfg.AgentID == "" {
		return nil, fmt.Errorf("AZURE_AI_AGENT_ID is required")
	}

	cfg.APIKey = os.Getenv("AZURE_OPENAI_API_KEY")
	if cfg.APIKey == "" {
		if data, err := os.ReadFile(apiKeySecretFile); err == nil {
			cfg.APIKey = strings.TrimSpace(string(data))
		}
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no agent credential: set AZURE_OPENAI_API_KEY or mount %s", apiKeySecretFile)
	}

	return cfg, nil
}

// Mode returns the session mode name for health reporting.
func (c *Config) Mode() string {
	if c.StatefulSessions {
		return "stateful"
	}
	return "stateless"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
