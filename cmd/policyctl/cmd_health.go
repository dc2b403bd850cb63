// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var healthJSONOutput bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the policy assistant service health",
	RunE:  runHealthCommand,
}

func init() {
	healthCmd.Flags().BoolVar(&healthJSONOutput, "json", false,
		"Output the raw health body as JSON")
}

func runHealthCommand(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		return fmt.Errorf("service unreachable: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if healthJSONOutput {
		fmt.Println(string(payload))
		return nil
	}

	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		return fmt.Errorf("invalid health body: %w", err)
	}

	if body["status"] == "ok" {
		fmt.Println(styleSuccess.Render("service healthy"))
	} else {
		fmt.Println(styleError.Render(fmt.Sprintf("service unhealthy (HTTP %d)", resp.StatusCode)))
	}
	for _, key := range []string{"sessionMode", "agentEndpointSet", "agentIdSet", "credentialPresent"} {
		if v, ok := body[key]; ok {
			fmt.Println(styleMuted.Render(fmt.Sprintf("  %s: %v", key, v)))
		}
	}
	return nil
}
