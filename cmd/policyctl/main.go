// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// policyctl is a diagnostic client for a running policy assistant
// service: ask questions (blocking or streamed), reset the conversation,
// and check service health from the terminal.
package main

import (
	"log"

	"github.com/spf13/cobra"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "policyctl",
	Short: "Diagnostic client for the policy assistant service",
	Long: `policyctl talks to a running policy assistant service.

Examples:
  policyctl ask "What is the HIPAA privacy policy?"
  policyctl ask --stream "What is the HIPAA privacy policy?"
  policyctl reset
  policyctl health`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:12310",
		"Base URL of the policy assistant service")
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(healthCmd)
}
