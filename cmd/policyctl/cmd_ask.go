// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rua-innovation/policy-assistant/pkg/sse"
	"github.com/rua-innovation/policy-assistant/services/assistant/datatypes"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	askStream bool // Stream the response over SSE
	askReset  bool // Reset the conversation first (stateful mode)
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the policy assistant a question",
	Long: `Sends a question to the policy assistant service.

By default the blocking endpoint is used and the full response is printed
when the agent run completes. With --stream, events are printed as they
arrive: run progress, then the answer and document as they are chunked.

Examples:
  policyctl ask "What is the HIPAA privacy policy?"
  policyctl ask --stream --reset "What is the visitor policy?"`,
	Args: cobra.ExactArgs(1),
	RunE: runAskCommand,
}

func init() {
	askCmd.Flags().BoolVar(&askStream, "stream", false,
		"Use the SSE streaming endpoint")
	askCmd.Flags().BoolVar(&askReset, "reset", false,
		"Reset the conversation before asking (stateful mode only)")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runAskCommand(cmd *cobra.Command, args []string) error {
	body, err := json.Marshal(datatypes.AskRequest{
		Message:           args[0],
		ResetConversation: askReset,
	})
	if err != nil {
		return err
	}

	if askStream {
		return runStreamingAsk(body)
	}
	return runBlockingAsk(body)
}

func runBlockingAsk(body []byte) error {
	client := &http.Client{Timeout: 3 * time.Minute}
	resp, err := client.Post(serverURL+"/v1/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var errBody datatypes.ErrorResponse
		if json.Unmarshal(payload, &errBody) == nil && errBody.Error != "" {
			fmt.Println(styleError.Render("Error: " + errBody.Error))
			if errBody.Hint != "" {
				fmt.Println(styleMuted.Render("Hint: " + errBody.Hint))
			}
			os.Exit(1)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, payload)
	}

	var ok datatypes.AskResponse
	if err := json.Unmarshal(payload, &ok); err != nil {
		return fmt.Errorf("invalid response body: %w", err)
	}
	fmt.Println(ok.Response)
	return nil
}

func runStreamingAsk(body []byte) error {
	client := &http.Client{} // No timeout; the stream ends when the server closes it.
	resp, err := client.Post(serverURL+"/v1/ask/stream", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, payload)
	}

	failed := false
	err = sse.DecodeStream(resp.Body, func(ev sse.Event) error {
		return printStreamEvent(ev, &failed)
	})
	if err != nil {
		return err
	}
	if failed {
		os.Exit(1)
	}
	return nil
}

// printStreamEvent renders one SSE event. Chunk text is printed raw so the
// answer and document assemble on screen; progress events go to a muted
// status line.
func printStreamEvent(ev sse.Event, failed *bool) error {
	switch ev.Name {
	case datatypes.EventStart:
		fmt.Println(styleMuted.Render("starting agent run..."))

	case datatypes.EventRunCreated:
		var p datatypes.RunCreatedPayload
		if json.Unmarshal(ev.Data, &p) == nil {
			fmt.Println(styleMuted.Render("run " + p.RunID + " " + p.Status))
		}

	case datatypes.EventStatusUpdate:
		var p datatypes.StatusUpdatePayload
		if json.Unmarshal(ev.Data, &p) == nil {
			fmt.Println(styleMuted.Render(fmt.Sprintf("status %s (poll %d)", p.Status, p.PollCount)))
		}

	case datatypes.EventHeartbeat:
		// Keepalive only, nothing to show.

	case datatypes.EventAnswerStart:
		fmt.Println(styleTitle.Render("ANSWER"))

	case datatypes.EventDocumentStart:
		fmt.Println()
		fmt.Println(styleTitle.Render("POLICY DOCUMENT"))

	case datatypes.EventAnswerChunk, datatypes.EventDocumentChunk:
		var p datatypes.ChunkPayload
		if json.Unmarshal(ev.Data, &p) == nil {
			fmt.Print(p.Chunk)
		}

	case datatypes.EventAnswerComplete, datatypes.EventDocumentComplete:
		fmt.Println()

	case datatypes.EventDone:
		var p datatypes.DonePayload
		if json.Unmarshal(ev.Data, &p) == nil {
			fmt.Println(styleSuccess.Render(fmt.Sprintf(
				"done (answer %d chars, document %d chars)", p.AnswerLength, p.DocumentLength)))
		}

	case datatypes.EventError:
		var p datatypes.ErrorPayload
		if json.Unmarshal(ev.Data, &p) == nil {
			msg := p.Error
			if p.ErrorType != "" {
				msg += " [" + p.ErrorType + "]"
			}
			fmt.Println(styleError.Render("Error: " + msg))
		}
		*failed = true
	}
	return nil
}

// =============================================================================
// RESET COMMAND
// =============================================================================

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the service's retained conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Post(serverURL+"/v1/session/reset", "application/json", strings.NewReader("{}"))
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			payload, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, payload)
		}
		fmt.Println(styleSuccess.Render("conversation reset"))
		return nil
	},
}
