// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - The --json envelope shared by every command.

package cli

import (
	"encoding/json"
	"io"
	"time"
)

// JSONResponse is the response format for all commands in --json mode.
type JSONResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`

	// Error is the message when Success is false, null otherwise.
	Error *string `json:"error"`

	// Timestamp is when the response was generated (RFC 3339, UTC).
	Timestamp string `json:"timestamp"`

	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a failed response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print writes the response as indented JSON.
func (r *JSONResponse) Print(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// OutputJSON runs handler and, in JSON mode, wraps its result in the
// envelope. In text mode the handler prints its own output and only the
// error is returned.
func OutputJSON(w io.Writer, jsonMode bool, command string, handler func() (interface{}, error)) error {
	data, err := handler()
	if !jsonMode {
		return err
	}
	if err != nil {
		_ = NewJSONErrorResponse(command, err).Print(w)
		return err
	}
	return NewJSONResponse(command, data).Print(w)
}
