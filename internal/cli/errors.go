// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types, display and exit codes for CLI commands.
//
// Handlers always return errors and never print them; main displays the
// error once and exits with GetExitCode.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/jeranaias/citeview/internal/backend"
	"github.com/jeranaias/citeview/internal/config"
	"github.com/jeranaias/citeview/internal/session"
	"github.com/jeranaias/citeview/internal/source"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitAuthError     = 4
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a failed command with context.
type CommandError struct {
	Command string // e.g. "sessions"
	Action  string // e.g. "rename"
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError is a malformed command line.
type UsageError struct {
	Reason  string
	Example string
}

func (e *UsageError) Error() string {
	if e.Example != "" {
		return fmt.Sprintf("%s\nExample: %s", e.Reason, e.Example)
	}
	return e.Reason
}

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewCommandError creates a command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// NewUsageError creates a usage error.
func NewUsageError(reason string) error {
	return &UsageError{Reason: reason}
}

// ErrMissingArgument reports a required positional argument.
func ErrMissingArgument(name, example string) error {
	return &UsageError{Reason: fmt.Sprintf("missing required argument: %s", name), Example: example}
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w, as JSON when jsonMode is set.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		displayErrorJSON(w, err)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}

func displayErrorJSON(w io.Writer, err error) {
	output := map[string]interface{}{
		"success":   false,
		"error":     err.Error(),
		"exit_code": GetExitCode(err),
	}

	var cmdErr *CommandError
	var usageErr *UsageError
	var notFound *NotFoundError
	switch {
	case errors.As(err, &usageErr):
		output["error_type"] = "usage_error"
	case errors.As(err, &notFound):
		output["error_type"] = "not_found_error"
		output["resource"] = notFound.Resource
		output["id"] = notFound.ID
	case errors.As(err, &cmdErr):
		output["error_type"] = "command_error"
		output["command"] = cmdErr.Command
		output["action"] = cmdErr.Action
	default:
		output["error_type"] = "generic_error"
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(output)
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode maps an error to the process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	var notFound *NotFoundError
	var cfgErrs config.ValidateErrors
	var cfgErr config.ValidationError
	var apiErr *backend.APIError
	var statusErr *source.StatusError
	var netErr net.Error

	switch {
	case errors.As(err, &usageErr):
		return ExitUsageError
	case errors.As(err, &cfgErrs), errors.As(err, &cfgErr):
		return ExitConfigError
	case errors.As(err, &notFound),
		errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, source.ErrNotFound):
		return ExitNotFoundError
	case errors.Is(err, source.ErrNoToken), errors.Is(err, source.ErrAuthFailed):
		return ExitAuthError
	case errors.As(err, &apiErr):
		return exitForStatus(apiErr.Status)
	case errors.As(err, &statusErr):
		return exitForStatus(statusErr.Status)
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return ExitTimeoutError
		}
		return ExitNetworkError
	}
	return ExitGeneralError
}

func exitForStatus(status int) int {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ExitAuthError
	case http.StatusNotFound:
		return ExitNotFoundError
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return ExitTimeoutError
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return ExitNetworkError
	}
	return ExitGeneralError
}
