// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	"fmt"
	"strings"
)

// ValidationError represents user input validation failures.
// Use this for invalid flags, malformed metadata, or bad resource names.
type ValidationError struct {
	// Field identifies which input field failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NotFoundError represents a resource not found error.
// Use this when a requested team, integration, or product does not exist.
type NotFoundError struct {
	// Resource is the type of resource (e.g., "team", "integration", "product")
	Resource string

	// ID is the identifier that was not found
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// APIError represents a failure response from the marketplace API.
type APIError struct {
	// StatusCode is the HTTP status code
	StatusCode int

	// Code is the API error code from the response body (e.g., "forbidden")
	Code string

	// Message is the human-readable error message returned by the API
	Message string

	// RequestID correlates this error with server logs
	RequestID string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Code)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("%s (request-id: %s)", msg, e.RequestID)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// IsUserVisible reports that API errors are always shown to the user.
func (e *APIError) IsUserVisible() bool {
	return true
}

// UserMessage returns the API message without request metadata.
func (e *APIError) UserMessage() string {
	return e.Message
}

// Suggestion returns guidance based on the status code.
func (e *APIError) Suggestion() string {
	switch {
	case e.StatusCode == 401:
		return "Your token is invalid or expired. Set a new one with BAZAAR_TOKEN or --token."
	case e.StatusCode == 403:
		return "You do not have permission for this team. Check --team or your token's scope."
	case e.StatusCode == 429:
		return "Too many requests. Wait a moment and try again."
	case e.StatusCode >= 500:
		return "The marketplace API is having trouble. Try again later."
	}
	return ""
}

// ConfigError represents configuration problems.
// Use this for configuration file errors, missing settings, or invalid config values.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "api.url", "telemetry.endpoint")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// MultiError collects several user-facing problems that are reported together.
type MultiError struct {
	Problems []string
}

// Error implements the error interface. Each problem is printed on its own line.
func (e *MultiError) Error() string {
	return strings.Join(e.Problems, "\n")
}
