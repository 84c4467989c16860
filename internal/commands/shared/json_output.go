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

package shared

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/tombee/bazaar/internal/jq"
	pkgerrors "github.com/tombee/bazaar/pkg/errors"
)

// JSONVersion is the envelope version emitted by every command.
const JSONVersion = "1.0"

// JSONResponse is the base envelope for all JSON output
type JSONResponse struct {
	Version string `json:"@version"`
	Command string `json:"command"`
	Success bool   `json:"success"`
}

// JSONError represents a structured error with code, message, and suggestion
type JSONError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// NewJSONResponse returns an envelope for command.
func NewJSONResponse(command string, success bool) JSONResponse {
	return JSONResponse{Version: JSONVersion, Command: command, Success: success}
}

// WriteJSON marshals a response as indented JSON to w. With --jq the
// response is filtered through the expression instead.
func WriteJSON(w io.Writer, response any) error {
	if expr := GetJQ(); expr != "" {
		return jq.NewExecutor(0, 0).Write(context.Background(), w, expr, response)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// WriteJSONError writes an error envelope to w.
func WriteJSONError(w io.Writer, command string, errs []JSONError) error {
	type errorResponse struct {
		JSONResponse
		Errors []JSONError `json:"errors"`
	}

	return WriteJSON(w, errorResponse{
		JSONResponse: NewJSONResponse(command, false),
		Errors:       errs,
	})
}

// JSONErrorsFor converts a command error into JSON error entries. Each
// problem of a MultiError becomes its own entry.
func JSONErrorsFor(err error) []JSONError {
	code := "error"
	var apiErr *pkgerrors.APIError
	var notFound *pkgerrors.NotFoundError
	var exitErr *ExitError
	switch {
	case errors.As(err, &apiErr) && apiErr.Code != "":
		code = apiErr.Code
	case errors.As(err, &notFound):
		code = "not_found"
	case errors.As(err, &exitErr) && exitErr.Code == ExitInterrupted:
		code = "interrupted"
	}

	var multi *pkgerrors.MultiError
	if errors.As(err, &multi) {
		out := make([]JSONError, len(multi.Problems))
		for i, p := range multi.Problems {
			out[i] = JSONError{Code: "validation_error", Message: p}
		}
		return out
	}
	return []JSONError{{Code: code, Message: err.Error(), Suggestion: pkgerrors.SuggestionFor(err)}}
}
