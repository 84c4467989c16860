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

// Package shared holds helpers used by every bazaar command: exit codes,
// global flags, terminal detection, styling, progress, and JSON output.
package shared

import (
	"errors"
	"fmt"
	"io"
	"os"

	pkgerrors "github.com/tombee/bazaar/pkg/errors"
)

// Exit codes
const (
	ExitSuccess     = 0
	ExitFailure     = 1
	ExitInterrupted = 130
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	switch {
	case e.Message != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	case e.Message != "":
		return e.Message
	case e.Cause != nil:
		return e.Cause.Error()
	}
	return ""
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewFailure creates an exit-1 error with a message.
func NewFailure(format string, args ...any) *ExitError {
	return &ExitError{Code: ExitFailure, Message: fmt.Sprintf(format, args...)}
}

// WrapFailure creates an exit-1 error whose text is the cause's text.
func WrapFailure(cause error) *ExitError {
	return &ExitError{Code: ExitFailure, Cause: cause}
}

// Interrupted creates the exit-130 error of a run cancelled by the user.
func Interrupted() *ExitError {
	return &ExitError{Code: ExitInterrupted, Message: "Interrupted"}
}

// HandleExitError prints err and exits with the appropriate code.
func HandleExitError(err error) {
	if err == nil {
		return
	}
	os.Exit(PrintExitError(os.Stderr, err))
}

// PrintExitError writes err to w followed by a suggestion when the error chain
// carries one. Each problem of a MultiError gets its own "Error:" line; other
// multi-line messages are prefixed once. Returns the exit code.
func PrintExitError(w io.Writer, err error) int {
	code := ExitFailure
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.Code
	}

	var multi *pkgerrors.MultiError
	if errors.As(err, &multi) {
		for _, problem := range multi.Problems {
			fmt.Fprintln(w, RenderError("Error:")+" "+problem)
		}
	} else if msg := err.Error(); msg != "" {
		fmt.Fprintln(w, RenderError("Error:")+" "+msg)
	}
	if suggestion := pkgerrors.SuggestionFor(err); suggestion != "" {
		fmt.Fprintf(w, "\n%s\n", suggestion)
	}

	return code
}
