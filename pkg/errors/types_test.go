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

package errors_test

import (
	"errors"
	"fmt"
	"testing"

	bazaarerrors "github.com/tombee/bazaar/pkg/errors"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *bazaarerrors.ValidationError
		wantMsg string
	}{
		{
			name: "with field",
			err: &bazaarerrors.ValidationError{
				Field:   "name",
				Message: "must not be empty",
			},
			wantMsg: "validation failed on name: must not be empty",
		},
		{
			name: "without field",
			err: &bazaarerrors.ValidationError{
				Message: "invalid format",
			},
			wantMsg: "validation failed: invalid format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ValidationError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestNotFoundError_Error(t *testing.T) {
	err := &bazaarerrors.NotFoundError{Resource: "integration", ID: "acme-db"}
	if got := err.Error(); got != "integration not found: acme-db" {
		t.Errorf("NotFoundError.Error() = %q", got)
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *bazaarerrors.APIError
		wantMsg string
	}{
		{
			name:    "message only",
			err:     &bazaarerrors.APIError{StatusCode: 400, Message: "bad request"},
			wantMsg: "bad request",
		},
		{
			name:    "no message falls back to status",
			err:     &bazaarerrors.APIError{StatusCode: 502},
			wantMsg: "request failed with status 502",
		},
		{
			name:    "code and request id",
			err:     &bazaarerrors.APIError{StatusCode: 403, Code: "forbidden", Message: "not allowed", RequestID: "req-1"},
			wantMsg: "not allowed (forbidden) (request-id: req-1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("APIError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestAPIError_Suggestion(t *testing.T) {
	tests := []struct {
		status int
		empty  bool
	}{
		{status: 400, empty: true},
		{status: 401},
		{status: 403},
		{status: 429},
		{status: 503},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			err := &bazaarerrors.APIError{StatusCode: tt.status}
			if got := err.Suggestion(); (got == "") != tt.empty {
				t.Errorf("Suggestion() = %q, want empty=%v", got, tt.empty)
			}
		})
	}
}

func TestAPIError_ImplementsUserVisibleError(t *testing.T) {
	var err error = &bazaarerrors.APIError{StatusCode: 500, Message: "boom"}
	userErr, ok := err.(bazaarerrors.UserVisibleError)
	if !ok {
		t.Fatal("APIError should implement UserVisibleError")
	}
	if !userErr.IsUserVisible() {
		t.Error("APIError should be user visible")
	}
	if userErr.UserMessage() != "boom" {
		t.Errorf("UserMessage() = %q", userErr.UserMessage())
	}
}

func TestConfigError_Unwrap(t *testing.T) {
	cause := errors.New("permission denied")
	err := &bazaarerrors.ConfigError{Key: "api.url", Reason: "unreadable", Cause: cause}

	if got := err.Error(); got != "config error at api.url: unreadable" {
		t.Errorf("ConfigError.Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("ConfigError should unwrap to its cause")
	}
	if got := (&bazaarerrors.ConfigError{Reason: "missing"}).Error(); got != "config error: missing" {
		t.Errorf("ConfigError.Error() without key = %q", got)
	}
}

func TestMultiError_Error(t *testing.T) {
	err := &bazaarerrors.MultiError{Problems: []string{"first", "second"}}
	if got := err.Error(); got != "first\nsecond" {
		t.Errorf("MultiError.Error() = %q", got)
	}
}
