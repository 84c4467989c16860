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

// Package jq filters JSON command output with jq expressions.
package jq

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/itchyny/gojq"
)

const (
	// DefaultTimeout bounds the evaluation of one expression.
	DefaultTimeout = 1 * time.Second

	// DefaultMaxInputSize caps the encoded size of filtered documents (10MB).
	DefaultMaxInputSize = 10 * 1024 * 1024
)

// Executor evaluates jq expressions with a timeout and an input size limit.
type Executor struct {
	timeout      time.Duration
	maxInputSize int
}

// NewExecutor creates an executor. Zero values select the defaults.
func NewExecutor(timeout time.Duration, maxInputSize int) *Executor {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if maxInputSize == 0 {
		maxInputSize = DefaultMaxInputSize
	}
	return &Executor{timeout: timeout, maxInputSize: maxInputSize}
}

// Validate compiles expression without running it.
func Validate(expression string) error {
	_, err := compile(expression)
	return err
}

func compile(expression string) (*gojq.Code, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}
	return code, nil
}

// Execute runs expression against v and returns every output value. v is
// normalized through its JSON encoding first so struct values can be queried
// by their JSON field names.
func (e *Executor) Execute(ctx context.Context, expression string, v any) ([]any, error) {
	code, err := compile(expression)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding jq input: %w", err)
	}
	if len(data) > e.maxInputSize {
		return nil, fmt.Errorf("jq input (%d bytes) exceeds maximum (%d bytes)", len(data), e.maxInputSize)
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("decoding jq input: %w", err)
	}

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var results []any
	iter := code.RunWithContext(execCtx, input)
	for {
		out, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := out.(error); isErr {
			if execCtx.Err() != nil {
				return nil, fmt.Errorf("jq execution timeout after %v", e.timeout)
			}
			return nil, err
		}
		results = append(results, out)
	}
	return results, nil
}

// Write runs expression against v and prints one line per output. Strings
// are printed raw; everything else as compact JSON.
func (e *Executor) Write(ctx context.Context, w io.Writer, expression string, v any) error {
	results, err := e.Execute(ctx, expression, v)
	if err != nil {
		return err
	}
	for _, out := range results {
		if s, ok := out.(string); ok {
			if _, err := fmt.Fprintln(w, s); err != nil {
				return err
			}
			continue
		}
		line, err := gojq.Marshal(out)
		if err != nil {
			return fmt.Errorf("encoding jq output: %w", err)
		}
		if _, err := fmt.Fprintln(w, string(line)); err != nil {
			return err
		}
	}
	return nil
}
