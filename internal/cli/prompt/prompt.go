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

// Package prompt provides interactive confirmation and selection prompts.
//
// Two terminal implementations are available: HuhPrompter (the default,
// built on charmbracelet/huh) and SurveyPrompter (the classic line-based
// style). MockPrompter returns scripted answers for tests.
package prompt

import (
	"context"
	"errors"
	"fmt"
)

// ErrNonInteractive is returned when a prompt is requested without a terminal.
var ErrNonInteractive = errors.New("cannot prompt in non-interactive mode")

// ErrInterrupted is returned when the user aborts a prompt (Ctrl+C / Esc).
var ErrInterrupted = errors.New("prompt interrupted")

// Prompter asks the user questions on the terminal.
type Prompter interface {
	// Confirm asks a yes/no question and returns the answer.
	Confirm(ctx context.Context, message string, def bool) (bool, error)

	// Select presents options and returns the chosen one.
	Select(ctx context.Context, message string, options []string) (string, error)

	// IsInteractive returns true if prompts can be displayed
	IsInteractive() bool
}

// Style names a prompt implementation.
type Style string

const (
	StyleHuh    Style = "huh"
	StyleSurvey Style = "survey"
)

// New returns the prompter for style. An empty style selects huh.
func New(style Style, interactive bool) (Prompter, error) {
	switch style {
	case "", StyleHuh:
		return NewHuhPrompter(interactive), nil
	case StyleSurvey:
		return NewSurveyPrompter(interactive), nil
	default:
		return nil, fmt.Errorf("unknown prompt style %q", style)
	}
}

func checkSelect(options []string) error {
	if len(options) == 0 {
		return fmt.Errorf("no options provided for selection")
	}
	return nil
}
