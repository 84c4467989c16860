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

package prompt

import (
	"context"
	"errors"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// SurveyPrompter implements Prompter using the survey library
type SurveyPrompter struct {
	interactive bool
}

// NewSurveyPrompter creates a new survey-based prompter
func NewSurveyPrompter(interactive bool) *SurveyPrompter {
	return &SurveyPrompter{
		interactive: interactive,
	}
}

func (sp *SurveyPrompter) Confirm(ctx context.Context, message string, def bool) (bool, error) {
	if !sp.interactive {
		return false, ErrNonInteractive
	}

	var result bool
	prompt := &survey.Confirm{
		Message: message,
		Default: def,
	}

	if err := askOne(ctx, prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

func (sp *SurveyPrompter) Select(ctx context.Context, message string, options []string) (string, error) {
	if !sp.interactive {
		return "", ErrNonInteractive
	}
	if err := checkSelect(options); err != nil {
		return "", err
	}

	var result string
	prompt := &survey.Select{
		Message: message,
		Options: options,
	}

	if err := askOne(ctx, prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

// IsInteractive returns true if prompts can be displayed
func (sp *SurveyPrompter) IsInteractive() bool {
	return sp.interactive
}

// askOne runs a survey prompt. survey has no context support, so a cancelled
// context is only observed before the prompt starts.
func askOne(ctx context.Context, p survey.Prompt, response any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := survey.AskOne(p, response)
	if errors.Is(err, terminal.InterruptErr) {
		return ErrInterrupted
	}
	return err
}
