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

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.Color("39")
	colorMuted   = lipgloss.Color("245")
	colorError   = lipgloss.Color("196")
)

// theme returns the huh theme used by every bazaar form.
func theme() *huh.Theme {
	t := huh.ThemeCharm()

	t.Focused.Base = lipgloss.NewStyle()
	t.Focused.Title = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(colorMuted)
	t.Focused.ErrorIndicator = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	t.Focused.ErrorMessage = lipgloss.NewStyle().Foreground(colorError)
	t.Focused.SelectSelector = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	t.Focused.FocusedButton = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).Background(colorPrimary).Padding(0, 1).Bold(true)
	t.Focused.BlurredButton = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1)

	t.Blurred.Base = lipgloss.NewStyle()
	t.Blurred.Title = lipgloss.NewStyle().Foreground(colorMuted)

	return t
}

// HuhPrompter implements Prompter with single-field huh forms.
type HuhPrompter struct {
	interactive bool
}

// NewHuhPrompter creates a huh-backed prompter.
func NewHuhPrompter(interactive bool) *HuhPrompter {
	return &HuhPrompter{interactive: interactive}
}

func (hp *HuhPrompter) Confirm(ctx context.Context, message string, def bool) (bool, error) {
	if !hp.interactive {
		return false, ErrNonInteractive
	}

	result := def
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(message).
				Affirmative("Yes").
				Negative("No").
				Value(&result),
		),
	).WithTheme(theme())

	if err := form.RunWithContext(ctx); err != nil {
		return false, mapHuhError(err)
	}
	return result, nil
}

func (hp *HuhPrompter) Select(ctx context.Context, message string, options []string) (string, error) {
	if !hp.interactive {
		return "", ErrNonInteractive
	}
	if err := checkSelect(options); err != nil {
		return "", err
	}

	var result string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(message).
				Options(huh.NewOptions(options...)...).
				Value(&result),
		),
	).WithTheme(theme())

	if err := form.RunWithContext(ctx); err != nil {
		return "", mapHuhError(err)
	}
	return result, nil
}

func (hp *HuhPrompter) IsInteractive() bool {
	return hp.interactive
}

func mapHuhError(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrInterrupted
	}
	return err
}
