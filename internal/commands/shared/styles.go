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
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Terminal palette. lipgloss drops the colors when stdout is not a TTY.
var (
	// StatusOK marks completed steps.
	StatusOK = lipgloss.NewStyle().Foreground(lipgloss.Color("42")) // green

	// StatusWarn marks steps that need the user's attention, such as a browser handoff.
	StatusWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange

	StatusError = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red

	// Muted styles spinner frames and labels.
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray

	// Bold highlights product, resource and project names.
	Bold = lipgloss.NewStyle().Bold(true)

	// Link styles dashboard and fallback URLs.
	Link = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true) // blue
)

const (
	SymbolOK   = "✓"
	SymbolWarn = "⚠"
)

// ColorEnabled reports whether stdout is a color-capable terminal and NO_COLOR is unset.
func ColorEnabled() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return IsTerminalWriter(os.Stdout)
}

// RenderOK prefixes msg with a green check mark.
func RenderOK(msg string) string {
	return StatusOK.Render(SymbolOK) + " " + msg
}

// RenderWarn prefixes msg with an orange warning sign.
func RenderWarn(msg string) string {
	return StatusWarn.Render(SymbolWarn) + " " + msg
}

// RenderError colors a whole line red. Used for the "Error:" prefix.
func RenderError(msg string) string {
	return StatusError.Render(msg)
}

// RenderLabel renders the dim label of a "label: value" line.
func RenderLabel(label string) string {
	return Muted.Render(label)
}
