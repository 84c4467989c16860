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

	"golang.org/x/term"
)

// EnvNonInteractive forces non-interactive mode when set to "true".
const EnvNonInteractive = "BAZAAR_NON_INTERACTIVE"

var (
	// ciBoolVars mark CI when set to "true" or "1".
	ciBoolVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "CIRCLECI", "BUILDKITE"}

	// ciPathVars mark CI when set at all.
	ciPathVars = []string{"JENKINS_HOME"}
)

// IsNonInteractive reports whether prompts must not be shown: the user forced
// it, a CI system is detected, or stdin is not a terminal. Commands that
// need a choice from the user fail with a hint instead of prompting.
func IsNonInteractive() bool {
	if os.Getenv(EnvNonInteractive) == "true" {
		return true
	}
	return isCIEnvironment() || !isTerminal()
}

func isCIEnvironment() bool {
	for _, key := range ciBoolVars {
		if v := os.Getenv(key); v == "true" || v == "1" {
			return true
		}
	}
	for _, key := range ciPathVars {
		if os.Getenv(key) != "" {
			return true
		}
	}
	return false
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsTerminalWriter reports whether f is attached to a terminal.
func IsTerminalWriter(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
