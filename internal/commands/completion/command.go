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

// Package completion generates shell completion scripts and provides
// completion functions for bazaar's commands.
package completion

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// Shells lists the supported completion targets.
var Shells = []string{"bash", "zsh", "fish", "powershell"}

// NewCommand creates the completion command for generating shell completion scripts.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for bazaar.

To load completions:

Bash:
  $ source <(bazaar completion bash)

  # To load completions for each session:
  $ bazaar completion bash > ~/.local/share/bash-completion/completions/bazaar

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it.  You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  $ bazaar completion zsh > "${fpath[1]}/_bazaar"

Fish:
  $ bazaar completion fish | source
  $ bazaar completion fish > ~/.config/fish/completions/bazaar.fish

PowerShell:
  bazaar completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgsFunction:     CompleteShells,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), validShell),
		RunE:                  runCompletion,
	}

	return cmd
}

func validShell(cmd *cobra.Command, args []string) error {
	if !slices.Contains(Shells, args[0]) {
		return fmt.Errorf("unsupported shell %q, use one of %v", args[0], Shells)
	}
	return nil
}

func runCompletion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	switch args[0] {
	case "bash":
		return cmd.Root().GenBashCompletionV2(out, true)
	case "zsh":
		return cmd.Root().GenZshCompletion(out)
	case "fish":
		return cmd.Root().GenFishCompletion(out, true)
	case "powershell":
		return cmd.Root().GenPowerShellCompletionWithDesc(out)
	}
	return nil
}
