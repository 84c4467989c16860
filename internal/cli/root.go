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

package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tombee/bazaar/internal/cli/prompt"
	"github.com/tombee/bazaar/internal/commands/shared"
	"github.com/tombee/bazaar/internal/jq"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for bazaar
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bazaar",
		Short: "bazaar - provision marketplace resources from the terminal",
		Long: `bazaar installs marketplace integrations and provisions their resources
without leaving the terminal. Resources are connected to the linked project
and their environment variables are pulled into .env.local.

Run 'bazaar integration add <integration>' to get started.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if expr := shared.GetJQ(); expr != "" {
				if err := jq.Validate(expr); err != nil {
					return shared.WrapFailure(err)
				}
			}
			return nil
		},
	}

	flags := shared.RegisterFlagPointers()

	cmd.PersistentFlags().BoolVarP(flags.Verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(flags.Quiet, "quiet", "q", false, "Suppress non-error output")
	cmd.PersistentFlags().BoolVar(flags.JSON, "json", false, "Output in JSON format")
	cmd.PersistentFlags().StringVar(flags.JQ, "jq", "", "Filter JSON output with a jq expression (implies --json)")
	cmd.PersistentFlags().StringVar(flags.Config, "config", "", "Path to config file (default: ~/.config/bazaar/config.yaml)")
	cmd.PersistentFlags().StringVar(flags.Team, "team", "", "Team slug or ID to act as (alias: --scope)")
	cmd.PersistentFlags().StringVar(flags.APIURL, "api-url", "", "Marketplace API base URL")
	cmd.PersistentFlags().StringVar(flags.Token, "token", "", "API token (default: BAZAAR_TOKEN or the system keychain)")

	cmd.SetGlobalNormalizationFunc(normalizeFlagName)

	return cmd
}

// normalizeFlagName maps flag aliases to their canonical names.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	switch name {
	case "scope":
		name = "team"
	}
	return pflag.NormalizedName(name)
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// ExitErrorFor maps a command error to the error reported on exit. Runs
// stopped by a signal or an interrupted prompt exit with 130.
func ExitErrorFor(err error, signalled bool) error {
	if err == nil {
		return nil
	}
	if signalled || errors.Is(err, prompt.ErrInterrupted) || errors.Is(err, context.Canceled) {
		return shared.Interrupted()
	}
	return err
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
