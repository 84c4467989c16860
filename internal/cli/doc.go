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

/*
Package cli builds bazaar's root command.

The root command owns the global flags, validates them before any
subcommand runs, and turns returned errors into exit codes. Subcommands live
under internal/commands and are attached by main.

# Command Tree

	bazaar
	├── integration
	│   └── add       Provision a marketplace resource
	├── completion    Generate shell completion scripts
	├── version       Show version
	└── help          Show help (--json for machine-readable)

# Usage

From main.go:

	cli.SetVersion(version, commit, date)
	rootCmd := cli.NewRootCommand()
	rootCmd.AddCommand(integration.NewCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	signalled := ctx.Err() != nil
	stop()
	cli.HandleExitError(cli.ExitErrorFor(err, signalled))

# Global Flags

	--verbose, -v    Debug logging
	--quiet, -q      Suppress non-error output
	--json           JSON output
	--jq             jq filter applied to JSON output (implies --json)
	--config         Path to config file
	--team           Team slug or ID (alias: --scope)
	--api-url        Marketplace API base URL
	--token          API token

# Exit Codes

  - 0: success, including a hand-off to the browser
  - 1: failure
  - 130: interrupted by SIGINT or SIGTERM
*/
package cli
