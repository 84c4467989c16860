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

// Package integration implements the `bazaar integration` commands.
package integration

import (
	"github.com/spf13/cobra"
)

const commandName = "integration add"

// NewCommand creates the integration command group
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "integration",
		Aliases: []string{"integrations"},
		Short:   "Manage marketplace integrations",
		Long: `Install marketplace integrations and provision their resources.

Examples:
  # Provision the only product of an integration
  bazaar integration add upstash

  # Pick a product and name the resource
  bazaar integration add neon/postgres my-db

  # Pass product configuration
  bazaar integration add neon/postgres --metadata region=iad1`,
	}

	cmd.AddCommand(newAddCmd())

	return cmd
}
