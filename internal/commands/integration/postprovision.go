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

package integration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/tombee/bazaar/internal/commands/shared"
	"github.com/tombee/bazaar/internal/marketplace"
)

// DefaultEnvFile is where pulled environment variables are written.
const DefaultEnvFile = ".env.local"

type postProvisionInput struct {
	ResourceName       string
	ResourceID         string
	ContextName        string
	NoConnect          bool
	NoEnvPull          bool
	OnProjectConnected func(projectID string)
}

// DashboardURL returns the dashboard page of a provisioned resource.
func DashboardURL(base, contextName, resourceID string) string {
	return fmt.Sprintf("%s/%s/~/stores/integration/%s", strings.TrimRight(base, "/"), contextName, resourceID)
}

// postProvisionSetup prints the dashboard link, connects the resource to the
// linked project and pulls its env vars. Returns the dashboard URL.
func (f *Flow) postProvisionSetup(ctx context.Context, in postProvisionInput) (string, error) {
	dashboardURL := DashboardURL(f.DashboardURL, in.ContextName, in.ResourceID)
	f.printf("%s %s\n", shared.RenderLabel("Dashboard:"), shared.Link.Render(dashboardURL))

	if in.NoConnect {
		f.Logger.Debug("skipping project connection", slog.String("reason", "--no-connect"))
		return dashboardURL, nil
	}

	link, err := f.Projects.Find()
	if err != nil {
		return dashboardURL, shared.WrapFailure(err)
	}
	if link == nil {
		f.printf("%s\n", shared.RenderWarn("No linked project found. Link one with .bazaar/project.json to connect resources automatically."))
		return dashboardURL, nil
	}

	if err := f.API.ConnectResource(ctx, in.ResourceID, link.ProjectID, marketplace.DefaultEnvironments); err != nil {
		return dashboardURL, shared.WrapFailure(fmt.Errorf("Failed to connect %s to project %s: %w", in.ResourceName, link.ProjectName, err))
	}
	if in.OnProjectConnected != nil {
		in.OnProjectConnected(link.ProjectID)
	}
	f.printf("%s\n", shared.RenderOK(fmt.Sprintf("Connected %s to project %s", in.ResourceName, shared.Bold.Render(link.ProjectName))))

	if in.NoEnvPull {
		f.Logger.Debug("skipping env pull", slog.String("reason", "--no-env-pull"))
		return dashboardURL, nil
	}

	env, err := f.API.PullEnv(ctx, link.ProjectID)
	if err != nil {
		return dashboardURL, shared.WrapFailure(fmt.Errorf("Failed to pull environment variables: %w", err))
	}

	envFile := f.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if !filepath.IsAbs(envFile) && link.Dir != "" {
		envFile = filepath.Join(link.Dir, envFile)
	}
	added, err := writeEnvFile(envFile, env)
	if err != nil {
		return dashboardURL, shared.WrapFailure(err)
	}
	f.printf("%s\n", shared.RenderOK(fmt.Sprintf("Pulled %d environment variables into %s (%d new)", len(env), filepath.Base(envFile), added)))

	return dashboardURL, nil
}

// writeEnvFile merges env into the dotenv file at path, keeping variables the
// project does not define. Returns how many keys were not present before.
func writeEnvFile(path string, env map[string]string) (int, error) {
	existing, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("reading %s: %w", path, err)
		}
		existing = map[string]string{}
	}

	added := 0
	for k, v := range env {
		if _, ok := existing[k]; !ok {
			added++
		}
		existing[k] = v
	}

	if err := godotenv.Write(existing, path); err != nil {
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	return added, nil
}
