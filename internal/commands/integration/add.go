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
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tombee/bazaar/internal/cli/prompt"
	"github.com/tombee/bazaar/internal/commands/completion"
	"github.com/tombee/bazaar/internal/commands/shared"
	"github.com/tombee/bazaar/internal/config"
	"github.com/tombee/bazaar/internal/featureflags"
	"github.com/tombee/bazaar/internal/log"
	"github.com/tombee/bazaar/internal/marketplace"
	"github.com/tombee/bazaar/internal/project"
	"github.com/tombee/bazaar/internal/telemetry"
)

// telemetryShutdownTimeout bounds the final export after the command ends.
const telemetryShutdownTimeout = 5 * time.Second

func newAddCmd() *cobra.Command {
	var opts AddOptions

	cmd := &cobra.Command{
		Use:   "add <integration>[/<product>] [resource-name]",
		Short: "Provision a resource from a marketplace integration",
		Long: `Provision a resource from a marketplace integration in one step.

The integration is installed if needed (you will be asked to accept its
policies), a resource is created with the given or a generated name, and it is
connected to the linked project. When the marketplace needs more information
than the CLI can collect, setup continues in the browser.

Examples:
  # Provision with server defaults and a generated name
  bazaar integration add upstash

  # Choose the product and name the resource
  bazaar integration add neon/postgres my-db

  # Configure the product and pick a plan
  bazaar integration add neon/postgres -m region=iad1 -m storage=10 --plan-id plan_pro

  # Provision without touching the linked project
  bazaar integration add neon/postgres --no-connect`,
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: completion.CompleteNoFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			integrationSlug, productSlug := ParseIntegrationArg(args[0])
			if integrationSlug == "" {
				return shared.NewFailure("Integration slug is required")
			}
			if productSlug != "" && opts.ProductSlug != "" && productSlug != opts.ProductSlug {
				return shared.NewFailure("Conflicting products: %q in argument and %q in --product-slug", productSlug, opts.ProductSlug)
			}
			if productSlug != "" {
				opts.ProductSlug = productSlug
			}
			opts.IntegrationSlug = integrationSlug
			if len(args) > 1 {
				opts.ResourceName = args[1]
			}

			err := runAdd(cmd, opts)
			if err != nil && shared.GetJSON() {
				_ = shared.WriteJSONError(cmd.OutOrStdout(), commandName, shared.JSONErrorsFor(err))
			}
			return err
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Metadata, "metadata", "m", nil, "Product metadata as KEY=VALUE (repeatable)")
	cmd.Flags().StringVarP(&opts.ProductSlug, "product-slug", "p", "", "Product to provision when the integration has several")
	cmd.Flags().StringVar(&opts.BillingPlanID, "plan-id", "", "Billing plan to provision on (default: chosen by the server)")
	cmd.Flags().BoolVar(&opts.NoConnect, "no-connect", false, "Do not connect the resource to the linked project")
	cmd.Flags().BoolVar(&opts.NoEnvPull, "no-env-pull", false, "Do not pull environment variables after connecting")

	_ = cmd.RegisterFlagCompletionFunc("metadata", completion.CompleteMetadataFlag)
	_ = cmd.RegisterFlagCompletionFunc("product-slug", completion.CompleteNoFiles)
	_ = cmd.RegisterFlagCompletionFunc("plan-id", completion.CompleteNoFiles)

	return cmd
}

func runAdd(cmd *cobra.Command, opts AddOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return shared.WrapFailure(err)
	}
	base := setupLogger(cfg)
	logger := log.WithComponent(base, commandName)
	telemetryLogger := log.WithComponent(base, "telemetry")

	token, err := cfg.ResolveToken()
	if err != nil {
		if errors.Is(err, config.ErrNoToken) {
			return shared.NewFailure("No API token found. Set BAZAAR_TOKEN, pass --token, or store one in the keychain")
		}
		return shared.WrapFailure(err)
	}
	if err := config.CheckTokenExpiry(token, time.Now()); err != nil {
		return shared.WrapFailure(err)
	}

	version, _, _ := shared.GetVersion()
	providers, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:         cfg.Telemetry.Enabled,
		Stdout:          cfg.Telemetry.Stdout,
		Endpoint:        cfg.Telemetry.Endpoint,
		MetricsTextfile: cfg.Telemetry.MetricsTextfile,
		ServiceName:     "bazaar",
		ServiceVersion:  version,
	})
	if err != nil {
		return shared.WrapFailure(err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			telemetryLogger.Debug("shutdown failed", log.Error(err))
		}
	}()
	sink, err := providers.Sink()
	if err != nil {
		telemetryLogger.Debug("disabled", log.Error(err))
		sink = telemetry.NopSink{}
	}

	ctx, span := providers.Tracer().Start(ctx, commandName)
	defer span.End()

	client, err := marketplace.NewClient(marketplace.Config{
		BaseURL:   cfg.API.URL,
		Token:     token,
		Timeout:   cfg.API.Timeout,
		UserAgent: "bazaar-cli/" + version,
	})
	if err != nil {
		return shared.WrapFailure(err)
	}

	interactive := !shared.IsNonInteractive()
	prompter, err := prompt.New(prompt.Style(cfg.Prompts.Style), interactive)
	if err != nil {
		return shared.WrapFailure(err)
	}

	out := cmd.ErrOrStderr()
	if shared.GetQuiet() {
		out = io.Discard
	}

	var spinner Spinner
	if featureflags.Get().IsSpinnerEnabled() && !shared.GetQuiet() {
		spinner = shared.NewSpinner()
	} else {
		spinner = shared.NewSpinnerWriter(io.Discard, false)
	}

	teamRef := shared.GetTeam()
	if teamRef == "" {
		teamRef = cfg.Team
	}
	opts.TeamRef = teamRef

	flow := &Flow{
		API:          client,
		Prompter:     prompter,
		Telemetry:    telemetry.NewIntegrationAddClient(ctx, sink),
		Projects:     project.Finder{},
		OpenBrowser:  shared.OpenBrowser,
		Spinner:      spinner,
		Logger:       log.WithIntegration(logger, opts.IntegrationSlug, opts.ProductSlug),
		Out:          out,
		Stdout:       cmd.OutOrStdout(),
		JSON:         shared.GetJSON(),
		Interactive:  interactive,
		Now:          time.Now,
		NameSeed:     uuid.NewString(),
		DashboardURL: cfg.DashboardURL,
	}
	return flow.Run(ctx, opts)
}

// loadConfig reads the config file and applies global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(shared.GetConfigPath())
	if err != nil {
		return nil, err
	}
	if u := shared.GetAPIURL(); u != "" {
		cfg.API.URL = u
	}
	if t := shared.GetToken(); t != "" {
		cfg.API.Token = t
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogger builds the process logger. Precedence: --verbose, then the
// BAZAAR_DEBUG / BAZAAR_LOG_LEVEL environment, then the config file.
func setupLogger(cfg *config.Config) *slog.Logger {
	logCfg := log.FromEnv()
	if os.Getenv("BAZAAR_DEBUG") == "" && os.Getenv("BAZAAR_LOG_LEVEL") == "" && cfg.Log.Level != "" {
		logCfg.Level = cfg.Log.Level
	}
	if os.Getenv("LOG_FORMAT") == "" && cfg.Log.Format != "" {
		logCfg.Format = log.Format(cfg.Log.Format)
	}
	if shared.GetVerbose() {
		logCfg.Level = "debug"
	}
	return log.Setup(logCfg)
}
