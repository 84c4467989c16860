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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/tombee/bazaar/internal/cli/prompt"
	"github.com/tombee/bazaar/internal/commands/shared"
	"github.com/tombee/bazaar/internal/log"
	"github.com/tombee/bazaar/internal/marketplace"
	"github.com/tombee/bazaar/internal/project"
	"github.com/tombee/bazaar/internal/telemetry"
	pkgerrors "github.com/tombee/bazaar/pkg/errors"
)

// API is the subset of the marketplace API used by the add flow.
type API interface {
	GetScope(ctx context.Context, teamRef string) (*marketplace.Scope, error)
	UseTeam(teamID string)
	FetchIntegration(ctx context.Context, slug string) (*marketplace.Integration, error)
	AutoProvision(ctx context.Context, req marketplace.AutoProvisionRequest) (marketplace.AutoProvisionResult, error)
	ConnectResource(ctx context.Context, resourceID, projectID string, environments []string) error
	PullEnv(ctx context.Context, projectID string) (map[string]string, error)
}

// ProjectFinder returns the linked project, or nil when there is none.
type ProjectFinder interface {
	Find() (*project.Link, error)
}

// Spinner shows progress while waiting on the API.
type Spinner interface {
	Start(message string)
	Stop() time.Duration
}

// AddOptions are the user inputs of `integration add`.
type AddOptions struct {
	IntegrationSlug string
	ProductSlug     string
	ResourceName    string
	Metadata        []string
	BillingPlanID   string
	NoConnect       bool
	NoEnvPull       bool
	TeamRef         string
}

// Flow provisions a marketplace resource. Every collaborator is injected so
// the whole flow can run against fakes.
type Flow struct {
	API         API
	Prompter    prompt.Prompter
	Telemetry   *telemetry.IntegrationAddClient
	Projects    ProjectFinder
	OpenBrowser func(url string)
	Spinner     Spinner
	Logger      *slog.Logger

	// Out receives human-readable progress; Stdout receives --json output.
	Out    io.Writer
	Stdout io.Writer
	JSON   bool

	// Interactive reports whether stdin is a terminal.
	Interactive bool

	// Now stamps policy acceptance.
	Now func() time.Time

	// NameSeed makes generated resource names unique per invocation.
	NameSeed string

	DashboardURL string

	// EnvFile is the file env pull writes, relative to the linked project
	// directory (default: .env.local).
	EnvFile string
}

// policyTimeFormat matches JavaScript's Date.toISOString.
const policyTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Run executes the flow. A nil error means exit status 0, which includes a
// hand-off to the browser.
func (f *Flow) Run(ctx context.Context, opts AddOptions) error {
	f.setDefaults(ctx)
	f.trackOptions(opts)

	scope, err := f.API.GetScope(ctx, opts.TeamRef)
	if err != nil {
		return shared.WrapFailure(err)
	}
	if scope.Team == nil {
		return shared.NewFailure("Team not found")
	}
	f.API.UseTeam(scope.Team.ID)
	f.Logger.Debug("resolved scope", slog.String(log.TeamKey, scope.Team.Slug), slog.String("context", scope.ContextName))

	integration, err := f.fetchIntegration(ctx, opts.IntegrationSlug)
	if err != nil {
		return err
	}

	if len(integration.Products) == 0 {
		return shared.NewFailure("Integration %q is not a Marketplace integration", opts.IntegrationSlug)
	}
	if opts.ProductSlug == "" && len(integration.Products) > 1 && !f.Interactive {
		return shared.WrapFailure(ambiguousProductError(opts.IntegrationSlug, integration.Products))
	}

	product, err := SelectProduct(ctx, f.Prompter, integration.Products, opts.ProductSlug)
	if err != nil {
		return shared.WrapFailure(err)
	}

	props := telemetry.MarketplaceEventProperties{
		IntegrationID:      integration.ID,
		IntegrationSlug:    integration.Slug,
		IntegrationName:    integration.Name,
		ProductID:          product.ID,
		ProductSlug:        product.Slug,
		TeamSlug:           scope.Team.Slug,
		IsFromCLI:          true,
		IsCLIAutoProvision: true,
	}
	f.Telemetry.TrackInstallFlowStarted(props)

	f.printf("Installing %s by %s under %s\n",
		shared.Bold.Render(product.Name), shared.Bold.Render(integration.Name), shared.Bold.Render(scope.ContextName))
	f.Logger.Debug("selected product", slog.String("product", product.Slug), slog.String("product_id", product.ID))
	f.Logger.Debug("product metadata schema", slog.Any("schema", product.MetadataSchema))

	metadata := marketplace.Metadata{}
	if len(opts.Metadata) > 0 {
		f.Logger.Debug("parsing metadata flags", slog.Any("flags", opts.Metadata))
		parsed, problems := ParseMetadataFlags(opts.Metadata, product.MetadataSchema)
		if len(problems) > 0 {
			return shared.WrapFailure(&pkgerrors.MultiError{Problems: problems})
		}
		if missing := MissingRequiredMetadata(parsed, product.MetadataSchema); len(missing) > 0 {
			return shared.WrapFailure(&MissingMetadataError{Keys: missing, Schema: product.MetadataSchema})
		}
		metadata = parsed
	}

	resourceName, err := ResolveResourceName(product.Slug, opts.ResourceName, f.NameSeed)
	if err != nil {
		return shared.WrapFailure(err)
	}
	f.Logger.Debug("collected metadata", slog.Any("metadata", metadata))
	f.Logger.Debug("resource name", slog.String("name", resourceName))

	selection := telemetry.PlanSelectionServerDefault
	if opts.BillingPlanID != "" {
		selection = telemetry.PlanSelectionCLIFlag
	}
	f.Telemetry.TrackCheckoutPlanSelected(telemetry.PlanSelectedProperties{
		MarketplaceEventProperties: props,
		BillingPlanID:              opts.BillingPlanID,
		PlanSelectionMethod:        selection,
	})

	req := marketplace.AutoProvisionRequest{
		IntegrationSlug:  integration.Slug,
		ProductSlug:      product.Slug,
		Name:             resourceName,
		Metadata:         metadata,
		AcceptedPolicies: marketplace.AcceptedPolicies{},
		BillingPlanID:    opts.BillingPlanID,
	}

	f.Telemetry.TrackCheckoutProvisioningStarted(props)
	result, err := f.provision(ctx, req, props)
	if err != nil {
		return err
	}

	attemptedPolicyRetry := false
	if install, ok := result.(*marketplace.InstallRequired); ok {
		f.Logger.Debug("policy acceptance required", slog.Any("policies", install.Policies()))
		accepted, err := f.acceptPolicies(ctx, install.Policies())
		if err != nil {
			return err
		}

		attemptedPolicyRetry = true
		req.AcceptedPolicies = accepted
		f.Logger.Debug("accepted policies", slog.Any("policies", accepted))
		if result, err = f.provision(ctx, req, props); err != nil {
			return err
		}
	}

	switch r := result.(type) {
	case *marketplace.Provisioned:
		return f.handleProvisioned(ctx, r, product, resourceName, scope.ContextName, opts, props)
	case *marketplace.InstallRequired, *marketplace.MetadataRequired, *marketplace.Unhandled:
		fb, _ := marketplace.FallbackOf(r)
		return f.handleFallback(r, fb, resourceName, metadata, opts, props, attemptedPolicyRetry)
	default:
		return shared.NewFailure("unexpected auto-provision result %T", result)
	}
}

func (f *Flow) setDefaults(ctx context.Context) {
	if f.Telemetry == nil {
		f.Telemetry = telemetry.NewIntegrationAddClient(ctx, nil)
	}
	if f.Logger == nil {
		f.Logger = slog.New(slog.DiscardHandler)
	}
	if f.Projects == nil {
		f.Projects = project.Finder{}
	}
	if f.OpenBrowser == nil {
		f.OpenBrowser = shared.OpenBrowser
	}
	if f.Spinner == nil {
		f.Spinner = shared.NewSpinnerWriter(io.Discard, false)
	}
	if f.Out == nil {
		f.Out = io.Discard
	}
	if f.Stdout == nil {
		f.Stdout = io.Discard
	}
}

func (f *Flow) trackOptions(opts AddOptions) {
	f.Telemetry.TrackCliOptionName(opts.ResourceName)
	f.Telemetry.TrackCliOptionMetadata(opts.Metadata)
	f.Telemetry.TrackCliFlagNoConnect(opts.NoConnect)
	f.Telemetry.TrackCliFlagNoEnvPull(opts.NoEnvPull)
	f.Telemetry.TrackCliOptionPlan(opts.BillingPlanID)
}

// fetchIntegration loads the integration and records the argument, redacted
// unless the integration exists.
func (f *Flow) fetchIntegration(ctx context.Context, slug string) (*marketplace.Integration, error) {
	integration, err := f.API.FetchIntegration(ctx, slug)
	if err != nil {
		f.Telemetry.TrackCliArgumentIntegration(slug, false)
		var notFound *pkgerrors.NotFoundError
		if errors.As(err, &notFound) {
			return nil, shared.NewFailure("Integration not found: %s", slug)
		}
		return nil, shared.WrapFailure(fmt.Errorf("Failed to fetch integration %q: %w", slug, err))
	}
	f.Telemetry.TrackCliArgumentIntegration(slug, true)
	return integration, nil
}

// provision makes one auto-provision attempt behind the spinner. Faults are
// recorded and returned; they are never retried here.
func (f *Flow) provision(ctx context.Context, req marketplace.AutoProvisionRequest, props telemetry.MarketplaceEventProperties) (marketplace.AutoProvisionResult, error) {
	f.Spinner.Start("Provisioning resource...")
	result, err := f.API.AutoProvision(ctx, req)
	elapsed := f.Spinner.Stop()
	f.Logger.Debug("auto-provision attempt finished",
		slog.Bool("accepted_policies", len(req.AcceptedPolicies) > 0),
		slog.Duration("elapsed", elapsed))
	if err != nil {
		f.Telemetry.TrackCheckoutProvisioningFailed(telemetry.ProvisioningFailedProperties{
			MarketplaceEventProperties: props,
			ErrorMessage:               err.Error(),
		})
		return nil, shared.WrapFailure(err)
	}
	if f.Logger.Enabled(ctx, slog.LevelDebug) {
		raw, _ := json.Marshal(result)
		f.Logger.Debug("auto-provision result", slog.String("kind", result.Kind()), slog.String("result", string(raw)))
	}
	return result, nil
}

// acceptPolicies asks for each present policy in order, privacy then EULA.
// Declining either one ends the flow.
func (f *Flow) acceptPolicies(ctx context.Context, policies marketplace.Policies) (marketplace.AcceptedPolicies, error) {
	accepted := marketplace.AcceptedPolicies{}

	if policies.Privacy != "" {
		ok, err := f.Prompter.Confirm(ctx, fmt.Sprintf("Accept privacy policy? (%s)", policies.Privacy), false)
		if err != nil {
			return nil, shared.WrapFailure(err)
		}
		if !ok {
			return nil, shared.NewFailure("Privacy policy must be accepted to continue.")
		}
		accepted[marketplace.PolicyPrivacy] = f.now().UTC().Format(policyTimeFormat)
	}

	if policies.EULA != "" {
		ok, err := f.Prompter.Confirm(ctx, fmt.Sprintf("Accept terms of service? (%s)", policies.EULA), false)
		if err != nil {
			return nil, shared.WrapFailure(err)
		}
		if !ok {
			return nil, shared.NewFailure("Terms of service must be accepted to continue.")
		}
		accepted[marketplace.PolicyEULA] = f.now().UTC().Format(policyTimeFormat)
	}

	return accepted, nil
}

type fallbackOutput struct {
	shared.JSONResponse
	FallbackURL string `json:"fallback_url"`
}

// handleFallback sends the user to the browser to finish setup.
func (f *Flow) handleFallback(
	result marketplace.AutoProvisionResult,
	fb *marketplace.Fallback,
	resourceName string,
	metadata marketplace.Metadata,
	opts AddOptions,
	props telemetry.MarketplaceEventProperties,
	attemptedPolicyRetry bool,
) error {
	f.Telemetry.TrackInstallFlowWebFallback(telemetry.WebFallbackProperties{
		MarketplaceEventProperties: props,
		Reason:                     fallbackReason(result, fb),
		AutoProvisionResultKind:    result.Kind(),
		AutoProvisionResultReason:  fb.Reason,
		AutoProvisionErrorMessage:  fb.ErrorMessage,
		AttemptedPolicyRetry:       attemptedPolicyRetry,
	})
	f.Logger.Debug("fallback required", slog.String("kind", result.Kind()), slog.String("url", fb.URL))

	projectSlug := ""
	if !opts.NoConnect {
		link, err := f.Projects.Find()
		if err != nil {
			return shared.WrapFailure(err)
		}
		if link != nil {
			projectSlug = link.ProjectName
		}
	}

	f.printf("%s\n", shared.RenderWarn("Additional setup required. Opening browser..."))
	target, err := BuildFallbackURL(fb.URL, FallbackParams{
		ResourceName:  resourceName,
		Metadata:      metadata,
		ProjectSlug:   projectSlug,
		BillingPlanID: opts.BillingPlanID,
	})
	if err != nil {
		return shared.WrapFailure(err)
	}
	f.Logger.Debug("opening URL", slog.String("url", target))
	f.printf("%s\n", shared.Link.Render(target))
	f.OpenBrowser(target)

	if f.JSON {
		return f.emitJSON(fallbackOutput{
			JSONResponse: shared.NewJSONResponse(commandName, true),
			FallbackURL:  target,
		})
	}
	return nil
}

type successOutput struct {
	shared.JSONResponse
	Resource     marketplace.Resource `json:"resource"`
	DashboardURL string               `json:"dashboard_url"`
}

// handleProvisioned reports success and runs post-provision setup.
func (f *Flow) handleProvisioned(
	ctx context.Context,
	r *marketplace.Provisioned,
	product *marketplace.Product,
	resourceName, contextName string,
	opts AddOptions,
	props telemetry.MarketplaceEventProperties,
) error {
	f.Telemetry.TrackCheckoutProvisioningCompleted(telemetry.ProvisioningCompletedProperties{
		MarketplaceEventProperties: props,
		ResourceID:                 r.Resource.ID,
		ResourceName:               resourceName,
	})
	f.Logger.Debug("provisioned resource",
		slog.Any(log.ResourceKey, r.Resource),
		slog.Any("installation", r.Installation),
		slog.Any("billing_plan", r.BillingPlan))
	f.printf("%s\n", shared.RenderOK(fmt.Sprintf("%s successfully provisioned: %s", product.Name, shared.Bold.Render(resourceName))))

	dashboardURL, err := f.postProvisionSetup(ctx, postProvisionInput{
		ResourceName: resourceName,
		ResourceID:   r.Resource.ID,
		ContextName:  contextName,
		NoConnect:    opts.NoConnect,
		NoEnvPull:    opts.NoEnvPull,
		OnProjectConnected: func(projectID string) {
			f.Telemetry.TrackProjectConnected(telemetry.ProjectConnectedProperties{
				MarketplaceEventProperties: props,
				ProjectID:                  projectID,
				ResourceID:                 r.Resource.ID,
			})
		},
	})
	if err != nil {
		return err
	}

	if f.JSON {
		resource := r.Resource
		if resource.Name == "" {
			resource.Name = resourceName
		}
		return f.emitJSON(successOutput{
			JSONResponse: shared.NewJSONResponse(commandName, true),
			Resource:     resource,
			DashboardURL: dashboardURL,
		})
	}
	return nil
}

func (f *Flow) printf(format string, args ...any) {
	fmt.Fprintf(f.Out, format, args...)
}

func (f *Flow) emitJSON(v any) error {
	if err := shared.WriteJSON(f.Stdout, v); err != nil {
		return shared.WrapFailure(err)
	}
	return nil
}

func (f *Flow) now() time.Time {
	if f.Now == nil {
		return time.Now()
	}
	return f.Now()
}
