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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/bazaar/internal/cli/prompt"
	"github.com/tombee/bazaar/internal/commands/shared"
	"github.com/tombee/bazaar/internal/marketplace"
	"github.com/tombee/bazaar/internal/project"
	"github.com/tombee/bazaar/internal/telemetry"
	pkgerrors "github.com/tombee/bazaar/pkg/errors"
)

type connectCall struct {
	ResourceID   string
	ProjectID    string
	Environments []string
}

// fakeAPI serves scripted responses. Each AutoProvision call consumes the
// next entry of provisions, which is a result or an error.
type fakeAPI struct {
	scope       *marketplace.Scope
	scopeErr    error
	integration *marketplace.Integration
	fetchErr    error
	provisions  []any
	connectErr  error
	env         map[string]string
	pullErr     error

	teamID   string
	requests []marketplace.AutoProvisionRequest
	connects []connectCall
	pulls    []string
}

func (a *fakeAPI) GetScope(ctx context.Context, teamRef string) (*marketplace.Scope, error) {
	return a.scope, a.scopeErr
}

func (a *fakeAPI) UseTeam(teamID string) { a.teamID = teamID }

func (a *fakeAPI) FetchIntegration(ctx context.Context, slug string) (*marketplace.Integration, error) {
	if a.fetchErr != nil {
		return nil, a.fetchErr
	}
	return a.integration, nil
}

func (a *fakeAPI) AutoProvision(ctx context.Context, req marketplace.AutoProvisionRequest) (marketplace.AutoProvisionResult, error) {
	a.requests = append(a.requests, req)
	if len(a.provisions) == 0 {
		return nil, errors.New("unexpected auto-provision call")
	}
	next := a.provisions[0]
	a.provisions = a.provisions[1:]
	switch v := next.(type) {
	case error:
		return nil, v
	case marketplace.AutoProvisionResult:
		return v, nil
	}
	return nil, fmt.Errorf("bad scripted response %T", next)
}

func (a *fakeAPI) ConnectResource(ctx context.Context, resourceID, projectID string, environments []string) error {
	a.connects = append(a.connects, connectCall{resourceID, projectID, environments})
	return a.connectErr
}

func (a *fakeAPI) PullEnv(ctx context.Context, projectID string) (map[string]string, error) {
	a.pulls = append(a.pulls, projectID)
	return a.env, a.pullErr
}

type stubFinder struct {
	link *project.Link
	err  error
}

func (s stubFinder) Find() (*project.Link, error) { return s.link, s.err }

type flowHarness struct {
	api      *fakeAPI
	prompter *prompt.MockPrompter
	events   *telemetry.Recorder
	opened   []string
	out      bytes.Buffer
	stdout   bytes.Buffer
	flow     *Flow
}

var fixedNow = time.Date(2026, 3, 14, 15, 9, 26, 535_000_000, time.UTC)

func neonIntegration(products ...marketplace.Product) *marketplace.Integration {
	if len(products) == 0 {
		products = []marketplace.Product{{ID: "iap_1", Slug: "postgres", Name: "Neon Postgres"}}
	}
	return &marketplace.Integration{ID: "oac_1", Slug: "neon", Name: "Neon", Products: products}
}

func newHarness(t *testing.T, api *fakeAPI, prompter *prompt.MockPrompter, link *project.Link) *flowHarness {
	t.Helper()
	if api.scope == nil && api.scopeErr == nil {
		api.scope = &marketplace.Scope{ContextName: "acme", Team: &marketplace.Team{ID: "team_1", Slug: "acme", Name: "Acme"}}
	}
	if api.integration == nil && api.fetchErr == nil {
		api.integration = neonIntegration()
	}
	if prompter == nil {
		prompter = prompt.NewMockPrompter(true)
	}

	h := &flowHarness{api: api, prompter: prompter, events: telemetry.NewRecorder()}
	h.flow = &Flow{
		API:          api,
		Prompter:     prompter,
		Telemetry:    telemetry.NewIntegrationAddClient(context.Background(), h.events),
		Projects:     stubFinder{link: link},
		OpenBrowser:  func(url string) { h.opened = append(h.opened, url) },
		Out:          &h.out,
		Stdout:       &h.stdout,
		Interactive:  prompter.IsInteractive(),
		Now:          func() time.Time { return fixedNow },
		NameSeed:     "seed",
		DashboardURL: "https://bazaar.dev",
		EnvFile:      DefaultEnvFile,
	}
	return h
}

func (h *flowHarness) event(t *testing.T, key string, into any) {
	t.Helper()
	e, ok := h.events.Find(key)
	require.True(t, ok, "missing event %s in %v", key, h.events.Keys())
	require.NoError(t, json.Unmarshal([]byte(e.Value), into))
}

func requireExitFailure(t *testing.T, err error) *shared.ExitError {
	t.Helper()
	var exitErr *shared.ExitError
	require.True(t, errors.As(err, &exitErr), "want *shared.ExitError, got %T: %v", err, err)
	assert.Equal(t, shared.ExitFailure, exitErr.Code)
	return exitErr
}

func provisioned(id, name string) *marketplace.Provisioned {
	return &marketplace.Provisioned{
		Resource:     marketplace.Resource{ID: id, Name: name},
		Installation: marketplace.Installation{ID: "icfg_1"},
		BillingPlan:  marketplace.BillingPlan{ID: "plan_free"},
	}
}

func installRequired(url string, policies marketplace.Policies) *marketplace.InstallRequired {
	r := &marketplace.InstallRequired{Fallback: marketplace.Fallback{ResultKind: marketplace.KindInstall, URL: url}}
	r.Integration.Policies = &policies
	return r
}

func TestFlowProvisionsAndConnects(t *testing.T) {
	dir := t.TempDir()
	api := &fakeAPI{
		provisions: []any{provisioned("store_1", "my-db")},
		env:        map[string]string{"DATABASE_URL": "postgres://x", "PGHOST": "h"},
	}
	h := newHarness(t, api, nil, &project.Link{ProjectID: "prj_1", ProjectName: "web", Dir: dir})

	err := h.flow.Run(context.Background(), AddOptions{IntegrationSlug: "neon", ResourceName: "my-db"})
	require.NoError(t, err)

	assert.Equal(t, "team_1", api.teamID)
	require.Len(t, api.requests, 1)
	assert.Equal(t, "my-db", api.requests[0].Name)
	assert.Equal(t, marketplace.Metadata{}, api.requests[0].Metadata)
	assert.Empty(t, api.requests[0].AcceptedPolicies)
	assert.Empty(t, api.requests[0].BillingPlanID)

	require.Len(t, api.connects, 1)
	assert.Equal(t, connectCall{"store_1", "prj_1", marketplace.DefaultEnvironments}, api.connects[0])
	assert.Equal(t, []string{"prj_1"}, api.pulls)
	assert.Empty(t, h.opened)

	out := h.out.String()
	assert.Contains(t, out, "Installing Neon Postgres by Neon under acme")
	assert.Contains(t, out, "Neon Postgres successfully provisioned: my-db")
	assert.Contains(t, out, "https://bazaar.dev/acme/~/stores/integration/store_1")
	assert.Contains(t, out, "Connected my-db to project web")
	assert.Contains(t, out, "Pulled 2 environment variables into .env.local (2 new)")

	env, err := godotenv.Read(filepath.Join(dir, DefaultEnvFile))
	require.NoError(t, err)
	assert.Equal(t, api.env, env)

	assert.Equal(t, []string{
		"option:name",
		"argument:integration",
		telemetry.EventInstallFlowStarted,
		telemetry.EventCheckoutPlanSelected,
		telemetry.EventCheckoutProvisioningStarted,
		telemetry.EventCheckoutProvisioningCompleted,
		telemetry.EventProjectConnected,
	}, h.events.Keys())

	arg, _ := h.events.Find("argument:integration")
	assert.Equal(t, "neon", arg.Value)
	name, _ := h.events.Find("option:name")
	assert.Equal(t, telemetry.RedactedValue, name.Value)

	var started telemetry.MarketplaceEventProperties
	h.event(t, telemetry.EventInstallFlowStarted, &started)
	assert.Equal(t, telemetry.MarketplaceEventProperties{
		IntegrationID:      "oac_1",
		IntegrationSlug:    "neon",
		IntegrationName:    "Neon",
		ProductID:          "iap_1",
		ProductSlug:        "postgres",
		TeamSlug:           "acme",
		IsFromCLI:          true,
		IsCLIAutoProvision: true,
	}, started)

	var completed telemetry.ProvisioningCompletedProperties
	h.event(t, telemetry.EventCheckoutProvisioningCompleted, &completed)
	assert.Equal(t, "store_1", completed.ResourceID)
	assert.Equal(t, "my-db", completed.ResourceName)

	var connected telemetry.ProjectConnectedProperties
	h.event(t, telemetry.EventProjectConnected, &connected)
	assert.Equal(t, "prj_1", connected.ProjectID)
	assert.Equal(t, "store_1", connected.ResourceID)
}

func TestFlowAcceptsPoliciesAndRetries(t *testing.T) {
	api := &fakeAPI{provisions: []any{
		installRequired("https://bazaar.dev/setup", marketplace.Policies{Privacy: "https://neon.tech/privacy", EULA: "https://neon.tech/terms"}),
		provisioned("store_2", "db"),
	}}
	h := newHarness(t, api, prompt.NewMockPrompter(true, true, true), nil)

	err := h.flow.Run(context.Background(), AddOptions{IntegrationSlug: "neon", ResourceName: "db", NoConnect: true})
	require.NoError(t, err)

	require.Len(t, api.requests, 2)
	assert.Empty(t, api.requests[0].AcceptedPolicies)
	assert.Equal(t, marketplace.AcceptedPolicies{
		marketplace.PolicyPrivacy: "2026-03-14T15:09:26.535Z",
		marketplace.PolicyEULA:    "2026-03-14T15:09:26.535Z",
	}, api.requests[1].AcceptedPolicies)
	assert.Equal(t, api.requests[0].Name, api.requests[1].Name)

	assert.Equal(t, []string{
		"Confirm(Accept privacy policy? (https://neon.tech/privacy))",
		"Confirm(Accept terms of service? (https://neon.tech/terms))",
	}, h.prompter.CallLog())
	assert.Empty(t, api.connects)
	assert.Empty(t, h.opened)
	assert.Contains(t, h.events.Keys(), telemetry.EventCheckoutProvisioningCompleted)
	assert.Contains(t, h.events.Keys(), "flag:no-connect")
}

func TestFlowOnlyAsksForPresentPolicies(t *testing.T) {
	api := &fakeAPI{provisions: []any{
		installRequired("https://bazaar.dev/setup", marketplace.Policies{EULA: "https://neon.tech/terms"}),
		provisioned("store_2", "db"),
	}}
	h := newHarness(t, api, prompt.NewMockPrompter(true, true), nil)

	require.NoError(t, h.flow.Run(context.Background(), AddOptions{IntegrationSlug: "neon", NoConnect: true}))

	assert.Equal(t, []string{"Confirm(Accept terms of service? (https://neon.tech/terms))"}, h.prompter.CallLog())
	require.Len(t, api.requests, 2)
	assert.Equal(t, marketplace.AcceptedPolicies{marketplace.PolicyEULA: "2026-03-14T15:09:26.535Z"}, api.requests[1].AcceptedPolicies)
}

func TestFlowPolicyDeclined(t *testing.T) {
	tests := []struct {
		name    string
		answers []any
		message string
	}{
		{name: "privacy", answers: []any{false}, message: "Privacy policy must be accepted to continue."},
		{name: "terms", answers: []any{true, false}, message: "Terms of service must be accepted to continue."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{provisions: []any{
				installRequired("https://bazaar.dev/setup", marketplace.Policies{Privacy: "p", EULA: "e"}),
			}}
			h := newHarness(t, api, prompt.NewMockPrompter(true, tt.answers...), nil)

			err := h.flow.Run(context.Background(), AddOptions{IntegrationSlug: "neon"})
			exitErr := requireExitFailure(t, err)
			assert.Equal(t, tt.message, exitErr.Error())

			assert.Len(t, api.requests, 1)
			assert.Empty(t, h.opened)
			assert.NotContains(t, h.events.Keys(), telemetry.EventInstallFlowWebFallback)
		})
	}
}

func TestFlowPolicyPromptWithoutTerminal(t *testing.T) {
	api := &fakeAPI{provisions: []any{
		installRequired("https://bazaar.dev/setup", marketplace.Policies{Privacy: "p"}),
	}}
	h := newHarness(t, api, prompt.NewMockPrompter(false), nil)

	err := h.flow.Run(context.Background(), AddOptions{IntegrationSlug: "neon"})
	requireExitFailure(t, err)
	assert.True(t, errors.Is(err, prompt.ErrNonInteractive))
	assert.Len(t, api.requests, 1)
}

func TestFlowRetriesPolicyAcceptanceOnce(t *testing.T) {
	api := &fakeAPI{provisions: []any{
		installRequired("https://bazaar.dev/setup", marketplace.Policies{Privacy: "p"}),
		installRequired("https://bazaar.dev/setup", marketplace.Policies{Privacy: "p"}),
	}}
	h := newHarness(t, api, prompt.NewMockPrompter(true, true, true), nil)

	err := h.flow.Run(context.Background(), AddOptions{IntegrationSlug: "neon", ResourceName: "db", NoConnect: true})
	require.NoError(t, err)

	assert.Len(t, api.requests, 2)
	assert.Len(t, h.prompter.CallLog(), 1)
	require.Len(t, h.opened, 1)

	var fb telemetry.WebFallbackProperties
	h.event(t, telemetry.EventInstallFlowWebFallback, &fb)
	assert.Equal(t, telemetry.FallbackReasonPolicyAcceptance, fb.Reason)
	assert.Equal(t, marketplace.KindInstall, fb.AutoProvisionResultKind)
	assert.True(t, fb.AttemptedPolicyRetry)
}

func TestFlowMetadataFallback(t *testing.T) {
	api := &fakeAPI{provisions: []any{
		&marketplace.MetadataRequired{Fallback: marketplace.Fallback{ResultKind: marketplace.KindMetadata, URL: "https://bazaar.dev/acme/~/integrations/neon/new"}},
	}}
	h := newHarness(t, api, nil, &project.Link{ProjectID: "prj_1", ProjectName: "web"})

	err := h.flow.Run(context.Background(), AddOptions{IntegrationSlug: "neon"})
	require.NoError(t, err)

	require.Len(t, h.opened, 1)
	opened := h.opened[0]
	assert.Contains(t, opened, "https://bazaar.dev/acme/~/integrations/neon/new?")
	assert.Contains(t, opened, "defaultResourceName=postgres-")
	assert.Contains(t, opened, "source=cli")
	assert.Contains(t, opened, "projectSlug=web")
	assert.NotContains(t, opened, "metadata=")
	assert.NotContains(t, opened, "planId=")
	assert.Contains(t, h.out.String(), "Additional setup required. Opening browser...")
	assert.Empty(t, api.connects)

	var fb telemetry.WebFallbackProperties
	h.event(t, telemetry.EventInstallFlowWebFallback, &fb)
	assert.Equal(t, telemetry.FallbackReasonMetadataRequired, fb.Reason)
	assert.Equal(t, marketplace.KindMetadata, fb.AutoProvisionResultKind)
	assert.False(t, fb.AttemptedPolicyRetry)
}

func TestFlowUnhandledFallbackPassesReason(t *testing.T) {
	api := &fakeAPI{provisions: []any{
		&marketplace.Unhandled{Fallback: marketplace.Fallback{
			ResultKind:   "error",
			URL:          "https://bazaar.dev/setup",
			Reason:       "no_eligible_plan",
			ErrorMessage: "plan unavailable",
		}},
	}}
	h := newHarness(t, api, nil, nil)

	err := h.flow.Run(context.Background(), AddOptions{
		IntegrationSlug: "neon",
		Metadata:        []string{},
		BillingPlanID:   "plan_pro",
		NoConnect:       true,
	})
	require.NoError(t, err)
	require.Len(t, h.opened, 1)
	assert.Contains(t, h.opened[0], "planId=plan_pro")

	var fb telemetry.WebFallbackProperties
	h.event(t, telemetry.EventInstallFlowWebFallback, &fb)
	assert.Equal(t, "no_eligible_plan", fb.Reason)
	assert.Equal(t, "error", fb.AutoProvisionResultKind)
	assert.Equal(t, "no_eligible_plan", fb.AutoProvisionResultReason)
	assert.Equal(t, "plan unavailable", fb.AutoProvisionErrorMessage)
}

func TestFlowResultWithoutKindFallsBack(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantReason string
	}{
		{
			name:       "server reason kept",
			body:       `{"url": "https://bazaar.dev/setup", "reason": "no_eligible_plan"}`,
			wantReason: "no_eligible_plan",
		},
		{
			name:       "no reason",
			body:       `{"url": "https://bazaar.dev/setup"}`,
			wantReason: telemetry.FallbackReasonServerFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := marketplace.DecodeAutoProvisionResult([]byte(tt.body))
			require.NoError(t, err)
			api := &fakeAPI{provisions: []any{result}}
			h := newHarness(t, api, nil, nil)

			err = h.flow.Run(context.Background(), AddOptions{IntegrationSlug: "neon", NoConnect: true})
			require.NoError(t, err)
			require.Len(t, h.opened, 1)
			assert.Contains(t, h.opened[0], "https://bazaar.dev/setup?")

			_, failed := h.events.Find(telemetry.EventCheckoutProvisioningFailed)
			assert.False(t, failed)

			var fb telemetry.WebFallbackProperties
			h.event(t, telemetry.EventInstallFlowWebFallback, &fb)
			assert.Equal(t, tt.wantReason, fb.Reason)
			assert.Equal(t, "", fb.AutoProvisionResultKind)
		})
	}
}

func TestFlowFallbackWithInvalidURL(t *testing.T) {
	api := &fakeAPI{provisions: []any{
		&marketplace.MetadataRequired{Fallback: marketplace.Fallback{ResultKind: marketplace.KindMetadata, URL: "not a url"}},
	}}
	h := newHarness(t, api, nil, nil)

	err := h.flow.Run(context.Background(), AddOptions{IntegrationSlug: "neon", NoConnect: true})
	requireExitFailure(t, err)
	assert.Empty(t, h.opened)
}

func TestFlowProvisioningFault(t *testing.T) {
	api := &fakeAPI{provisions: []any{&pkgerrors.APIError{StatusCode: 500, Message: "upstream unavailable"}}}
	h := newHarness(t, api, nil, nil)

	err := h.flow.Run(context.Background(), AddOptions{IntegrationSlug: "neon"})
	requireExitFailure(t, err)

	var apiErr *pkgerrors.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Len(t, api.requests, 1)
	assert.Empty(t, h.opened)

	var failed telemetry.ProvisioningFailedProperties
	h.event(t, telemetry.EventCheckoutProvisioningFailed, &failed)
	assert.Equal(t, err.Error(), failed.ErrorMessage)
	assert.NotContains(t, h.events.Keys(), telemetry.EventCheckoutProvisioningCompleted)
}

func TestFlowRetryFault(t *testing.T) {
	api := &fakeAPI{provisions: []any{
		installRequired("https://bazaar.dev/setup", marketplace.Policies{Privacy: "p"}),
		errors.New("connection reset"),
	}}
	h := newHarness(t, api, prompt.NewMockPrompter(true, true), nil)

	err := h.flow.Run(context.Background(), AddOptions{IntegrationSlug: "neon"})
	exitErr := requireExitFailure(t, err)
	assert.Equal(t, "connection reset", exitErr.Error())
	assert.Len(t, api.requests, 2)

	var failed telemetry.ProvisioningFailedProperties
	h.event(t, telemetry.EventCheckoutProvisioningFailed, &failed)
	assert.Equal(t, "connection reset", failed.ErrorMessage)
}

func TestFlowLookupFailures(t *testing.T) {
	tests := []struct {
		name    string
		api     *fakeAPI
		opts    AddOptions
		message string
	}{
		{
			name:    "no team",
			api:     &fakeAPI{scope: &marketplace.Scope{ContextName: "me"}},
			message: "Team not found",
		},
		{
			name:    "unknown integration",
			api:     &fakeAPI{fetchErr: &pkgerrors.NotFoundError{Resource: "integration", ID: "nope"}},
			opts:    AddOptions{IntegrationSlug: "nope"},
			message: "Integration not found: nope",
		},
		{
			name:    "not a marketplace integration",
			api:     &fakeAPI{integration: &marketplace.Integration{Slug: "github", Name: "GitHub"}},
			opts:    AddOptions{IntegrationSlug: "github"},
			message: `Integration "github" is not a Marketplace integration`,
		},
		{
			name:    "unknown product",
			api:     &fakeAPI{},
			opts:    AddOptions{IntegrationSlug: "neon", ProductSlug: "mysql"},
			message: `Product "mysql" not found. Available products: postgres`,
		},
		{
			name:    "invalid resource name",
			api:     &fakeAPI{},
			opts:    AddOptions{IntegrationSlug: "neon", ResourceName: "   "},
			message: "Resource name cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.api, nil, nil)
			if tt.opts.IntegrationSlug == "" {
				tt.opts.IntegrationSlug = "neon"
			}

			err := h.flow.Run(context.Background(), tt.opts)
			exitErr := requireExitFailure(t, err)
			assert.Equal(t, tt.message, exitErr.Error())
			assert.Empty(t, tt.api.requests)
			assert.NotContains(t, h.events.Keys(), telemetry.EventCheckoutProvisioningStarted)
		})
	}
}

func TestFlowRedactsUnknownIntegration(t *testing.T) {
	api := &fakeAPI{fetchErr: &pkgerrors.NotFoundError{Resource: "integration", ID: "secret-thing"}}
	h := newHarness(t, api, nil, nil)

	_ = h.flow.Run(context.Background(), AddOptions{IntegrationSlug: "secret-thing"})

	arg, ok := h.events.Find("argument:integration")
	require.True(t, ok)
	assert.Equal(t, telemetry.RedactedValue, arg.Value)
}

func TestFlowAmbiguousProductWithoutTerminal(t *testing.T) {
	api := &fakeAPI{integration: neonIntegration(
		marketplace.Product{ID: "iap_1", Slug: "postgres", Name: "Postgres"},
		marketplace.Product{ID: "iap_2", Slug: "redis", Name: "Redis"},
	)}
	h := newHarness(t, api, prompt.NewMockPrompter(false), nil)

	err := h.flow.Run(context.Background(), AddOptions{IntegrationSlug: "neon"})
	exitErr := requireExitFailure(t, err)
	assert.Contains(t, exitErr.Error(), "  neon/postgres\n  neon/redis\n")
	assert.Empty(t, h.prompter.CallLog())
	assert.Empty(t, api.requests)
}

func TestFlowPromptsForProduct(t *testing.T) {
	api := &fakeAPI{
		integration: neonIntegration(
			marketplace.Product{ID: "iap_1", Slug: "postgres", Name: "Postgres"},
			marketplace.Product{ID: "iap_2", Slug: "redis", Name: "Redis"},
		),
		provisions: []any{provisioned("store_3", "r")},
	}
	h := newHarness(t, api, prompt.NewMockPrompter(true, "Redis (redis)"), nil)

	require.NoError(t, h.flow.Run(context.Background(), AddOptions{IntegrationSlug: "neon", NoConnect: true}))
	require.Len(t, api.requests, 1)
	assert.Equal(t, "redis", api.requests[0].ProductSlug)
	assert.Contains(t, api.requests[0].Name, "redis-")
}

func TestFlowReportsAllMetadataProblems(t *testing.T) {
	api := &fakeAPI{integration: neonIntegration(marketplace.Product{
		ID: "iap_1", Slug: "postgres", Name: "Postgres",
		MetadataSchema: marketplace.MetadataSchema{Properties: map[string]marketplace.MetadataField{
			"region":  {Type: marketplace.FieldString},
			"storage": {Type: marketplace.FieldNumber},
		}},
	})}
	h := newHarness(t, api, nil, nil)

	err := h.flow.Run(context.Background(), AddOptions{
		IntegrationSlug: "neon",
		Metadata:        []string{"zone=1", "storage=big", "oops"},
	})
	requireExitFailure(t, err)

	var multi *pkgerrors.MultiError
	require.True(t, errors.As(err, &multi))
	assert.Len(t, multi.Problems, 3)
	assert.Empty(t, api.requests)

	var buf bytes.Buffer
	assert.Equal(t, shared.ExitFailure, shared.PrintExitError(&buf, err))
	assert.Equal(t, 3, bytes.Count(buf.Bytes(), []byte("Error:")))
}

func TestFlowMissingRequiredMetadata(t *testing.T) {
	api := &fakeAPI{integration: neonIntegration(marketplace.Product{
		ID: "iap_1", Slug: "postgres", Name: "Postgres",
		MetadataSchema: marketplace.MetadataSchema{
			Properties: map[string]marketplace.MetadataField{
				"region":  {Type: marketplace.FieldString},
				"storage": {Type: marketplace.FieldNumber},
			},
			Required: []string{"region", "storage"},
		},
	})}
	h := newHarness(t, api, nil, nil)

	err := h.flow.Run(context.Background(), AddOptions{IntegrationSlug: "neon", Metadata: []string{"region=iad1"}})
	requireExitFailure(t, err)

	var missing *MissingMetadataError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"storage"}, missing.Keys)
	assert.Empty(t, api.requests)
}

func TestFlowSendsMetadataAndPlan(t *testing.T) {
	api := &fakeAPI{
		integration: neonIntegration(marketplace.Product{
			ID: "iap_1", Slug: "postgres", Name: "Postgres",
			MetadataSchema: marketplace.MetadataSchema{Properties: map[string]marketplace.MetadataField{
				"region":  {Type: marketplace.FieldString},
				"storage": {Type: marketplace.FieldNumber},
			}},
		}),
		provisions: []any{provisioned("store_4", "db")},
	}
	h := newHarness(t, api, nil, nil)

	err := h.flow.Run(context.Background(), AddOptions{
		IntegrationSlug: "neon",
		Metadata:        []string{"region=iad1", "storage=10"},
		BillingPlanID:   "plan_pro",
		NoConnect:       true,
	})
	require.NoError(t, err)

	require.Len(t, api.requests, 1)
	assert.Equal(t, marketplace.Metadata{"region": "iad1", "storage": 10.0}, api.requests[0].Metadata)
	assert.Equal(t, "plan_pro", api.requests[0].BillingPlanID)

	var plan telemetry.PlanSelectedProperties
	h.event(t, telemetry.EventCheckoutPlanSelected, &plan)
	assert.Equal(t, telemetry.PlanSelectionCLIFlag, plan.PlanSelectionMethod)
	assert.Equal(t, "plan_pro", plan.BillingPlanID)

	for _, key := range []string{"option:metadata", "option:plan"} {
		e, ok := h.events.Find(key)
		require.True(t, ok, key)
		assert.Equal(t, telemetry.RedactedValue, e.Value)
	}
}

func TestFlowServerDefaultPlan(t *testing.T) {
	api := &fakeAPI{provisions: []any{provisioned("store_5", "db")}}
	h := newHarness(t, api, nil, nil)

	require.NoError(t, h.flow.Run(context.Background(), AddOptions{IntegrationSlug: "neon", NoConnect: true}))

	var plan telemetry.PlanSelectedProperties
	h.event(t, telemetry.EventCheckoutPlanSelected, &plan)
	assert.Equal(t, telemetry.PlanSelectionServerDefault, plan.PlanSelectionMethod)
	assert.Empty(t, plan.BillingPlanID)
}

func TestFlowPostProvisionFailures(t *testing.T) {
	t.Run("connect fails", func(t *testing.T) {
		api := &fakeAPI{provisions: []any{provisioned("store_6", "db")}, connectErr: errors.New("forbidden")}
		h := newHarness(t, api, nil, &project.Link{ProjectID: "prj_1", ProjectName: "web", Dir: t.TempDir()})

		err := h.flow.Run(context.Background(), AddOptions{IntegrationSlug: "neon", ResourceName: "db"})
		exitErr := requireExitFailure(t, err)
		assert.Equal(t, "Failed to connect db to project web: forbidden", exitErr.Error())
		assert.Empty(t, api.pulls)
		assert.NotContains(t, h.events.Keys(), telemetry.EventProjectConnected)
	})

	t.Run("no env pull", func(t *testing.T) {
		api := &fakeAPI{provisions: []any{provisioned("store_7", "db")}}
		h := newHarness(t, api, nil, &project.Link{ProjectID: "prj_1", ProjectName: "web", Dir: t.TempDir()})

		require.NoError(t, h.flow.Run(context.Background(), AddOptions{IntegrationSlug: "neon", NoEnvPull: true}))
		assert.Len(t, api.connects, 1)
		assert.Empty(t, api.pulls)
	})

	t.Run("no linked project", func(t *testing.T) {
		api := &fakeAPI{provisions: []any{provisioned("store_8", "db")}}
		h := newHarness(t, api, nil, nil)

		require.NoError(t, h.flow.Run(context.Background(), AddOptions{IntegrationSlug: "neon"}))
		assert.Empty(t, api.connects)
		assert.Contains(t, h.out.String(), "No linked project found")
	})
}

func TestFlowJSONOutput(t *testing.T) {
	t.Run("provisioned", func(t *testing.T) {
		api := &fakeAPI{provisions: []any{provisioned("store_9", "")}}
		h := newHarness(t, api, nil, nil)
		h.flow.JSON = true

		require.NoError(t, h.flow.Run(context.Background(), AddOptions{IntegrationSlug: "neon", ResourceName: "db", NoConnect: true}))

		var got struct {
			Version      string               `json:"@version"`
			Command      string               `json:"command"`
			Success      bool                 `json:"success"`
			Resource     marketplace.Resource `json:"resource"`
			DashboardURL string               `json:"dashboard_url"`
		}
		require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &got))
		assert.Equal(t, shared.JSONVersion, got.Version)
		assert.Equal(t, "integration add", got.Command)
		assert.True(t, got.Success)
		assert.Equal(t, marketplace.Resource{ID: "store_9", Name: "db"}, got.Resource)
		assert.Equal(t, "https://bazaar.dev/acme/~/stores/integration/store_9", got.DashboardURL)
	})

	t.Run("fallback", func(t *testing.T) {
		api := &fakeAPI{provisions: []any{
			&marketplace.MetadataRequired{Fallback: marketplace.Fallback{ResultKind: marketplace.KindMetadata, URL: "https://bazaar.dev/new"}},
		}}
		h := newHarness(t, api, nil, nil)
		h.flow.JSON = true

		require.NoError(t, h.flow.Run(context.Background(), AddOptions{IntegrationSlug: "neon", ResourceName: "db", NoConnect: true}))

		var got struct {
			Success     bool   `json:"success"`
			FallbackURL string `json:"fallback_url"`
		}
		require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &got))
		assert.True(t, got.Success)
		require.Len(t, h.opened, 1)
		assert.Equal(t, h.opened[0], got.FallbackURL)
	})
}
