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

package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/tombee/bazaar/internal/log"
)

// RedactedValue replaces user-supplied values that must not leave the machine.
const RedactedValue = "[REDACTED]"

// Marketplace event keys emitted by `integration add`.
const (
	EventInstallFlowStarted            = "marketplace_install_flow_started"
	EventCheckoutPlanSelected          = "marketplace_checkout_plan_selected"
	EventCheckoutProvisioningStarted   = "marketplace_checkout_provisioning_started"
	EventCheckoutProvisioningCompleted = "marketplace_checkout_provisioning_completed"
	EventCheckoutProvisioningFailed    = "marketplace_checkout_provisioning_failed"
	EventProjectConnected              = "marketplace_project_connected"
	EventInstallFlowWebFallback        = "marketplace_install_flow_web_fallback"
)

// Plan selection methods.
const (
	PlanSelectionCLIFlag       = "cli_flag"
	PlanSelectionServerDefault = "server_default"
)

// Web fallback reasons derived by the CLI. Other reasons are passed through
// from the API.
const (
	FallbackReasonMetadataRequired = "metadata_required"
	FallbackReasonPolicyAcceptance = "policy_acceptance"
	FallbackReasonServerFallback   = "server_fallback"
)

// MarketplaceEventProperties is attached to every marketplace event.
type MarketplaceEventProperties struct {
	IntegrationID      string `json:"integration_id"`
	IntegrationSlug    string `json:"integration_slug"`
	IntegrationName    string `json:"integration_name"`
	ProductID          string `json:"product_id"`
	ProductSlug        string `json:"product_slug"`
	TeamSlug           string `json:"team_slug"`
	IsFromCLI          bool   `json:"is_from_cli"`
	IsCLIAutoProvision bool   `json:"is_cli_auto_provision"`
}

// PlanSelectedProperties is the payload of EventCheckoutPlanSelected.
type PlanSelectedProperties struct {
	MarketplaceEventProperties
	BillingPlanID       string `json:"billing_plan_id,omitempty"`
	PlanSelectionMethod string `json:"plan_selection_method"`
}

// ProvisioningCompletedProperties is the payload of EventCheckoutProvisioningCompleted.
type ProvisioningCompletedProperties struct {
	MarketplaceEventProperties
	ResourceID   string `json:"resource_id"`
	ResourceName string `json:"resource_name"`
}

// ProvisioningFailedProperties is the payload of EventCheckoutProvisioningFailed.
type ProvisioningFailedProperties struct {
	MarketplaceEventProperties
	ErrorMessage string `json:"error_message"`
}

// ProjectConnectedProperties is the payload of EventProjectConnected.
type ProjectConnectedProperties struct {
	MarketplaceEventProperties
	ProjectID  string `json:"project_id"`
	ResourceID string `json:"resource_id"`
}

// WebFallbackProperties is the payload of EventInstallFlowWebFallback.
type WebFallbackProperties struct {
	MarketplaceEventProperties
	Reason                    string `json:"reason"`
	AutoProvisionResultKind   string `json:"auto_provision_result_kind,omitempty"`
	AutoProvisionResultReason string `json:"auto_provision_result_reason,omitempty"`
	AutoProvisionErrorMessage string `json:"auto_provision_error_message,omitempty"`
	AttemptedPolicyRetry      bool   `json:"attempted_policy_retry"`
}

// IntegrationAddClient emits the events of `bazaar integration add`.
type IntegrationAddClient struct {
	ctx  context.Context
	sink Sink
}

// NewIntegrationAddClient creates a client emitting to sink. A nil sink discards events.
func NewIntegrationAddClient(ctx context.Context, sink Sink) *IntegrationAddClient {
	if sink == nil {
		sink = NopSink{}
	}
	return &IntegrationAddClient{ctx: ctx, sink: sink}
}

// TrackCliArgumentIntegration records the integration argument. Unknown
// integrations are redacted since the value may be a typo of a private name.
func (c *IntegrationAddClient) TrackCliArgumentIntegration(v string, known bool) {
	if v == "" {
		return
	}
	if !known {
		v = RedactedValue
	}
	c.emit("argument:integration", v)
}

// TrackCliOptionName records that a resource name was given.
func (c *IntegrationAddClient) TrackCliOptionName(v string) {
	if v != "" {
		c.emit("option:name", RedactedValue)
	}
}

// TrackCliOptionMetadata records that metadata flags were given.
func (c *IntegrationAddClient) TrackCliOptionMetadata(v []string) {
	if len(v) > 0 {
		c.emit("option:metadata", RedactedValue)
	}
}

// TrackCliOptionPlan records that a billing plan was given.
func (c *IntegrationAddClient) TrackCliOptionPlan(v string) {
	if v != "" {
		c.emit("option:plan", RedactedValue)
	}
}

// TrackCliFlagNoConnect records --no-connect.
func (c *IntegrationAddClient) TrackCliFlagNoConnect(v bool) {
	if v {
		c.emit("flag:no-connect", "TRUE")
	}
}

// TrackCliFlagNoEnvPull records --no-env-pull.
func (c *IntegrationAddClient) TrackCliFlagNoEnvPull(v bool) {
	if v {
		c.emit("flag:no-env-pull", "TRUE")
	}
}

func (c *IntegrationAddClient) TrackInstallFlowStarted(props MarketplaceEventProperties) {
	c.emitJSON(EventInstallFlowStarted, props)
}

func (c *IntegrationAddClient) TrackCheckoutPlanSelected(props PlanSelectedProperties) {
	c.emitJSON(EventCheckoutPlanSelected, props)
}

func (c *IntegrationAddClient) TrackCheckoutProvisioningStarted(props MarketplaceEventProperties) {
	c.emitJSON(EventCheckoutProvisioningStarted, props)
}

func (c *IntegrationAddClient) TrackCheckoutProvisioningCompleted(props ProvisioningCompletedProperties) {
	c.emitJSON(EventCheckoutProvisioningCompleted, props)
}

func (c *IntegrationAddClient) TrackCheckoutProvisioningFailed(props ProvisioningFailedProperties) {
	c.emitJSON(EventCheckoutProvisioningFailed, props)
}

func (c *IntegrationAddClient) TrackProjectConnected(props ProjectConnectedProperties) {
	c.emitJSON(EventProjectConnected, props)
}

func (c *IntegrationAddClient) TrackInstallFlowWebFallback(props WebFallbackProperties) {
	c.emitJSON(EventInstallFlowWebFallback, props)
}

func (c *IntegrationAddClient) emit(key, value string) {
	c.sink.Emit(c.ctx, Event{Key: key, Value: value})
}

func (c *IntegrationAddClient) emitJSON(key string, props any) {
	data, err := json.Marshal(props)
	if err != nil {
		slog.Debug("dropping telemetry event", slog.String(log.EventKey, key), slog.Any("error", err))
		return
	}
	c.emit(key, string(data))
}
