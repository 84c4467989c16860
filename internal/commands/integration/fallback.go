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
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/tombee/bazaar/internal/marketplace"
	"github.com/tombee/bazaar/internal/telemetry"
)

// FallbackParams is the state carried into the browser setup page.
type FallbackParams struct {
	ResourceName  string
	Metadata      marketplace.Metadata
	ProjectSlug   string
	BillingPlanID string
}

// BuildFallbackURL adds the collected state to the server-provided setup URL.
func BuildFallbackURL(base string, params FallbackParams) (string, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid setup URL from server: %q", base)
	}

	q := u.Query()
	q.Set("defaultResourceName", params.ResourceName)
	q.Set("source", "cli")
	if len(params.Metadata) > 0 {
		data, err := json.Marshal(params.Metadata)
		if err != nil {
			return "", fmt.Errorf("encoding metadata: %w", err)
		}
		q.Set("metadata", string(data))
	}
	if params.ProjectSlug != "" {
		q.Set("projectSlug", params.ProjectSlug)
	}
	if params.BillingPlanID != "" {
		q.Set("planId", params.BillingPlanID)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// fallbackReason maps a non-provisioned result to its telemetry reason.
func fallbackReason(result marketplace.AutoProvisionResult, fb *marketplace.Fallback) string {
	switch result.(type) {
	case *marketplace.MetadataRequired:
		return telemetry.FallbackReasonMetadataRequired
	case *marketplace.InstallRequired:
		return telemetry.FallbackReasonPolicyAcceptance
	}
	if fb.Reason != "" {
		return fb.Reason
	}
	return telemetry.FallbackReasonServerFallback
}
