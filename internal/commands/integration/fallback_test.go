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
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/bazaar/internal/marketplace"
	"github.com/tombee/bazaar/internal/telemetry"
)

func TestBuildFallbackURL(t *testing.T) {
	t.Run("minimal", func(t *testing.T) {
		got, err := BuildFallbackURL("https://bazaar.dev/acme/~/integrations/neon/setup?step=2", FallbackParams{ResourceName: "db-1"})
		require.NoError(t, err)

		u, err := url.Parse(got)
		require.NoError(t, err)
		assert.Equal(t, "/acme/~/integrations/neon/setup", u.Path)
		q := u.Query()
		assert.Equal(t, "2", q.Get("step"), "existing params are kept")
		assert.Equal(t, "db-1", q.Get("defaultResourceName"))
		assert.Equal(t, "cli", q.Get("source"))
		assert.False(t, q.Has("metadata"))
		assert.False(t, q.Has("projectSlug"))
		assert.False(t, q.Has("planId"))
	})

	t.Run("all params", func(t *testing.T) {
		got, err := BuildFallbackURL("https://bazaar.dev/setup", FallbackParams{
			ResourceName:  "db-1",
			Metadata:      marketplace.Metadata{"region": "iad1", "storage": 10.0},
			ProjectSlug:   "web",
			BillingPlanID: "plan_pro",
		})
		require.NoError(t, err)

		u, err := url.Parse(got)
		require.NoError(t, err)
		q := u.Query()
		assert.JSONEq(t, `{"region":"iad1","storage":10}`, q.Get("metadata"))
		assert.Equal(t, "web", q.Get("projectSlug"))
		assert.Equal(t, "plan_pro", q.Get("planId"))
	})

	t.Run("invalid base", func(t *testing.T) {
		for _, base := range []string{"", "not a url", "/relative/path", "://x"} {
			_, err := BuildFallbackURL(base, FallbackParams{ResourceName: "db"})
			assert.Error(t, err, base)
		}
	})
}

func TestFallbackReason(t *testing.T) {
	metadata := &marketplace.MetadataRequired{}
	install := &marketplace.InstallRequired{}
	withReason := &marketplace.Unhandled{Fallback: marketplace.Fallback{ResultKind: "error", Reason: "no_eligible_plan"}}
	bare := &marketplace.Unhandled{Fallback: marketplace.Fallback{ResultKind: "mystery"}}

	assert.Equal(t, telemetry.FallbackReasonMetadataRequired, fallbackReason(metadata, &metadata.Fallback))
	assert.Equal(t, telemetry.FallbackReasonPolicyAcceptance, fallbackReason(install, &install.Fallback))
	assert.Equal(t, "no_eligible_plan", fallbackReason(withReason, &withReason.Fallback))
	assert.Equal(t, telemetry.FallbackReasonServerFallback, fallbackReason(bare, &bare.Fallback))
}
