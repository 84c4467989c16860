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

package marketplace

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAutoProvisionResult(t *testing.T) {
	t.Run("provisioned", func(t *testing.T) {
		r, err := DecodeAutoProvisionResult([]byte(`{
			"kind": "provisioned",
			"resource": {"id": "store_1", "name": "neon-1a2b3c4d", "status": "ready"},
			"installation": {"id": "icfg_1"},
			"billingPlan": {"id": "plan_free", "type": "subscription", "name": "Free"}
		}`))
		require.NoError(t, err)

		p, ok := r.(*Provisioned)
		require.True(t, ok, "got %T", r)
		assert.Equal(t, KindProvisioned, p.Kind())
		assert.Equal(t, "store_1", p.Resource.ID)
		assert.Equal(t, "icfg_1", p.Installation.ID)
		assert.Equal(t, "plan_free", p.BillingPlan.ID)

		_, isFallback := FallbackOf(r)
		assert.False(t, isFallback)

		raw, err := json.Marshal(r)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"kind":"provisioned"`)
		assert.Contains(t, string(raw), `"id":"store_1"`)
	})

	t.Run("install with policies", func(t *testing.T) {
		r, err := DecodeAutoProvisionResult([]byte(`{
			"kind": "install",
			"url": "https://bazaar.dev/acme/~/integrations/neon/install",
			"integration": {"policies": {"privacy": "https://neon.example/privacy", "eula": "https://neon.example/eula"}}
		}`))
		require.NoError(t, err)

		ir, ok := r.(*InstallRequired)
		require.True(t, ok, "got %T", r)
		assert.Equal(t, KindInstall, ir.Kind())
		assert.Equal(t, "https://neon.example/privacy", ir.Policies().Privacy)
		assert.Equal(t, "https://neon.example/eula", ir.Policies().EULA)

		fb, ok := FallbackOf(r)
		require.True(t, ok)
		assert.Equal(t, "https://bazaar.dev/acme/~/integrations/neon/install", fb.URL)
	})

	t.Run("install without policies", func(t *testing.T) {
		r, err := DecodeAutoProvisionResult([]byte(`{"kind": "install", "url": "https://x.test"}`))
		require.NoError(t, err)
		assert.Equal(t, Policies{}, r.(*InstallRequired).Policies())
	})

	t.Run("metadata", func(t *testing.T) {
		r, err := DecodeAutoProvisionResult([]byte(`{"kind": "metadata", "url": "https://x.test/setup"}`))
		require.NoError(t, err)
		m, ok := r.(*MetadataRequired)
		require.True(t, ok, "got %T", r)
		assert.Equal(t, "https://x.test/setup", m.URL)
	})

	t.Run("unknown kind keeps raw kind and reason", func(t *testing.T) {
		r, err := DecodeAutoProvisionResult([]byte(`{
			"kind": "payment",
			"url": "https://x.test/pay",
			"reason": "payment_method_required",
			"error_message": "No card on file"
		}`))
		require.NoError(t, err)
		u, ok := r.(*Unhandled)
		require.True(t, ok, "got %T", r)
		assert.Equal(t, "payment", u.Kind())
		assert.Equal(t, "payment_method_required", u.Reason)
		assert.Equal(t, "No card on file", u.ErrorMessage)
	})

	t.Run("missing kind falls back", func(t *testing.T) {
		r, err := DecodeAutoProvisionResult([]byte(`{"url": "https://bazaar.dev/setup", "reason": "no_eligible_plan"}`))
		require.NoError(t, err)
		u, ok := r.(*Unhandled)
		require.True(t, ok, "got %T", r)
		assert.Equal(t, "", u.Kind())
		assert.Equal(t, "https://bazaar.dev/setup", u.URL)
		assert.Equal(t, "no_eligible_plan", u.Reason)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := DecodeAutoProvisionResult([]byte(`<html>`))
		assert.Error(t, err)
	})
}
