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

// Package marketplace is the client for the integrations marketplace API.
//
// It covers the calls made by `bazaar integration add`: scope resolution,
// integration lookup, auto-provisioning, resource connection and env pull.
package marketplace

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Team is a marketplace team.
type Team struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Scope is the account context commands operate under.
// Team is nil when the user has no team selected.
type Scope struct {
	ContextName string
	Team        *Team
}

// Integration is a marketplace integration with its product catalog.
type Integration struct {
	ID       string    `json:"id"`
	Slug     string    `json:"slug"`
	Name     string    `json:"name"`
	Products []Product `json:"products"`
	Policies *Policies `json:"policies,omitempty"`
}

// Product is a provisionable offering of an integration.
type Product struct {
	ID             string         `json:"id"`
	Slug           string         `json:"slug"`
	Name           string         `json:"name"`
	MetadataSchema MetadataSchema `json:"metadataSchema"`
}

// Field types understood by the metadata schema.
const (
	FieldString  = "string"
	FieldNumber  = "number"
	FieldBoolean = "boolean"
	FieldArray   = "array"
)

// UI controls that constrain accepted values.
const (
	ControlSelect      = "select"
	ControlMultiSelect = "multi-select"
)

// MetadataSchema describes the configuration keys a product accepts.
type MetadataSchema struct {
	Type       string                   `json:"type"`
	Properties map[string]MetadataField `json:"properties"`
	Required   []string                 `json:"required,omitempty"`
}

// MetadataField describes a single metadata key.
type MetadataField struct {
	Type        string           `json:"type"`
	Description string           `json:"description,omitempty"`
	UIControl   string           `json:"ui:control,omitempty"`
	UIOptions   []MetadataOption `json:"ui:options,omitempty"`
	UIHidden    HiddenFlag       `json:"ui:hidden"`
	Minimum     *float64         `json:"minimum,omitempty"`
	Maximum     *float64         `json:"maximum,omitempty"`
	Items       *MetadataField   `json:"items,omitempty"`
}

// VisibleKeys returns the sorted keys that users may set.
func (s MetadataSchema) VisibleKeys() []string {
	keys := make([]string, 0, len(s.Properties))
	for k, f := range s.Properties {
		if !f.UIHidden.Hidden() {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// OptionValues returns the allowed values of a select-style field.
func (f MetadataField) OptionValues() []string {
	values := make([]string, 0, len(f.UIOptions))
	for _, o := range f.UIOptions {
		if o.Hidden {
			continue
		}
		values = append(values, o.Value)
	}
	return values
}

// MetadataOption is one choice of a select control. The API sends either a
// bare string or an object with value and label.
type MetadataOption struct {
	Value  string `json:"value"`
	Label  string `json:"label,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`
}

func (o *MetadataOption) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*o = MetadataOption{Value: s, Label: s}
		return nil
	}
	type plain MetadataOption
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = MetadataOption(p)
	return nil
}

// HiddenFlag is the ui:hidden attribute. The API sends true or false, a phase
// name ("create", "update"), or a conditional expression as a string or an
// object. Only true and "create" hide a field from provisioning. Expressions
// are never evaluated here: the field stays visible and the server applies
// the condition.
type HiddenFlag struct {
	hidden bool
}

// Hidden reports whether the field is hidden when creating a resource.
func (h HiddenFlag) Hidden() bool {
	return h.hidden
}

func (h *HiddenFlag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		h.hidden = b
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		h.hidden = s == "create"
		return nil
	}
	h.hidden = false
	return nil
}

func (h HiddenFlag) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.hidden)
}

// NewHiddenFlag returns a HiddenFlag with the given state.
func NewHiddenFlag(hidden bool) HiddenFlag {
	return HiddenFlag{hidden: hidden}
}

// Metadata holds user-supplied product configuration. Values are string,
// float64, bool, or []string. An empty map asks the server for defaults.
type Metadata map[string]any

// Policies are the legal documents an integration requires accepting.
// Empty fields are absent policies.
type Policies struct {
	Privacy string `json:"privacy,omitempty"`
	EULA    string `json:"eula,omitempty"`
}

// Policy names used as AcceptedPolicies keys.
const (
	PolicyPrivacy = "privacy"
	PolicyEULA    = "eula"
)

// AcceptedPolicies maps a policy name to its RFC 3339 acceptance time.
type AcceptedPolicies map[string]string

// Resource is a provisioned marketplace resource.
type Resource struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// Installation is the integration installation a resource belongs to.
type Installation struct {
	ID string `json:"id"`
}

// BillingPlan is the plan a resource was provisioned on.
type BillingPlan struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
	Name string `json:"name,omitempty"`
}
