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
	"fmt"
)

// Result kinds returned by the auto-provision endpoint.
const (
	KindProvisioned = "provisioned"
	KindInstall     = "install"
	KindMetadata    = "metadata"
)

// AutoProvisionResult is the outcome of an auto-provision call. The concrete
// type is one of *Provisioned, *InstallRequired, *MetadataRequired or *Unhandled.
type AutoProvisionResult interface {
	// Kind returns the wire discriminant.
	Kind() string
	isAutoProvisionResult()
}

// Fallback is the browser hand-off carried by every non-provisioned result.
type Fallback struct {
	ResultKind   string `json:"kind"`
	URL          string `json:"url"`
	Reason       string `json:"reason,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Kind returns the wire discriminant.
func (f *Fallback) Kind() string { return f.ResultKind }

// Provisioned is returned when the resource was created.
type Provisioned struct {
	Resource     Resource     `json:"resource"`
	Installation Installation `json:"installation"`
	BillingPlan  BillingPlan  `json:"billingPlan"`
}

func (*Provisioned) Kind() string { return KindProvisioned }

// MarshalJSON adds the kind so debug dumps match the wire shape.
func (p *Provisioned) MarshalJSON() ([]byte, error) {
	type provisioned Provisioned
	return json.Marshal(struct {
		Kind string `json:"kind"`
		provisioned
	}{Kind: KindProvisioned, provisioned: provisioned(*p)})
}

// InstallRequired is returned when the integration must be installed first,
// which requires accepting its policies.
type InstallRequired struct {
	Fallback
	Integration struct {
		Policies *Policies `json:"policies,omitempty"`
	} `json:"integration"`
}

// Policies returns the policies to accept, never nil.
func (r *InstallRequired) Policies() Policies {
	if r.Integration.Policies == nil {
		return Policies{}
	}
	return *r.Integration.Policies
}

// MetadataRequired is returned when the server needs metadata the CLI did not send.
type MetadataRequired struct {
	Fallback
}

// Unhandled is any other kind; the server wants the user in the browser.
type Unhandled struct {
	Fallback
}

func (*Provisioned) isAutoProvisionResult()      {}
func (*InstallRequired) isAutoProvisionResult()  {}
func (*MetadataRequired) isAutoProvisionResult() {}
func (*Unhandled) isAutoProvisionResult()        {}

// FallbackOf returns the fallback data of a non-provisioned result.
func FallbackOf(r AutoProvisionResult) (*Fallback, bool) {
	switch v := r.(type) {
	case *InstallRequired:
		return &v.Fallback, true
	case *MetadataRequired:
		return &v.Fallback, true
	case *Unhandled:
		return &v.Fallback, true
	}
	return nil, false
}

// DecodeAutoProvisionResult decodes a response body by its kind field.
func DecodeAutoProvisionResult(data []byte) (AutoProvisionResult, error) {
	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decoding auto-provision result: %w", err)
	}

	// A missing kind is an unrecognised result like any other: the server
	// still hands the user off to the browser.
	var result AutoProvisionResult
	switch head.Kind {
	case KindProvisioned:
		result = &Provisioned{}
	case KindInstall:
		result = &InstallRequired{}
	case KindMetadata:
		result = &MetadataRequired{}
	default:
		result = &Unhandled{}
	}

	if err := json.Unmarshal(data, result); err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", head.Kind, err)
	}
	return result, nil
}
