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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	pkgerrors "github.com/tombee/bazaar/pkg/errors"
	"github.com/tombee/bazaar/pkg/httpclient"
)

// DefaultBaseURL is the production marketplace API.
const DefaultBaseURL = "https://api.bazaar.dev"

// IdempotencyKeyHeader deduplicates retried provisioning requests server-side.
const IdempotencyKeyHeader = "Idempotency-Key"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 * 1024

// Client is a marketplace API client.
type Client struct {
	baseURL    string
	teamID     string
	httpClient *http.Client
}

// Config contains configuration for the marketplace client.
type Config struct {
	// BaseURL is the API root (default: DefaultBaseURL)
	BaseURL string

	// Token is the API bearer token
	Token string

	// TeamID scopes requests to a team (sent as ?teamId=)
	TeamID string

	// Timeout bounds each request including retries (default: 30s)
	Timeout time.Duration

	// UserAgent overrides the default User-Agent
	UserAgent string

	// HTTPClient is an optional custom HTTP client. When set, Token,
	// Timeout and UserAgent are ignored.
	HTTPClient *http.Client
}

// NewClient creates a new marketplace API client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, &pkgerrors.ConfigError{Key: "api.url", Reason: "invalid URL", Cause: err}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpCfg := httpclient.DefaultConfig()
		if cfg.Timeout > 0 {
			httpCfg.Timeout = cfg.Timeout
		}
		if cfg.UserAgent != "" {
			httpCfg.UserAgent = cfg.UserAgent
		}
		if cfg.Token != "" {
			httpCfg.TokenSource = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
		}

		client, err := httpclient.New(httpCfg)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "creating http client")
		}
		httpClient = client
	}

	return &Client{
		baseURL:    baseURL,
		teamID:     cfg.TeamID,
		httpClient: httpClient,
	}, nil
}

// UseTeam scopes subsequent requests to teamID.
func (c *Client) UseTeam(teamID string) {
	c.teamID = teamID
}

// GetScope resolves the team commands run under. teamRef is an explicit team
// id or slug; when empty the user's default team is used. A user without a
// default team yields a Scope with a nil Team and their username as context.
func (c *Client) GetScope(ctx context.Context, teamRef string) (*Scope, error) {
	if teamRef == "" {
		var user struct {
			User struct {
				Username      string `json:"username"`
				DefaultTeamID string `json:"defaultTeamId"`
			} `json:"user"`
		}
		if err := c.do(ctx, http.MethodGet, "/v2/user", nil, nil, nil, &user); err != nil {
			return nil, err
		}
		if user.User.DefaultTeamID == "" {
			return &Scope{ContextName: user.User.Username}, nil
		}
		teamRef = user.User.DefaultTeamID
	}

	var team Team
	err := c.do(ctx, http.MethodGet, "/v2/teams/"+url.PathEscape(teamRef), nil, nil, nil, &team)
	if err != nil {
		if isNotFound(err) {
			return nil, &pkgerrors.NotFoundError{Resource: "team", ID: teamRef}
		}
		return nil, err
	}
	return &Scope{ContextName: team.Slug, Team: &team}, nil
}

// FetchIntegration fetches an integration and its product catalog by slug.
func (c *Client) FetchIntegration(ctx context.Context, slug string) (*Integration, error) {
	var integration Integration
	path := "/v2/integrations/integration/" + url.PathEscape(slug)
	err := c.do(ctx, http.MethodGet, path, url.Values{"public": {"1"}}, nil, nil, &integration)
	if err != nil {
		if isNotFound(err) {
			return nil, &pkgerrors.NotFoundError{Resource: "integration", ID: slug}
		}
		return nil, err
	}
	return &integration, nil
}

// AutoProvisionRequest is one auto-provision attempt.
type AutoProvisionRequest struct {
	IntegrationSlug  string
	ProductSlug      string
	Name             string
	Metadata         Metadata
	AcceptedPolicies AcceptedPolicies
	BillingPlanID    string
}

type autoProvisionBody struct {
	Name             string           `json:"name"`
	Metadata         Metadata         `json:"metadata"`
	AcceptedPolicies AcceptedPolicies `json:"acceptedPolicies"`
	Source           string           `json:"source"`
	BillingPlanID    string           `json:"billingPlanId,omitempty"`
}

// AutoProvision asks the server to provision a resource in one step. The
// server either provisions it or returns a browser fallback describing what
// it still needs. Each call carries a fresh Idempotency-Key.
func (c *Client) AutoProvision(ctx context.Context, req AutoProvisionRequest) (AutoProvisionResult, error) {
	body := autoProvisionBody{
		Name:             req.Name,
		Metadata:         req.Metadata,
		AcceptedPolicies: req.AcceptedPolicies,
		Source:           "cli",
		BillingPlanID:    req.BillingPlanID,
	}
	if body.Metadata == nil {
		body.Metadata = Metadata{}
	}
	if body.AcceptedPolicies == nil {
		body.AcceptedPolicies = AcceptedPolicies{}
	}

	path := fmt.Sprintf("/v1/integrations/integration/%s/marketplace/products/%s/auto-provision",
		url.PathEscape(req.IntegrationSlug), url.PathEscape(req.ProductSlug))
	// The attempt id doubles as the request id so server logs line up with ours.
	attemptID := uuid.NewString()
	header := http.Header{IdempotencyKeyHeader: {attemptID}}
	ctx = httpclient.WithRequestID(ctx, attemptID)

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, path, nil, header, body, &raw); err != nil {
		return nil, err
	}
	return DecodeAutoProvisionResult(raw)
}

// DefaultEnvironments are the project environments a resource is connected to.
var DefaultEnvironments = []string{"production", "preview", "development"}

// ConnectResource connects a provisioned resource to a project.
func (c *Client) ConnectResource(ctx context.Context, resourceID, projectID string, environments []string) error {
	if len(environments) == 0 {
		environments = DefaultEnvironments
	}
	body := struct {
		ProjectID    string   `json:"projectId"`
		Environments []string `json:"envs"`
	}{projectID, environments}

	path := fmt.Sprintf("/v1/storage/stores/%s/connections", url.PathEscape(resourceID))
	return c.do(ctx, http.MethodPost, path, nil, nil, body, nil)
}

// PullEnv returns the development environment variables of a project.
func (c *Client) PullEnv(ctx context.Context, projectID string) (map[string]string, error) {
	var resp struct {
		Env map[string]string `json:"env"`
	}
	path := "/v3/env/pull/" + url.PathEscape(projectID)
	if err := c.do(ctx, http.MethodGet, path, url.Values{"target": {"development"}}, nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Env == nil {
		resp.Env = map[string]string{}
	}
	return resp.Env, nil
}

// do sends a request with an optional JSON body and decodes a JSON response
// into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, header http.Header, body, out any) error {
	u := c.baseURL + path
	if c.teamID != "" {
		if query == nil {
			query = url.Values{}
		}
		query.Set("teamId", c.teamID)
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(err, "encoding request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return pkgerrors.Wrap(err, "creating request")
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrapf(err, "decoding %s response", path)
	}
	return nil
}

// parseAPIError builds an APIError from an error response. The API wraps
// errors as {"error": {"code": "...", "message": "..."}}.
func parseAPIError(resp *http.Response) error {
	apiErr := &pkgerrors.APIError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get(httpclient.RequestIDHeader),
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func isNotFound(err error) bool {
	var apiErr *pkgerrors.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
