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

// Package httpclient builds the HTTP client used to talk to the marketplace API.
//
// Create a client with default settings:
//
//	client, err := httpclient.New(httpclient.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//
// Attach a bearer token:
//
//	cfg := httpclient.DefaultConfig()
//	cfg.TokenSource = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
//	client, err := httpclient.New(cfg)
//
// # Retry Behavior
//
// Transient failures are retried with exponential backoff and jitter:
//   - HTTP 5xx, 408 and 429 (honoring Retry-After)
//   - network errors (connection refused, reset, temporary DNS failures)
//   - only idempotent methods (GET, HEAD, OPTIONS) unless AllowNonIdempotentRetry is set
//
// Provisioning calls are POSTs and are therefore never retried here.
//
// # Observability
//
// Every request emits a log/slog record with method, sanitized url, status and
// duration_ms. Each request carries an X-Request-ID header; the value is taken
// from the context (see WithRequestID) or generated.
package httpclient
