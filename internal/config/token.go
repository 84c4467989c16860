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

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/zalando/go-keyring"

	bazaarerrors "github.com/tombee/bazaar/pkg/errors"
)

const (
	// KeychainService is the OS keychain service holding the API token.
	KeychainService = "bazaar"
	// KeychainAccount is the keychain account name for the API token.
	KeychainAccount = "api-token"
)

// ErrNoToken is returned when no API token is configured anywhere.
var ErrNoToken = errors.New("no API token found")

// ResolveToken returns the configured API token, falling back to the OS keychain.
func (c *Config) ResolveToken() (string, error) {
	if c.API.Token != "" {
		return c.API.Token, nil
	}

	token, err := keyring.Get(KeychainService, KeychainAccount)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("%w: keychain unavailable: %v", ErrNoToken, err)
	}
	return strings.TrimSpace(token), nil
}

// CheckTokenExpiry rejects JWT tokens whose exp claim is before now.
// Opaque (non-JWT) tokens are accepted as-is; the API is the authority on them.
// The signature is not verified here.
func CheckTokenExpiry(token string, now time.Time) error {
	if strings.Count(token, ".") != 2 {
		return nil
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(now) {
		return &bazaarerrors.ConfigError{
			Key:    "api.token",
			Reason: fmt.Sprintf("token expired at %s", claims.ExpiresAt.UTC().Format(time.RFC3339)),
		}
	}
	return nil
}
