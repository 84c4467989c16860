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

// Package config loads bazaar's configuration from the XDG config file,
// environment variables, and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	bazaarerrors "github.com/tombee/bazaar/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Prompt styles.
const (
	PromptStyleHuh    = "huh"
	PromptStyleSurvey = "survey"
)

// Defaults.
const (
	DefaultAPIURL       = "https://api.bazaar.dev"
	DefaultDashboardURL = "https://bazaar.dev"
	DefaultTimeout      = 30 * time.Second
)

// Config represents the complete bazaar configuration.
type Config struct {
	API          APIConfig       `yaml:"api"`
	Team         string          `yaml:"team,omitempty"`
	DashboardURL string          `yaml:"dashboard_url,omitempty"`
	Prompts      PromptsConfig   `yaml:"prompts"`
	Telemetry    TelemetryConfig `yaml:"telemetry"`
	Log          LogConfig       `yaml:"log"`
}

// APIConfig configures the marketplace API connection.
type APIConfig struct {
	// URL is the API base URL.
	// Environment: BAZAAR_API_URL
	URL string `yaml:"url,omitempty"`

	// Timeout bounds every API request.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Token is the API bearer token. When empty the OS keychain is consulted.
	// Environment: BAZAAR_TOKEN
	Token string `yaml:"token,omitempty"`
}

// PromptsConfig selects the interactive prompt implementation.
type PromptsConfig struct {
	// Style is "huh" (default) or "survey".
	Style string `yaml:"style,omitempty"`
}

// TelemetryConfig configures event export.
type TelemetryConfig struct {
	// Enabled turns on OpenTelemetry export of marketplace events.
	// Environment: BAZAAR_TELEMETRY
	Enabled bool `yaml:"enabled"`

	// Stdout pretty-prints spans to stdout instead of (or in addition to) an endpoint.
	Stdout bool `yaml:"stdout,omitempty"`

	// Endpoint is an OTLP endpoint. http:// and https:// URLs use OTLP/HTTP,
	// bare host:port uses OTLP/gRPC.
	// Environment: OTEL_EXPORTER_OTLP_ENDPOINT
	Endpoint string `yaml:"endpoint,omitempty"`

	// MetricsTextfile, when set, receives event counters in Prometheus text format.
	MetricsTextfile string `yaml:"metrics_textfile,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		API: APIConfig{
			URL:     DefaultAPIURL,
			Timeout: DefaultTimeout,
		},
		DashboardURL: DefaultDashboardURL,
		Prompts:      PromptsConfig{Style: PromptStyleHuh},
	}
}

// Load reads the config file at path (or the default path when empty),
// applies environment overrides, and validates the result.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			return nil, &bazaarerrors.ConfigError{Reason: "cannot determine config path", Cause: err}
		}
		path = p
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &bazaarerrors.ConfigError{Reason: fmt.Sprintf("parse %s", path), Cause: err}
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// no config file yet
	default:
		return nil, &bazaarerrors.ConfigError{Reason: fmt.Sprintf("read %s", path), Cause: err}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BAZAAR_API_URL"); v != "" {
		c.API.URL = v
	}
	if v := os.Getenv("BAZAAR_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("BAZAAR_TEAM"); v != "" {
		c.Team = v
	}
	if v := os.Getenv("BAZAAR_DASHBOARD_URL"); v != "" {
		c.DashboardURL = v
	}
	if v := os.Getenv("BAZAAR_PROMPTS"); v != "" {
		c.Prompts.Style = strings.ToLower(v)
	}
	if v := os.Getenv("BAZAAR_TELEMETRY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Telemetry.Enabled = b
		}
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if err := validateBaseURL("api.url", c.API.URL); err != nil {
		return err
	}
	if err := validateBaseURL("dashboard_url", c.DashboardURL); err != nil {
		return err
	}
	if c.API.Timeout <= 0 {
		return &bazaarerrors.ConfigError{Key: "api.timeout", Reason: fmt.Sprintf("must be > 0, got %v", c.API.Timeout)}
	}

	switch c.Prompts.Style {
	case "", PromptStyleHuh, PromptStyleSurvey:
	default:
		return &bazaarerrors.ConfigError{
			Key:    "prompts.style",
			Reason: fmt.Sprintf("unknown style %q, must be one of: huh, survey", c.Prompts.Style),
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return &bazaarerrors.ConfigError{
			Key:    "log.format",
			Reason: fmt.Sprintf("unknown format %q, must be one of: text, json", c.Log.Format),
		}
	}

	return nil
}

func validateBaseURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return &bazaarerrors.ConfigError{Key: key, Reason: "invalid URL", Cause: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &bazaarerrors.ConfigError{Key: key, Reason: fmt.Sprintf("URL must use http or https, got %q", raw)}
	}
	if u.Host == "" {
		return &bazaarerrors.ConfigError{Key: key, Reason: fmt.Sprintf("URL has no host: %q", raw)}
	}
	return nil
}
