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

// Package featureflags provides runtime feature flag management for bazaar.
package featureflags

import (
	"os"
	"strconv"
	"strings"
	"sync"
)

// Flags holds all feature flags with thread-safe access.
type Flags struct {
	mu sync.RWMutex

	// OpenBrowserEnabled launches the system browser for web fallbacks.
	// Disable on headless machines; the URL is printed either way.
	OpenBrowserEnabled bool

	// SpinnerEnabled animates progress while waiting on the API.
	SpinnerEnabled bool
}

var (
	globalFlags *Flags
	once        sync.Once
)

// Get returns the global feature flags instance.
func Get() *Flags {
	once.Do(func() {
		globalFlags = &Flags{
			OpenBrowserEnabled: true,
			SpinnerEnabled:     true,
		}
		globalFlags.loadFromEnv()
	})
	return globalFlags
}

// loadFromEnv overrides flags from BAZAAR_OPEN_BROWSER and BAZAAR_SPINNER.
func (f *Flags) loadFromEnv() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if val := os.Getenv("BAZAAR_OPEN_BROWSER"); val != "" {
		f.OpenBrowserEnabled = parseBool(val)
	}
	if val := os.Getenv("BAZAAR_SPINNER"); val != "" {
		f.SpinnerEnabled = parseBool(val)
	}
}

// IsOpenBrowserEnabled returns whether web fallbacks open the browser.
func (f *Flags) IsOpenBrowserEnabled() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.OpenBrowserEnabled
}

// IsSpinnerEnabled returns whether the progress spinner animates.
func (f *Flags) IsSpinnerEnabled() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.SpinnerEnabled
}

// parseBool accepts strconv.ParseBool forms; anything else is false.
func parseBool(val string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(val))
	return err == nil && b
}
