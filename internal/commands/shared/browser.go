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

package shared

import (
	"log/slog"
	"os/exec"
	"runtime"

	"github.com/tombee/bazaar/internal/featureflags"
)

// OpenBrowser launches the platform URL handler for url without waiting for it.
// Launch failures are logged and otherwise ignored. Does nothing when
// BAZAAR_OPEN_BROWSER=false.
func OpenBrowser(url string) {
	if !featureflags.Get().IsOpenBrowserEnabled() {
		slog.Debug("browser open disabled", slog.String("url", url))
		return
	}

	cmd := browserCommand(runtime.GOOS, url)
	if err := cmd.Start(); err != nil {
		slog.Debug("failed to open browser", slog.String("url", url), slog.Any("error", err))
		return
	}
	// Reap the child in the background so it does not linger as a zombie.
	go func() { _ = cmd.Wait() }()
}

func browserCommand(goos, url string) *exec.Cmd {
	switch goos {
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		return exec.Command("open", url)
	default:
		return exec.Command("xdg-open", url)
	}
}
