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
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

const spinnerInterval = 100 * time.Millisecond

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows an animated progress line with the elapsed time while the
// CLI waits on the API. Off a TTY it prints the message once instead.
type Spinner struct {
	out   io.Writer
	isTTY bool

	mu      sync.Mutex
	message string
	started time.Time
	frame   int
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewSpinner creates a spinner on stderr.
func NewSpinner() *Spinner {
	return NewSpinnerWriter(os.Stderr, IsTerminalWriter(os.Stderr))
}

// NewSpinnerWriter creates a spinner on w. It animates only when tty is true.
func NewSpinnerWriter(w io.Writer, tty bool) *Spinner {
	return &Spinner{out: w, isTTY: tty}
}

// Start shows message. Calling Start on a running spinner does nothing.
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}

	s.message = message
	s.started = time.Now()
	s.frame = 0
	s.stop = make(chan struct{})

	if !s.isTTY {
		fmt.Fprintln(s.out, message)
		return
	}
	s.draw()
	s.wg.Add(1)
	go s.animate(s.stop)
}

// Stop clears the spinner line and returns the time since Start. It is a
// no-op returning zero when the spinner is not running.
func (s *Spinner) Stop() time.Duration {
	s.mu.Lock()
	if s.stop == nil {
		s.mu.Unlock()
		return 0
	}
	close(s.stop)
	s.stop = nil
	elapsed := time.Since(s.started)
	s.mu.Unlock()

	s.wg.Wait()
	if s.isTTY {
		fmt.Fprint(s.out, "\r\033[K")
	}
	return elapsed
}

func (s *Spinner) animate(stop <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.stop == stop {
				s.frame = (s.frame + 1) % len(spinnerFrames)
				s.draw()
			}
			s.mu.Unlock()
		}
	}
}

// draw repaints the line. Callers hold mu.
func (s *Spinner) draw() {
	frame := spinnerFrames[s.frame]
	if !ColorEnabled() {
		frame = "..."
	}
	fmt.Fprintf(s.out, "\r\033[K%s %s %s",
		Muted.Render(frame),
		s.message,
		Muted.Render("("+formatElapsed(time.Since(s.started))+")"))
}

// formatElapsed renders d as "12s", "1m" or "1m 23s".
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	minutes, seconds := int(d.Minutes()), int(d.Seconds())%60
	if seconds == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
