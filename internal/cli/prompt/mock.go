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

package prompt

import (
	"context"
	"fmt"
	"sync"
)

// MockPrompter implements Prompter with scripted responses for testing.
// Responses are consumed in order; a bool answers Confirm, a string answers
// Select, and an error is returned as-is from whichever prompt consumes it.
type MockPrompter struct {
	mu           sync.Mutex
	responses    []any
	currentIndex int
	interactive  bool
	callLog      []string
}

// NewMockPrompter creates a mock prompter with predefined responses
func NewMockPrompter(interactive bool, responses ...any) *MockPrompter {
	return &MockPrompter{
		responses:   responses,
		interactive: interactive,
	}
}

func (mp *MockPrompter) Confirm(ctx context.Context, message string, def bool) (bool, error) {
	resp, ok := mp.next(fmt.Sprintf("Confirm(%s)", message))
	if !mp.interactive {
		return false, ErrNonInteractive
	}
	if !ok {
		return def, nil
	}

	switch v := resp.(type) {
	case bool:
		return v, nil
	case error:
		return false, v
	}
	return false, fmt.Errorf("mock response %d is not a bool", mp.index())
}

func (mp *MockPrompter) Select(ctx context.Context, message string, options []string) (string, error) {
	resp, ok := mp.next(fmt.Sprintf("Select(%s)", message))
	if !mp.interactive {
		return "", ErrNonInteractive
	}
	if err := checkSelect(options); err != nil {
		return "", err
	}
	if !ok {
		return options[0], nil
	}

	switch v := resp.(type) {
	case string:
		return v, nil
	case error:
		return "", v
	}
	return "", fmt.Errorf("mock response %d is not a string", mp.index())
}

// IsInteractive returns the configured interactive mode
func (mp *MockPrompter) IsInteractive() bool {
	return mp.interactive
}

// CallLog returns the log of prompt calls made
func (mp *MockPrompter) CallLog() []string {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return append([]string(nil), mp.callLog...)
}

// next records the call and pops the next scripted response.
func (mp *MockPrompter) next(call string) (any, bool) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.callLog = append(mp.callLog, call)
	if !mp.interactive || mp.currentIndex >= len(mp.responses) {
		return nil, false
	}
	resp := mp.responses[mp.currentIndex]
	mp.currentIndex++
	return resp, true
}

func (mp *MockPrompter) index() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.currentIndex
}
