/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/shannai37/github-star-plugin/pkg/github"
)

// MockStarClient implements the star-related client interfaces for
// search, reconcile and batch tests. Repository names are case-insensitive.
type MockStarClient struct {
	mu sync.Mutex

	// Responses
	Counts   map[string]int
	CountErr map[string]error
	Statuses map[string]github.StarStatus
	CheckErr map[string]error
	StarErr  map[string]error

	// Call tracking
	CountCalls []string
	CheckCalls []string
	StarCalls  []string
}

// NewMockStarClient creates a mock with empty response tables.
func NewMockStarClient() *MockStarClient {
	return &MockStarClient{
		Counts:   make(map[string]int),
		CountErr: make(map[string]error),
		Statuses: make(map[string]github.StarStatus),
		CheckErr: make(map[string]error),
		StarErr:  make(map[string]error),
	}
}

// StarCount returns the configured count. Unknown repositories are not found.
func (m *MockStarClient) StarCount(_ context.Context, fullName string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(fullName)
	m.CountCalls = append(m.CountCalls, key)

	if err := m.CountErr[key]; err != nil {
		return 0, err
	}

	n, ok := m.Counts[key]
	if !ok {
		return 0, errors.Mark(errors.Newf("repository %s not configured", fullName), github.ErrNotFound)
	}

	return n, nil
}

// CheckStarred returns the configured status. Unknown repositories are not starred.
func (m *MockStarClient) CheckStarred(_ context.Context, fullName string) (github.StarStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(fullName)
	m.CheckCalls = append(m.CheckCalls, key)

	if err := m.CheckErr[key]; err != nil {
		return github.StatusUnknown, err
	}

	if status, ok := m.Statuses[key]; ok {
		return status, nil
	}

	return github.StatusNotStarred, nil
}

// Star marks the repository starred unless an error is configured for it.
func (m *MockStarClient) Star(_ context.Context, fullName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(fullName)
	m.StarCalls = append(m.StarCalls, key)

	if err := m.StarErr[key]; err != nil {
		return err
	}

	m.Statuses[key] = github.StatusStarred

	return nil
}

// StarCallsSnapshot returns a copy of the starred names in call order.
func (m *MockStarClient) StarCallsSnapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.StarCalls...)
}

// CheckCallsSnapshot returns a copy of the checked names in call order.
func (m *MockStarClient) CheckCallsSnapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.CheckCalls...)
}
