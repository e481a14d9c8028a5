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
	"sync"
	"time"
)

// MockMetricsRecorder implements metrics.Recorder with call tracking.
type MockMetricsRecorder struct {
	mu sync.Mutex

	githubOps      []string
	githubErrors   int
	refreshes      int
	refreshErrors  int
	lastEntries    int
	starsSucceeded int
	starsFailed    int
}

// RecordGitHubCall records the operation name and counts failures.
func (m *MockMetricsRecorder) RecordGitHubCall(operation string, err error, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.githubOps = append(m.githubOps, operation)
	if err != nil {
		m.githubErrors++
	}
}

// RecordCatalogRefresh counts rebuilds and remembers the last catalog size.
func (m *MockMetricsRecorder) RecordCatalogRefresh(err error, _ time.Duration, entries int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refreshes++
	if err != nil {
		m.refreshErrors++

		return
	}

	m.lastEntries = entries
}

// RecordStar counts star outcomes.
func (m *MockMetricsRecorder) RecordStar(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if success {
		m.starsSucceeded++
	} else {
		m.starsFailed++
	}
}

// GitHubOperations returns the recorded operation names in call order.
func (m *MockMetricsRecorder) GitHubOperations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.githubOps...)
}

// GitHubErrors returns the number of failed GitHub attempts.
func (m *MockMetricsRecorder) GitHubErrors() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.githubErrors
}

// CatalogRefreshes returns the number of rebuilds and how many of them failed.
func (m *MockMetricsRecorder) CatalogRefreshes() (total, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.refreshes, m.refreshErrors
}

// CatalogEntries returns the size reported by the last successful rebuild.
func (m *MockMetricsRecorder) CatalogEntries() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastEntries
}

// Stars returns the recorded star outcomes.
func (m *MockMetricsRecorder) Stars() (succeeded, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.starsSucceeded, m.starsFailed
}
