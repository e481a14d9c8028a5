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
	"sync"
	"time"

	"github.com/shannai37/github-star-plugin/pkg/catalog"
)

// MockCatalogSource implements catalog.Source with call counting.
type MockCatalogSource struct {
	mu sync.Mutex

	// Responses
	Entries []catalog.Entry
	Err     error
	// Delay holds every Fetch for the given time, simulating a slow index.
	Delay time.Duration

	// Call tracking
	FetchCalls int
}

// Fetch returns the configured entries or error after Delay.
func (m *MockCatalogSource) Fetch(ctx context.Context) ([]catalog.Entry, error) {
	m.mu.Lock()
	m.FetchCalls++
	delay := m.Delay
	entries, err := m.Entries, m.Err
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if err != nil {
		return nil, err
	}

	return entries, nil
}

// SetResult replaces the configured response.
func (m *MockCatalogSource) SetResult(entries []catalog.Entry, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Entries = entries
	m.Err = err
}

// Calls returns the number of Fetch calls.
func (m *MockCatalogSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.FetchCalls
}

// WeatherCatalog returns a small catalog used across search, resolver and reconcile tests.
func WeatherCatalog() []catalog.Entry {
	return []catalog.Entry{
		{
			FullName:    "dev1/weather_api",
			Name:        "weather_api",
			ShortName:   "weather_api",
			Author:      "dev1",
			Description: "Query current weather for a city",
			Stars:       245,
			RepoURL:     "https://github.com/dev1/weather_api",
			Version:     "1.2.0",
		},
		{
			FullName:    "dev2/weather_forecast",
			Name:        "weather_forecast",
			ShortName:   "weather_forecas",
			Author:      "dev2",
			Description: "Seven day forecast",
			Stars:       123,
			RepoURL:     "https://github.com/dev2/weather_forecast",
		},
		{
			FullName:    "alice/astrbot_plugin_music",
			Name:        "astrbot_plugin_music",
			ShortName:   "music",
			Author:      "alice",
			Description: "Search and play songs",
			Stars:       88,
			RepoURL:     "https://github.com/alice/astrbot_plugin_music",
			Tags:        []string{"music", "entertainment"},
		},
	}
}
