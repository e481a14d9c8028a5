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

package endpoint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		health []Health
		want   []string
	}{
		{
			name: "reachable sorted by latency",
			health: []Health{
				{URL: "a", Reachable: true, Latency: 300 * time.Millisecond},
				{URL: "b", Reachable: true, Latency: 100 * time.Millisecond},
				{URL: "c", Reachable: true, Latency: 200 * time.Millisecond},
			},
			want: []string{"b", "c", "a"},
		},
		{
			name: "unreachable deprioritized but kept",
			health: []Health{
				{URL: "a", Reachable: false},
				{URL: "b", Reachable: true, Latency: 900 * time.Millisecond},
				{URL: "c", Reachable: false},
			},
			want: []string{"b", "a", "c"},
		},
		{
			name:   "empty",
			health: nil,
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, Order(tt.health))
		})
	}
}

func TestSelector_Defaults(t *testing.T) {
	t.Parallel()

	s := New(nil, true)

	assert.Equal(t, DefaultGitHubAPI, s.Primary())
	assert.Equal(t, DefaultGitHubAPI, s.Select())
	assert.Equal(t, DefaultGitHubAPI, s.Next(DefaultGitHubAPI))
}

func TestSelector_NewNormalizesURLs(t *testing.T) {
	t.Parallel()

	s := New([]string{" https://a.example/ ", "https://b.example", "https://a.example", ""}, true)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, s.Candidates())
}

func TestSelector_FallbackDisabledUsesPrimaryOnly(t *testing.T) {
	t.Parallel()

	s := New([]string{"https://primary", "https://mirror"}, false)
	s.MarkFailure("https://primary", errors.New("boom"))

	assert.Equal(t, []string{"https://primary"}, s.Candidates())
	assert.Equal(t, "https://primary", s.Select())
	assert.Equal(t, "https://primary", s.Next("https://primary"))
}

func TestSelector_NextRotates(t *testing.T) {
	t.Parallel()

	s := New([]string{"https://a", "https://b", "https://c"}, true)

	assert.Equal(t, "https://b", s.Next("https://a"))
	assert.Equal(t, "https://c", s.Next("https://b"))
	assert.Equal(t, "https://a", s.Next("https://c"))
	assert.Equal(t, "https://a", s.Next("https://unknown"))
}

func TestSelector_MarkFailureDeprioritizes(t *testing.T) {
	t.Parallel()

	s := New([]string{"https://a", "https://b"}, true)
	s.MarkFailure("https://a", errors.New("connection refused"))

	assert.Equal(t, "https://b", s.Select())
	assert.Equal(t, []string{"https://b", "https://a"}, s.Candidates())

	// Unknown URLs are ignored.
	s.MarkFailure("https://other", errors.New("x"))
	assert.Len(t, s.Health(), 2)
}

func TestSelector_ProbeRestoresEndpoint(t *testing.T) {
	t.Parallel()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rate_limit", r.URL.Path)
		time.Sleep(30 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer slow.Close()

	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Auth failures still prove the endpoint is reachable.
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer fast.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	s := New([]string{broken.URL, slow.URL, fast.URL}, true)
	s.MarkFailure(fast.URL, errors.New("earlier failure"))

	health := s.Probe(context.Background())
	require.Len(t, health, 3)

	assert.False(t, health[0].Reachable)
	require.Error(t, health[0].Err)
	assert.True(t, health[1].Reachable)
	assert.True(t, health[2].Reachable)

	assert.Equal(t, []string{fast.URL, slow.URL, broken.URL}, s.Candidates())
	assert.Equal(t, fast.URL, s.Select())
}

func TestSelector_ProbeTimeout(t *testing.T) {
	t.Parallel()

	hang := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer hang.Close()

	s := New([]string{hang.URL}, false, WithProbeTimeout(20*time.Millisecond))

	health := s.Probe(context.Background())
	require.Len(t, health, 1)
	assert.False(t, health[0].Reachable)
	assert.Error(t, health[0].Err)
}
