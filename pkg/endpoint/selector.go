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

// Package endpoint orders GitHub API base URLs by measured reachability and latency.
package endpoint

import (
	"cmp"
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultGitHubAPI is the primary GitHub REST API base URL.
	DefaultGitHubAPI = "https://api.github.com"

	defaultProbeTimeout = 5 * time.Second
	probePath           = "/rate_limit"
)

// Health is the last known reachability of one endpoint.
type Health struct {
	URL       string
	Latency   time.Duration
	Reachable bool
	CheckedAt time.Time
	Err       error
}

// Selector supplies the current best API base URL.
// The first configured URL is the primary; the rest are mirrors used only when fallback is enabled.
type Selector struct {
	urls         []string
	fallback     bool
	httpClient   *http.Client
	probeTimeout time.Duration

	mu     sync.RWMutex
	health map[string]Health
	order  []string
}

// Option configures a Selector.
type Option func(*Selector)

// WithHTTPClient sets the client used for probes.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Selector) {
		s.httpClient = c
	}
}

// WithProbeTimeout bounds each reachability probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(s *Selector) {
		if d > 0 {
			s.probeTimeout = d
		}
	}
}

// New creates a Selector. An empty url list falls back to DefaultGitHubAPI.
func New(urls []string, fallback bool, opts ...Option) *Selector {
	cleaned := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimRight(strings.TrimSpace(u), "/")
		if u != "" && !slices.Contains(cleaned, u) {
			cleaned = append(cleaned, u)
		}
	}

	if len(cleaned) == 0 {
		cleaned = []string{DefaultGitHubAPI}
	}

	s := &Selector{
		urls:         cleaned,
		fallback:     fallback,
		httpClient:   http.DefaultClient,
		probeTimeout: defaultProbeTimeout,
		health:       make(map[string]Health, len(cleaned)),
		order:        slices.Clone(cleaned),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Primary returns the first configured endpoint.
func (s *Selector) Primary() string {
	return s.urls[0]
}

// FallbackEnabled reports whether mirrors may be used.
func (s *Selector) FallbackEnabled() bool {
	return s.fallback
}

// Candidates returns the endpoints in preference order.
func (s *Selector) Candidates() []string {
	if !s.fallback {
		return []string{s.Primary()}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.order)
}

// Select returns the best candidate endpoint.
func (s *Selector) Select() string {
	return s.Candidates()[0]
}

// Next returns the candidate after current, wrapping around.
// An unknown current yields the best candidate.
func (s *Selector) Next(current string) string {
	candidates := s.Candidates()

	idx := slices.Index(candidates, current)
	if idx < 0 {
		return candidates[0]
	}

	return candidates[(idx+1)%len(candidates)]
}

// MarkFailure deprioritizes an endpoint after a failed request.
// A later successful probe restores it.
func (s *Selector) MarkFailure(url string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.Contains(s.urls, url) {
		return
	}

	h := s.health[url]
	h.URL = url
	h.Reachable = false
	h.Err = err
	h.CheckedAt = time.Now()
	s.health[url] = h

	s.order = Order(s.healthLocked())
}

// Health returns the last recorded health of every endpoint in configured order.
func (s *Selector) Health() []Health {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.healthLocked()
}

func (s *Selector) healthLocked() []Health {
	out := make([]Health, 0, len(s.urls))
	for _, u := range s.urls {
		h, ok := s.health[u]
		if !ok {
			// Never probed endpoints keep their configured position.
			h = Health{URL: u, Reachable: true}
		}

		out = append(out, h)
	}

	return out
}

// Probe checks every candidate endpoint and reorders them by the result.
// With fallback disabled only the primary is probed.
func (s *Selector) Probe(ctx context.Context) []Health {
	targets := s.urls
	if !s.fallback {
		targets = s.urls[:1]
	}

	results := make([]Health, len(targets))

	var g errgroup.Group
	for i, u := range targets {
		g.Go(func() error {
			results[i] = s.probe(ctx, u)

			return nil
		})
	}

	_ = g.Wait()

	s.mu.Lock()
	for _, h := range results {
		s.health[h.URL] = h
	}
	s.order = Order(s.healthLocked())
	s.mu.Unlock()

	return results
}

func (s *Selector) probe(ctx context.Context, base string) Health {
	ctx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	h := Health{URL: base}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+probePath, nil)
	if err != nil {
		h.Err = errors.Wrap(err, "failed to create probe request")
		h.CheckedAt = time.Now()

		return h
	}

	resp, err := s.httpClient.Do(req)
	h.Latency = time.Since(start)
	h.CheckedAt = time.Now()

	if err != nil {
		h.Err = errors.Wrap(err, "probe failed")

		return h
	}

	_ = resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		h.Err = errors.Newf("probe returned status %d", resp.StatusCode)

		return h
	}

	h.Reachable = true

	return h
}

// Order returns endpoint URLs with reachable endpoints first, fastest first.
// Unreachable endpoints follow in their input order.
func Order(health []Health) []string {
	sorted := slices.Clone(health)

	slices.SortStableFunc(sorted, func(a, b Health) int {
		switch {
		case a.Reachable && !b.Reachable:
			return -1
		case !a.Reachable && b.Reachable:
			return 1
		case a.Reachable && b.Reachable:
			return cmp.Compare(a.Latency, b.Latency)
		default:
			return 0
		}
	})

	urls := make([]string, 0, len(sorted))
	for _, h := range sorted {
		urls = append(urls, h.URL)
	}

	return urls
}
