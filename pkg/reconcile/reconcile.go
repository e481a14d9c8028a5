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

// Package reconcile matches installed plugins against the catalog and
// collects their star status.
package reconcile

import (
	"context"
	"log/slog"

	"github.com/shannai37/github-star-plugin/pkg/catalog"
	"github.com/shannai37/github-star-plugin/pkg/github"
	"github.com/shannai37/github-star-plugin/pkg/version"
)

// InstalledPlugin is a plugin reported by the host platform.
type InstalledPlugin struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
	Author  string `yaml:"author" json:"author"`
	RepoURL string `yaml:"repo" json:"repo"`
}

// Kind classifies an installed plugin.
type Kind int

const (
	// KindLocalOnly has no GitHub repository and cannot be starred.
	KindLocalOnly Kind = iota
	// KindMatched was found in the catalog.
	KindMatched
	// KindUnmatchedGitHub has a GitHub repository outside the catalog.
	KindUnmatchedGitHub
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindMatched:
		return "matched"
	case KindUnmatchedGitHub:
		return "unmatched-github"
	default:
		return "local-only"
	}
}

// MatchResult is the reconciliation outcome for one installed plugin.
type MatchResult struct {
	Installed InstalledPlugin
	Kind      Kind
	// Entry is the catalog entry, nil unless Kind is KindMatched.
	Entry *catalog.Entry
	// Strategy names the strategy that found Entry.
	Strategy string
	// Repo is the GitHub "owner/repo", empty for local-only plugins.
	Repo string
	Status github.StarStatus
	// Err is the star check failure behind an unknown Status.
	Err error
	// Outdated is set when the catalog lists a newer version than the installed one.
	Outdated bool
}

// GitHubBacked reports whether the plugin has a GitHub repository that can be starred.
func (m *MatchResult) GitHubBacked() bool {
	return m.Repo != "" && m.Kind != KindLocalOnly
}

// ListingEntry returns what a display ID of this row refers to: the catalog
// entry, or for a GitHub-only plugin an entry describing its repository.
// Local-only plugins cannot be referred to.
func (m *MatchResult) ListingEntry() (catalog.Entry, bool) {
	switch {
	case m.Entry != nil:
		return *m.Entry, true
	case m.Kind == KindUnmatchedGitHub && m.Repo != "":
		e := catalog.RepoEntry(m.Repo)
		if m.Installed.Name != "" {
			e.Name = m.Installed.Name
		}

		e.Version = m.Installed.Version

		return e, true
	default:
		return catalog.Entry{}, false
	}
}

// DisplayName returns the installed plugin name, falling back to the repository.
func (m *MatchResult) DisplayName() string {
	if m.Installed.Name != "" {
		return m.Installed.Name
	}

	return m.Repo
}

// StarChecker reports star status. *github.Client implements it.
type StarChecker interface {
	CheckStarred(ctx context.Context, fullName string) (github.StarStatus, error)
}

// Reconciler applies DefaultStrategies in order and checks star status.
type Reconciler struct {
	checker StarChecker
	logger  *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = l
	}
}

// New creates a Reconciler.
func New(checker StarChecker, opts ...Option) *Reconciler {
	r := &Reconciler{
		checker: checker,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Match classifies one installed plugin without any network access.
func (r *Reconciler) Match(p InstalledPlugin, entries []catalog.Entry) MatchResult {
	res := MatchResult{Installed: p, Status: github.StatusUnknown}

	for _, s := range DefaultStrategies {
		entry, ok := s.Match(p, entries)
		if !ok {
			continue
		}

		matched := *entry
		res.Kind = KindMatched
		res.Entry = &matched
		res.Strategy = s.Name
		res.Repo = entry.FullName
		res.Outdated = version.IsNewer(entry.Version, p.Version)

		if res.Repo == "" {
			res.Repo = github.FullNameFromURL(p.RepoURL)
		}

		return res
	}

	if full := github.FullNameFromURL(p.RepoURL); full != "" {
		res.Kind = KindUnmatchedGitHub
		res.Repo = full

		return res
	}

	res.Kind = KindLocalOnly

	return res
}

// MatchAll classifies every installed plugin, preserving order.
func (r *Reconciler) MatchAll(installed []InstalledPlugin, entries []catalog.Entry) []MatchResult {
	results := make([]MatchResult, 0, len(installed))
	for _, p := range installed {
		results = append(results, r.Match(p, entries))
	}

	return results
}

// CheckStatus fills in the star status of every GitHub-backed result in place.
// Check failures are recorded as StatusUnknown with the error.
func (r *Reconciler) CheckStatus(ctx context.Context, results []MatchResult) {
	for i := range results {
		res := &results[i]
		if !res.GitHubBacked() {
			continue
		}

		status, err := r.checker.CheckStarred(ctx, res.Repo)
		if err != nil {
			r.logger.Debug("star status check failed", "repo", res.Repo, "error", err)

			status = github.StatusUnknown
		}

		res.Status = status
		res.Err = err
	}
}

// Reconcile matches every installed plugin and checks the star status of
// the GitHub-backed ones.
func (r *Reconciler) Reconcile(ctx context.Context, installed []InstalledPlugin, entries []catalog.Entry) []MatchResult {
	results := r.MatchAll(installed, entries)
	r.CheckStatus(ctx, results)

	return results
}

// Summary counts reconciliation results for a listing header.
type Summary struct {
	Total           int
	Matched         int
	UnmatchedGitHub int
	LocalOnly       int
	Starred         int
	NotStarred      int
	Unknown         int
	Outdated        int
}

// Summarize counts results. Star statuses are counted for GitHub-backed plugins only.
func Summarize(results []MatchResult) Summary {
	s := Summary{Total: len(results)}

	for i := range results {
		res := &results[i]

		switch res.Kind {
		case KindMatched:
			s.Matched++
		case KindUnmatchedGitHub:
			s.UnmatchedGitHub++
		default:
			s.LocalOnly++
		}

		if res.Outdated {
			s.Outdated++
		}

		if !res.GitHubBacked() {
			continue
		}

		switch res.Status {
		case github.StatusStarred:
			s.Starred++
		case github.StatusNotStarred:
			s.NotStarred++
		default:
			s.Unknown++
		}
	}

	return s
}
