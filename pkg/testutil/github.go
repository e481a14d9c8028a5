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
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// FakeRepo is a repository served by FakeGitHub.
type FakeRepo struct {
	Stars   int
	Starred bool
}

// FakeGitHub is an in-memory GitHub REST API for client tests.
type FakeGitHub struct {
	Server *httptest.Server

	mu sync.Mutex

	// Token expected in the Authorization header. Empty accepts any token.
	Token string

	Repos map[string]*FakeRepo

	// Requests records "METHOD /path" for every request received.
	Requests []string

	// Injected failures, consumed by matching requests before routing.
	failures []fakeFailure

	// StarredStatus overrides the status returned by GET /user/starred/{owner}/{repo}.
	StarredStatus int
}

type fakeFailure struct {
	prefix    string
	status    int
	remaining int
	body      string
}

// NewFakeGitHub starts a fake GitHub API server.
func NewFakeGitHub() *FakeGitHub {
	f := &FakeGitHub{
		Repos: make(map[string]*FakeRepo),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /user", f.getUser)
	mux.HandleFunc("GET /rate_limit", f.rateLimit)
	mux.HandleFunc("GET /repos/{owner}/{repo}", f.getRepo)
	mux.HandleFunc("GET /user/starred/{owner}/{repo}", f.checkStarred)
	mux.HandleFunc("PUT /user/starred/{owner}/{repo}", f.star)

	f.Server = httptest.NewServer(f.middleware(mux))

	return f
}

// AddRepo registers a repository.
func (f *FakeGitHub) AddRepo(fullName string, stars int, starred bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Repos[strings.ToLower(fullName)] = &FakeRepo{Stars: stars, Starred: starred}
}

// RemoveRepo unregisters a repository so that it answers 404.
func (f *FakeGitHub) RemoveRepo(fullName string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.Repos, strings.ToLower(fullName))
}

// SetStarredStatus overrides the status of star checks. Zero restores normal routing.
func (f *FakeGitHub) SetStarredStatus(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.StarredStatus = status
}

// FailNext makes the next count requests whose path starts with prefix return status.
func (f *FakeGitHub) FailNext(prefix string, status, count int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failures = append(f.failures, fakeFailure{prefix: prefix, status: status, remaining: count, body: body})
}

// IsStarred reports whether the repository is starred.
func (f *FakeGitHub) IsStarred(fullName string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.Repos[strings.ToLower(fullName)]

	return ok && r.Starred
}

// GetRequests returns a copy of the recorded requests.
func (f *FakeGitHub) GetRequests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.Requests))
	copy(out, f.Requests)

	return out
}

// CountRequests counts recorded requests with the given "METHOD /path" prefix.
func (f *FakeGitHub) CountRequests(prefix string) int {
	n := 0

	for _, r := range f.GetRequests() {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}

	return n
}

// URL returns the base URL of the fake server.
func (f *FakeGitHub) URL() string {
	return f.Server.URL
}

// Close shuts down the fake server.
func (f *FakeGitHub) Close() {
	f.Server.Close()
}

func (f *FakeGitHub) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.Requests = append(f.Requests, r.Method+" "+r.URL.Path)

		for i := range f.failures {
			fail := &f.failures[i]
			if fail.remaining > 0 && strings.HasPrefix(r.URL.Path, fail.prefix) {
				fail.remaining--
				f.mu.Unlock()

				writeJSONError(w, fail.status, fail.body)

				return
			}
		}

		token := f.Token
		f.mu.Unlock()

		if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
			writeJSONError(w, http.StatusUnauthorized, "Bad credentials")

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (f *FakeGitHub) getUser(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"login":        "octocat",
		"name":         "The Octocat",
		"public_repos": 8,
		"followers":    100,
		"following":    9,
		"html_url":     "https://github.com/octocat",
	})
}

func (f *FakeGitHub) rateLimit(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rate": map[string]int{"remaining": 5000}})
}

func (f *FakeGitHub) repo(r *http.Request) (string, *FakeRepo) {
	name := strings.ToLower(r.PathValue("owner") + "/" + r.PathValue("repo"))

	return name, f.Repos[name]
}

func (f *FakeGitHub) getRepo(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	name, repo := f.repo(r)

	var stars int
	if repo != nil {
		stars = repo.Stars
	}
	f.mu.Unlock()

	if repo == nil {
		writeJSONError(w, http.StatusNotFound, "Not Found")

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"full_name":        name,
		"html_url":         "https://github.com/" + name,
		"stargazers_count": stars,
		"updated_at":       "2025-06-01T12:00:00Z",
	})
}

func (f *FakeGitHub) checkStarred(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	_, repo := f.repo(r)
	override := f.StarredStatus
	f.mu.Unlock()

	switch {
	case override != 0:
		w.WriteHeader(override)
	case repo != nil && repo.Starred:
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSONError(w, http.StatusNotFound, "Not Found")
	}
}

func (f *FakeGitHub) star(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	_, repo := f.repo(r)

	if repo != nil && !repo.Starred {
		repo.Starred = true
		repo.Stars++
	}
	f.mu.Unlock()

	if repo == nil {
		writeJSONError(w, http.StatusNotFound, "Not Found")

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"message":%q}`, message)
}
