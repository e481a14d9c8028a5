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
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockIndexServer is a test HTTP server for serving plugin index documents.
type MockIndexServer struct {
	Server *httptest.Server

	mu sync.Mutex

	// Track requests
	Requests []string

	// Control behavior
	FailOnPath map[string]bool
	Documents  map[string][]byte
}

// NewMockIndexServer creates a new mock index server.
func NewMockIndexServer() *MockIndexServer {
	mock := &MockIndexServer{
		Requests:   make([]string, 0),
		FailOnPath: make(map[string]bool),
		Documents:  make(map[string][]byte),
	}

	mock.Server = httptest.NewServer(http.HandlerFunc(mock.handler))

	return mock
}

func (m *MockIndexServer) handler(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := r.URL.Path
	m.Requests = append(m.Requests, path)

	if m.FailOnPath[path] {
		http.Error(w, "simulated index failure", http.StatusBadGateway)

		return
	}

	data, ok := m.Documents[path]
	if !ok {
		http.NotFound(w, r)

		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// AddDocument serves data at the given path.
func (m *MockIndexServer) AddDocument(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Documents[path] = data
}

// SetFailOnPath makes the server return an error for the given path.
func (m *MockIndexServer) SetFailOnPath(path string, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FailOnPath[path] = fail
}

// GetRequests returns a copy of recorded request paths.
func (m *MockIndexServer) GetRequests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	requests := make([]string, len(m.Requests))
	copy(requests, m.Requests)

	return requests
}

// Close shuts down the mock server.
func (m *MockIndexServer) Close() {
	m.Server.Close()
}

// URL returns the base URL of the mock server.
func (m *MockIndexServer) URL() string {
	return m.Server.URL
}
