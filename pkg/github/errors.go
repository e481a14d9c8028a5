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

package github

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Error kinds. Concrete errors are marked with one of these and matched with errors.Is.
var (
	// ErrAuth means the token is invalid or expired. Never retried.
	ErrAuth = errors.New("github token is invalid or expired")
	// ErrPermission means the token lacks a scope or access is forbidden.
	ErrPermission = errors.New("github permission denied")
	// ErrNotFound means the repository does not exist or is not visible to the token.
	ErrNotFound = errors.New("repository not found")
	// ErrRateLimit means the API rate limit is exhausted.
	ErrRateLimit = errors.New("github api rate limit exceeded")
	// ErrNetwork covers timeouts, connection errors and 5xx responses. Retried.
	ErrNetwork = errors.New("github network error")
)

// IsRetryable reports whether another attempt may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// classify403 distinguishes rate limiting, bad credentials and missing scopes,
// which GitHub all reports as 403.
func classify403(rateLimitRemaining string, body []byte) error {
	if rateLimitRemaining == "0" {
		return errors.Mark(errors.New("HTTP 403: rate limit exhausted"), ErrRateLimit)
	}

	msg := apiMessage(body)
	lower := strings.ToLower(string(body))

	switch {
	case strings.Contains(lower, "rate limit"):
		return errors.Mark(errors.Newf("HTTP 403: %s", msg), ErrRateLimit)
	case strings.Contains(lower, "bad credentials"), strings.Contains(lower, "invalid token"):
		return errors.Mark(errors.Newf("HTTP 403: %s", msg), ErrAuth)
	case strings.Contains(lower, "scope"), strings.Contains(lower, "insufficient"):
		return errors.Mark(errors.Newf("HTTP 403: token is missing a required scope: %s", msg), ErrPermission)
	default:
		return errors.Mark(errors.Newf("HTTP 403: %s", msg), ErrPermission)
	}
}
