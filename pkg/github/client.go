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

// Package github is a small GitHub REST API v3 client for starring repositories.
// Requests retry transient failures and rotate between API endpoints.
package github

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/shannai37/github-star-plugin/pkg/metrics"
)

const (
	// DefaultTimeout bounds a single HTTP attempt.
	DefaultTimeout = 20 * time.Second
	// DefaultMaxRetries is the number of extra attempts after a transient failure.
	DefaultMaxRetries = 3

	defaultBackoff    = 500 * time.Millisecond
	maxBackoff        = 5 * time.Second
	maxResponseSize   = 1 << 20
	apiVersion        = "2022-11-28"
	defaultUserAgent  = "github-star-plugin/1.0"
	acceptContentType = "application/vnd.github+json"
)

// Endpoints supplies API base URLs. *endpoint.Selector implements it.
type Endpoints interface {
	Select() string
	Next(current string) string
	MarkFailure(url string, err error)
}

// Config holds client settings.
type Config struct {
	// Token is the personal access token sent as a bearer token.
	Token string
	// Timeout bounds each attempt. Zero uses DefaultTimeout.
	Timeout time.Duration
	// MaxRetries is the number of retries after a transient failure. Negative uses DefaultMaxRetries.
	MaxRetries int
	// Backoff is the base delay between attempts. Zero uses 500ms.
	Backoff time.Duration
	// UserAgent overrides the default User-Agent header.
	UserAgent string
}

// Client provides authenticated access to the GitHub star API.
type Client struct {
	httpClient *http.Client
	endpoints  Endpoints
	token      string
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	userAgent  string
	recorder   metrics.Recorder
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(cl *Client) {
		cl.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// NewClient creates a GitHub client.
func NewClient(cfg Config, endpoints Endpoints, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		endpoints:  endpoints,
		token:      cfg.Token,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		userAgent:  cfg.UserAgent,
		recorder:   &metrics.NoopRecorder{},
		logger:     slog.Default(),
	}

	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}

	if c.maxRetries < 0 {
		c.maxRetries = DefaultMaxRetries
	}

	if c.backoff <= 0 {
		c.backoff = defaultBackoff
	}

	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetAuthenticatedUser returns the profile of the token owner.
func (c *Client) GetAuthenticatedUser(ctx context.Context) (*User, error) {
	body, err := c.do(ctx, "get_user", http.MethodGet, "/user")
	if err != nil {
		return nil, errors.Wrap(err, "failed to get authenticated user")
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, errors.Wrap(err, "failed to parse user response")
	}

	return &user, nil
}

// VerifyToken checks that a token is configured and accepted, and returns
// its owner. A missing token fails without a request.
func (c *Client) VerifyToken(ctx context.Context) (*User, error) {
	if c.token == "" {
		return nil, errors.Mark(errors.New("github token is not configured"), ErrAuth)
	}

	return c.GetAuthenticatedUser(ctx)
}

// GetRepo returns repository metadata for "owner/repo".
func (c *Client) GetRepo(ctx context.Context, fullName string) (*Repository, error) {
	name, err := splitFullName(fullName)
	if err != nil {
		return nil, err
	}

	body, err := c.do(ctx, "get_repo", http.MethodGet, "/repos/"+name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get repository %s", name)
	}

	var repo Repository
	if err := json.Unmarshal(body, &repo); err != nil {
		return nil, errors.Wrap(err, "failed to parse repository response")
	}

	return &repo, nil
}

// StarCount returns the current stargazer count of a repository.
func (c *Client) StarCount(ctx context.Context, fullName string) (int, error) {
	repo, err := c.GetRepo(ctx, fullName)
	if err != nil {
		return 0, err
	}

	return repo.StargazersCount, nil
}

// CheckStarred reports whether the authenticated user has starred the repository.
// The repository is looked up first so that a 404 from the star endpoint
// can only mean "not starred". Any failure yields StatusUnknown with the cause.
func (c *Client) CheckStarred(ctx context.Context, fullName string) (StarStatus, error) {
	name, err := splitFullName(fullName)
	if err != nil {
		return StatusUnknown, err
	}

	if _, err := c.GetRepo(ctx, name); err != nil {
		return StatusUnknown, err
	}

	_, err = c.do(ctx, "check_starred", http.MethodGet, "/user/starred/"+name)

	switch {
	case err == nil:
		return StatusStarred, nil
	case errors.Is(err, ErrNotFound):
		return StatusNotStarred, nil
	default:
		return StatusUnknown, errors.Wrapf(err, "failed to check star status of %s", name)
	}
}

// Star stars the repository. Starring an already starred repository succeeds.
func (c *Client) Star(ctx context.Context, fullName string) error {
	name, err := splitFullName(fullName)
	if err != nil {
		return err
	}

	if _, err := c.do(ctx, "star", http.MethodPut, "/user/starred/"+name); err != nil {
		return errors.Wrapf(err, "failed to star %s", name)
	}

	return nil
}

// do runs a request with retries. Between attempts it waits with exponential
// backoff and moves to the next endpoint.
func (c *Client) do(ctx context.Context, op, method, path string) ([]byte, error) {
	base := c.endpoints.Select()

	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			base = c.endpoints.Next(base)

			if err := sleepCtx(ctx, c.backoffFor(attempt)); err != nil {
				return nil, errors.Mark(errors.Wrap(lastErr, "retry aborted"), ErrNetwork)
			}
		}

		start := time.Now()
		body, err := c.attempt(ctx, method, base+path)
		c.recorder.RecordGitHubCall(op, err, time.Since(start))

		if err == nil {
			return body, nil
		}

		lastErr = err

		if !IsRetryable(err) || ctx.Err() != nil {
			return nil, err
		}

		c.endpoints.MarkFailure(base, err)
		c.logger.Debug("github request failed, retrying",
			"operation", op, "endpoint", base, "attempt", attempt+1, "error", err)
	}

	return nil, errors.Wrapf(lastErr, "giving up after %d attempts", c.maxRetries+1)
}

func (c *Client) attempt(ctx context.Context, method, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", acceptContentType)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", c.userAgent)

	if method == http.MethodPut {
		req.ContentLength = 0
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "request failed"), ErrNetwork)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to read response body"), ErrNetwork)
	}

	return body, classifyStatus(resp, body)
}

func classifyStatus(resp *http.Response, body []byte) error {
	code := resp.StatusCode

	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized:
		return errors.Mark(errors.Newf("HTTP 401: %s", apiMessage(body)), ErrAuth)
	case code == http.StatusForbidden:
		return classify403(resp.Header.Get("X-RateLimit-Remaining"), body)
	case code == http.StatusNotFound:
		return errors.Mark(errors.New("HTTP 404"), ErrNotFound)
	case code == http.StatusTooManyRequests:
		return errors.Mark(errors.New("HTTP 429"), ErrRateLimit)
	case code >= http.StatusInternalServerError:
		return errors.Mark(errors.Newf("HTTP %d", code), ErrNetwork)
	default:
		return errors.Newf("unexpected status code: %d", code)
	}
}

func apiMessage(body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}

	return msg
}

func (c *Client) backoffFor(attempt int) time.Duration {
	d := c.backoff << (attempt - 1)
	if d > maxBackoff || d <= 0 {
		d = maxBackoff
	}

	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
