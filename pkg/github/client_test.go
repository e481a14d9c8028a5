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

package github_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shannai37/github-star-plugin/pkg/endpoint"
	"github.com/shannai37/github-star-plugin/pkg/github"
	"github.com/shannai37/github-star-plugin/pkg/testutil"
)

func newTestClient(t *testing.T, urls []string, fallback bool, retries int) (*github.Client, *endpoint.Selector) {
	t.Helper()

	sel := endpoint.New(urls, fallback)
	rec := &testutil.MockMetricsRecorder{}

	client := github.NewClient(github.Config{
		Token:      "test-token",
		Timeout:    time.Second,
		MaxRetries: retries,
		Backoff:    time.Millisecond,
	}, sel, github.WithRecorder(rec))

	return client, sel
}

func TestCheckStarred_ThreeOutcomes(t *testing.T) {
	t.Parallel()

	fake := testutil.NewFakeGitHub()
	defer fake.Close()

	fake.AddRepo("dev1/weather_api", 245, true)
	fake.AddRepo("dev2/weather_forecast", 123, false)

	client, _ := newTestClient(t, []string{fake.URL()}, true, 0)
	ctx := context.Background()

	status, err := client.CheckStarred(ctx, "dev1/weather_api")
	require.NoError(t, err)
	assert.Equal(t, github.StatusStarred, status)

	status, err = client.CheckStarred(ctx, "dev2/weather_forecast")
	require.NoError(t, err, "a 404 from the star check is not an error")
	assert.Equal(t, github.StatusNotStarred, status)

	status, err = client.CheckStarred(ctx, "ghost/missing")
	require.Error(t, err)
	assert.Equal(t, github.StatusUnknown, status)
	assert.True(t, errors.Is(err, github.ErrNotFound))
}

func TestCheckStarred_AuthFailureIsUnknown(t *testing.T) {
	t.Parallel()

	fake := testutil.NewFakeGitHub()
	defer fake.Close()

	fake.Token = "another-token"
	fake.AddRepo("dev1/weather_api", 1, true)

	client, _ := newTestClient(t, []string{fake.URL()}, true, 3)

	status, err := client.CheckStarred(context.Background(), "dev1/weather_api")
	require.Error(t, err)
	assert.Equal(t, github.StatusUnknown, status)
	assert.True(t, errors.Is(err, github.ErrAuth))
	assert.Equal(t, 1, len(fake.GetRequests()), "auth failures must not be retried")
}

func TestCheckStarred_StarEndpointErrorIsUnknown(t *testing.T) {
	t.Parallel()

	fake := testutil.NewFakeGitHub()
	defer fake.Close()

	fake.AddRepo("dev1/weather_api", 1, false)
	fake.SetStarredStatus(http.StatusForbidden)

	client, _ := newTestClient(t, []string{fake.URL()}, true, 0)

	status, err := client.CheckStarred(context.Background(), "dev1/weather_api")
	require.Error(t, err)
	assert.Equal(t, github.StatusUnknown, status)
	assert.True(t, errors.Is(err, github.ErrPermission))
}

func TestStar_Idempotent(t *testing.T) {
	t.Parallel()

	fake := testutil.NewFakeGitHub()
	defer fake.Close()

	fake.AddRepo("dev1/weather_api", 10, true)

	client, _ := newTestClient(t, []string{fake.URL()}, true, 0)

	require.NoError(t, client.Star(context.Background(), "dev1/weather_api"))
	require.NoError(t, client.Star(context.Background(), "dev1/weather_api"))
	assert.True(t, fake.IsStarred("dev1/weather_api"))
	assert.Equal(t, 2, fake.CountRequests("PUT /user/starred/dev1/weather_api"))
}

func TestStar_AcceptsRepoURL(t *testing.T) {
	t.Parallel()

	fake := testutil.NewFakeGitHub()
	defer fake.Close()

	fake.AddRepo("dev2/weather_forecast", 0, false)

	client, _ := newTestClient(t, []string{fake.URL()}, true, 0)

	require.NoError(t, client.Star(context.Background(), "https://github.com/dev2/weather_forecast.git"))
	assert.True(t, fake.IsStarred("dev2/weather_forecast"))
}

func TestStar_InvalidName(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, []string{"http://127.0.0.1:1"}, true, 0)

	err := client.Star(context.Background(), "not a repo")
	require.Error(t, err)
	assert.True(t, errors.Is(err, github.ErrNotFound))
}

func TestGetRepo_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	fake := testutil.NewFakeGitHub()
	defer fake.Close()

	fake.AddRepo("dev1/weather_api", 245, false)
	fake.FailNext("/repos/", http.StatusBadGateway, 2, "")

	client, _ := newTestClient(t, []string{fake.URL()}, true, 3)

	repo, err := client.GetRepo(context.Background(), "dev1/weather_api")
	require.NoError(t, err)
	assert.Equal(t, 245, repo.StargazersCount)
	assert.Equal(t, 3, fake.CountRequests("GET /repos/dev1/weather_api"))
}

func TestGetRepo_RetriesExhausted(t *testing.T) {
	t.Parallel()

	fake := testutil.NewFakeGitHub()
	defer fake.Close()

	fake.AddRepo("dev1/weather_api", 245, false)
	fake.FailNext("/repos/", http.StatusServiceUnavailable, 10, "")

	client, _ := newTestClient(t, []string{fake.URL()}, true, 2)

	_, err := client.GetRepo(context.Background(), "dev1/weather_api")
	require.Error(t, err)
	assert.True(t, errors.Is(err, github.ErrNetwork))
	assert.Equal(t, 3, fake.CountRequests("GET /repos/"))
}

func TestGetRepo_NotFoundNotRetried(t *testing.T) {
	t.Parallel()

	fake := testutil.NewFakeGitHub()
	defer fake.Close()

	client, _ := newTestClient(t, []string{fake.URL()}, true, 3)

	_, err := client.GetRepo(context.Background(), "ghost/missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, github.ErrNotFound))
	assert.Equal(t, 1, fake.CountRequests("GET /repos/"))
}

func TestGetRepo_RateLimitClassified(t *testing.T) {
	t.Parallel()

	fake := testutil.NewFakeGitHub()
	defer fake.Close()

	fake.AddRepo("dev1/weather_api", 1, false)
	fake.FailNext("/repos/", http.StatusForbidden, 1, "API rate limit exceeded for user")

	client, _ := newTestClient(t, []string{fake.URL()}, true, 3)

	_, err := client.GetRepo(context.Background(), "dev1/weather_api")
	require.Error(t, err)
	assert.True(t, errors.Is(err, github.ErrRateLimit))
	assert.False(t, github.IsRetryable(err))
}

func TestGetRepo_FailsOverToMirror(t *testing.T) {
	t.Parallel()

	var primaryHits atomic.Int32

	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		primaryHits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer primary.Close()

	mirror := testutil.NewFakeGitHub()
	defer mirror.Close()

	mirror.AddRepo("dev1/weather_api", 245, false)

	client, sel := newTestClient(t, []string{primary.URL, mirror.URL()}, true, 1)

	repo, err := client.GetRepo(context.Background(), "dev1/weather_api")
	require.NoError(t, err)
	assert.Equal(t, 245, repo.StargazersCount)
	assert.Equal(t, int32(1), primaryHits.Load())

	// The failed primary is deprioritized for the next call.
	assert.Equal(t, mirror.URL(), sel.Select())

	_, err = client.GetRepo(context.Background(), "dev1/weather_api")
	require.NoError(t, err)
	assert.Equal(t, int32(1), primaryHits.Load())
}

func TestGetRepo_NoFailoverWhenDisabled(t *testing.T) {
	t.Parallel()

	var primaryHits atomic.Int32

	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		primaryHits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer primary.Close()

	mirror := testutil.NewFakeGitHub()
	defer mirror.Close()

	client, _ := newTestClient(t, []string{primary.URL, mirror.URL()}, false, 2)

	_, err := client.GetRepo(context.Background(), "dev1/weather_api")
	require.Error(t, err)
	assert.Equal(t, int32(3), primaryHits.Load())
	assert.Empty(t, mirror.GetRequests())
}

func TestGetRepo_TimeoutIsNetworkError(t *testing.T) {
	t.Parallel()

	hang := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer hang.Close()

	sel := endpoint.New([]string{hang.URL}, true)
	client := github.NewClient(github.Config{
		Token:      "t",
		Timeout:    20 * time.Millisecond,
		MaxRetries: 0,
	}, sel)

	_, err := client.GetRepo(context.Background(), "dev1/weather_api")
	require.Error(t, err)
	assert.True(t, errors.Is(err, github.ErrNetwork))
}

func TestGetAuthenticatedUser(t *testing.T) {
	t.Parallel()

	fake := testutil.NewFakeGitHub()
	defer fake.Close()

	fake.Token = "test-token"

	client, _ := newTestClient(t, []string{fake.URL()}, true, 0)

	user, err := client.GetAuthenticatedUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "octocat", user.Login)
	assert.Equal(t, 100, user.Followers)

	owner, err := client.VerifyToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "octocat", owner.Login)
}

func TestVerifyToken_Empty(t *testing.T) {
	t.Parallel()

	client := github.NewClient(github.Config{}, endpoint.New(nil, true))

	_, err := client.VerifyToken(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, github.ErrAuth))
}

func TestRecordsMetricsPerAttempt(t *testing.T) {
	t.Parallel()

	fake := testutil.NewFakeGitHub()
	defer fake.Close()

	fake.AddRepo("dev1/weather_api", 1, false)
	fake.FailNext("/repos/", http.StatusBadGateway, 1, "")

	rec := &testutil.MockMetricsRecorder{}
	client := github.NewClient(github.Config{Token: "t", MaxRetries: 1, Backoff: time.Millisecond},
		endpoint.New([]string{fake.URL()}, true), github.WithRecorder(rec))

	_, err := client.StarCount(context.Background(), "dev1/weather_api")
	require.NoError(t, err)

	assert.Equal(t, []string{"get_repo", "get_repo"}, rec.GitHubOperations())
	assert.Equal(t, 1, rec.GitHubErrors())
}
