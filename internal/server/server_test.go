package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shannai37/github-star-plugin/internal/config"
	"github.com/shannai37/github-star-plugin/internal/manager"
	"github.com/shannai37/github-star-plugin/pkg/github"
	"github.com/shannai37/github-star-plugin/pkg/metrics"
	"github.com/shannai37/github-star-plugin/pkg/reconcile"
	"github.com/shannai37/github-star-plugin/pkg/resolver"
	"github.com/shannai37/github-star-plugin/pkg/testutil"
)

const testToken = "ghp_server_test_token"

const testIndex = `{
  "weather_api": {"author": "dev1", "desc": "Query current weather", "repo": "https://github.com/dev1/weather_api", "stars": 245, "version": "1.2.0"},
  "weather_forecast": {"author": "dev2", "desc": "Seven day forecast", "repo": "https://github.com/dev2/weather_forecast", "stars": 123},
  "astrbot_plugin_music": {"author": "alice", "desc": "Play songs", "repo": "https://github.com/alice/astrbot_plugin_music", "stars": 88}
}`

type fixture struct {
	manager *manager.Manager
	server  *Server
	github  *testutil.FakeGitHub
	index   *testutil.MockIndexServer
	reg     *prometheus.Registry
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()

	gh := testutil.NewFakeGitHub()
	t.Cleanup(gh.Close)

	gh.Token = testToken
	gh.AddRepo("dev1/weather_api", 300, false)
	gh.AddRepo("dev2/weather_forecast", 100, true)
	gh.AddRepo("alice/astrbot_plugin_music", 90, false)
	gh.AddRepo("shannai37/github-star-plugin", 10, false)

	idx := testutil.NewMockIndexServer()
	t.Cleanup(idx.Close)

	idx.AddDocument("/plugins.json", []byte(testIndex))

	cfg := config.Default()
	cfg.GitHubToken = testToken
	cfg.APIEndpoints = []string{gh.URL()}
	cfg.IndexURLs = []string{idx.URL() + "/plugins.json"}
	cfg.API.MaxRetries = 0

	if mutate != nil {
		mutate(cfg)
	}

	reg := prometheus.NewRegistry()
	m := manager.New(cfg,
		manager.WithRecorder(metrics.NewPrometheusRecorder(reg)),
		manager.WithSleep(func(time.Duration) {}),
		manager.WithInstalledSource(reconcile.StaticSource{
			{Name: "weather_api", Version: "1.0.0"},
			{Name: "weather_forecast"},
			{Name: "local_helper"},
		}),
	)

	return &fixture{
		manager: m,
		server:  New(m, "127.0.0.1:0", WithGatherer(reg)),
		github:  gh,
		index:   idx,
		reg:     reg,
	}
}

func (f *fixture) do(t *testing.T, method, target, user string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	if user != "" {
		req.Header.Set(UserHeader, user)
	}

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())

	return v
}

func TestHealthAndReadiness(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/readyz", "").Code)

	require.NoError(t, f.manager.Init(context.Background()))

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/readyz", "").Code)
}

func TestSearchThenStar(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/v1/search?q=weather", "u1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	page := decode[searchPageView](t, rec)
	require.Len(t, page.Results, 2)
	assert.Equal(t, 1, page.Results[0].ID)
	assert.Equal(t, "dev1/weather_api", page.Results[0].Repo)

	rec = f.do(t, http.MethodPost, "/api/v1/stars/1", "u1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	out := decode[starOutcomeView](t, rec)
	assert.False(t, out.AlreadyStarred)
	assert.Equal(t, 301, out.Stars)

	rec = f.do(t, http.MethodPost, "/api/v1/stars/weather_forecast", "u1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[starOutcomeView](t, rec).AlreadyStarred)
}

func TestAuthorSearch(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/v1/authors/alice", "u1")
	require.Equal(t, http.StatusOK, rec.Code)

	page := decode[searchPageView](t, rec)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "music", page.Results[0].ShortName)
}

func TestStar_Errors(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/stars/nothing_like_this", "u1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "nothing_like_this")

	rec = f.do(t, http.MethodPost, "/api/v1/stars/weather", "u1")
	assert.Equal(t, http.StatusConflict, rec.Code, "partial name matching two plugins is ambiguous")
}

func TestPermissionDenied(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(c *config.Config) { c.AllowedUsers = config.AllowedUsers{"admin"} })

	for _, target := range []string{"/api/v1/search?q=x", "/api/v1/me", "/api/v1/debug", "/api/v1/installed"} {
		rec := f.do(t, http.MethodGet, target, "guest")
		assert.Equal(t, http.StatusForbidden, rec.Code, target)
	}

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/api/v1/stars/1", "").Code, "missing user header")
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/me", "admin").Code)
}

func TestInstalledAndStarAll(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/v1/installed", "u1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	page := decode[installedPageView](t, rec)
	require.Len(t, page.Results, 3)
	assert.Equal(t, 1, page.Results[0].ID)
	assert.True(t, page.Results[0].Outdated)
	assert.Equal(t, "1.2.0", page.Results[0].Latest)
	assert.Equal(t, "not-starred", page.Results[0].Status)
	assert.Equal(t, "starred", page.Results[1].Status)
	assert.Equal(t, "local-only", page.Results[2].Kind)
	assert.Empty(t, page.Results[2].Status)
	assert.Equal(t, 2, page.Summary.Matched)

	rec = f.do(t, http.MethodPost, "/api/v1/installed/star", "u1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	report := decode[batchView](t, rec)
	assert.Equal(t, []string{"weather_api", "github-star-plugin"}, report.Succeeded)
	assert.Equal(t, []string{"weather_forecast"}, report.AlreadyStarred)
	assert.Empty(t, report.Failed)
	assert.NotNil(t, report.CheckFailed)
}

func TestMeNetworkDebug(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/v1/me", "u1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "octocat", decode[github.User](t, rec).Login)

	rec = f.do(t, http.MethodPost, "/api/v1/network/test", "u1")
	require.Equal(t, http.StatusOK, rec.Code)

	network := decode[networkView](t, rec)
	assert.Equal(t, f.github.URL(), network.Best)
	assert.Equal(t, 1, network.Reachable)

	rec = f.do(t, http.MethodGet, "/api/v1/debug", "u1")
	require.Equal(t, http.StatusOK, rec.Code)

	debug := decode[debugView](t, rec)
	assert.True(t, debug.Initialized)
	assert.Equal(t, 3, debug.CatalogEntries)
	assert.Equal(t, config.MaskToken(testToken), debug.Token)
	assert.NotContains(t, rec.Body.String(), testToken)
}

func TestCatalogRefresh(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/catalog/refresh", "u1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, refreshView{Plugins: 3}, decode[refreshView](t, rec))

	f.index.SetFailOnPath("/plugins.json", true)

	rec = f.do(t, http.MethodPost, "/api/v1/catalog/refresh", "u1")
	require.Equal(t, http.StatusOK, rec.Code)

	stale := decode[refreshView](t, rec)
	assert.Equal(t, 3, stale.Plugins)
	assert.True(t, stale.Stale)
	assert.NotEmpty(t, stale.Error)
}

func TestCatalogRefresh_NoCatalog(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.index.SetFailOnPath("/plugins.json", true)

	rec := f.do(t, http.MethodPost, "/api/v1/catalog/refresh", "u1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/me", "u1").Code)

	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `starmanager_github_requests_total{operation="get_user"`)
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"permission", errors.Mark(errors.New("x"), manager.ErrPermissionDenied), http.StatusForbidden},
		{"ambiguous", errors.Wrap(resolver.ErrAmbiguous, "x"), http.StatusConflict},
		{"unknown plugin", errors.Wrap(resolver.ErrNotFound, "x"), http.StatusNotFound},
		{"missing repo", errors.Wrap(github.ErrNotFound, "x"), http.StatusNotFound},
		{"rate limit", errors.Wrap(github.ErrRateLimit, "x"), http.StatusTooManyRequests},
		{"no installed source", manager.ErrNoInstalledSource, http.StatusNotImplemented},
		{"bad token", errors.Wrap(github.ErrAuth, "x"), http.StatusBadGateway},
		{"network", errors.Wrap(github.ErrNetwork, "x"), http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRun_SchedulesRefreshAndStops(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	scheduler := testutil.NewMockCronScheduler()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, f.manager, f.server, scheduler, nil, RefreshJob(f.manager, "@every 1h"))
	}()

	require.Eventually(t, scheduler.IsStarted, 5*time.Second, 10*time.Millisecond)
	assert.True(t, f.manager.Initialized())

	job := scheduler.GetJobBySpec("@every 1h")
	require.NotNil(t, job)

	before := len(f.index.GetRequests())
	scheduler.TriggerJob(job.ID)
	assert.Len(t, f.index.GetRequests(), before+1, "scheduled refresh forces a rebuild")

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.False(t, scheduler.IsStarted())
}

func TestRefreshJob_ReportsFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	job := RefreshJob(f.manager, "@hourly")

	require.NoError(t, job.Run(context.Background()))

	f.index.SetFailOnPath("/plugins.json", true)
	assert.Error(t, job.Run(context.Background()), "stale catalog still reports the failed rebuild")
}

func TestProbeJob(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(c *config.Config) {
		c.APIEndpoints = append(c.APIEndpoints, "http://127.0.0.1:1")
	})
	job := ProbeJob(f.manager, "@every 5m")

	assert.Equal(t, "endpoint-probe", job.Name)
	require.NoError(t, job.Run(context.Background()), "one reachable endpoint is enough")
	assert.Equal(t, 1, f.github.CountRequests("GET /rate_limit"))

	f.github.FailNext("/rate_limit", http.StatusServiceUnavailable, 1, "down")
	assert.Error(t, job.Run(context.Background()))
}

func TestProbeJob_SingleEndpoint(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	require.NoError(t, ProbeJob(f.manager, "@every 5m").Run(context.Background()))
	assert.Zero(t, f.github.CountRequests("GET /rate_limit"))
}
