package batch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shannai37/github-star-plugin/pkg/github"
	"github.com/shannai37/github-star-plugin/pkg/reconcile"
	"github.com/shannai37/github-star-plugin/pkg/testutil"
)

// sleepRecorder records requested pauses instead of sleeping.
type sleepRecorder struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (s *sleepRecorder) Sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pauses = append(s.pauses, d)
}

func result(name, repo string, kind reconcile.Kind, status github.StarStatus) reconcile.MatchResult {
	return reconcile.MatchResult{
		Installed: reconcile.InstalledPlugin{Name: name},
		Kind:      kind,
		Repo:      repo,
		Status:    status,
	}
}

func TestStarAll_Scenario(t *testing.T) {
	t.Parallel()

	stars := testutil.NewMockStarClient()
	stars.StarErr["dev3/flaky"] = errors.Mark(errors.New("connection reset"), github.ErrNetwork)

	sleeper := &sleepRecorder{}
	rec := &testutil.MockMetricsRecorder{}
	o := New(stars, WithSleep(sleeper.Sleep), WithRecorder(rec))

	report := o.StarAll(context.Background(), []reconcile.MatchResult{
		result("weather_api", "dev1/weather_api", reconcile.KindMatched, github.StatusStarred),
		result("weather_forecast", "dev2/weather_forecast", reconcile.KindMatched, github.StatusNotStarred),
		result("flaky", "dev3/flaky", reconcile.KindUnmatchedGitHub, github.StatusNotStarred),
	})

	succeeded, failed, skipped, checkFailed := report.Counts()
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 0, checkFailed)

	assert.Equal(t, []string{"weather_forecast"}, report.Succeeded)
	assert.Equal(t, []string{"flaky"}, report.FailedNames())
	assert.True(t, errors.Is(report.Failed[0].Err, github.ErrNetwork))
	assert.Equal(t, []string{"weather_api"}, report.AlreadyStarred)

	assert.Equal(t, []string{"dev2/weather_forecast", "dev3/flaky"}, stars.StarCallsSnapshot())
	assert.Equal(t, []time.Duration{DefaultDelay}, sleeper.pauses, "one pause between two calls, none after the last")

	ok, bad := rec.Stars()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, bad)
}

func TestStarAll_SkipsUnknownAndLocal(t *testing.T) {
	t.Parallel()

	stars := testutil.NewMockStarClient()
	o := New(stars, WithDelay(0))

	report := o.StarAll(context.Background(), []reconcile.MatchResult{
		result("unknown", "dev1/unknown", reconcile.KindMatched, github.StatusUnknown),
		result("local", "", reconcile.KindLocalOnly, github.StatusUnknown),
	})

	succeeded, failed, skipped, checkFailed := report.Counts()
	assert.Zero(t, succeeded)
	assert.Zero(t, failed)
	assert.Zero(t, skipped)
	assert.Equal(t, 1, checkFailed)
	assert.Equal(t, []string{"unknown"}, report.CheckFailed)
	assert.Empty(t, stars.StarCallsSnapshot())
}

func TestStarAll_DeduplicatesAndAddsExtra(t *testing.T) {
	t.Parallel()

	stars := testutil.NewMockStarClient()
	self := result("github-star-plugin", "shannai37/github-star-plugin", reconcile.KindUnmatchedGitHub, github.StatusNotStarred)
	o := New(stars, WithDelay(0), WithExtra(self))

	report := o.StarAll(context.Background(), []reconcile.MatchResult{
		result("a", "dev/a", reconcile.KindMatched, github.StatusNotStarred),
		result("a-copy", "DEV/A", reconcile.KindUnmatchedGitHub, github.StatusNotStarred),
	})

	assert.Equal(t, []string{"a", "github-star-plugin"}, report.Succeeded)
	assert.Equal(t, []string{"dev/a", "shannai37/github-star-plugin"}, stars.StarCallsSnapshot())
}

func TestStarAll_ExtraAlreadyPresent(t *testing.T) {
	t.Parallel()

	stars := testutil.NewMockStarClient()
	self := result("self", "me/self", reconcile.KindUnmatchedGitHub, github.StatusNotStarred)
	o := New(stars, WithDelay(0), WithExtra(self))

	report := o.StarAll(context.Background(), []reconcile.MatchResult{
		result("self", "me/self", reconcile.KindMatched, github.StatusStarred),
	})

	assert.Equal(t, []string{"self"}, report.AlreadyStarred)
	assert.Empty(t, report.Succeeded)
}

func TestStarAll_Empty(t *testing.T) {
	t.Parallel()

	o := New(testutil.NewMockStarClient())

	report := o.StarAll(context.Background(), nil)

	succeeded, failed, skipped, checkFailed := report.Counts()
	assert.Zero(t, succeeded+failed+skipped+checkFailed)
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	o := New(testutil.NewMockStarClient(), WithDelay(-1))
	require.Equal(t, DefaultDelay, o.delay)
}
