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

// Package batch stars a set of reconciled plugins one at a time.
package batch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shannai37/github-star-plugin/pkg/github"
	"github.com/shannai37/github-star-plugin/pkg/metrics"
	"github.com/shannai37/github-star-plugin/pkg/reconcile"
)

// DefaultDelay is the pause between two star calls.
const DefaultDelay = 500 * time.Millisecond

// Starrer stars a repository. *github.Client implements it.
type Starrer interface {
	Star(ctx context.Context, fullName string) error
}

// Failure is a repository that could not be starred.
type Failure struct {
	Name string
	Repo string
	Err  error
}

// Report summarizes a batch. The four buckets are disjoint.
type Report struct {
	Succeeded      []string
	Failed         []Failure
	AlreadyStarred []string
	CheckFailed    []string
}

// Counts returns the bucket sizes in the order succeeded, failed,
// skipped already starred, skipped check failed.
func (r *Report) Counts() (succeeded, failed, skipped, checkFailed int) {
	return len(r.Succeeded), len(r.Failed), len(r.AlreadyStarred), len(r.CheckFailed)
}

// FailedNames returns the names of the failed plugins.
func (r *Report) FailedNames() []string {
	names := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		names = append(names, f.Name)
	}

	return names
}

// Orchestrator runs star batches.
type Orchestrator struct {
	starrer  Starrer
	delay    time.Duration
	extra    []reconcile.MatchResult
	sleep    func(time.Duration)
	recorder metrics.Recorder
	logger   *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDelay sets the pause between star calls. Negative values keep DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.delay = d
		}
	}
}

// WithExtra appends results to every batch unless their repository is already present.
func WithExtra(results ...reconcile.MatchResult) Option {
	return func(o *Orchestrator) {
		o.extra = append(o.extra, results...)
	}
}

// WithSleep replaces time.Sleep.
func WithSleep(sleep func(time.Duration)) Option {
	return func(o *Orchestrator) {
		o.sleep = sleep
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// New creates an Orchestrator.
func New(starrer Starrer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		starrer:  starrer,
		delay:    DefaultDelay,
		sleep:    time.Sleep,
		recorder: &metrics.NoopRecorder{},
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// StarAll stars every GitHub-backed result that is known not to be starred.
// Already starred and unknown results are skipped. Calls are sequential with
// the configured delay between them, and a failure never stops the batch.
// Each repository is handled once.
func (o *Orchestrator) StarAll(ctx context.Context, results []reconcile.MatchResult) Report {
	var (
		report  Report
		pending []reconcile.MatchResult
	)

	seen := make(map[string]bool)

	for _, res := range append(append([]reconcile.MatchResult(nil), results...), o.extra...) {
		if !res.GitHubBacked() {
			continue
		}

		key := strings.ToLower(res.Repo)
		if seen[key] {
			continue
		}

		seen[key] = true

		switch res.Status {
		case github.StatusStarred:
			report.AlreadyStarred = append(report.AlreadyStarred, res.DisplayName())
		case github.StatusNotStarred:
			pending = append(pending, res)
		default:
			report.CheckFailed = append(report.CheckFailed, res.DisplayName())
		}
	}

	for i, res := range pending {
		if i > 0 && o.delay > 0 {
			o.sleep(o.delay)
		}

		err := o.starrer.Star(ctx, res.Repo)
		o.recorder.RecordStar(err == nil)

		if err != nil {
			o.logger.Warn("failed to star repository", "repo", res.Repo, "error", err)
			report.Failed = append(report.Failed, Failure{Name: res.DisplayName(), Repo: res.Repo, Err: err})

			continue
		}

		o.logger.Info("starred repository", "repo", res.Repo)
		report.Succeeded = append(report.Succeeded, res.DisplayName())
	}

	return report
}
