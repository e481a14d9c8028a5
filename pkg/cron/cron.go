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

// Package cron schedules periodic background jobs such as catalog refresh.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"
)

// Scheduler is an interface for cron scheduling operations.
type Scheduler interface {
	AddFunc(spec string, cmd func()) (cron.EntryID, error)
	Remove(id cron.EntryID)
	Start()
	Stop()
	Entries() []cron.Entry
}

// RealScheduler wraps robfig/cron for production use.
type RealScheduler struct {
	*cron.Cron
}

// NewRealScheduler creates a production cron scheduler logging through logger.
// A job whose previous run is still in progress is skipped.
func NewRealScheduler(logger *slog.Logger) *RealScheduler {
	if logger == nil {
		logger = slog.Default()
	}

	cl := logr.FromSlogHandler(logger.Handler())

	return &RealScheduler{
		Cron: cron.New(cron.WithLogger(cl), cron.WithChain(cron.SkipIfStillRunning(cl))),
	}
}

// Start starts the cron scheduler.
func (r *RealScheduler) Start() {
	r.Cron.Start()
}

// Stop stops the cron scheduler and waits for running jobs.
func (r *RealScheduler) Stop() {
	ctx := r.Cron.Stop()
	<-ctx.Done()
}

// Job is a named periodic task.
type Job struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Register adds the job to the scheduler. Each run gets a context derived
// from parent, bounded by Timeout when set. Failures are logged.
func Register(parent context.Context, s Scheduler, job Job, logger *slog.Logger) (cron.EntryID, error) {
	if job.Run == nil {
		return 0, errors.Newf("job %q has no function", job.Name)
	}

	if logger == nil {
		logger = slog.Default()
	}

	id, err := s.AddFunc(job.Spec, func() { runJob(parent, job, logger) })
	if err != nil {
		return 0, errors.Wrapf(err, "failed to schedule job %q with spec %q", job.Name, job.Spec)
	}

	logger.Info("scheduled job", "job", job.Name, "spec", job.Spec)

	return id, nil
}

func runJob(parent context.Context, job Job, logger *slog.Logger) {
	ctx := parent
	if job.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(parent, job.Timeout)
		defer cancel()
	}

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		logger.Warn("scheduled job failed", "job", job.Name, "duration", time.Since(start).String(), "error", err)

		return
	}

	logger.Debug("scheduled job finished", "job", job.Name, "duration", time.Since(start).String())
}

// Runner adapts a Scheduler to a blocking Run call.
type Runner struct {
	scheduler Scheduler
}

// NewRunner creates a Runner for the scheduler.
func NewRunner(s Scheduler) *Runner {
	return &Runner{scheduler: s}
}

// Run starts the scheduler, blocks until ctx is done, then stops it.
func (r *Runner) Run(ctx context.Context) error {
	r.scheduler.Start()
	<-ctx.Done()
	r.scheduler.Stop()

	return nil
}
