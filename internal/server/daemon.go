package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/shannai37/github-star-plugin/internal/manager"
	"github.com/shannai37/github-star-plugin/pkg/cron"
)

const (
	refreshTimeout = 2 * time.Minute
	probeTimeout   = 30 * time.Second
)

// RefreshJob rebuilds the plugin catalog on schedule.
func RefreshJob(m *manager.Manager, spec string) cron.Job {
	return cron.Job{
		Name:    "catalog-refresh",
		Spec:    spec,
		Timeout: refreshTimeout,
		Run: func(ctx context.Context) error {
			if _, err := m.Cache().Get(ctx, true); err != nil {
				return err
			}

			return m.Cache().LastError()
		},
	}
}

// ProbeJob re-measures the API endpoints on schedule so that a recovered
// primary takes over from a mirror again.
func ProbeJob(m *manager.Manager, spec string) cron.Job {
	return cron.Job{
		Name:    "endpoint-probe",
		Spec:    spec,
		Timeout: probeTimeout,
		Run: func(ctx context.Context) error {
			health := m.ProbeEndpoints(ctx)
			if len(health) == 0 {
				return nil
			}

			for _, h := range health {
				if h.Reachable {
					return nil
				}
			}

			return errors.Newf("none of %d api endpoints is reachable", len(health))
		},
	}
}

// Run initializes the manager, then serves HTTP and runs the scheduled jobs
// until ctx is cancelled or the server fails. A failed initialization is
// logged; commands retry it on their own.
func Run(ctx context.Context, m *manager.Manager, srv *Server, s cron.Scheduler, logger *slog.Logger, jobs ...cron.Job) error {
	if logger == nil {
		logger = slog.Default()
	}

	if err := m.Init(ctx); err != nil {
		logger.Error("initialization failed, serving anyway", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, job := range jobs {
		if _, err := cron.Register(gctx, s, job, logger); err != nil {
			return err
		}
	}

	g.Go(func() error { return srv.Start(gctx) })
	g.Go(func() error { return cron.NewRunner(s).Run(gctx) })

	return g.Wait()
}
