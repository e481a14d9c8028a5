package manager

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/shannai37/github-star-plugin/pkg/batch"
	"github.com/shannai37/github-star-plugin/pkg/catalog"
	"github.com/shannai37/github-star-plugin/pkg/github"
	"github.com/shannai37/github-star-plugin/pkg/reconcile"
	"github.com/shannai37/github-star-plugin/pkg/search"
)

// InstalledPage is one page of the installed plugin listing.
type InstalledPage struct {
	// Results are the plugins on this page. Star status is checked for these only.
	Results []reconcile.MatchResult
	// FirstID is the display ID of Results[0], zero for an empty page.
	FirstID    int
	Page       int
	TotalPages int
	Summary    reconcile.Summary
}

// ListInstalled reconciles the installed plugins against the catalog and
// returns one page. Matched and GitHub-only plugins get display IDs usable
// with StarPlugin.
func (m *Manager) ListInstalled(ctx context.Context, userID string, page int) (*InstalledPage, error) {
	if err := m.begin(ctx, userID); err != nil {
		return nil, err
	}

	results, err := m.reconcileInstalled(ctx)
	if err != nil {
		return nil, err
	}

	listing := search.Listing{Query: "installed", Entries: make(map[int]catalog.Entry)}
	for i := range results {
		if e, ok := results[i].ListingEntry(); ok {
			listing.Entries[i+1] = e
		}
	}

	m.engine.Listings().Store(userID, listing)

	items, current, totalPages := search.Paginate(results, page, search.DefaultPageSize)
	m.reconciler.CheckStatus(ctx, items)

	firstID := 0
	if len(items) > 0 {
		firstID = (current-1)*search.DefaultPageSize + 1
	}

	return &InstalledPage{
		Results:    items,
		FirstID:    firstID,
		Page:       current,
		TotalPages: totalPages,
		Summary:    reconcile.Summarize(results),
	}, nil
}

// StarAllInstalled stars every GitHub-backed installed plugin that is not
// starred yet, plus the manager's own repository.
func (m *Manager) StarAllInstalled(ctx context.Context, userID string) (*batch.Report, error) {
	if err := m.begin(ctx, userID); err != nil {
		return nil, err
	}

	results, err := m.reconcileInstalled(ctx)
	if err != nil {
		return nil, err
	}

	m.reconciler.CheckStatus(ctx, results)

	opts := []batch.Option{
		batch.WithDelay(m.cfg.StarDelay),
		batch.WithSleep(m.sleep),
		batch.WithRecorder(m.recorder),
		batch.WithLogger(m.logger),
	}

	if self, ok := m.selfResult(ctx, results); ok {
		opts = append(opts, batch.WithExtra(self))
	}

	report := batch.New(m.client, opts...).StarAll(ctx, results)

	succeeded, failed, skipped, checkFailed := report.Counts()
	m.logger.Info("batch star finished", "user", userID,
		"succeeded", succeeded, "failed", failed, "already_starred", skipped, "check_failed", checkFailed)

	return &report, nil
}

// selfResult returns the manager's own repository as a batch entry unless it
// is disabled or already installed.
func (m *Manager) selfResult(ctx context.Context, results []reconcile.MatchResult) (reconcile.MatchResult, bool) {
	full := github.FullNameFromURL(m.cfg.SelfRepo)
	if full == "" {
		return reconcile.MatchResult{}, false
	}

	for i := range results {
		if equalRepo(results[i].Repo, full) {
			return reconcile.MatchResult{}, false
		}
	}

	_, name, _ := github.ParseRepoURL(full)
	self := []reconcile.MatchResult{{
		Installed: reconcile.InstalledPlugin{Name: name, RepoURL: "https://github.com/" + full},
		Kind:      reconcile.KindUnmatchedGitHub,
		Repo:      full,
	}}
	m.reconciler.CheckStatus(ctx, self)

	return self[0], true
}

func (m *Manager) reconcileInstalled(ctx context.Context) ([]reconcile.MatchResult, error) {
	if m.installed == nil {
		return nil, ErrNoInstalledSource
	}

	installed, err := m.installed.Installed(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate installed plugins")
	}

	snap, err := m.cache.Get(ctx, false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load catalog")
	}

	return m.reconciler.MatchAll(installed, snap.Entries), nil
}
