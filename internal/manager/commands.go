package manager

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/shannai37/github-star-plugin/pkg/catalog"
	"github.com/shannai37/github-star-plugin/pkg/github"
	"github.com/shannai37/github-star-plugin/pkg/resolver"
	"github.com/shannai37/github-star-plugin/pkg/search"
)

// StarOutcome describes a single star command.
type StarOutcome struct {
	Entry catalog.Entry
	// AlreadyStarred is set when the repository was starred before the command.
	AlreadyStarred bool
	// Stars is the stargazer count after the command.
	Stars int
	// CheckErr is a star status check failure that did not stop the star attempt.
	CheckErr error
}

// Find searches the catalog. The listing is remembered for userID so that
// a following StarPlugin can refer to display IDs.
func (m *Manager) Find(ctx context.Context, userID, query string, page int) (*search.Page, error) {
	if err := m.begin(ctx, userID); err != nil {
		return nil, err
	}

	return m.engine.Search(ctx, userID, query, page, search.DefaultPageSize)
}

// FindByAuthor lists the plugins of an author.
func (m *Manager) FindByAuthor(ctx context.Context, userID, author string, page int) (*search.Page, error) {
	if err := m.begin(ctx, userID); err != nil {
		return nil, err
	}

	return m.engine.SearchByAuthor(ctx, userID, author, page, search.DefaultPageSize)
}

// StarPlugin resolves identifier and stars its repository. An unknown star
// status does not prevent the attempt, but a missing repository does.
func (m *Manager) StarPlugin(ctx context.Context, userID, identifier string) (*StarOutcome, error) {
	if err := m.begin(ctx, userID); err != nil {
		return nil, err
	}

	entry, err := m.resolver.Resolve(ctx, userID, identifier)
	if errors.Is(err, resolver.ErrNotFound) {
		entry, err = m.repoEntry(ctx, identifier, err)
	}

	if err != nil {
		return nil, err
	}

	repo := entry.FullName
	if repo == "" {
		repo = github.FullNameFromURL(entry.RepoURL)
	}

	if repo == "" {
		return nil, errors.Newf("plugin %s has no GitHub repository: %s", entry.Name, entry.RepoURL)
	}

	out := &StarOutcome{Entry: entry, Stars: m.starCount(ctx, repo, entry.Stars)}

	status, err := m.client.CheckStarred(ctx, repo)

	switch {
	case status == github.StatusStarred:
		out.AlreadyStarred = true

		return out, nil
	case errors.Is(err, github.ErrNotFound):
		return nil, errors.Wrapf(err, "repository %s does not exist or is not accessible", repo)
	case err != nil:
		m.logger.Warn("star status check failed, trying to star anyway", "repo", repo, "error", err)
		out.CheckErr = err
	}

	err = m.client.Star(ctx, repo)
	m.recorder.RecordStar(err == nil)

	if err != nil {
		return nil, err
	}

	out.Stars = m.starCount(ctx, repo, out.Stars+1)
	m.logger.Info("starred plugin", "user", userID, "repo", repo)

	return out, nil
}

// repoEntry stands in for a catalog entry when identifier is a GitHub URL or
// "owner/repo" the resolver did not know. A catalog plugin behind the same
// repository is preferred. Other identifiers keep notFound.
func (m *Manager) repoEntry(ctx context.Context, identifier string, notFound error) (catalog.Entry, error) {
	full := github.FullNameFromURL(identifier)
	if full == "" {
		return catalog.Entry{}, notFound
	}

	if snap, err := m.cache.Get(ctx, false); err == nil {
		if e, err := resolver.Match(snap.Entries, full); err == nil && equalRepo(e.FullName, full) {
			return e, nil
		}
	}

	return catalog.RepoEntry(full), nil
}

// starCount returns the live star count, or fallback when it cannot be fetched.
func (m *Manager) starCount(ctx context.Context, repo string, fallback int) int {
	n, err := m.client.StarCount(ctx, repo)
	if err != nil {
		m.logger.Debug("star count refresh failed", "repo", repo, "error", err)

		return fallback
	}

	return n
}

// MyGitHub returns the token owner's profile.
func (m *Manager) MyGitHub(ctx context.Context, userID string) (*github.User, error) {
	if err := m.begin(ctx, userID); err != nil {
		return nil, err
	}

	return m.client.GetAuthenticatedUser(ctx)
}

// UpdatePlugins forces a catalog rebuild and returns the new catalog size.
// Unlike regular reads, a failed rebuild is reported even when an older
// catalog is still being served.
func (m *Manager) UpdatePlugins(ctx context.Context, userID string) (int, error) {
	if err := m.authorize(userID); err != nil {
		return 0, err
	}

	snap, err := m.cache.Get(ctx, true)
	if err != nil {
		return 0, err
	}

	if lastErr := m.cache.LastError(); lastErr != nil {
		return snap.Len(), lastErr
	}

	return snap.Len(), nil
}
