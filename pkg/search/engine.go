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

// Package search ranks catalog entries against a query and paginates the results.
package search

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/shannai37/github-star-plugin/pkg/catalog"
)

// DefaultRefreshTop is how many top results get their star count refreshed.
const DefaultRefreshTop = 10

// listingReuse bounds how long a ranked set is served to follow-up pages
// before it is ranked again with fresh star counts.
const listingReuse = 10 * time.Minute

// CatalogProvider returns the current catalog. *catalog.Cache implements it.
type CatalogProvider interface {
	Get(ctx context.Context, force bool) (catalog.Snapshot, error)
}

// StarRefresher returns a live star count. *github.Client implements it.
type StarRefresher interface {
	StarCount(ctx context.Context, fullName string) (int, error)
}

// Result is a ranked catalog entry with its display ID.
type Result struct {
	Entry     catalog.Entry
	DisplayID int
	Score     float64

	order int
}

// Page is one page of a ranked result set.
type Page struct {
	Query      string
	Results    []Result
	Page       int
	PageSize   int
	TotalPages int
	Total      int
}

// Engine searches the catalog.
type Engine struct {
	catalog    CatalogProvider
	stars      StarRefresher
	listings   *Listings
	refreshTop int
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithStarRefresher enables star count refresh of top results.
func WithStarRefresher(s StarRefresher) Option {
	return func(e *Engine) {
		e.stars = s
	}
}

// WithRefreshTop sets how many top results are refreshed. Zero disables refresh.
func WithRefreshTop(n int) Option {
	return func(e *Engine) {
		e.refreshTop = max(n, 0)
	}
}

// WithListings shares a listing context with other components.
func WithListings(l *Listings) Option {
	return func(e *Engine) {
		e.listings = l
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine creates a search engine over the catalog.
func NewEngine(provider CatalogProvider, opts ...Option) *Engine {
	e := &Engine{
		catalog:    provider,
		listings:   NewListings(),
		refreshTop: DefaultRefreshTop,
		now:        time.Now,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Listings returns the engine's listing context.
func (e *Engine) Listings() *Listings {
	return e.listings
}

// Search ranks the catalog against query and returns the requested page.
// An empty query lists the whole catalog by star count.
func (e *Engine) Search(ctx context.Context, session, query string, page, pageSize int) (*Page, error) {
	tokens := tokenize(query)

	return e.run(ctx, session, "search", query, page, pageSize, func(entry *catalog.Entry) (float64, bool) {
		if len(tokens) == 0 {
			return 0, true
		}

		score := scoreEntry(entry, tokens)

		return score, score > 0
	})
}

// SearchByAuthor returns plugins whose author matches exactly or partially.
func (e *Engine) SearchByAuthor(ctx context.Context, session, author string, page, pageSize int) (*Page, error) {
	needle := strings.ToLower(strings.TrimSpace(author))

	return e.run(ctx, session, "author", author, page, pageSize, func(entry *catalog.Entry) (float64, bool) {
		if needle == "" {
			return 0, false
		}

		score := authorScore(needle, strings.ToLower(entry.Author))

		return score, score > 0
	})
}

func (e *Engine) run(
	ctx context.Context,
	session, kind, query string,
	page, pageSize int,
	score func(*catalog.Entry) (float64, bool),
) (*Page, error) {
	snap, err := e.catalog.Get(ctx, false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load catalog")
	}

	// Paging through the same query keeps the IDs the first page assigned.
	key := kind + "\x00" + query
	now := e.now()

	var results []Result

	if latest, ok := e.listings.Latest(session); ok && latest.reusable(key, snap.BuiltAt, now, listingReuse) {
		results = latest.results
	} else {
		results = Rank(snap.Entries, score)
		e.refreshStars(ctx, results)
		sortResults(results)

		for i := range results {
			results[i].DisplayID = i + 1
		}

		e.listings.Store(session, listingOf(key, query, results, snap.BuiltAt, now))
	}

	items, current, totalPages := Paginate(results, page, pageSize)
	items = slices.Clone(items)
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Page{
		Query:      query,
		Results:    items,
		Page:       current,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Total:      len(results),
	}, nil
}

// Rank scores every entry, drops the rejected ones and sorts the rest by
// score, then stars, then catalog order. Entries are copied.
func Rank(entries []catalog.Entry, score func(*catalog.Entry) (float64, bool)) []Result {
	results := make([]Result, 0, len(entries))

	for i := range entries {
		s, ok := score(&entries[i])
		if !ok {
			continue
		}

		results = append(results, Result{Entry: entries[i], Score: s, order: i})
	}

	sortResults(results)

	return results
}

func sortResults(results []Result) {
	slices.SortStableFunc(results, func(a, b Result) int {
		return cmp.Or(
			cmp.Compare(b.Score, a.Score),
			cmp.Compare(b.Entry.Stars, a.Entry.Stars),
			cmp.Compare(a.order, b.order),
		)
	})
}

// refreshStars updates the star counts of the top results in place.
// Failures keep the catalog count.
func (e *Engine) refreshStars(ctx context.Context, results []Result) {
	if e.stars == nil || e.refreshTop == 0 {
		return
	}

	for i := range results[:min(e.refreshTop, len(results))] {
		full := results[i].Entry.FullName
		if full == "" {
			continue
		}

		stars, err := e.stars.StarCount(ctx, full)
		if err != nil {
			e.logger.Debug("star refresh failed, keeping catalog count", "repo", full, "error", err)

			continue
		}

		results[i].Entry.Stars = stars
	}
}
