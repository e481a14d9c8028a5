package search

import (
	"sync"
	"time"

	"github.com/shannai37/github-star-plugin/pkg/catalog"
)

// Listing maps the display IDs of one rendered result set to their entries.
type Listing struct {
	Query     string
	Entries   map[int]catalog.Entry
	CreatedAt time.Time

	// Ranked result set behind Entries, reused while the same query pages
	// through the same catalog build.
	results []Result
	key     string
	builtAt time.Time
}

// reusable reports whether the listing holds the ranked set for key over the
// catalog built at builtAt.
func (l Listing) reusable(key string, builtAt, now time.Time, maxAge time.Duration) bool {
	return l.results != nil &&
		l.key == key &&
		l.builtAt.Equal(builtAt) &&
		now.Sub(l.CreatedAt) < maxAge
}

// Listings keeps the most recent listing of every session so that a follow-up
// command can refer to a display ID it was just shown.
type Listings struct {
	mu        sync.Mutex
	bySession map[string]Listing
}

// NewListings creates an empty listing context.
func NewListings() *Listings {
	return &Listings{bySession: make(map[string]Listing)}
}

// Store replaces the session's listing.
func (l *Listings) Store(session string, listing Listing) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.bySession[session] = listing
}

// Lookup returns the entry shown under id in the session's latest listing.
func (l *Listings) Lookup(session string, id int) (catalog.Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	listing, ok := l.bySession[session]
	if !ok {
		return catalog.Entry{}, false
	}

	e, ok := listing.Entries[id]

	return e, ok
}

// Latest returns the session's latest listing.
func (l *Listings) Latest(session string) (Listing, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	listing, ok := l.bySession[session]

	return listing, ok
}

func listingOf(key, query string, results []Result, builtAt, now time.Time) Listing {
	entries := make(map[int]catalog.Entry, len(results))
	for _, r := range results {
		entries[r.DisplayID] = r.Entry
	}

	return Listing{
		Query:     query,
		Entries:   entries,
		CreatedAt: now,
		results:   results,
		key:       key,
		builtAt:   builtAt,
	}
}
