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

// Package resolver turns a user-supplied plugin identifier into a catalog entry.
package resolver

import (
	"context"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/shannai37/github-star-plugin/pkg/catalog"
)

var (
	// ErrNotFound means no catalog entry matches the identifier.
	ErrNotFound = errors.New("plugin not found")
	// ErrAmbiguous means a partial match found several plugins and no exact match exists.
	ErrAmbiguous = errors.New("plugin identifier is ambiguous")
)

// maxCandidates limits the names listed in an ambiguity error.
const maxCandidates = 5

// CatalogProvider returns the current catalog. *catalog.Cache implements it.
type CatalogProvider interface {
	Get(ctx context.Context, force bool) (catalog.Snapshot, error)
}

// ListingLookup returns the entry shown under a display ID. *search.Listings implements it.
type ListingLookup interface {
	Lookup(session string, id int) (catalog.Entry, bool)
}

// Resolver resolves display IDs and plugin names.
type Resolver struct {
	catalog  CatalogProvider
	listings ListingLookup
}

// New creates a Resolver.
func New(provider CatalogProvider, listings ListingLookup) *Resolver {
	return &Resolver{catalog: provider, listings: listings}
}

// Resolve looks the token up in this order: display ID of the session's most
// recent listing, exact short name, exact name or "owner/repo", partial short name.
// A numeric token missing from the listing is looked up as a name.
func (r *Resolver) Resolve(ctx context.Context, session, token string) (catalog.Entry, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return catalog.Entry{}, errors.Mark(errors.New("empty plugin identifier"), ErrNotFound)
	}

	if id, err := strconv.Atoi(token); err == nil && r.listings != nil {
		if e, ok := r.listings.Lookup(session, id); ok {
			return e, nil
		}
	}

	snap, err := r.catalog.Get(ctx, false)
	if err != nil {
		return catalog.Entry{}, errors.Wrap(err, "failed to load catalog")
	}

	return Match(snap.Entries, token)
}

// Match resolves a name token against entries without a listing context.
func Match(entries []catalog.Entry, token string) (catalog.Entry, error) {
	needle := strings.ToLower(strings.TrimSpace(token))

	for _, e := range entries {
		if strings.ToLower(e.ShortName) == needle {
			return e, nil
		}
	}

	for _, e := range entries {
		if strings.ToLower(e.Name) == needle || (e.FullName != "" && strings.ToLower(e.FullName) == needle) {
			return e, nil
		}
	}

	var partial []catalog.Entry

	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.ShortName), needle) {
			partial = append(partial, e)
		}
	}

	switch len(partial) {
	case 0:
		return catalog.Entry{}, errors.Mark(errors.Newf("no plugin matches %q", token), ErrNotFound)
	case 1:
		return partial[0], nil
	default:
		return catalog.Entry{}, errors.Mark(
			errors.Newf("%q matches %d plugins: %s", token, len(partial), candidateNames(partial)),
			ErrAmbiguous)
	}
}

func candidateNames(entries []catalog.Entry) string {
	names := make([]string, 0, maxCandidates)
	for _, e := range entries[:min(len(entries), maxCandidates)] {
		names = append(names, e.Name)
	}

	s := strings.Join(names, ", ")
	if len(entries) > maxCandidates {
		s += ", ..."
	}

	return s
}
