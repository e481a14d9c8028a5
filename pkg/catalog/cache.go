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

package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/singleflight"

	"github.com/shannai37/github-star-plugin/pkg/metrics"
)

// DefaultTTL is how long a built catalog is considered fresh.
const DefaultTTL = time.Hour

const rebuildKey = "catalog"

// ErrRebuild marks a failed catalog rebuild.
var ErrRebuild = errors.New("catalog rebuild failed")

// Cache holds the current catalog snapshot and rebuilds it from a Source once it
// is older than the TTL. Concurrent rebuild requests share one in-flight fetch.
type Cache struct {
	source   Source
	ttl      time.Duration
	now      func() time.Time
	recorder metrics.Recorder
	logger   *slog.Logger

	group singleflight.Group

	mu      sync.RWMutex
	current *Snapshot
	lastErr error
	// gen is bumped by Invalidate. builtGen is the gen a fetch started under,
	// so an Invalidate racing a fetch still leaves the result stale.
	gen      uint64
	builtGen uint64
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL sets the freshness window. Non-positive values keep DefaultTTL.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) CacheOption {
	return func(c *Cache) {
		c.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = l
	}
}

// NewCache creates an empty cache. The first Get builds it.
func NewCache(source Source, opts ...CacheOption) *Cache {
	c := &Cache{
		source:   source,
		ttl:      DefaultTTL,
		now:      time.Now,
		recorder: &metrics.NoopRecorder{},
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the catalog, rebuilding it first when it is stale or force is set.
// If the rebuild fails and an older snapshot exists, the older snapshot is
// returned with a nil error and the failure is available from LastError.
// Without any snapshot the rebuild error is returned.
func (c *Cache) Get(ctx context.Context, force bool) (Snapshot, error) {
	if force {
		c.Invalidate()
	}

	c.mu.RLock()
	current := c.current
	fresh := c.freshLocked()
	c.mu.RUnlock()

	if fresh {
		return *current, nil
	}

	snap, err := c.rebuild(ctx)
	if err == nil {
		return snap, nil
	}

	c.mu.RLock()
	current = c.current
	c.mu.RUnlock()

	if current != nil {
		c.logger.Warn("catalog rebuild failed, serving stale catalog",
			"age", c.now().Sub(current.BuiltAt).String(), "entries", current.Len(), "error", err)

		return *current, nil
	}

	return Snapshot{}, err
}

// rebuild fetches a new snapshot. Callers arriving while a fetch is in flight
// wait for and share its result.
func (c *Cache) rebuild(ctx context.Context) (Snapshot, error) {
	ch := c.group.DoChan(rebuildKey, func() (any, error) {
		// A flight that finished just before this one started may already
		// have built what the caller needs.
		c.mu.RLock()
		if c.freshLocked() {
			snap := c.current
			c.mu.RUnlock()

			return snap, nil
		}

		startGen := c.gen
		c.mu.RUnlock()

		// Detached so that one caller giving up does not fail the others.
		fetchCtx := context.WithoutCancel(ctx)

		start := time.Now()
		entries, err := c.source.Fetch(fetchCtx)
		elapsed := time.Since(start)

		if err == nil && len(entries) == 0 {
			err = errors.New("plugin index is empty")
		}

		if err != nil {
			err = errors.Mark(errors.Wrap(err, "failed to rebuild catalog"), ErrRebuild)
			c.recorder.RecordCatalogRefresh(err, elapsed, 0)

			c.mu.Lock()
			c.lastErr = err
			c.mu.Unlock()

			return nil, err
		}

		snap := &Snapshot{Entries: entries, BuiltAt: c.now()}

		c.mu.Lock()
		c.current = snap
		c.builtGen = startGen
		c.lastErr = nil
		c.mu.Unlock()

		c.recorder.RecordCatalogRefresh(nil, elapsed, len(entries))
		c.logger.Info("catalog rebuilt", "entries", len(entries), "duration", elapsed.String())

		return snap, nil
	})

	select {
	case <-ctx.Done():
		return Snapshot{}, errors.Wrap(ctx.Err(), "waiting for catalog rebuild")
	case res := <-ch:
		if res.Err != nil {
			return Snapshot{}, res.Err
		}

		snap, _ := res.Val.(*Snapshot)

		return *snap, nil
	}
}

// Invalidate makes the next Get rebuild the catalog.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
}

// IsStale reports whether the next Get would rebuild.
func (c *Cache) IsStale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return !c.freshLocked()
}

func (c *Cache) freshLocked() bool {
	return c.current != nil && c.builtGen == c.gen && c.now().Sub(c.current.BuiltAt) < c.ttl
}

// Age returns the time since the last successful build, zero if never built.
func (c *Cache) Age() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil {
		return 0
	}

	return c.now().Sub(c.current.BuiltAt)
}

// Len returns the number of entries in the current snapshot.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil {
		return 0
	}

	return c.current.Len()
}

// LastError returns the error of the most recent rebuild, nil if it succeeded.
func (c *Cache) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastErr
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}
