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

// Package manager wires the star manager components together and exposes
// one method per bot command.
package manager

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/shannai37/github-star-plugin/internal/config"
	"github.com/shannai37/github-star-plugin/pkg/catalog"
	"github.com/shannai37/github-star-plugin/pkg/endpoint"
	"github.com/shannai37/github-star-plugin/pkg/github"
	"github.com/shannai37/github-star-plugin/pkg/metrics"
	"github.com/shannai37/github-star-plugin/pkg/reconcile"
	"github.com/shannai37/github-star-plugin/pkg/resolver"
	"github.com/shannai37/github-star-plugin/pkg/search"
)

var (
	// ErrPermissionDenied means the caller is not on the allow-list.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNoInstalledSource means no installed plugin source is configured.
	ErrNoInstalledSource = errors.New("installed plugin source is not configured")
)

// Manager runs bot commands.
type Manager struct {
	cfg        *config.Config
	selector   *endpoint.Selector
	client     *github.Client
	cache      *catalog.Cache
	engine     *search.Engine
	resolver   *resolver.Resolver
	reconciler *reconcile.Reconciler
	installed  reconcile.InstalledSource
	recorder   metrics.Recorder
	logger     *slog.Logger
	sleep      func(time.Duration)

	initMu      sync.Mutex
	initialized bool
	user        *github.User
}

type options struct {
	httpClient *http.Client
	recorder   metrics.Recorder
	logger     *slog.Logger
	installed  reconcile.InstalledSource
	sleep      func(time.Duration)
}

// Option configures a Manager.
type Option func(*options)

// WithHTTPClient sets the HTTP client used for GitHub, endpoint probes and the plugin index.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithInstalledSource replaces the installed plugin source built from the configuration.
func WithInstalledSource(s reconcile.InstalledSource) Option {
	return func(o *options) {
		o.installed = s
	}
}

// WithSleep replaces the pause between batch star calls.
func WithSleep(sleep func(time.Duration)) Option {
	return func(o *options) {
		o.sleep = sleep
	}
}

// New builds a Manager from the configuration. It does not touch the network.
func New(cfg *config.Config, opts ...Option) *Manager {
	o := options{
		recorder: &metrics.NoopRecorder{},
		logger:   slog.Default(),
		sleep:    time.Sleep,
	}

	for _, opt := range opts {
		opt(&o)
	}

	selectorOpts := []endpoint.Option{}
	clientOpts := []github.Option{github.WithRecorder(o.recorder), github.WithLogger(o.logger)}
	indexOpts := []catalog.IndexOption{catalog.WithIndexLogger(o.logger)}

	if o.httpClient != nil {
		selectorOpts = append(selectorOpts, endpoint.WithHTTPClient(o.httpClient))
		clientOpts = append(clientOpts, github.WithHTTPClient(o.httpClient))
		indexOpts = append(indexOpts, catalog.WithIndexHTTPClient(o.httpClient))
	}

	selector := endpoint.New(cfg.APIEndpoints, cfg.API.EnableFallback, selectorOpts...)
	client := github.NewClient(github.Config{
		Token:      cfg.GitHubToken,
		Timeout:    cfg.API.Timeout(),
		MaxRetries: cfg.API.MaxRetries,
	}, selector, clientOpts...)

	cache := catalog.NewCache(
		catalog.NewIndexSource(cfg.IndexURLs, indexOpts...),
		catalog.WithTTL(cfg.CacheTTL),
		catalog.WithRecorder(o.recorder),
		catalog.WithLogger(o.logger),
	)

	engine := search.NewEngine(cache, search.WithStarRefresher(client), search.WithLogger(o.logger))

	installed := o.installed
	if installed == nil && cfg.InstalledFile != "" {
		installed = &reconcile.FileSource{Path: cfg.InstalledFile}
	}

	return &Manager{
		cfg:        cfg,
		selector:   selector,
		client:     client,
		cache:      cache,
		engine:     engine,
		resolver:   resolver.New(cache, engine.Listings()),
		reconciler: reconcile.New(client, reconcile.WithLogger(o.logger)),
		installed:  installed,
		recorder:   o.recorder,
		logger:     o.logger,
		sleep:      o.sleep,
	}
}

// Cache returns the catalog cache.
func (m *Manager) Cache() *catalog.Cache {
	return m.cache
}

// Init orders the API endpoints, verifies the token and warms the catalog. It is safe to call before
// every command: after the first success it returns immediately. A catalog
// failure is logged and does not fail Init.
func (m *Manager) Init(ctx context.Context) error {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	if m.initialized {
		return nil
	}

	m.ProbeEndpoints(ctx)

	user, err := m.client.VerifyToken(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to verify github token")
	}

	if m.cfg.GitHubUsername != "" && !strings.EqualFold(m.cfg.GitHubUsername, user.Login) {
		m.logger.Warn("configured github_username does not match the token owner",
			"configured", m.cfg.GitHubUsername, "token_owner", user.Login)
	}

	if _, err := m.cache.Get(ctx, false); err != nil {
		m.logger.Warn("initial catalog load failed", "error", err)
	}

	m.user = user
	m.initialized = true
	m.logger.Info("star manager initialized", "user", user.Login, "plugins", m.cache.Len())

	return nil
}

// Initialized reports whether Init succeeded.
func (m *Manager) Initialized() bool {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	return m.initialized
}

// Permitted reports whether userID may run commands.
func (m *Manager) Permitted(userID string) bool {
	return m.cfg.AllowedUsers.Permits(userID)
}

func (m *Manager) authorize(userID string) error {
	if m.Permitted(userID) {
		return nil
	}

	m.logger.Warn("command rejected", "user", userID)

	return errors.Mark(errors.Newf("user %q is not allowed to use this command", userID), ErrPermissionDenied)
}

// begin gates a command on the allow-list and initialization.
func (m *Manager) begin(ctx context.Context, userID string) error {
	if err := m.authorize(userID); err != nil {
		return err
	}

	return m.Init(ctx)
}
