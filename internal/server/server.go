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

// Package server exposes the star manager commands over HTTP for serve mode.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shannai37/github-star-plugin/internal/manager"
)

// UserHeader carries the chat user ID that commands run as.
const UserHeader = "X-User-ID"

const shutdownTimeout = 5 * time.Second

// Server is the serve-mode HTTP server.
type Server struct {
	manager  *manager.Manager
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	server   *http.Server
	events   *eventBroker
}

// Option configures a Server.
type Option func(*Server)

// WithGatherer sets the registry exposed on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a server bound to bindAddress.
func New(m *manager.Manager, bindAddress string, opts ...Option) *Server {
	srv := &Server{
		manager:  m,
		gatherer: prometheus.DefaultGatherer,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.events = newEventBroker(srv.logger)
	srv.server = &http.Server{
		Addr:              bindAddress,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	return srv
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Get("/authors/{author}", s.handleAuthor)
		r.Post("/stars/{identifier}", s.handleStar)
		r.Get("/installed", s.handleInstalled)
		r.Post("/installed/star", s.handleStarAll)
		r.Get("/me", s.handleMe)
		r.Post("/network/test", s.handleNetwork)
		r.Post("/catalog/refresh", s.handleRefresh)
		r.Get("/debug", s.handleDebug)
		r.Get("/events", s.events.ServeHTTP)
	})

	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	go s.events.Start(ctx)

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("starting http server", "address", s.server.Addr)

		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "http server failed")
		}

		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "failed to shutdown http server")
	}

	return nil
}
