// SPDX-License-Identifier: MIT

// Package api exposes the enrichment service over HTTP: health and
// readiness probes, catalog queries, and an operator endpoint to
// trigger enrichment runs.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/catalog"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/config"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/health"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/jobs"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/spotify"
)

// CatalogReader is the slice of the catalog store the API serves from.
type CatalogReader interface {
	GetTrack(ctx context.Context, trackURI string) (*catalog.Entry, error)
	TopTracks(ctx context.Context, n int) ([]catalog.Entry, error)
	Stats(ctx context.Context) (*catalog.Stats, error)
}

// TrackLookup resolves track metadata that is not yet in the catalog.
type TrackLookup interface {
	Track(ctx context.Context, trackURI string) (*spotify.TrackInfo, error)
}

// Server wires handlers, middleware and dependencies.
type Server struct {
	cfg     config.AppConfig
	runner  *jobs.Runner
	store   CatalogReader
	lookup  TrackLookup // optional live fallback for cache misses
	healthM *health.Manager
	version string
}

// New creates a Server. The health manager may carry any set of
// registered checkers; store and runner must be non-nil. lookup may
// be nil, in which case unknown tracks are a plain 404.
func New(cfg config.AppConfig, runner *jobs.Runner, store CatalogReader, lookup TrackLookup, healthM *health.Manager, version string) *Server {
	return &Server{
		cfg:     cfg,
		runner:  runner,
		store:   store,
		lookup:  lookup,
		healthM: healthM,
		version: version,
	}
}

// Router assembles the HTTP routes with their middleware chains.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)

	// Probes stay outside the rate limit so orchestrators are never
	// throttled.
	r.Get("/healthz", s.healthM.ServeHealth)
	r.Get("/readyz", s.healthM.ServeReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(apiRateLimit())

		r.Get("/status", s.handleStatus)
		r.Get("/stats", s.handleStats)
		r.Get("/tracks/top", s.handleTopTracks)
		r.Get("/tracks/{id}", s.handleGetTrack)

		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)
			r.Use(enrichRateLimit())
			r.Post("/enrich", s.handleEnrich)
		})
	})

	return r
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
