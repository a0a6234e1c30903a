// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/catalog"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/jobs"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/log"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/spotify"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]string{"error": code, "detail": detail})
}

// handleStatus returns the status of the last (or current) enrichment
// run.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.Status())
}

// handleStats returns catalog aggregates.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str(log.FieldEvent, "stats.query_error").Msg("stats query failed")
		writeError(w, http.StatusInternalServerError, "internal", "stats query failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleGetTrack returns one catalog entry. The id path segment is a
// bare Spotify track id or a full spotify:track: URI.
func (s *Server) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	uri := id
	if !strings.HasPrefix(uri, "spotify:track:") {
		uri = "spotify:track:" + uri
	}

	entry, err := s.store.GetTrack(r.Context(), uri)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			s.handleTrackLookup(w, r, uri, id)
			return
		}
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str(log.FieldEvent, "track.query_error").Str(log.FieldTrackURI, uri).Msg("track query failed")
		writeError(w, http.StatusInternalServerError, "internal", "track query failed")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleTrackLookup resolves a catalog miss against the live Spotify
// API when a lookup client is configured.
func (s *Server) handleTrackLookup(w http.ResponseWriter, r *http.Request, uri, id string) {
	if s.lookup == nil {
		writeError(w, http.StatusNotFound, "not_found", "track not in catalog: "+id)
		return
	}

	info, err := s.lookup.Track(r.Context(), uri)
	if err != nil {
		if errors.Is(err, spotify.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "track not in catalog or on Spotify: "+id)
			return
		}
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str(log.FieldEvent, "track.lookup_error").Str(log.FieldTrackURI, uri).Msg("live track lookup failed")
		writeError(w, http.StatusBadGateway, "upstream", "live track lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"track": info, "source": "spotify"})
}

// handleTopTracks returns the n most frequent tracks, default 20,
// capped at 100.
func (s *Server) handleTopTracks(w http.ResponseWriter, r *http.Request) {
	n := 20
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", "n must be a positive integer")
			return
		}
		n = parsed
	}
	if n > 100 {
		n = 100
	}

	entries, err := s.store.TopTracks(r.Context(), n)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str(log.FieldEvent, "top_tracks.query_error").Msg("top tracks query failed")
		writeError(w, http.StatusInternalServerError, "internal", "top tracks query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracks": entries, "count": len(entries)})
}

// handleEnrich starts a background enrichment run. Runs are
// serialized: a second trigger while one is in flight gets 409.
func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	// The run outlives the request on purpose: a full dataset pass
	// takes far longer than any sane client timeout.
	runCtx := log.ContextWithRequestID(context.Background(), log.RequestIDFromContext(r.Context()))

	if err := s.runner.Start(runCtx); err != nil {
		if errors.Is(err, jobs.ErrAlreadyRunning) {
			logger.Warn().Str(log.FieldEvent, "enrich.conflict").Msg("enrichment already in progress")
			w.Header().Set("Retry-After", "30")
			writeError(w, http.StatusConflict, "conflict", "an enrichment run is already in progress")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	logger.Info().
		Str(log.FieldEvent, "enrich.triggered").
		Str("remote", r.RemoteAddr).
		Time("accepted_at", time.Now()).
		Msg("enrichment run accepted")

	writeJSON(w, http.StatusAccepted, map[string]string{"state": string(jobs.StateRunning)})
}
