// SPDX-License-Identifier: MIT

// Package jobs runs the enrichment pipeline: extract the track catalog
// from the dataset slices, persist it, and collect audio features for
// every unique track from the Spotify API.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/cache"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/config"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/mpd"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/spotify"
)

// ErrAlreadyRunning is returned when an enrichment run is requested
// while a previous one has not finished.
var ErrAlreadyRunning = errors.New("enrichment already running")

// State describes the lifecycle of an enrichment run.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// FeatureClient is the slice of the Spotify client the pipeline needs.
type FeatureClient interface {
	// AudioFeatures fetches features for up to 100 track URIs. Missing
	// tracks map to nil.
	AudioFeatures(ctx context.Context, trackURIs []string) (map[string]*spotify.AudioFeatures, error)
	// Ping verifies credentials and connectivity.
	Ping(ctx context.Context) error
}

// CatalogStore is the slice of the catalog store the pipeline needs.
type CatalogStore interface {
	UpsertTracks(ctx context.Context, tracks map[string]mpd.TrackMeta, frequency map[string]int) error
	UpsertFeatures(ctx context.Context, features map[string]*spotify.AudioFeatures) error
	UpsertTitleCounts(ctx context.Context, counts map[string]int) error
	// MissingFeatures lists track URIs without stored features, most
	// frequent first. Reruns only fetch these.
	MissingFeatures(ctx context.Context) ([]string, error)
}

// Deps bundles everything an enrichment run touches. Client may be nil
// when no Spotify credentials are configured; the feature stage is
// skipped in that case.
type Deps struct {
	Config config.AppConfig
	Store  CatalogStore
	Client FeatureClient
	Cache  cache.FeatureCache
}

// Status is the observable outcome of an enrichment run.
type Status struct {
	JobID    string    `json:"job_id"`
	State    State     `json:"state"`
	Dataset  string    `json:"dataset"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	SlicesProcessed int `json:"slices_processed"`
	SlicesFailed    int `json:"slices_failed"`
	Playlists       int `json:"playlists"`
	UniqueTracks    int `json:"unique_tracks"`
	TrackInstances  int `json:"track_instances"`

	FeaturesCollected int `json:"features_collected"`
	FeaturesFailed    int `json:"features_failed"`
	CacheHits         int `json:"cache_hits"`

	SuccessRate float64 `json:"success_rate"`
	DurationMS  int64   `json:"duration_ms"`
	Error       string  `json:"error,omitempty"`
}
