// SPDX-License-Identifier: MIT

// Package metrics defines the Prometheus metrics for the enrichment
// service. All metrics are registered via promauto on the default
// registry and exposed by the daemon's /metrics listener.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Extraction metrics
	slicesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mpd_slices_processed_total",
		Help: "Slice files processed by outcome",
	}, []string{"outcome"}) // outcome=ok|error

	playlistsExtracted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mpd_playlists_extracted",
		Help: "Playlists seen in the last extraction run",
	})

	uniqueTracksExtracted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mpd_unique_tracks",
		Help: "Unique track URIs in the last extraction run",
	})

	trackInstancesExtracted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mpd_track_instances",
		Help: "Total track occurrences in the last extraction run",
	})

	// Spotify client metrics
	spotifyRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spotify_requests_total",
		Help: "Spotify API requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"}) // outcome=success|error|rate_limited|timeout

	spotifyRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spotify_request_duration_seconds",
		Help:    "Spotify API request latency by endpoint",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	spotifyRateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spotify_rate_limit_waits_total",
		Help: "Times the client slept on a Retry-After response",
	})

	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "spotify_circuit_breaker_state",
		Help: "Circuit breaker state (1 = current state)",
	}, []string{"client", "state"}) // state=closed|open|half-open

	// Enrichment pipeline metrics
	enrichFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mpd_enrich_failures_total",
		Help: "Enrichment failures by pipeline stage",
	}, []string{"stage"}) // stage=validate|extract|persist|features|export

	featureBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mpd_feature_batches_total",
		Help: "Audio-feature batches by outcome",
	}, []string{"outcome"}) // outcome=ok|error

	featuresCollected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mpd_features_collected",
		Help: "Audio features collected in the last enrichment run",
	})

	featureCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mpd_feature_cache_hits_total",
		Help: "Audio features served from the cache instead of the API",
	})

	enrichDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mpd_enrich_duration_seconds",
		Help:    "Wall-clock duration of full enrichment runs",
		Buckets: []float64{1, 5, 15, 60, 300, 900, 3600, 14400},
	})
)

// RecordSliceProcessed counts one slice file by outcome ("ok"|"error").
func RecordSliceProcessed(outcome string) {
	slicesProcessedTotal.WithLabelValues(outcome).Inc()
}

// RecordExtraction publishes the totals of an extraction run.
func RecordExtraction(playlists, uniqueTracks, trackInstances int) {
	playlistsExtracted.Set(float64(playlists))
	uniqueTracksExtracted.Set(float64(uniqueTracks))
	trackInstancesExtracted.Set(float64(trackInstances))
}

// RecordSpotifyRequest counts one API call and observes its latency.
func RecordSpotifyRequest(endpoint, outcome string, duration time.Duration) {
	spotifyRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	spotifyRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordRateLimitWait counts one Retry-After sleep.
func RecordRateLimitWait() {
	spotifyRateLimitWaits.Inc()
}

// SetCircuitBreakerState marks the current breaker state for a client.
func SetCircuitBreakerState(client, state string) {
	for _, s := range []string{"closed", "open", "half-open"} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		circuitBreakerState.WithLabelValues(client, s).Set(v)
	}
}

// IncEnrichFailure counts a pipeline failure for the given stage.
func IncEnrichFailure(stage string) {
	enrichFailuresTotal.WithLabelValues(stage).Inc()
}

// RecordFeatureBatch counts one audio-feature batch by outcome.
func RecordFeatureBatch(outcome string) {
	featureBatchesTotal.WithLabelValues(outcome).Inc()
}

// RecordFeaturesCollected publishes the feature total of the last run.
func RecordFeaturesCollected(n int) {
	featuresCollected.Set(float64(n))
}

// RecordFeatureCacheHit counts one cache-served track.
func RecordFeatureCacheHit() {
	featureCacheHits.Inc()
}

// ObserveEnrichDuration records the wall-clock time of a full run.
func ObserveEnrichDuration(d time.Duration) {
	enrichDuration.Observe(d.Seconds())
}
