// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/catalog"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/log"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/metrics"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/mpd"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/spotify"
)

// CheckpointArtifact is written every few batches so a crashed run
// loses at most one checkpoint interval of collected features.
const CheckpointArtifact = "audio_features.checkpoint.json"

// Enrich executes one full enrichment run: extract, persist, collect
// features, export artifacts. The returned Status is always populated,
// also on failure.
func Enrich(ctx context.Context, deps Deps) (Status, error) {
	jobID := uuid.NewString()
	ctx = log.ContextWithJobID(ctx, jobID)
	logger := log.WithComponentFromContext(ctx, "jobs")

	status := Status{
		JobID:   jobID,
		State:   StateRunning,
		Started: time.Now(),
	}

	err := runStages(ctx, deps, logger, &status)

	status.Finished = time.Now()
	status.DurationMS = status.Finished.Sub(status.Started).Milliseconds()
	metrics.ObserveEnrichDuration(status.Finished.Sub(status.Started))

	switch {
	case err == nil:
		status.State = StateCompleted
		logger.Info().
			Str(log.FieldEvent, "enrich.completed").
			Int("unique_tracks", status.UniqueTracks).
			Int("features_collected", status.FeaturesCollected).
			Int("features_failed", status.FeaturesFailed).
			Int64("duration_ms", status.DurationMS).
			Msg("enrichment run completed")
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		status.State = StateCancelled
		status.Error = err.Error()
		logger.Warn().
			Str(log.FieldEvent, "enrich.cancelled").
			Int64("duration_ms", status.DurationMS).
			Msg("enrichment run cancelled")
	default:
		status.State = StateFailed
		status.Error = err.Error()
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "enrich.failed").
			Int64("duration_ms", status.DurationMS).
			Msg("enrichment run failed")
	}

	return status, err
}

func runStages(ctx context.Context, deps Deps, logger zerolog.Logger, status *Status) error {
	cfg := deps.Config

	if err := validateDeps(deps); err != nil {
		metrics.IncEnrichFailure("validate")
		return err
	}

	logger.Info().
		Str(log.FieldEvent, "enrich.started").
		Str(log.FieldDataDir, cfg.DataDir).
		Int("max_slice_files", cfg.MaxSliceFiles).
		Msg("starting enrichment run")

	// Stage 1: extract the track catalog from the dataset slices.
	result, err := mpd.ExtractTracks(ctx, cfg.DataDir, mpd.ExtractOptions{
		MaxFiles:    cfg.MaxSliceFiles,
		Concurrency: cfg.ExtractConcurrency,
	})
	if err != nil {
		metrics.IncEnrichFailure("extract")
		return fmt.Errorf("extract tracks: %w", err)
	}

	status.SlicesProcessed = result.SlicesTotal - result.SlicesFailed
	status.SlicesFailed = result.SlicesFailed
	status.Playlists = result.Playlists
	status.UniqueTracks = result.UniqueTracks()
	status.TrackInstances = result.TrackInstances
	status.Dataset = mpd.Classify(result.Playlists).Describe()

	// Stage 2: persist the catalog and export the tracks artifact.
	if err := deps.Store.UpsertTracks(ctx, result.Tracks, result.Frequency); err != nil {
		metrics.IncEnrichFailure("persist")
		return fmt.Errorf("persist tracks: %w", err)
	}
	if err := deps.Store.UpsertTitleCounts(ctx, result.TitleCounts); err != nil {
		metrics.IncEnrichFailure("persist")
		return fmt.Errorf("persist title counts: %w", err)
	}
	path, err := catalog.WriteTracksArtifact(cfg.InterimDir, result)
	if err != nil {
		metrics.IncEnrichFailure("export")
		return fmt.Errorf("write tracks artifact: %w", err)
	}
	logger.Info().
		Str(log.FieldEvent, "enrich.catalog_persisted").
		Str(log.FieldPath, path).
		Int("unique_tracks", status.UniqueTracks).
		Msg("track catalog persisted")

	// Stage 3: collect audio features, unless no client is configured.
	if deps.Client == nil {
		logger.Warn().
			Str(log.FieldEvent, "enrich.features_skipped").
			Msg("no Spotify credentials configured, skipping feature collection")
		return nil
	}
	if err := collectFeatures(ctx, deps, logger, status); err != nil {
		return err
	}

	if status.FeaturesCollected+status.FeaturesFailed > 0 {
		status.SuccessRate = float64(status.FeaturesCollected) /
			float64(status.FeaturesCollected+status.FeaturesFailed)
	}
	return nil
}

// collectFeatures fetches features for tracks the store does not have
// yet, most frequent first, consulting the cache before the API.
// Batch failures are recorded and skipped; only context cancellation
// aborts the stage.
func collectFeatures(ctx context.Context, deps Deps, logger zerolog.Logger, status *Status) error {
	cfg := deps.Config

	// Incremental reruns: tracks with stored features are done.
	uris, err := deps.Store.MissingFeatures(ctx)
	if err != nil {
		metrics.IncEnrichFailure("persist")
		return fmt.Errorf("query missing features: %w", err)
	}
	collected := make(map[string]*spotify.AudioFeatures, len(uris))
	var failed []string

	// Cache pass first so repeated runs only hit the API for unseen
	// tracks.
	pending := uris[:0:0]
	for _, uri := range uris {
		if deps.Cache != nil {
			if features, ok := deps.Cache.Get(uri); ok {
				collected[uri] = features
				status.CacheHits++
				metrics.RecordFeatureCacheHit()
				continue
			}
		}
		pending = append(pending, uri)
	}
	if len(collected) > 0 {
		if err := deps.Store.UpsertFeatures(ctx, collected); err != nil {
			metrics.IncEnrichFailure("persist")
			return fmt.Errorf("persist cached features: %w", err)
		}
	}

	batches := (len(pending) + cfg.BatchSize - 1) / cfg.BatchSize
	logger.Info().
		Str(log.FieldEvent, "enrich.features_started").
		Int("tracks", len(pending)).
		Int("cache_hits", status.CacheHits).
		Int(log.FieldBatches, batches).
		Msg("starting audio feature collection")

	for i := 0; i < len(pending); i += cfg.BatchSize {
		end := min(i+cfg.BatchSize, len(pending))
		batch := pending[i:end]
		batchNum := i/cfg.BatchSize + 1

		features, err := fetchBatch(ctx, deps.Client, batch)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			metrics.RecordFeatureBatch("error")
			metrics.IncEnrichFailure("features")
			logger.Warn().
				Err(err).
				Str(log.FieldEvent, "enrich.batch_failed").
				Int(log.FieldBatch, batchNum).
				Int("tracks", len(batch)).
				Msg("feature batch failed, skipping")
			failed = append(failed, batch...)
			continue
		}

		persist := make(map[string]*spotify.AudioFeatures, len(batch))
		for _, uri := range batch {
			if f := features[uri]; f != nil {
				collected[uri] = f
				persist[uri] = f
				if deps.Cache != nil {
					deps.Cache.Set(uri, f, cfg.CacheTTL)
				}
			} else {
				failed = append(failed, uri)
			}
		}
		if len(persist) > 0 {
			if err := deps.Store.UpsertFeatures(ctx, persist); err != nil {
				metrics.IncEnrichFailure("persist")
				return fmt.Errorf("persist features: %w", err)
			}
		}
		metrics.RecordFeatureBatch("ok")
		metrics.RecordFeaturesCollected(len(persist))

		if batchNum%cfg.CheckpointEvery == 0 {
			if _, err := catalog.WriteFeaturesArtifact(cfg.InterimDir, CheckpointArtifact, collected); err != nil {
				logger.Warn().
					Err(err).
					Str(log.FieldEvent, "enrich.checkpoint_failed").
					Int(log.FieldBatch, batchNum).
					Msg("checkpoint write failed")
			} else {
				logger.Info().
					Str(log.FieldEvent, "enrich.checkpoint").
					Int(log.FieldBatch, batchNum).
					Int(log.FieldBatches, batches).
					Int("collected", len(collected)).
					Int("failed", len(failed)).
					Msg("checkpoint written")
			}
		}

		if end < len(pending) && cfg.BatchDelay > 0 {
			select {
			case <-time.After(cfg.BatchDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	status.FeaturesCollected = len(collected)
	status.FeaturesFailed = len(failed)

	if _, err := catalog.WriteFeaturesArtifact(cfg.InterimDir, catalog.FeaturesArtifact, collected); err != nil {
		metrics.IncEnrichFailure("export")
		return fmt.Errorf("write features artifact: %w", err)
	}
	if len(failed) > 0 {
		if _, err := catalog.WriteFailedArtifact(cfg.InterimDir, failed); err != nil {
			metrics.IncEnrichFailure("export")
			return fmt.Errorf("write failed artifact: %w", err)
		}
	}
	return nil
}

// fetchBatch issues one audio-features request, honouring a single
// Retry-After backoff when the API rate limits us.
func fetchBatch(ctx context.Context, client FeatureClient, batch []string) (map[string]*spotify.AudioFeatures, error) {
	features, err := client.AudioFeatures(ctx, batch)
	if err == nil {
		return features, nil
	}

	var apiErr *spotify.APIError
	if errors.Is(err, spotify.ErrRateLimited) && errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		metrics.RecordRateLimitWait()
		select {
		case <-time.After(apiErr.RetryAfter):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return client.AudioFeatures(ctx, batch)
	}
	return nil, err
}
