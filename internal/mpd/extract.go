// SPDX-License-Identifier: MIT

package mpd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/log"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/metrics"
)

// ExtractOptions controls a catalog extraction run.
type ExtractOptions struct {
	MaxFiles    int // 0 = all slices
	Concurrency int // 0 = GOMAXPROCS, clamped to [1,16]
}

// ExtractResult is the aggregated outcome of scanning slice files.
type ExtractResult struct {
	Tracks         map[string]TrackMeta // track URI -> first-seen metadata
	Frequency      map[string]int       // track URI -> occurrence count
	TitleCounts    map[string]int       // normalized playlist title -> playlist count
	Playlists      int
	TrackInstances int
	SlicesTotal    int
	SlicesFailed   int
}

// UniqueTracks returns the number of distinct track URIs seen.
func (r *ExtractResult) UniqueTracks() int { return len(r.Tracks) }

// AverageFrequency reports mean occurrences per unique track.
func (r *ExtractResult) AverageFrequency() float64 {
	if len(r.Tracks) == 0 {
		return 0
	}
	return float64(r.TrackInstances) / float64(len(r.Tracks))
}

// sliceSummary is the per-file result handed back by a worker.
type sliceSummary struct {
	tracks         map[string]TrackMeta
	frequency      map[string]int
	titleCounts    map[string]int
	playlists      int
	trackInstances int
}

// ExtractTracks scans all slice files under dir with a bounded worker
// pool and merges the per-slice summaries. Malformed slices are logged
// and counted but never abort the run; only an empty directory or a
// cancelled context is fatal.
func ExtractTracks(ctx context.Context, dir string, opts ExtractOptions) (*ExtractResult, error) {
	logger := log.WithComponentFromContext(ctx, "extractor")

	files, err := DiscoverSlices(dir, opts.MaxFiles)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files found in %q", SlicePattern, dir)
	}

	workers := clampConcurrency(opts.Concurrency, runtime.GOMAXPROCS(0), 16)
	logger.Info().
		Str(log.FieldEvent, "extract.start").
		Str(log.FieldDataDir, dir).
		Int("slices", len(files)).
		Int("workers", workers).
		Msg("extracting track catalog")

	result := &ExtractResult{
		Tracks:      make(map[string]TrackMeta),
		Frequency:   make(map[string]int),
		TitleCounts: make(map[string]int),
		SlicesTotal: len(files),
	}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, file := range files {
		file := file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sum, err := extractSlice(file)
			if err != nil {
				logger.Warn().
					Err(err).
					Str(log.FieldSliceFile, file).
					Msg("skipping malformed slice")
				metrics.RecordSliceProcessed("error")
				mu.Lock()
				result.SlicesFailed++
				mu.Unlock()
				return nil
			}
			metrics.RecordSliceProcessed("ok")

			mu.Lock()
			defer mu.Unlock()
			result.Playlists += sum.playlists
			result.TrackInstances += sum.trackInstances
			for uri, n := range sum.frequency {
				result.Frequency[uri] += n
			}
			for uri, meta := range sum.tracks {
				if _, seen := result.Tracks[uri]; !seen {
					result.Tracks[uri] = meta
				}
			}
			for title, n := range sum.titleCounts {
				result.TitleCounts[title] += n
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	metrics.RecordExtraction(result.Playlists, result.UniqueTracks(), result.TrackInstances)
	logger.Info().
		Str(log.FieldEvent, "extract.success").
		Int("playlists", result.Playlists).
		Int("unique_tracks", result.UniqueTracks()).
		Int("track_instances", result.TrackInstances).
		Int("slices_failed", result.SlicesFailed).
		Msg("extraction completed")

	return result, nil
}

// extractSlice decodes one slice file into a local summary.
func extractSlice(path string) (*sliceSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open slice: %w", err)
	}
	defer func() { _ = f.Close() }()

	var slice Slice
	if err := json.NewDecoder(f).Decode(&slice); err != nil {
		return nil, fmt.Errorf("decode slice: %w", err)
	}

	sum := &sliceSummary{
		tracks:      make(map[string]TrackMeta),
		frequency:   make(map[string]int),
		titleCounts: make(map[string]int),
	}
	for _, pl := range slice.Playlists {
		sum.playlists++
		if title := NormalizeTitle(pl.Name); title != "" {
			sum.titleCounts[title]++
		}
		for _, tr := range pl.Tracks {
			sum.frequency[tr.TrackURI]++
			sum.trackInstances++
			if _, seen := sum.tracks[tr.TrackURI]; !seen {
				sum.tracks[tr.TrackURI] = TrackMeta{
					TrackURI:   tr.TrackURI,
					TrackName:  tr.TrackName,
					ArtistURI:  tr.ArtistURI,
					ArtistName: tr.ArtistName,
					AlbumURI:   tr.AlbumURI,
					AlbumName:  tr.AlbumName,
					DurationMS: tr.DurationMS,
				}
			}
		}
	}
	return sum, nil
}

// clampConcurrency keeps worker counts inside sane bounds.
func clampConcurrency(requested, fallback, max int) int {
	n := requested
	if n <= 0 {
		n = fallback
	}
	if n < 1 {
		n = 1
	}
	if n > max {
		n = max
	}
	return n
}
