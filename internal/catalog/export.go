package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/renameio/v2"

	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/mpd"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/spotify"
)

// Interim artifact filenames, kept stable for downstream notebooks.
const (
	TracksArtifact   = "unique_tracks.json"
	FeaturesArtifact = "audio_features.json"
	FailedArtifact   = "failed_tracks.json"
)

// TracksExport is the schema of the unique-tracks artifact.
type TracksExport struct {
	Tracks      []mpd.TrackMeta `json:"tracks"`
	Frequencies map[string]int  `json:"frequencies"`
	Summary     TracksSummary   `json:"summary"`
}

// TracksSummary holds the artifact's aggregate counts.
type TracksSummary struct {
	UniqueTracks   int `json:"unique_tracks"`
	TotalInstances int `json:"total_instances"`
}

// WriteTracksArtifact exports the extraction result as JSON. Tracks
// are sorted by URI so the artifact is deterministic.
func WriteTracksArtifact(dir string, result *mpd.ExtractResult) (string, error) {
	tracks := make([]mpd.TrackMeta, 0, len(result.Tracks))
	for _, meta := range result.Tracks {
		tracks = append(tracks, meta)
	}
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].TrackURI < tracks[j].TrackURI })

	export := TracksExport{
		Tracks:      tracks,
		Frequencies: result.Frequency,
		Summary: TracksSummary{
			UniqueTracks:   result.UniqueTracks(),
			TotalInstances: result.TrackInstances,
		},
	}
	path := filepath.Join(dir, TracksArtifact)
	return path, writeJSON(path, export)
}

// WriteFeaturesArtifact exports collected audio features keyed by
// track URI. Tracks without features serialize as null, preserving
// the record that they were attempted.
func WriteFeaturesArtifact(dir, name string, features map[string]*spotify.AudioFeatures) (string, error) {
	path := filepath.Join(dir, name)
	return path, writeJSON(path, features)
}

// WriteFailedArtifact exports the URIs that could not be enriched.
func WriteFailedArtifact(dir string, failed []string) (string, error) {
	sorted := append([]string(nil), failed...)
	sort.Strings(sorted)
	path := filepath.Join(dir, FailedArtifact)
	return path, writeJSON(path, sorted)
}

// writeJSON writes data atomically and durably: renameio fsyncs the
// temp file before renaming it over the destination.
func writeJSON(path string, data any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	enc := json.NewEncoder(pending)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}
	return nil
}
