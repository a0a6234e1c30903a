package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/mpd"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/spotify"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedTracks(t *testing.T, s *Store) {
	t.Helper()
	tracks := map[string]mpd.TrackMeta{
		"spotify:track:t1": {
			TrackURI: "spotify:track:t1", TrackName: "One",
			ArtistURI: "spotify:artist:a1", ArtistName: "Artist A",
			AlbumURI: "spotify:album:b1", AlbumName: "Album A", DurationMS: 201_000,
		},
		"spotify:track:t2": {
			TrackURI: "spotify:track:t2", TrackName: "Two",
			ArtistURI: "spotify:artist:a2", ArtistName: "Artist B",
			AlbumURI: "spotify:album:b2", AlbumName: "Album B", DurationMS: 180_000,
		},
	}
	freq := map[string]int{"spotify:track:t1": 9, "spotify:track:t2": 3}
	require.NoError(t, s.UpsertTracks(context.Background(), tracks, freq))
}

func TestStoreTracksRoundTrip(t *testing.T) {
	s := newTestStore(t)
	seedTracks(t, s)

	e, err := s.GetTrack(context.Background(), "spotify:track:t1")
	require.NoError(t, err)
	assert.Equal(t, "One", e.TrackName)
	assert.Equal(t, 9, e.Frequency)
	assert.Nil(t, e.Features)

	_, err = s.GetTrack(context.Background(), "spotify:track:absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreUpsertReplacesFrequency(t *testing.T) {
	s := newTestStore(t)
	seedTracks(t, s)

	tracks := map[string]mpd.TrackMeta{
		"spotify:track:t1": {TrackURI: "spotify:track:t1", TrackName: "One"},
	}
	require.NoError(t, s.UpsertTracks(context.Background(), tracks, map[string]int{"spotify:track:t1": 42}))

	e, err := s.GetTrack(context.Background(), "spotify:track:t1")
	require.NoError(t, err)
	assert.Equal(t, 42, e.Frequency)
}

func TestStoreFeatures(t *testing.T) {
	s := newTestStore(t)
	seedTracks(t, s)

	features := map[string]*spotify.AudioFeatures{
		"spotify:track:t1": {
			URI: "spotify:track:t1", ID: "t1",
			Acousticness: 0.1, Danceability: 0.8, Energy: 0.7,
			Instrumentalness: 0.01, Liveness: 0.2, Loudness: -6.5,
			Speechiness: 0.04, Tempo: 121.5, Valence: 0.6,
			Key: 7, Mode: 1, TimeSignature: 4,
		},
		"spotify:track:t2": nil, // API had no features; must be skipped
	}
	require.NoError(t, s.UpsertFeatures(context.Background(), features))

	e, err := s.GetTrack(context.Background(), "spotify:track:t1")
	require.NoError(t, err)
	require.NotNil(t, e.Features)
	assert.InDelta(t, 121.5, e.Features.Tempo, 1e-9)
	assert.Equal(t, 7, e.Features.Key)

	e2, err := s.GetTrack(context.Background(), "spotify:track:t2")
	require.NoError(t, err)
	assert.Nil(t, e2.Features)
}

func TestStoreTopTracksAndStats(t *testing.T) {
	s := newTestStore(t)
	seedTracks(t, s)
	require.NoError(t, s.UpsertTitleCounts(context.Background(), map[string]int{"workout": 4, "chill": 2}))

	top, err := s.TopTracks(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "spotify:track:t1", top[0].TrackURI)

	st, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, st.UniqueTracks)
	assert.Equal(t, 12, st.TrackInstances)
	assert.Equal(t, 0, st.WithFeatures)
	assert.Equal(t, 2, st.UniqueTitles)
}

func TestStoreMissingFeatures(t *testing.T) {
	s := newTestStore(t)
	seedTracks(t, s)

	missing, err := s.MissingFeatures(context.Background())
	require.NoError(t, err)
	// Ordered by frequency, highest first.
	assert.Equal(t, []string{"spotify:track:t1", "spotify:track:t2"}, missing)

	require.NoError(t, s.UpsertFeatures(context.Background(), map[string]*spotify.AudioFeatures{
		"spotify:track:t1": {URI: "spotify:track:t1", ID: "t1"},
	}))

	missing, err = s.MissingFeatures(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"spotify:track:t2"}, missing)
}
