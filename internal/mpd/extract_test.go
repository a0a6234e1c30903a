// SPDX-License-Identifier: MIT

package mpd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSlice(t *testing.T, dir, name string, slice Slice) {
	t.Helper()
	data, err := json.Marshal(slice)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func testTrack(uri, name, artist string) Track {
	return Track{
		TrackURI:   uri,
		TrackName:  name,
		ArtistURI:  "spotify:artist:a1",
		ArtistName: artist,
		AlbumURI:   "spotify:album:b1",
		AlbumName:  "Album",
		DurationMS: 200_000,
	}
}

func TestExtractTracks(t *testing.T) {
	dir := t.TempDir()

	writeSlice(t, dir, "mpd.slice.0-999.json", Slice{
		Info: SliceInfo{Slice: "0-999"},
		Playlists: []Playlist{
			{
				Name: "Road Trip!",
				PID:  0,
				Tracks: []Track{
					testTrack("spotify:track:t1", "One", "Artist A"),
					testTrack("spotify:track:t2", "Two", "Artist B"),
				},
			},
			{
				Name: "road trip",
				PID:  1,
				Tracks: []Track{
					testTrack("spotify:track:t1", "One", "Artist A"),
				},
			},
		},
	})
	writeSlice(t, dir, "mpd.slice.1000-1999.json", Slice{
		Info: SliceInfo{Slice: "1000-1999"},
		Playlists: []Playlist{
			{
				Name: "Focus",
				PID:  1000,
				Tracks: []Track{
					testTrack("spotify:track:t3", "Three", "Artist C"),
					testTrack("spotify:track:t1", "One", "Artist A"),
				},
			},
		},
	})

	res, err := ExtractTracks(context.Background(), dir, ExtractOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Playlists)
	assert.Equal(t, 3, res.UniqueTracks())
	assert.Equal(t, 5, res.TrackInstances)
	assert.Equal(t, 2, res.SlicesTotal)
	assert.Equal(t, 0, res.SlicesFailed)
	assert.Equal(t, 3, res.Frequency["spotify:track:t1"])
	assert.Equal(t, 1, res.Frequency["spotify:track:t2"])
	assert.Equal(t, "One", res.Tracks["spotify:track:t1"].TrackName)
	assert.InDelta(t, 5.0/3.0, res.AverageFrequency(), 1e-9)

	// "Road Trip!" and "road trip" collapse to the same title key.
	assert.Equal(t, 2, res.TitleCounts["road trip"])
	assert.Equal(t, 1, res.TitleCounts["focus"])
}

func TestExtractTracksSkipsMalformedSlice(t *testing.T) {
	dir := t.TempDir()

	writeSlice(t, dir, "mpd.slice.0-999.json", Slice{
		Playlists: []Playlist{
			{Name: "Mix", Tracks: []Track{testTrack("spotify:track:t1", "One", "A")}},
		},
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mpd.slice.1000-1999.json"), []byte("{not json"), 0o644))

	res, err := ExtractTracks(context.Background(), dir, ExtractOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Playlists)
	assert.Equal(t, 1, res.SlicesFailed)
	assert.Equal(t, 2, res.SlicesTotal)
}

func TestExtractTracksEmptyDirFails(t *testing.T) {
	_, err := ExtractTracks(context.Background(), t.TempDir(), ExtractOptions{})
	assert.Error(t, err)
}

func TestExtractTracksHonoursMaxFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"mpd.slice.0-999.json", "mpd.slice.1000-1999.json", "mpd.slice.2000-2999.json"} {
		writeSlice(t, dir, name, Slice{
			Playlists: []Playlist{{Name: "p", Tracks: []Track{testTrack("spotify:track:t1", "One", "A")}}},
		})
	}

	res, err := ExtractTracks(context.Background(), dir, ExtractOptions{MaxFiles: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, res.SlicesTotal)
	assert.Equal(t, 2, res.Playlists)
}

func TestExtractTracksCancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeSlice(t, dir, "mpd.slice.0-999.json", Slice{
		Playlists: []Playlist{{Name: "p", Tracks: []Track{testTrack("spotify:track:t1", "One", "A")}}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ExtractTracks(ctx, dir, ExtractOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDiscoverSlicesSorted(t *testing.T) {
	dir := t.TempDir()
	names := []string{"mpd.slice.9000-9999.json", "mpd.slice.0-999.json", "notes.txt"}
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("{}"), 0o644))
	}

	files, err := DiscoverSlices(dir, 0)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(dir, "mpd.slice.0-999.json"), files[0])
}

func TestAnalyzeDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mpd.slice.0-999.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stats.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0o644))

	st, err := AnalyzeDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalFiles)
	assert.Equal(t, 2, st.JSONFiles)
	assert.Equal(t, 1, st.SliceFiles)
	assert.Greater(t, st.TotalBytes, int64(0))
}
