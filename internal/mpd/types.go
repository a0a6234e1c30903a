// SPDX-License-Identifier: MIT

// Package mpd reads and summarises the Spotify Million Playlist Dataset.
//
// The dataset ships as numbered slice files (mpd.slice.0-999.json and
// so on), each holding a "playlists" array. This package discovers the
// slices, decodes them, and builds a unique-track catalog with
// occurrence frequencies.
package mpd

// Slice mirrors the top-level structure of an MPD slice file.
type Slice struct {
	Info      SliceInfo  `json:"info"`
	Playlists []Playlist `json:"playlists"`
}

// SliceInfo carries the slice metadata block.
type SliceInfo struct {
	Generated string `json:"generated_on"`
	Slice     string `json:"slice"`
	Version   string `json:"version"`
}

// Playlist is one playlist entry of a slice.
type Playlist struct {
	Name          string  `json:"name"`
	Collaborative string  `json:"collaborative"`
	PID           int     `json:"pid"`
	ModifiedAt    int64   `json:"modified_at"`
	NumTracks     int     `json:"num_tracks"`
	NumAlbums     int     `json:"num_albums"`
	NumArtists    int     `json:"num_artists"`
	NumFollowers  int     `json:"num_followers"`
	NumEdits      int     `json:"num_edits"`
	DurationMS    int64   `json:"duration_ms"`
	Tracks        []Track `json:"tracks"`
}

// Track is one track occurrence inside a playlist.
type Track struct {
	Pos        int    `json:"pos"`
	TrackURI   string `json:"track_uri"`
	TrackName  string `json:"track_name"`
	ArtistURI  string `json:"artist_uri"`
	ArtistName string `json:"artist_name"`
	AlbumURI   string `json:"album_uri"`
	AlbumName  string `json:"album_name"`
	DurationMS int    `json:"duration_ms"`
}

// TrackMeta is the catalog entry for a unique track. Metadata comes
// from the first occurrence seen; Frequency accumulates across all
// playlists.
type TrackMeta struct {
	TrackURI   string `json:"track_uri"`
	TrackName  string `json:"track_name"`
	ArtistURI  string `json:"artist_uri"`
	ArtistName string `json:"artist_name"`
	AlbumURI   string `json:"album_uri"`
	AlbumName  string `json:"album_name"`
	DurationMS int    `json:"duration_ms"`
}
