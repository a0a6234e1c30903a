// Package catalog persists the extracted track catalog and collected
// audio features in SQLite, and exports the interim JSON artifacts.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)

	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/mpd"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/spotify"
)

// ErrNotFound is returned for lookups of unknown track URIs.
var ErrNotFound = errors.New("catalog: track not found")

// Store provides SQLite persistence for the track catalog.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the catalog database and runs migrations.
// WAL mode and busy_timeout suit the pipeline's write bursts alongside
// API reads.
func NewStore(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// PingContext verifies the database connection, for readiness checks.
func (s *Store) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tracks (
		track_uri TEXT PRIMARY KEY,
		track_name TEXT NOT NULL,
		artist_uri TEXT NOT NULL,
		artist_name TEXT NOT NULL,
		album_uri TEXT NOT NULL,
		album_name TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		frequency INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS audio_features (
		track_uri TEXT PRIMARY KEY REFERENCES tracks(track_uri),
		acousticness REAL NOT NULL,
		danceability REAL NOT NULL,
		energy REAL NOT NULL,
		instrumentalness REAL NOT NULL,
		liveness REAL NOT NULL,
		loudness REAL NOT NULL,
		speechiness REAL NOT NULL,
		tempo REAL NOT NULL,
		valence REAL NOT NULL,
		key INTEGER NOT NULL,
		mode INTEGER NOT NULL,
		time_signature INTEGER NOT NULL,
		collected_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS playlist_titles (
		title TEXT PRIMARY KEY,
		playlists INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tracks_frequency ON tracks(frequency DESC);
	CREATE INDEX IF NOT EXISTS idx_tracks_artist ON tracks(artist_name);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertTracks writes catalog entries and their frequencies in one
// transaction. Re-running an extraction replaces frequencies rather
// than accumulating them.
func (s *Store) UpsertTracks(ctx context.Context, tracks map[string]mpd.TrackMeta, frequency map[string]int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO tracks (track_uri, track_name, artist_uri, artist_name, album_uri, album_name, duration_ms, frequency)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(track_uri) DO UPDATE SET frequency = excluded.frequency
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for uri, meta := range tracks {
		if _, err := stmt.ExecContext(ctx,
			meta.TrackURI, meta.TrackName, meta.ArtistURI, meta.ArtistName,
			meta.AlbumURI, meta.AlbumName, meta.DurationMS, frequency[uri],
		); err != nil {
			return fmt.Errorf("upsert track %s: %w", uri, err)
		}
	}
	return tx.Commit()
}

// UpsertFeatures writes collected audio features; nil values (tracks
// the API has no features for) are skipped.
func (s *Store) UpsertFeatures(ctx context.Context, features map[string]*spotify.AudioFeatures) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO audio_features (track_uri, acousticness, danceability, energy, instrumentalness,
		liveness, loudness, speechiness, tempo, valence, key, mode, time_signature)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(track_uri) DO UPDATE SET
		acousticness = excluded.acousticness,
		danceability = excluded.danceability,
		energy = excluded.energy,
		instrumentalness = excluded.instrumentalness,
		liveness = excluded.liveness,
		loudness = excluded.loudness,
		speechiness = excluded.speechiness,
		tempo = excluded.tempo,
		valence = excluded.valence,
		key = excluded.key,
		mode = excluded.mode,
		time_signature = excluded.time_signature,
		collected_at = datetime('now')
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for uri, f := range features {
		if f == nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			uri, f.Acousticness, f.Danceability, f.Energy, f.Instrumentalness,
			f.Liveness, f.Loudness, f.Speechiness, f.Tempo, f.Valence,
			f.Key, f.Mode, f.TimeSignature,
		); err != nil {
			return fmt.Errorf("upsert features %s: %w", uri, err)
		}
	}
	return tx.Commit()
}

// UpsertTitleCounts replaces the normalized playlist title counts.
func (s *Store) UpsertTitleCounts(ctx context.Context, counts map[string]int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO playlist_titles (title, playlists) VALUES (?, ?)
	ON CONFLICT(title) DO UPDATE SET playlists = excluded.playlists
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for title, n := range counts {
		if _, err := stmt.ExecContext(ctx, title, n); err != nil {
			return fmt.Errorf("upsert title %q: %w", title, err)
		}
	}
	return tx.Commit()
}

// Entry is a catalog row joined with its audio features when present.
type Entry struct {
	mpd.TrackMeta
	Frequency int                    `json:"frequency"`
	Features  *spotify.AudioFeatures `json:"features,omitempty"`
}

// GetTrack looks up one track by URI or bare ID suffix.
func (s *Store) GetTrack(ctx context.Context, trackURI string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT t.track_uri, t.track_name, t.artist_uri, t.artist_name, t.album_uri, t.album_name,
		t.duration_ms, t.frequency,
		f.track_uri, f.acousticness, f.danceability, f.energy, f.instrumentalness,
		f.liveness, f.loudness, f.speechiness, f.tempo, f.valence, f.key, f.mode, f.time_signature
	FROM tracks t
	LEFT JOIN audio_features f ON f.track_uri = t.track_uri
	WHERE t.track_uri = ?
	`, trackURI)

	var e Entry
	var fURI sql.NullString
	var ac, da, en, in, li, lo, sp, te, va sql.NullFloat64
	var key, mode, ts sql.NullInt64

	err := row.Scan(
		&e.TrackURI, &e.TrackName, &e.ArtistURI, &e.ArtistName, &e.AlbumURI, &e.AlbumName,
		&e.DurationMS, &e.Frequency,
		&fURI, &ac, &da, &en, &in, &li, &lo, &sp, &te, &va, &key, &mode, &ts,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get track %s: %w", trackURI, err)
	}

	if fURI.Valid {
		e.Features = &spotify.AudioFeatures{
			URI:              fURI.String,
			ID:               spotify.TrackID(fURI.String),
			Acousticness:     ac.Float64,
			Danceability:     da.Float64,
			Energy:           en.Float64,
			Instrumentalness: in.Float64,
			Liveness:         li.Float64,
			Loudness:         lo.Float64,
			Speechiness:      sp.Float64,
			Tempo:            te.Float64,
			Valence:          va.Float64,
			Key:              int(key.Int64),
			Mode:             int(mode.Int64),
			TimeSignature:    int(ts.Int64),
		}
	}
	return &e, nil
}

// TopTracks returns the n most frequent tracks.
func (s *Store) TopTracks(ctx context.Context, n int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT track_uri, track_name, artist_uri, artist_name, album_uri, album_name, duration_ms, frequency
	FROM tracks
	ORDER BY frequency DESC, track_uri
	LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("top tracks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.TrackURI, &e.TrackName, &e.ArtistURI, &e.ArtistName,
			&e.AlbumURI, &e.AlbumName, &e.DurationMS, &e.Frequency,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Stats summarises the stored catalog.
type Stats struct {
	UniqueTracks   int `json:"unique_tracks"`
	TrackInstances int `json:"track_instances"`
	WithFeatures   int `json:"with_features"`
	UniqueTitles   int `json:"unique_titles"`
}

// Stats reports catalog counts for the API and CLIs.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	row := s.db.QueryRowContext(ctx, `
	SELECT
		(SELECT COUNT(*) FROM tracks),
		(SELECT COALESCE(SUM(frequency), 0) FROM tracks),
		(SELECT COUNT(*) FROM audio_features),
		(SELECT COUNT(*) FROM playlist_titles)
	`)
	if err := row.Scan(&st.UniqueTracks, &st.TrackInstances, &st.WithFeatures, &st.UniqueTitles); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &st, nil
}

// MissingFeatures returns URIs of tracks without stored features,
// most frequent first, so reruns prioritise the head of the catalog.
func (s *Store) MissingFeatures(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT t.track_uri
	FROM tracks t
	LEFT JOIN audio_features f ON f.track_uri = t.track_uri
	WHERE f.track_uri IS NULL
	ORDER BY t.frequency DESC, t.track_uri
	`)
	if err != nil {
		return nil, fmt.Errorf("missing features: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var uris []string
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, err
		}
		uris = append(uris, uri)
	}
	return uris, rows.Err()
}
