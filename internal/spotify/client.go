// Package spotify implements a minimal Spotify Web API client for the
// enrichment pipeline: client-credentials auth, track lookups and the
// batch audio-features endpoint, with rate limiting and a circuit
// breaker in front of the transport.
package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/metrics"
)

// MaxBatchSize is the id limit of the audio-features endpoint.
const MaxBatchSize = 100

// AudioFeatures is the per-track feature vector collected during
// enrichment. Field set matches the audio-features endpoint.
type AudioFeatures struct {
	ID               string  `json:"id"`
	URI              string  `json:"uri"`
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Loudness         float64 `json:"loudness"`
	Speechiness      float64 `json:"speechiness"`
	Tempo            float64 `json:"tempo"`
	Valence          float64 `json:"valence"`
	Key              int     `json:"key"`
	Mode             int     `json:"mode"`
	TimeSignature    int     `json:"time_signature"`
}

// TrackInfo is the subset of track metadata the service consumes.
type TrackInfo struct {
	ID         string
	URI        string
	Name       string
	ArtistName string
	AlbumName  string
	DurationMS int
}

// Options configures a Client.
type Options struct {
	APIBase             string
	TokenURL            string
	ClientID            string
	ClientSecret        string
	Timeout             time.Duration // per-request timeout, defaults to 30s
	RequestsPerSecond   float64       // client-side rate limit, defaults to 10
	BreakerThreshold    int           // consecutive failures before opening, defaults to 5
	BreakerResetTimeout time.Duration // defaults to 30s
}

// Client talks to the Spotify Web API.
type Client struct {
	base    string
	http    *http.Client
	tokens  *tokenSource
	limiter *rate.Limiter
	cb      *CircuitBreaker
}

// New creates a Client from Options, applying defaults for zero values.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	threshold := opts.BreakerThreshold
	if threshold <= 0 {
		threshold = 5
	}
	reset := opts.BreakerResetTimeout
	if reset <= 0 {
		reset = 30 * time.Second
	}

	httpClient := &http.Client{Timeout: timeout}
	return &Client{
		base:    strings.TrimRight(opts.APIBase, "/"),
		http:    httpClient,
		tokens:  newTokenSource(opts.TokenURL, opts.ClientID, opts.ClientSecret, httpClient),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		cb:      NewCircuitBreaker(threshold, reset),
	}
}

// TrackID extracts the bare track ID from a spotify:track: URI.
// Inputs that are already IDs pass through unchanged.
func TrackID(uri string) string {
	if strings.HasPrefix(uri, "spotify:track:") {
		parts := strings.Split(uri, ":")
		return parts[len(parts)-1]
	}
	return uri
}

// Ping verifies credentials and API reachability with a one-result
// track search.
func (c *Client) Ping(ctx context.Context) error {
	var payload struct {
		Tracks struct {
			Items []json.RawMessage `json:"items"`
		} `json:"tracks"`
	}
	q := url.Values{"q": {"test"}, "type": {"track"}, "limit": {"1"}}
	if err := c.getJSON(ctx, "search", "/search?"+q.Encode(), &payload); err != nil {
		return err
	}
	if len(payload.Tracks.Items) == 0 {
		return &APIError{Sentinel: ErrBadResponse, Operation: "search", Body: "no results returned"}
	}
	return nil
}

// AudioFeatures fetches the feature vectors for up to MaxBatchSize
// track URIs in one call. The result maps each input URI to its
// features; tracks the API has no features for map to nil.
func (c *Client) AudioFeatures(ctx context.Context, trackURIs []string) (map[string]*AudioFeatures, error) {
	if len(trackURIs) == 0 {
		return map[string]*AudioFeatures{}, nil
	}
	if len(trackURIs) > MaxBatchSize {
		return nil, fmt.Errorf("audio features batch of %d exceeds limit %d", len(trackURIs), MaxBatchSize)
	}

	ids := make([]string, len(trackURIs))
	for i, uri := range trackURIs {
		ids[i] = TrackID(uri)
	}

	var payload struct {
		AudioFeatures []*AudioFeatures `json:"audio_features"`
	}
	path := "/audio-features?ids=" + url.QueryEscape(strings.Join(ids, ","))
	if err := c.getJSON(ctx, "audio_features", path, &payload); err != nil {
		return nil, err
	}
	if len(payload.AudioFeatures) != len(trackURIs) {
		return nil, &APIError{
			Sentinel:  ErrBadResponse,
			Operation: "audio_features",
			Body:      fmt.Sprintf("got %d entries for %d ids", len(payload.AudioFeatures), len(trackURIs)),
		}
	}

	out := make(map[string]*AudioFeatures, len(trackURIs))
	for i, features := range payload.AudioFeatures {
		out[trackURIs[i]] = features // nil entries mean no features available
	}
	return out, nil
}

// Track fetches metadata for a single track URI or ID.
func (c *Client) Track(ctx context.Context, trackURI string) (*TrackInfo, error) {
	var payload struct {
		ID      string `json:"id"`
		URI     string `json:"uri"`
		Name    string `json:"name"`
		Artists []struct {
			Name string `json:"name"`
		} `json:"artists"`
		Album struct {
			Name string `json:"name"`
		} `json:"album"`
		DurationMS int `json:"duration_ms"`
	}
	if err := c.getJSON(ctx, "tracks", "/tracks/"+url.PathEscape(TrackID(trackURI)), &payload); err != nil {
		return nil, err
	}

	info := &TrackInfo{
		ID:         payload.ID,
		URI:        payload.URI,
		Name:       payload.Name,
		AlbumName:  payload.Album.Name,
		DurationMS: payload.DurationMS,
	}
	if len(payload.Artists) > 0 {
		info.ArtistName = payload.Artists[0].Name
	}
	return info, nil
}

// BreakerState exposes the circuit state for health reporting.
func (c *Client) BreakerState() State {
	return c.cb.State()
}

// getJSON performs an authenticated GET through the rate limiter and
// circuit breaker, decoding a 200 response into out.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	err := c.cb.Execute(func() error {
		return c.doOnce(ctx, endpoint, path, out)
	})
	metrics.RecordSpotifyRequest(endpoint, outcomeLabel(err), time.Since(start))
	return err
}

func (c *Client) doOnce(ctx context.Context, endpoint, path string, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return &APIError{Sentinel: ErrTimeout, Operation: endpoint, Err: err}
		}
		return &APIError{Sentinel: ErrUnavailable, Operation: endpoint, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		apiErr := &APIError{
			Sentinel:  sentinelForStatus(res.StatusCode),
			Operation: endpoint,
			Status:    res.StatusCode,
			Body:      strings.TrimSpace(string(body)),
		}
		switch res.StatusCode {
		case http.StatusUnauthorized:
			// Token may have been revoked; force a refresh next call.
			c.tokens.Invalidate()
		case http.StatusTooManyRequests:
			if secs, err := strconv.Atoi(res.Header.Get("Retry-After")); err == nil && secs > 0 {
				apiErr.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		return apiErr
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &APIError{Sentinel: ErrBadResponse, Operation: endpoint, Err: err}
	}
	return nil
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}
