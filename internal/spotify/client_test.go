package spotify

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, mock *MockServer) *Client {
	t.Helper()
	return New(Options{
		APIBase:           mock.APIBase(),
		TokenURL:          mock.TokenURL(),
		ClientID:          "id",
		ClientSecret:      "secret",
		Timeout:           5 * time.Second,
		RequestsPerSecond: 1000, // don't throttle tests
	})
}

func TestTrackID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"spotify:track:4uLU6hMCjMI75M1A2tKUQC", "4uLU6hMCjMI75M1A2tKUQC"},
		{"4uLU6hMCjMI75M1A2tKUQC", "4uLU6hMCjMI75M1A2tKUQC"},
		{"spotify:track:", ""},
	}
	for _, tt := range tests {
		if got := TrackID(tt.in); got != tt.want {
			t.Errorf("TrackID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPing(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()

	cl := newTestClient(t, mock)
	require.NoError(t, cl.Ping(context.Background()))
	assert.Equal(t, 1, mock.TokenRequests())
}

func TestPingBadCredentials(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()
	mock.RejectAuth(true)

	cl := newTestClient(t, mock)
	err := cl.Ping(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAudioFeatures(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()

	cl := newTestClient(t, mock)
	uris := []string{"spotify:track:t1", "spotify:track:t2", "spotify:track:missing"}
	got, err := cl.AudioFeatures(context.Background(), uris)
	require.NoError(t, err)
	require.Len(t, got, 3)

	f1 := got["spotify:track:t1"]
	require.NotNil(t, f1)
	assert.InDelta(t, 0.81, f1.Danceability, 1e-9)
	assert.Equal(t, 4, f1.TimeSignature)

	// tracks without features come back as nil, not as an error
	var nilFeatures *AudioFeatures
	assert.Equal(t, nilFeatures, got["spotify:track:missing"])
}

func TestAudioFeaturesEmptyAndOversized(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()
	cl := newTestClient(t, mock)

	got, err := cl.AudioFeatures(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	big := make([]string, MaxBatchSize+1)
	for i := range big {
		big[i] = "spotify:track:x"
	}
	_, err = cl.AudioFeatures(context.Background(), big)
	assert.Error(t, err)
}

func TestAudioFeaturesRateLimited(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()
	mock.FailNext("audio-features", 1, http.StatusTooManyRequests, 7)

	cl := newTestClient(t, mock)
	_, err := cl.AudioFeatures(context.Background(), []string{"spotify:track:t1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 7*time.Second, apiErr.RetryAfter)

	// The next call succeeds.
	got, err := cl.AudioFeatures(context.Background(), []string{"spotify:track:t1"})
	require.NoError(t, err)
	assert.NotNil(t, got["spotify:track:t1"])
}

func TestTrack(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()

	cl := newTestClient(t, mock)
	info, err := cl.Track(context.Background(), "spotify:track:t1")
	require.NoError(t, err)
	assert.Equal(t, "One", info.Name)
	assert.Equal(t, "Artist A", info.ArtistName)
	assert.Equal(t, 201_000, info.DurationMS)
}

func TestTrackNotFound(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()

	cl := newTestClient(t, mock)
	_, err := cl.Track(context.Background(), "spotify:track:nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenReuse(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()

	cl := newTestClient(t, mock)
	require.NoError(t, cl.Ping(context.Background()))
	_, err := cl.AudioFeatures(context.Background(), []string{"spotify:track:t1"})
	require.NoError(t, err)

	// Both requests share one cached token.
	assert.Equal(t, 1, mock.TokenRequests())
}

func TestTokenRefreshOnExpiry(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()
	mock.SetTokenTTL(1) // expires inside the refresh slack window

	cl := newTestClient(t, mock)
	require.NoError(t, cl.Ping(context.Background()))
	require.NoError(t, cl.Ping(context.Background()))
	assert.Equal(t, 2, mock.TokenRequests())
}

func TestUpstreamErrorsOpenBreaker(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()
	mock.FailNext("search", 10, http.StatusInternalServerError, 0)

	cl := New(Options{
		APIBase:           mock.APIBase(),
		TokenURL:          mock.TokenURL(),
		ClientID:          "id",
		ClientSecret:      "secret",
		RequestsPerSecond: 1000,
		BreakerThreshold:  2,
	})

	for i := 0; i < 2; i++ {
		err := cl.Ping(context.Background())
		assert.ErrorIs(t, err, ErrUpstream)
	}
	assert.Equal(t, StateOpen, cl.BreakerState())

	err := cl.Ping(context.Background())
	assert.ErrorIs(t, err, ErrCircuitOpen)
}
