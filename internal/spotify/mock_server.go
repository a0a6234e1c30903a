package spotify

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// MockServer provides a configurable fake of the Spotify accounts and
// Web API services for testing.
type MockServer struct {
	*httptest.Server
	mu sync.RWMutex

	accessToken   string
	tokenTTL      int
	tokenRequests int
	rejectAuth    bool

	features map[string]*AudioFeatures // track ID -> features, absent means null entry
	tracks   map[string]TrackInfo

	failNext   map[string]int // endpoint path prefix -> remaining failures
	retryAfter int            // seconds, used with failNext 429s
	failStatus int
}

// NewMockServer starts a mock with sensible default data.
func NewMockServer() *MockServer {
	m := &MockServer{
		accessToken: "mock-token",
		tokenTTL:    3600,
		features:    make(map[string]*AudioFeatures),
		tracks:      make(map[string]TrackInfo),
		failNext:    make(map[string]int),
		failStatus:  http.StatusInternalServerError,
	}
	m.SetDefaultData()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", m.handleToken)
	mux.HandleFunc("/v1/audio-features", m.handleAudioFeatures)
	mux.HandleFunc("/v1/search", m.handleSearch)
	mux.HandleFunc("/v1/tracks/", m.handleTrack)

	m.Server = httptest.NewServer(mux)
	return m
}

// APIBase returns the base URL for Client Options.
func (m *MockServer) APIBase() string { return m.URL + "/v1" }

// TokenURL returns the token endpoint URL for Client Options.
func (m *MockServer) TokenURL() string { return m.URL + "/api/token" }

// SetDefaultData installs a small track and feature fixture set.
func (m *MockServer) SetDefaultData() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.features["t1"] = &AudioFeatures{
		ID: "t1", URI: "spotify:track:t1",
		Acousticness: 0.12, Danceability: 0.81, Energy: 0.73,
		Instrumentalness: 0.002, Liveness: 0.11, Loudness: -5.2,
		Speechiness: 0.05, Tempo: 120.1, Valence: 0.64,
		Key: 5, Mode: 1, TimeSignature: 4,
	}
	m.features["t2"] = &AudioFeatures{
		ID: "t2", URI: "spotify:track:t2",
		Acousticness: 0.78, Danceability: 0.35, Energy: 0.22,
		Instrumentalness: 0.91, Liveness: 0.09, Loudness: -14.8,
		Speechiness: 0.03, Tempo: 78.5, Valence: 0.18,
		Key: 2, Mode: 0, TimeSignature: 3,
	}
	m.tracks["t1"] = TrackInfo{
		ID: "t1", URI: "spotify:track:t1", Name: "One",
		ArtistName: "Artist A", AlbumName: "Album A", DurationMS: 201_000,
	}
}

// RejectAuth makes the token endpoint return 401.
func (m *MockServer) RejectAuth(reject bool) {
	m.mu.Lock()
	m.rejectAuth = reject
	m.mu.Unlock()
}

// FailNext makes the next n requests to the given endpoint prefix fail
// with status (e.g. 429 or 500). retryAfter only applies to 429.
func (m *MockServer) FailNext(endpoint string, n, status, retryAfter int) {
	m.mu.Lock()
	m.failNext[endpoint] = n
	m.failStatus = status
	m.retryAfter = retryAfter
	m.mu.Unlock()
}

// TokenRequests reports how many times the token endpoint was hit.
func (m *MockServer) TokenRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokenRequests
}

// SetTokenTTL controls the expires_in of issued tokens.
func (m *MockServer) SetTokenTTL(seconds int) {
	m.mu.Lock()
	m.tokenTTL = seconds
	m.mu.Unlock()
}

func (m *MockServer) handleToken(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.tokenRequests++
	reject := m.rejectAuth
	ttl := m.tokenTTL
	m.mu.Unlock()

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, _, ok := r.BasicAuth(); !ok || reject {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": m.accessToken,
		"token_type":   "Bearer",
		"expires_in":   ttl,
	})
}

// shouldFail consumes one scheduled failure for the endpoint.
func (m *MockServer) shouldFail(w http.ResponseWriter, endpoint string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext[endpoint] <= 0 {
		return false
	}
	m.failNext[endpoint]--
	if m.failStatus == http.StatusTooManyRequests && m.retryAfter > 0 {
		w.Header().Set("Retry-After", fmt.Sprint(m.retryAfter))
	}
	w.WriteHeader(m.failStatus)
	return true
}

func (m *MockServer) checkBearer(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer "+m.accessToken {
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	return true
}

func (m *MockServer) handleAudioFeatures(w http.ResponseWriter, r *http.Request) {
	if m.shouldFail(w, "audio-features") {
		return
	}
	if !m.checkBearer(w, r) {
		return
	}

	ids := strings.Split(r.URL.Query().Get("ids"), ",")
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*AudioFeatures, len(ids))
	for i, id := range ids {
		out[i] = m.features[id] // missing ids stay null, as the real API does
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"audio_features": out})
}

func (m *MockServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if m.shouldFail(w, "search") {
		return
	}
	if !m.checkBearer(w, r) {
		return
	}
	_, _ = w.Write([]byte(`{"tracks":{"items":[{"id":"t1","name":"One"}]}}`))
}

func (m *MockServer) handleTrack(w http.ResponseWriter, r *http.Request) {
	if m.shouldFail(w, "tracks") {
		return
	}
	if !m.checkBearer(w, r) {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/tracks/")
	m.mu.RLock()
	info, ok := m.tracks[id]
	m.mu.RUnlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"status":404,"message":"not found"}}`))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":          info.ID,
		"uri":         info.URI,
		"name":        info.Name,
		"duration_ms": info.DurationMS,
		"artists":     []map[string]any{{"name": info.ArtistName}},
		"album":       map[string]any{"name": info.AlbumName},
	})
}
