package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// tokenExpirySlack refreshes tokens slightly before the server-side
// expiry to avoid racing a 401 on in-flight requests.
const tokenExpirySlack = 30 * time.Second

// tokenSource implements the client-credentials flow against the
// Spotify accounts service and caches the bearer token until expiry.
type tokenSource struct {
	tokenURL     string
	clientID     string
	clientSecret string
	http         *http.Client
	now          func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func newTokenSource(tokenURL, clientID, clientSecret string, httpClient *http.Client) *tokenSource {
	return &tokenSource{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		http:         httpClient,
		now:          time.Now,
	}
}

// Token returns a valid bearer token, refreshing it when needed.
func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && ts.now().Before(ts.expiry.Add(-tokenExpirySlack)) {
		return ts.token, nil
	}
	return ts.refreshLocked(ctx)
}

// Invalidate drops the cached token so the next call refreshes.
func (ts *tokenSource) Invalidate() {
	ts.mu.Lock()
	ts.token = ""
	ts.mu.Unlock()
}

func (ts *tokenSource) refreshLocked(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(ts.clientID, ts.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := ts.http.Do(req)
	if err != nil {
		return "", &APIError{Sentinel: ErrUnavailable, Operation: "token", Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return "", &APIError{
			Sentinel:  sentinelForStatus(res.StatusCode),
			Operation: "token",
			Status:    res.StatusCode,
		}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", &APIError{Sentinel: ErrBadResponse, Operation: "token", Err: err}
	}
	if payload.AccessToken == "" {
		return "", &APIError{Sentinel: ErrBadResponse, Operation: "token", Body: "empty access_token"}
	}

	ts.token = payload.AccessToken
	ts.expiry = ts.now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return ts.token, nil
}
