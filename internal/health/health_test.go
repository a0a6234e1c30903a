// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/config"
)

type stubChecker struct {
	name   string
	result CheckResult
}

func (c stubChecker) Name() string                      { return c.name }
func (c stubChecker) Check(context.Context) CheckResult { return c.result }

func TestHealthAlwaysHealthyWithoutVerbose(t *testing.T) {
	m := NewManager("1.0.0", false)
	m.RegisterChecker(stubChecker{name: "broken", result: CheckResult{Status: StatusUnhealthy}})

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "1.0.0", resp.Version)
	assert.Nil(t, resp.Checks)
}

func TestHealthVerboseAggregates(t *testing.T) {
	m := NewManager("1.0.0", false)
	m.RegisterChecker(stubChecker{name: "ok", result: CheckResult{Status: StatusHealthy}})
	m.RegisterChecker(stubChecker{name: "slow", result: CheckResult{Status: StatusDegraded}})

	resp := m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
}

func TestReadyStates(t *testing.T) {
	tests := []struct {
		name      string
		strict    bool
		results   []Status
		wantReady bool
		wantState Status
	}{
		{"all healthy", false, []Status{StatusHealthy, StatusHealthy}, true, StatusHealthy},
		{"degraded lenient", false, []Status{StatusHealthy, StatusDegraded}, true, StatusDegraded},
		{"degraded strict", true, []Status{StatusHealthy, StatusDegraded}, false, StatusDegraded},
		{"unhealthy", false, []Status{StatusUnhealthy}, false, StatusUnhealthy},
		{"no checkers", false, nil, true, StatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("test", tt.strict)
			for i, s := range tt.results {
				m.RegisterChecker(stubChecker{name: string(rune('a' + i)), result: CheckResult{Status: s}})
			}

			resp := m.Ready(context.Background())
			assert.Equal(t, tt.wantReady, resp.Ready)
			assert.Equal(t, tt.wantState, resp.Status)
		})
	}
}

func TestServeReadyStatusCodes(t *testing.T) {
	m := NewManager("test", false)
	m.RegisterChecker(stubChecker{name: "db", result: CheckResult{Status: StatusUnhealthy, Error: "closed"}})

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Ready)
	assert.Equal(t, "closed", resp.Checks["db"].Error)
}

func TestServeHealthVerbose(t *testing.T) {
	m := NewManager("2.1.0", false)
	m.RegisterChecker(stubChecker{name: "ok", result: CheckResult{Status: StatusHealthy}})

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2.1.0", resp.Version)
	assert.Len(t, resp.Checks, 1)
}

func TestDataDirChecker(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		c := NewDataDirChecker(filepath.Join(t.TempDir(), "nope"))
		assert.Equal(t, StatusUnhealthy, c.Check(context.Background()).Status)
	})

	t.Run("empty", func(t *testing.T) {
		c := NewDataDirChecker(t.TempDir())
		result := c.Check(context.Background())
		assert.Equal(t, StatusDegraded, result.Status)
		assert.Equal(t, "no slice files found", result.Message)
	})

	t.Run("with slices", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "mpd.slice.0-999.json"), []byte(`{}`), 0o644))
		result := NewDataDirChecker(dir).Check(context.Background())
		assert.Equal(t, StatusHealthy, result.Status)
		assert.Equal(t, "1 slice files", result.Message)
	})
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestSpotifyChecker(t *testing.T) {
	t.Run("nil client degraded", func(t *testing.T) {
		result := NewSpotifyChecker(nil).Check(context.Background())
		assert.Equal(t, StatusDegraded, result.Status)
	})

	t.Run("ping ok", func(t *testing.T) {
		result := NewSpotifyChecker(stubPinger{}).Check(context.Background())
		assert.Equal(t, StatusHealthy, result.Status)
	})

	t.Run("ping fails", func(t *testing.T) {
		result := NewSpotifyChecker(stubPinger{err: errors.New("401")}).Check(context.Background())
		assert.Equal(t, StatusUnhealthy, result.Status)
		assert.Equal(t, "401", result.Error)
	})
}

func TestLastRunChecker(t *testing.T) {
	t.Run("never ran", func(t *testing.T) {
		c := NewLastRunChecker(func() (time.Time, string) { return time.Time{}, "" })
		assert.Equal(t, StatusDegraded, c.Check(context.Background()).Status)
	})

	t.Run("last run failed", func(t *testing.T) {
		c := NewLastRunChecker(func() (time.Time, string) { return time.Now(), "extract tracks: boom" })
		result := c.Check(context.Background())
		assert.Equal(t, StatusUnhealthy, result.Status)
	})

	t.Run("recent success", func(t *testing.T) {
		c := NewLastRunChecker(func() (time.Time, string) { return time.Now().Add(-time.Hour), "" })
		assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)
	})

	t.Run("stale success", func(t *testing.T) {
		c := NewLastRunChecker(func() (time.Time, string) { return time.Now().Add(-25 * time.Hour), "" })
		assert.Equal(t, StatusDegraded, c.Check(context.Background()).Status)
	})
}

func TestPerformStartupChecks(t *testing.T) {
	base := config.AppConfig{
		DataDir:    t.TempDir(),
		InterimDir: filepath.Join(t.TempDir(), "interim"),
		ListenAddr: ":8080",
	}

	t.Run("ok and creates interim dir", func(t *testing.T) {
		cfg := base
		require.NoError(t, PerformStartupChecks(cfg))
		assert.DirExists(t, cfg.InterimDir)
	})

	t.Run("missing data dir", func(t *testing.T) {
		cfg := base
		cfg.DataDir = filepath.Join(cfg.DataDir, "missing")
		assert.Error(t, PerformStartupChecks(cfg))
	})

	t.Run("bad listen addr", func(t *testing.T) {
		cfg := base
		cfg.ListenAddr = "no-port"
		assert.Error(t, PerformStartupChecks(cfg))
	})

	t.Run("bad metrics addr", func(t *testing.T) {
		cfg := base
		cfg.MetricsEnabled = true
		cfg.MetricsAddr = "host:99999"
		assert.Error(t, PerformStartupChecks(cfg))
	})
}
