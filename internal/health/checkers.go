// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/mpd"
)

// DataDirChecker verifies the dataset directory exists and contains
// slice files.
type DataDirChecker struct {
	dir string
}

// NewDataDirChecker creates a checker for the dataset directory.
func NewDataDirChecker(dir string) *DataDirChecker {
	return &DataDirChecker{dir: dir}
}

func (c *DataDirChecker) Name() string { return "data_dir" }

func (c *DataDirChecker) Check(context.Context) CheckResult {
	info, err := os.Stat(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{Status: StatusUnhealthy, Error: "directory not found", Message: c.dir}
		}
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if !info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "not a directory", Message: c.dir}
	}

	slices, err := mpd.DiscoverSlices(c.dir, 0)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if len(slices) == 0 {
		return CheckResult{Status: StatusDegraded, Message: "no slice files found"}
	}
	return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf("%d slice files", len(slices))}
}

// Pinger is anything that can verify upstream connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SpotifyChecker verifies the Spotify API is reachable with the
// configured credentials. A nil client reports degraded, not
// unhealthy: extraction still works without it.
type SpotifyChecker struct {
	client  Pinger
	timeout time.Duration
}

// NewSpotifyChecker creates a checker for Spotify API connectivity.
func NewSpotifyChecker(client Pinger) *SpotifyChecker {
	return &SpotifyChecker{client: client, timeout: 5 * time.Second}
}

func (c *SpotifyChecker) Name() string { return "spotify_api" }

func (c *SpotifyChecker) Check(ctx context.Context) CheckResult {
	if c.client == nil {
		return CheckResult{Status: StatusDegraded, Message: "no credentials configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: "ping failed"}
	}
	return CheckResult{Status: StatusHealthy, Message: "authenticated"}
}

// CatalogChecker verifies the catalog database answers queries.
type CatalogChecker struct {
	ping func(ctx context.Context) error
}

// NewCatalogChecker creates a checker around a database ping func.
func NewCatalogChecker(ping func(ctx context.Context) error) *CatalogChecker {
	return &CatalogChecker{ping: ping}
}

func (c *CatalogChecker) Name() string { return "catalog_db" }

func (c *CatalogChecker) Check(ctx context.Context) CheckResult {
	if c.ping == nil {
		return CheckResult{Status: StatusDegraded, Message: "not configured"}
	}
	if err := c.ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// LastRunChecker reports on the most recent enrichment run.
type LastRunChecker struct {
	getLastRun func() (time.Time, string)
	maxAge     time.Duration
}

// NewLastRunChecker creates a checker for the last enrichment run.
// getLastRun returns the finish time of the last run (zero if none
// yet) and its error message (empty on success).
func NewLastRunChecker(getLastRun func() (time.Time, string)) *LastRunChecker {
	return &LastRunChecker{getLastRun: getLastRun, maxAge: 24 * time.Hour}
}

func (c *LastRunChecker) Name() string { return "last_enrich_run" }

func (c *LastRunChecker) Check(context.Context) CheckResult {
	lastRun, lastError := c.getLastRun()

	if lastRun.IsZero() {
		return CheckResult{Status: StatusDegraded, Message: "no enrichment run yet"}
	}
	if lastError != "" {
		return CheckResult{Status: StatusUnhealthy, Error: lastError, Message: "last run failed"}
	}
	if age := time.Since(lastRun); age > c.maxAge {
		return CheckResult{Status: StatusDegraded, Message: fmt.Sprintf("last successful run %s ago", age.Round(time.Minute))}
	}
	return CheckResult{Status: StatusHealthy, Message: "last run successful"}
}
