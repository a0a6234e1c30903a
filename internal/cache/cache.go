// SPDX-License-Identifier: MIT

// Package cache memoizes collected audio features so repeated
// enrichment runs only hit the Spotify API for unseen tracks.
package cache

import (
	"sync"
	"time"

	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/spotify"
)

// FeatureCache stores audio features keyed by track URI with a TTL.
type FeatureCache interface {
	// Get retrieves cached features. Returns false if absent or expired.
	Get(trackURI string) (*spotify.AudioFeatures, bool)
	// Set stores features with the specified TTL.
	Set(trackURI string, features *spotify.AudioFeatures, ttl time.Duration)
	// Delete removes one entry.
	Delete(trackURI string)
	// Clear removes everything.
	Clear()
	// Stats returns cache statistics.
	Stats() Stats
}

// Stats holds cache performance counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Sets        int64
	Evictions   int64
	CurrentSize int
}

type entry struct {
	features   *spotify.AudioFeatures
	expiration time.Time
}

func (e *entry) isExpired() bool {
	return time.Now().After(e.expiration)
}

// memoryCache is the in-process FeatureCache implementation.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	stats   Stats
	janitor *janitor
}

// NewMemoryCache creates an in-memory cache with periodic cleanup of
// expired entries. cleanupInterval <= 0 disables the janitor.
func NewMemoryCache(cleanupInterval time.Duration) FeatureCache {
	c := &memoryCache{
		entries: make(map[string]*entry),
	}
	if cleanupInterval > 0 {
		c.janitor = &janitor{
			interval: cleanupInterval,
			stop:     make(chan struct{}),
		}
		go c.janitor.run(c)
	}
	return c
}

func (c *memoryCache) Get(trackURI string) (*spotify.AudioFeatures, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[trackURI]
	if !found || e.isExpired() {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return e.features, true
}

func (c *memoryCache) Set(trackURI string, features *spotify.AudioFeatures, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[trackURI] = &entry{
		features:   features,
		expiration: time.Now().Add(ttl),
	}
	c.stats.Sets++
}

func (c *memoryCache) Delete(trackURI string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, trackURI)
}

func (c *memoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

func (c *memoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.CurrentSize = len(c.entries)
	return stats
}

func (c *memoryCache) deleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key, e := range c.entries {
		if e.isExpired() {
			delete(c.entries, key)
			count++
		}
	}
	c.stats.Evictions += int64(count)
	return count
}

// Stop stops the background cleanup goroutine.
func (c *memoryCache) Stop() {
	if c.janitor != nil {
		c.janitor.stop <- struct{}{}
	}
}

// janitor performs periodic cleanup of expired entries.
type janitor struct {
	interval time.Duration
	stop     chan struct{}
}

func (j *janitor) run(c *memoryCache) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-j.stop:
			return
		}
	}
}
