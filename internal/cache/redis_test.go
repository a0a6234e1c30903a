// SPDX-License-Identifier: MIT

package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/log"
)

func newRedisTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(RedisConfig{Addr: mr.Addr()}, log.WithComponent("cache-test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	c, _ := newRedisTestCache(t)

	_, ok := c.Get("spotify:track:t1")
	assert.False(t, ok)

	c.Set("spotify:track:t1", testFeatures("spotify:track:t1"), time.Minute)
	got, ok := c.Get("spotify:track:t1")
	require.True(t, ok)
	assert.Equal(t, "spotify:track:t1", got.URI)
	assert.Equal(t, 5, got.Key)
}

func TestRedisCacheTTL(t *testing.T) {
	c, mr := newRedisTestCache(t)

	c.Set("spotify:track:t1", testFeatures("spotify:track:t1"), time.Minute)

	// miniredis advances TTLs manually.
	mr.FastForward(2 * time.Minute)

	_, ok := c.Get("spotify:track:t1")
	assert.False(t, ok)
}

func TestRedisCacheNilFeaturesIgnored(t *testing.T) {
	c, _ := newRedisTestCache(t)

	c.Set("spotify:track:t1", nil, time.Minute)
	_, ok := c.Get("spotify:track:t1")
	assert.False(t, ok)
	assert.Equal(t, int64(0), c.Stats().Sets)
}

func TestRedisCacheCorruptEntryDropped(t *testing.T) {
	c, mr := newRedisTestCache(t)

	require.NoError(t, mr.Set(redisKeyPrefix+"spotify:track:bad", "{not json"))

	_, ok := c.Get("spotify:track:bad")
	assert.False(t, ok)
	assert.False(t, mr.Exists(redisKeyPrefix+"spotify:track:bad"))
}

func TestRedisCacheClearOnlyTouchesPrefix(t *testing.T) {
	c, mr := newRedisTestCache(t)

	c.Set("spotify:track:t1", testFeatures("spotify:track:t1"), time.Minute)
	require.NoError(t, mr.Set("other:key", "keep"))

	c.Clear()

	assert.False(t, mr.Exists(redisKeyPrefix+"spotify:track:t1"))
	assert.True(t, mr.Exists("other:key"))
}
