// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/spotify"
)

// redisKeyPrefix namespaces feature entries in a shared Redis.
const redisKeyPrefix = "mpd:features:"

// RedisCache is a Redis-backed FeatureCache, useful when several
// enrichment runs (or hosts) should share one memo.
type RedisCache struct {
	client *redis.Client
	logger zerolog.Logger
	stats  struct {
		hits   atomic.Int64
		misses atomic.Int64
		sets   atomic.Int64
	}
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(config RedisConfig, logger zerolog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", config.Addr).
		Int("db", config.DB).
		Msg("connected to Redis feature cache")

	return &RedisCache{client: client, logger: logger}, nil
}

func (c *RedisCache) Get(trackURI string) (*spotify.AudioFeatures, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	val, err := c.client.Get(ctx, redisKeyPrefix+trackURI).Bytes()
	if err == redis.Nil {
		c.stats.misses.Add(1)
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("track_uri", trackURI).Msg("redis get failed")
		c.stats.misses.Add(1)
		return nil, false
	}

	var features spotify.AudioFeatures
	if err := json.Unmarshal(val, &features); err != nil {
		c.logger.Warn().Err(err).Str("track_uri", trackURI).Msg("corrupt cache entry, dropping")
		c.Delete(trackURI)
		c.stats.misses.Add(1)
		return nil, false
	}

	c.stats.hits.Add(1)
	return &features, true
}

func (c *RedisCache) Set(trackURI string, features *spotify.AudioFeatures, ttl time.Duration) {
	if features == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := json.Marshal(features)
	if err != nil {
		c.logger.Warn().Err(err).Str("track_uri", trackURI).Msg("marshal features failed")
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+trackURI, data, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("track_uri", trackURI).Msg("redis set failed")
		return
	}
	c.stats.sets.Add(1)
}

func (c *RedisCache) Delete(trackURI string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.client.Del(ctx, redisKeyPrefix+trackURI).Err(); err != nil {
		c.logger.Warn().Err(err).Str("track_uri", trackURI).Msg("redis delete failed")
	}
}

func (c *RedisCache) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warn().Err(err).Str("key", iter.Val()).Msg("redis delete failed")
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn().Err(err).Msg("redis scan failed during clear")
	}
}

func (c *RedisCache) Stats() Stats {
	stats := Stats{
		Hits:   c.stats.hits.Load(),
		Misses: c.stats.misses.Load(),
		Sets:   c.stats.sets.Load(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, redisKeyPrefix+"*", 1000).Result()
		if err != nil {
			break
		}
		stats.CurrentSize += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return stats
}

// Close releases the underlying Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
