package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// This file implements the cache-aside layer between the weather store and
// the upstream API. Current weather and forecasts are cached per rounded
// coordinate pair so repeated dashboard loads do not re-hit the upstream
// service. A cache failure is never fatal: it is logged and the store
// falls through to the API.

const currentWeatherCacheTTL = 10 * time.Minute
const forecastCacheTTL = 55 * time.Minute

type Cache interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Flush(ctx context.Context) error
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client: client,
	}
}

func (c *RedisCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	p, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, p, expiration).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

func (c *RedisCache) Flush(ctx context.Context) error {
	return c.client.FlushDB(ctx).Err()
}

// weatherCacheKey buckets coordinates to two decimal places (roughly a
// kilometre) so nearby fixes share an entry.
func weatherCacheKey(prefix string, coords Coordinates) string {
	return fmt.Sprintf("%s:%.2f:%.2f", prefix, coords.Latitude, coords.Longitude)
}

// cachedSnapshot returns the cached WeatherSnapshot for the coordinates,
// or false on a miss. Unmarshal failures count as misses.
func (cfg *apiConfig) cachedSnapshot(ctx context.Context, coords Coordinates) (WeatherSnapshot, bool) {
	var snap WeatherSnapshot
	ok := cfg.cacheLookup(ctx, weatherCacheKey("currentweather", coords), &snap)
	return snap, ok
}

// cachedForecast returns the cached ForecastSnapshot for the coordinates,
// or false on a miss.
func (cfg *apiConfig) cachedForecast(ctx context.Context, coords Coordinates) (ForecastSnapshot, bool) {
	var fc ForecastSnapshot
	ok := cfg.cacheLookup(ctx, weatherCacheKey("forecast", coords), &fc)
	return fc, ok
}

func (cfg *apiConfig) cacheLookup(ctx context.Context, key string, dest any) bool {
	if cfg.cache == nil {
		return false
	}
	data, err := cfg.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			cfg.logger.Warn("error getting from cache", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		cfg.logger.Warn("invalid cache entry", "key", key, "error", err)
		return false
	}
	cfg.logger.Debug("cache hit", "key", key)
	return true
}

func (cfg *apiConfig) storeSnapshotInCache(ctx context.Context, snap WeatherSnapshot) {
	if cfg.cache == nil {
		return
	}
	key := weatherCacheKey("currentweather", snap.Coords)
	if err := cfg.cache.Set(ctx, key, snap, currentWeatherCacheTTL); err != nil {
		cfg.logger.Warn("error setting to cache", "key", key, "error", err)
	}
}

func (cfg *apiConfig) storeForecastInCache(ctx context.Context, coords Coordinates, fc ForecastSnapshot) {
	if cfg.cache == nil {
		return
	}
	key := weatherCacheKey("forecast", coords)
	if err := cfg.cache.Set(ctx, key, fc, forecastCacheTTL); err != nil {
		cfg.logger.Warn("error setting to cache", "key", key, "error", err)
	}
}
