/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer in front of the
// station store. When Redis is unavailable the cache degrades to a
// no-op so reads fall through to the database.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald/internal/models"
)

// Default TTL values per cache type.
const (
	DefaultStationTTL     = 5 * time.Minute
	DefaultStationListTTL = 5 * time.Minute
	DefaultEntityListTTL  = 30 * time.Minute
)

// Key prefixes for Redis cache.
const (
	KeyStationList = "skald:cache:stations"
	KeyStation     = "skald:cache:station:"   // + station_id
	KeyPlaylists   = "skald:cache:playlists:" // + station_id
	KeyMounts      = "skald:cache:mounts:"    // + station_id
	KeyRemotes     = "skald:cache:remotes:"   // + station_id
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StationTTL     time.Duration
	StationListTTL time.Duration
	EntityListTTL  time.Duration

	// DisableOnError turns the cache off after the first Redis error.
	DisableOnError bool
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		StationTTL:     DefaultStationTTL,
		StationListTTL: DefaultStationListTTL,
		EntityListTTL:  DefaultEntityListTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool
}

// New creates a cache instance. A failed Redis connection is not fatal:
// the cache comes up disabled and every lookup misses.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		return &Cache{
			logger:   logger.With().Str("component", "cache").Logger(),
			config:   cfg,
			disabled: true,
		}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

func (c *Cache) get(ctx context.Context, key string, dest any) bool {
	if !c.IsAvailable() {
		return false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		c.handleError(err, "get")
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}
	return nil
}

func (c *Cache) delete(ctx context.Context, keys ...string) error {
	if !c.IsAvailable() {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.handleError(err, "delete")
		return err
	}
	return nil
}

func stationKey(prefix string, stationID uint) string {
	return fmt.Sprintf("%s%d", prefix, stationID)
}

// GetStation retrieves a cached station record.
func (c *Cache) GetStation(ctx context.Context, stationID uint) (*models.Station, bool) {
	var st models.Station
	if !c.get(ctx, stationKey(KeyStation, stationID), &st) {
		return nil, false
	}
	c.logger.Debug().Uint("station_id", stationID).Msg("station cache hit")
	return &st, true
}

// SetStation caches a station record.
func (c *Cache) SetStation(ctx context.Context, st *models.Station) error {
	return c.set(ctx, stationKey(KeyStation, st.ID), st, c.config.StationTTL)
}

// GetStationList retrieves the cached list of stations.
func (c *Cache) GetStationList(ctx context.Context) ([]models.Station, bool) {
	var stations []models.Station
	if !c.get(ctx, KeyStationList, &stations) {
		return nil, false
	}
	c.logger.Debug().Int("count", len(stations)).Msg("station list cache hit")
	return stations, true
}

// SetStationList caches the list of stations.
func (c *Cache) SetStationList(ctx context.Context, stations []models.Station) error {
	return c.set(ctx, KeyStationList, stations, c.config.StationListTTL)
}

// GetPlaylists retrieves a station's cached playlists.
func (c *Cache) GetPlaylists(ctx context.Context, stationID uint) ([]models.Playlist, bool) {
	var out []models.Playlist
	if !c.get(ctx, stationKey(KeyPlaylists, stationID), &out) {
		return nil, false
	}
	return out, true
}

// SetPlaylists caches a station's playlists.
func (c *Cache) SetPlaylists(ctx context.Context, stationID uint, playlists []models.Playlist) error {
	return c.set(ctx, stationKey(KeyPlaylists, stationID), playlists, c.config.EntityListTTL)
}

// GetMounts retrieves a station's cached mounts.
func (c *Cache) GetMounts(ctx context.Context, stationID uint) ([]models.Mount, bool) {
	var out []models.Mount
	if !c.get(ctx, stationKey(KeyMounts, stationID), &out) {
		return nil, false
	}
	return out, true
}

// SetMounts caches a station's mounts.
func (c *Cache) SetMounts(ctx context.Context, stationID uint, mounts []models.Mount) error {
	return c.set(ctx, stationKey(KeyMounts, stationID), mounts, c.config.EntityListTTL)
}

// GetRemotes retrieves a station's cached relay targets.
func (c *Cache) GetRemotes(ctx context.Context, stationID uint) ([]models.Remote, bool) {
	var out []models.Remote
	if !c.get(ctx, stationKey(KeyRemotes, stationID), &out) {
		return nil, false
	}
	return out, true
}

// SetRemotes caches a station's relay targets.
func (c *Cache) SetRemotes(ctx context.Context, stationID uint, remotes []models.Remote) error {
	return c.set(ctx, stationKey(KeyRemotes, stationID), remotes, c.config.EntityListTTL)
}

// InvalidatePlaylists removes a station's playlist cache.
func (c *Cache) InvalidatePlaylists(ctx context.Context, stationID uint) error {
	return c.delete(ctx, stationKey(KeyPlaylists, stationID))
}

// InvalidateMounts removes a station's mount cache.
func (c *Cache) InvalidateMounts(ctx context.Context, stationID uint) error {
	return c.delete(ctx, stationKey(KeyMounts, stationID))
}

// InvalidateRemotes removes a station's relay cache.
func (c *Cache) InvalidateRemotes(ctx context.Context, stationID uint) error {
	return c.delete(ctx, stationKey(KeyRemotes, stationID))
}

// InvalidateStation removes all caches related to a station.
func (c *Cache) InvalidateStation(ctx context.Context, stationID uint) error {
	c.logger.Debug().Uint("station_id", stationID).Msg("invalidating station caches")
	return c.delete(ctx,
		KeyStationList,
		stationKey(KeyStation, stationID),
		stationKey(KeyPlaylists, stationID),
		stationKey(KeyMounts, stationID),
		stationKey(KeyRemotes, stationID),
	)
}
