// Package redis caches character lookup results in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/guildbot/internal/model"
	"github.com/mcoot/guildbot/internal/storage"
)

// Cache is a Redis-backed store of remote character profiles. Both hits and
// "not found" answers are cached, each with its own TTL.
type Cache struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis cache
func New(cfg Config) (*Cache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Cache{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis cache with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Cache {
	return &Cache{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks the Redis connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// GetProfile returns the cached profile. It returns model.ErrCharacterNotFound
// when a miss was recorded, and storage.ErrCacheMiss when nothing is known.
func (c *Cache) GetProfile(ctx context.Context, region, server, name string) (*model.CharacterProfile, error) {
	data, err := c.client.Get(ctx, profileKey(region, server, name)).Bytes()
	if err == nil {
		var profile model.CharacterProfile
		if err := json.Unmarshal(data, &profile); err != nil {
			return nil, err
		}
		return &profile, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, err
	}

	n, err := c.client.Exists(ctx, missKey(region, server, name)).Result()
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, model.ErrCharacterNotFound
	}
	return nil, storage.ErrCacheMiss
}

// SetProfile caches a profile and clears any recorded miss for the same key
func (c *Cache) SetProfile(ctx context.Context, region, server, name string, profile *model.CharacterProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, profileKey(region, server, name), data, c.cfg.ProfileTTL)
	pipe.Del(ctx, missKey(region, server, name))
	_, err = pipe.Exec(ctx)
	return err
}

// SetNotFound records that the lookup service has no such character
func (c *Cache) SetNotFound(ctx context.Context, region, server, name string) error {
	return c.client.Set(ctx, missKey(region, server, name), "1", c.cfg.NotFoundTTL).Err()
}

// Forget drops both entries for a key
func (c *Cache) Forget(ctx context.Context, region, server, name string) error {
	return c.client.Del(ctx, profileKey(region, server, name), missKey(region, server, name)).Err()
}
