// Package redis caches user-role lookups.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/digitlabs/pm-sys/internal/platform/config"
)

// RoleCache stores role codes under per-user keys. Every failure is
// treated as a miss; the database remains the source of truth.
type RoleCache struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewRoleCache connects to Redis and verifies the connection.
func NewRoleCache(cfg *config.RedisConfig) (*RoleCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Info().Str("addr", cfg.Address()).Msg("Redis connection established")
	return &RoleCache{client: client, ttl: cfg.RoleCacheTTL}, nil
}

func key(userID int64) string {
	return fmt.Sprintf("perm:role:%d", userID)
}

// Get returns the cached role code for the user.
func (c *RoleCache) Get(ctx context.Context, userID int64) (string, bool) {
	code, err := c.client.Get(ctx, key(userID)).Result()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			log.Warn().Err(err).Int64("user_id", userID).Msg("Role cache read failed")
		}
		return "", false
	}
	return code, true
}

// Set stores the role code for the user.
func (c *RoleCache) Set(ctx context.Context, userID int64, roleCode string) {
	if err := c.client.Set(ctx, key(userID), roleCode, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Role cache write failed")
	}
}

// Invalidate drops the user's cached role.
func (c *RoleCache) Invalidate(ctx context.Context, userID int64) {
	if err := c.client.Del(ctx, key(userID)).Err(); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Role cache invalidation failed")
	}
}

// Health checks the Redis connection.
func (c *RoleCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the Redis client.
func (c *RoleCache) Close() error {
	return c.client.Close()
}
