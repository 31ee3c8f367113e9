package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/retendo/account/internal/domain"
)

type RedisGameServerCache struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisGameServerCache(client redis.UniversalClient, prefix string) *RedisGameServerCache {
	if prefix == "" {
		prefix = "game_server_cache"
	}
	return &RedisGameServerCache{client: client, prefix: prefix}
}

func (c *RedisGameServerCache) Get(ctx context.Context, key string) (*domain.GameServer, bool, error) {
	if c.client == nil {
		return nil, false, nil
	}
	raw, err := c.client.Get(ctx, c.dataKey(key)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var server domain.GameServer
	if err := json.Unmarshal([]byte(raw), &server); err != nil {
		return nil, false, err
	}
	return &server, true, nil
}

func (c *RedisGameServerCache) Set(ctx context.Context, key string, server *domain.GameServer, ttl time.Duration) error {
	if c.client == nil || ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(server)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.dataKey(key), raw, ttl).Err()
}

func (c *RedisGameServerCache) Invalidate(ctx context.Context, key string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.dataKey(key)).Err()
}

func (c *RedisGameServerCache) dataKey(key string) string {
	return fmt.Sprintf("%s:%s", c.prefix, key)
}
