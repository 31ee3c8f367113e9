package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/retendo/account/internal/domain"
	"github.com/retendo/account/internal/repository"
)

// GameServerCache is a read-through cache for game server records. Server
// records change out of band (re-keying, maintenance toggles), so entries
// carry a short TTL and the directory exposes explicit invalidation.
type GameServerCache interface {
	Get(ctx context.Context, key string) (*domain.GameServer, bool, error)
	Set(ctx context.Context, key string, server *domain.GameServer, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type NoopGameServerCache struct{}

func NewNoopGameServerCache() *NoopGameServerCache { return &NoopGameServerCache{} }

func (c *NoopGameServerCache) Get(context.Context, string) (*domain.GameServer, bool, error) {
	return nil, false, nil
}

func (c *NoopGameServerCache) Set(context.Context, string, *domain.GameServer, time.Duration) error {
	return nil
}

func (c *NoopGameServerCache) Invalidate(context.Context, string) error { return nil }

type inMemoryCacheEntry struct {
	server    domain.GameServer
	expiresAt time.Time
}

type InMemoryGameServerCache struct {
	mu    sync.RWMutex
	store map[string]inMemoryCacheEntry
}

func NewInMemoryGameServerCache() *InMemoryGameServerCache {
	return &InMemoryGameServerCache{store: make(map[string]inMemoryCacheEntry)}
}

func (c *InMemoryGameServerCache) Get(_ context.Context, key string) (*domain.GameServer, bool, error) {
	c.mu.RLock()
	entry, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.store, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	server := entry.server
	return &server, true, nil
}

func (c *InMemoryGameServerCache) Set(_ context.Context, key string, server *domain.GameServer, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = inMemoryCacheEntry{server: *server, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *InMemoryGameServerCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

const gameServerCacheTTL = time.Minute

// GameServerDirectory resolves game server records through the cache. Cache
// failures degrade to a direct repository read rather than failing the
// request.
type GameServerDirectory struct {
	servers repository.GameServerRepository
	cache   GameServerCache
	ttl     time.Duration
}

func NewGameServerDirectory(servers repository.GameServerRepository, cache GameServerCache) *GameServerDirectory {
	if cache == nil {
		cache = NewNoopGameServerCache()
	}
	return &GameServerDirectory{servers: servers, cache: cache, ttl: gameServerCacheTTL}
}

func (d *GameServerDirectory) ByTitleID(ctx context.Context, titleID, accessMode string) (*domain.GameServer, error) {
	return d.lookup(ctx, fmt.Sprintf("title:%s:%s", titleID, accessMode), func() (*domain.GameServer, error) {
		return d.servers.FindByTitleID(titleID, accessMode)
	})
}

func (d *GameServerDirectory) ByClientID(ctx context.Context, clientID, accessMode string) (*domain.GameServer, error) {
	return d.lookup(ctx, fmt.Sprintf("client:%s:%s", clientID, accessMode), func() (*domain.GameServer, error) {
		return d.servers.FindByClientID(clientID, accessMode)
	})
}

func (d *GameServerDirectory) ByGameServerID(ctx context.Context, gameServerID, accessMode string) (*domain.GameServer, error) {
	return d.lookup(ctx, fmt.Sprintf("gsid:%s:%s", gameServerID, accessMode), func() (*domain.GameServer, error) {
		return d.servers.FindByGameServerID(gameServerID, accessMode)
	})
}

// InvalidateTitle drops a cached title binding, e.g. after a server record
// is re-keyed or its maintenance flag flips.
func (d *GameServerDirectory) InvalidateTitle(ctx context.Context, titleID, accessMode string) error {
	return d.cache.Invalidate(ctx, fmt.Sprintf("title:%s:%s", titleID, accessMode))
}

func (d *GameServerDirectory) lookup(ctx context.Context, key string, fetch func() (*domain.GameServer, error)) (*domain.GameServer, error) {
	if server, ok, err := d.cache.Get(ctx, key); err == nil && ok {
		return server, nil
	}
	server, err := fetch()
	if err != nil {
		return nil, err
	}
	_ = d.cache.Set(ctx, key, server, d.ttl)
	return server, nil
}
