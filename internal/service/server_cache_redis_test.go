package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisClientForTest(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})
	return server, client
}

func TestRedisGameServerCacheSetGetExpireInvalidate(t *testing.T) {
	ctx := context.Background()
	server, client := newRedisClientForTest(t)
	cache := NewRedisGameServerCache(client, "gs_test")

	key := "title:" + testTitleID + ":prod"
	record := testGameServer(testTitleID, "prod")

	got, hit, err := cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("initial get: %v", err)
	}
	if hit || got != nil {
		t.Fatal("expected initial miss")
	}

	if err := cache.Set(ctx, key, &record, 2*time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, hit, err = cache.Get(ctx, key)
	if err != nil {
		t.Fatalf("get after set: %v", err)
	}
	if !hit {
		t.Fatal("expected hit after set")
	}
	if got.ClientID != record.ClientID || got.AESKey != record.AESKey {
		t.Fatalf("record did not survive the round trip: %+v", got)
	}
	if len(got.TitleIDs) != 1 || got.TitleIDs[0] != testTitleID {
		t.Fatalf("title list did not survive the round trip: %v", got.TitleIDs)
	}

	server.FastForward(3 * time.Second)
	if _, hit, err = cache.Get(ctx, key); err != nil || hit {
		t.Fatalf("expected miss after ttl expiry, hit=%v err=%v", hit, err)
	}

	if err := cache.Set(ctx, key, &record, time.Minute); err != nil {
		t.Fatalf("set again: %v", err)
	}
	if err := cache.Invalidate(ctx, key); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, hit, err = cache.Get(ctx, key); err != nil || hit {
		t.Fatalf("expected miss after invalidate, hit=%v err=%v", hit, err)
	}
}

func TestRedisGameServerCacheNilClient(t *testing.T) {
	ctx := context.Background()
	cache := NewRedisGameServerCache(nil, "")
	record := testGameServer(testTitleID, "prod")

	if err := cache.Set(ctx, "k", &record, time.Minute); err != nil {
		t.Fatalf("set with nil client: %v", err)
	}
	if _, hit, err := cache.Get(ctx, "k"); err != nil || hit {
		t.Fatalf("get with nil client must miss, hit=%v err=%v", hit, err)
	}
}
