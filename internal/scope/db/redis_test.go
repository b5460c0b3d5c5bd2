package db

import (
	"context"
	"os"
	"testing"
)

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("requires a running Redis server (set TEST_REDIS_ADDR)")
	}

	store := NewRedisStore(addr)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	_ = store.rdb.Del(ctx, redisKey("metropolis"), redisKey("atlantis"), indexMarker).Err()
	storeContract(t, store)
}

func TestRedisStoreUnreachable(t *testing.T) {
	store := NewRedisStore("127.0.0.1:1")
	defer func() { _ = store.Close() }()

	if err := store.Ping(context.Background()); err == nil {
		t.Error("expected ping to fail against an unreachable server")
	}
}
