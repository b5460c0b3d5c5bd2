package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// indexMarker records that the key space was provisioned
const indexMarker = IndexName + ":__index"

// RedisStore keeps each record as a JSON string under "cities:<key>"
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a Redis client. The connection is verified by
// EnsureIndex and Ping, not here.
func NewRedisStore(addr string) *RedisStore {
	return &RedisStore{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func redisKey(key string) string {
	return IndexName + ":" + key
}

// EnsureIndex sets the index marker if absent. Redis has no schema, so this
// only proves the server is reachable and writable.
func (s *RedisStore) EnsureIndex(ctx context.Context) error {
	if err := s.rdb.SetNX(ctx, indexMarker, "1", 0).Err(); err != nil {
		return fmt.Errorf("failed to provision %s: %w", IndexName, err)
	}
	return nil
}

// Upsert overwrites the value stored for the record's key
func (s *RedisStore) Upsert(ctx context.Context, rec Record) error {
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	if err := s.rdb.Set(ctx, redisKey(Key(rec.City)), doc, 0).Err(); err != nil {
		return fmt.Errorf("failed to upsert %q: %w", Key(rec.City), err)
	}
	return nil
}

// Get reads the value stored for key
func (s *RedisStore) Get(ctx context.Context, key string) (Record, error) {
	doc, err := s.rdb.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to get %q: %w", key, err)
	}

	var rec Record
	if err := json.Unmarshal(doc, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return rec, nil
}

// Ping sends a PING to Redis
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the underlying Redis connection
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
