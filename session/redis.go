package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps Redis transport failures so callers can
// distinguish backend outage from a plain miss.
var ErrRedisUnavailable = errors.New("session: redis unavailable")

// RedisCache is a Cache backed by Redis, for hosts running multiple
// processes. Entries live under prefix:client:<clientID>:<token> with the
// session timeout as TTL; a per-token index set under prefix:token:<token>
// records which partitions hold the token so cross-partition eviction stays
// cheap.
type RedisCache struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisCache wraps rdb. An empty prefix defaults to "authcore:sess";
// a non-positive ttl defaults to 24h.
func NewRedisCache(rdb redis.UniversalClient, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "authcore:sess"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) entryKey(clientID, token string) string {
	return fmt.Sprintf("%s:client:%s:%s", c.prefix, clientID, token)
}

func (c *RedisCache) indexKey(token string) string {
	return fmt.Sprintf("%s:token:%s", c.prefix, token)
}

func (c *RedisCache) Put(ctx context.Context, clientID, token string, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("session: encode snapshot: %w", err)
	}
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, c.entryKey(clientID, token), payload, c.ttl)
	pipe.SAdd(ctx, c.indexKey(token), clientID)
	pipe.Expire(ctx, c.indexKey(token), c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, clientID, token string) (Snapshot, error) {
	payload, err := c.rdb.Get(ctx, c.entryKey(clientID, token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("session: decode snapshot: %w", err)
	}
	return snap, nil
}

func (c *RedisCache) Delete(ctx context.Context, clientID, token string) error {
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, c.entryKey(clientID, token))
	pipe.SRem(ctx, c.indexKey(token), clientID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (c *RedisCache) DeleteToken(ctx context.Context, token string) error {
	clients, err := c.rdb.SMembers(ctx, c.indexKey(token)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	keys := make([]string, 0, len(clients)+1)
	for _, clientID := range clients {
		keys = append(keys, c.entryKey(clientID, token))
	}
	keys = append(keys, c.indexKey(token))
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (c *RedisCache) UpdateToken(ctx context.Context, token string, snap Snapshot) error {
	clients, err := c.rdb.SMembers(ctx, c.indexKey(token)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(clients) == 0 {
		return nil
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("session: encode snapshot: %w", err)
	}
	pipe := c.rdb.TxPipeline()
	for _, clientID := range clients {
		pipe.Set(ctx, c.entryKey(clientID, token), payload, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
