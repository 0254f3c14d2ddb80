package peers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/rewired-gh/flockcast/internal/logger"
	"github.com/rewired-gh/flockcast/internal/models"
)

const cacheKeyPrefix = "flockcast:peers:"

// ErrCacheMiss is returned by a KV when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// KV is the minimal key-value surface the cache needs.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisKV adapts a go-redis client to KV.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV connects to addr and pings it.
func NewRedisKV(ctx context.Context, addr, password string, db int) (*RedisKV, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisKV{client: client}, nil
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return v, err
}

func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Close releases the underlying connection pool.
func (r *RedisKV) Close() error {
	return r.client.Close()
}

// RedisCache memoises another provider's averages per category.
// Cache failures are logged and fall through to the wrapped provider.
type RedisCache struct {
	next Provider
	kv   KV
	ttl  time.Duration
}

// NewRedisCache wraps next with a cache entry per category living for ttl.
func NewRedisCache(next Provider, kv KV, ttl time.Duration) *RedisCache {
	return &RedisCache{next: next, kv: kv, ttl: ttl}
}

// PeerAverages implements Provider.
func (c *RedisCache) PeerAverages(ctx context.Context, category models.Category) (*models.PeerAverages, error) {
	key := cacheKeyPrefix + string(category)

	raw, err := c.kv.Get(ctx, key)
	switch {
	case err == nil:
		var avg models.PeerAverages
		if jerr := json.Unmarshal([]byte(raw), &avg); jerr == nil {
			return &avg, nil
		}
		logger.Warn("Discarding corrupt peer cache entry %s", key)
	case !errors.Is(err, ErrCacheMiss):
		logger.Warn("Peer cache read failed for %s: %v", category, err)
	}

	avg, err := c.next.PeerAverages(ctx, category)
	if err != nil || avg == nil || avg.SampleSize == 0 {
		return avg, err
	}

	data, err := json.Marshal(avg)
	if err != nil {
		return avg, nil
	}
	if err := c.kv.Set(ctx, key, string(data), c.ttl); err != nil {
		logger.Warn("Peer cache write failed for %s: %v", category, err)
	}
	return avg, nil
}
