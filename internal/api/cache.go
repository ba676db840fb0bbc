package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/ledgerlens/ledgerlens/internal/consolidate"
)

// ViewCache is the small cache surface the consolidated endpoint needs.
type ViewCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ErrCacheMiss signals the key is absent.
var ErrCacheMiss = errors.New("api: cache miss")

// RedisViewCache adapts a redis client to ViewCache.
type RedisViewCache struct {
	Client *redis.Client
}

func (c RedisViewCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return data, err
}

func (c RedisViewCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

// ConsolViewKey is the cache key for one consolidated as-of date.
func ConsolViewKey(asOf time.Time) string {
	return "consol:view:" + asOf.Format("2006-01-02")
}

// consolCache collapses concurrent identical builds and keeps warm results.
type consolCache struct {
	cache ViewCache
	ttl   time.Duration
	group singleflight.Group
}

func newConsolCache(cache ViewCache, ttl time.Duration) *consolCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &consolCache{cache: cache, ttl: ttl}
}

type buildFunc func(ctx context.Context, asOf time.Time) (consolidate.ConsolidatedTrialBalance, error)

func (c *consolCache) get(ctx context.Context, asOf time.Time, build buildFunc) (consolidate.ConsolidatedTrialBalance, error) {
	key := ConsolViewKey(asOf)

	if c.cache != nil {
		if data, err := c.cache.Get(ctx, key); err == nil {
			var cached consolidate.ConsolidatedTrialBalance
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	resultChan := c.group.DoChan(key, func() (interface{}, error) {
		result, err := build(ctx, asOf)
		if err != nil {
			return nil, err
		}
		if c.cache != nil {
			if data, err := json.Marshal(result); err == nil {
				_ = c.cache.Set(ctx, key, data, c.ttl)
			}
		}
		return result, nil
	})

	select {
	case <-ctx.Done():
		return consolidate.ConsolidatedTrialBalance{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return consolidate.ConsolidatedTrialBalance{}, res.Err
		}
		return res.Val.(consolidate.ConsolidatedTrialBalance), nil
	}
}
