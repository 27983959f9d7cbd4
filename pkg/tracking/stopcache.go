package tracking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/ctdf"
)

const stopCatalogCacheKey = "youroute:stops:catalog"

// StopCatalogCache keeps the decoded stop catalog in redis between queries.
// Cache failures are logged and the caller falls back to the store.
type StopCatalogCache struct {
	Cache *cache.Cache[string]
}

func NewStopCatalogCache(client *redis.Client, ttl time.Duration) *StopCatalogCache {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(ttl))

	return &StopCatalogCache{
		Cache: cache.New[string](redisStore),
	}
}

func (c *StopCatalogCache) Get(ctx context.Context) ([]ctdf.Stop, bool) {
	value, err := c.Cache.Get(ctx, stopCatalogCacheKey)
	if err != nil {
		return nil, false
	}

	var stops []ctdf.Stop
	if err := json.Unmarshal([]byte(value), &stops); err != nil {
		log.Error().Err(err).Msg("Failed to decode cached stop catalog")
		return nil, false
	}

	return stops, true
}

func (c *StopCatalogCache) Set(ctx context.Context, stops []ctdf.Stop) {
	stopsJSON, err := json.Marshal(stops)
	if err != nil {
		return
	}

	if err := c.Cache.Set(ctx, stopCatalogCacheKey, string(stopsJSON)); err != nil {
		log.Error().Err(err).Msg("Failed to cache stop catalog")
	}
}

func (c *StopCatalogCache) Invalidate(ctx context.Context) error {
	return c.Cache.Delete(ctx, stopCatalogCacheKey)
}
