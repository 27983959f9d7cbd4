package tracking

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/travigo/youroute/pkg/config"
	"github.com/travigo/youroute/pkg/datastore"
)

// Open connects the configured datastore and, when a redis client is given,
// caches the stop catalog in it
func Open(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (*Service, error) {
	store, err := datastore.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var opts []Option
	if cfg.Tracking.NearbyRadiusKm > 0 {
		opts = append(opts, WithDefaultRadius(cfg.Tracking.NearbyRadiusKm))
	}
	if redisClient != nil && cfg.Tracking.StopCacheTTL > 0 {
		opts = append(opts, WithStopCache(NewStopCatalogCache(redisClient, cfg.Tracking.StopCacheTTL)))
	}

	return NewService(store, opts...), nil
}
