package cache

import (
	"context"

	"github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/hashicorp/go-hclog"
)

// NewCache picks redis when an address is configured and falls back to the
// in memory implementation otherwise.
func NewCache(ctx context.Context, config core.CacheConfig, logger hclog.Logger) (core.Cache, error) {
	if config.RedisURL == "" {
		logger.Info("no redis address configured, using in memory cache")

		return NewMemoryCache(ctx, logger), nil
	}

	return NewRedisCache(ctx, config, logger)
}
