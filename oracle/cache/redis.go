package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/hashicorp/go-hclog"
	"github.com/redis/go-redis/v9"
)

const subscribeBufferSize = 128

var errRedisUnavailable = errors.New("redis cache unavailable")

// RedisCache is the shared rate cache and broadcast bus. Losing redis never
// takes the oracle down: reads degrade to misses, writes and publishes are
// dropped, and a monitor goroutine flips the cache back once redis returns.
type RedisCache struct {
	client *redis.Client
	logger hclog.Logger

	lock      sync.RWMutex
	available bool

	monitorCancel context.CancelFunc
}

var _ core.Cache = (*RedisCache)(nil)

func NewRedisCache(
	ctx context.Context, config core.CacheConfig, logger hclog.Logger,
) (*RedisCache, error) {
	options, err := redisOptions(config)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(options)

	available := true
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis, starting degraded", "addr", options.Addr, "err", err)

		available = false
	}

	monitorCtx, monitorCancel := context.WithCancel(ctx)

	cache := &RedisCache{
		client:        client,
		logger:        logger.Named("redis_cache"),
		available:     available,
		monitorCancel: monitorCancel,
	}

	go cache.monitorConnection(monitorCtx, config.ReconnectTime())

	return cache, nil
}

func redisOptions(config core.CacheConfig) (*redis.Options, error) {
	if strings.Contains(config.RedisURL, "://") {
		options, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url. err: %w", err)
		}

		if config.RedisPassword != "" {
			options.Password = config.RedisPassword
		}

		return options, nil
	}

	return &redis.Options{
		Addr:     config.RedisURL,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !c.IsAvailable() {
		return nil, false, nil
	}

	value, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}

		c.markUnavailable(err)

		return nil, false, fmt.Errorf("failed to read %s from cache. err: %w", key, err)
	}

	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !c.IsAvailable() {
		c.logger.Debug("cache unavailable, dropping write", "key", key)

		return nil
	}

	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.markUnavailable(err)

		return fmt.Errorf("failed to write %s to cache. err: %w", key, err)
	}

	return nil
}

func (c *RedisCache) Publish(ctx context.Context, channel string, payload []byte) error {
	if !c.IsAvailable() {
		return errRedisUnavailable
	}

	if err := c.client.Publish(ctx, channel, payload).Err(); err != nil {
		c.markUnavailable(err)

		return fmt.Errorf("failed to publish to %s. err: %w", channel, err)
	}

	return nil
}

// Subscribe delivers every payload published to channel until ctx is done.
// The underlying pubsub connection reconnects on its own, so a redis outage
// only pauses delivery instead of killing the subscription.
func (c *RedisCache) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	if !c.IsAvailable() {
		return nil, errRedisUnavailable
	}

	pubsub := c.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()

		c.markUnavailable(err)

		return nil, fmt.Errorf("failed to subscribe to %s. err: %w", channel, err)
	}

	out := make(chan []byte, subscribeBufferSize)

	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case message, ok := <-messages:
				if !ok {
					return
				}

				select {
				case out <- []byte(message.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (c *RedisCache) IsAvailable() bool {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return c.available
}

func (c *RedisCache) Close() error {
	c.monitorCancel()

	return c.client.Close()
}

func (c *RedisCache) markUnavailable(err error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.available {
		c.logger.Error("redis became unavailable", "err", err)

		c.available = false
	}
}

func (c *RedisCache) monitorConnection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkConnection(ctx)
		}
	}
}

func (c *RedisCache) checkConnection(ctx context.Context) {
	err := c.client.Ping(ctx).Err()

	c.lock.Lock()
	defer c.lock.Unlock()

	switch {
	case err != nil && c.available:
		c.logger.Error("redis became unavailable", "err", err)

		c.available = false
	case err == nil && !c.available:
		c.logger.Info("redis connection restored")

		c.available = true
	}
}
