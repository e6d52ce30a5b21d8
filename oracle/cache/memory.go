package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/hashicorp/go-hclog"
)

const cleanupInterval = time.Minute

// MemoryCache keeps the oracle fully functional without redis. It is the
// default for single process deployments and for tests.
type MemoryCache struct {
	logger hclog.Logger

	lock        sync.RWMutex
	entries     map[string]memoryEntry
	subscribers map[string][]chan []byte
	closed      bool

	janitorCancel context.CancelFunc
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

var _ core.Cache = (*MemoryCache)(nil)

func NewMemoryCache(ctx context.Context, logger hclog.Logger) *MemoryCache {
	janitorCtx, janitorCancel := context.WithCancel(ctx)

	cache := &MemoryCache{
		logger:        logger.Named("memory_cache"),
		entries:       map[string]memoryEntry{},
		subscribers:   map[string][]chan []byte{},
		janitorCancel: janitorCancel,
	}

	go cache.runJanitor(janitorCtx)

	return cache
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false, nil
	}

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return nil, false, nil
	}

	return entry.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return errors.New("memory cache closed")
	}

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	c.entries[key] = entry

	return nil
}

func (c *MemoryCache) Publish(_ context.Context, channel string, payload []byte) error {
	c.lock.RLock()
	defer c.lock.RUnlock()

	if c.closed {
		return errors.New("memory cache closed")
	}

	for _, subscriber := range c.subscribers[channel] {
		select {
		case subscriber <- payload:
		default:
			c.logger.Warn("subscriber queue full, dropping message", "channel", channel)
		}
	}

	return nil
}

func (c *MemoryCache) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	c.lock.Lock()

	if c.closed {
		c.lock.Unlock()

		return nil, errors.New("memory cache closed")
	}

	subscriber := make(chan []byte, subscribeBufferSize)
	c.subscribers[channel] = append(c.subscribers[channel], subscriber)

	c.lock.Unlock()

	go func() {
		<-ctx.Done()
		c.removeSubscriber(channel, subscriber)
	}()

	return subscriber, nil
}

func (c *MemoryCache) IsAvailable() bool {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return !c.closed
}

func (c *MemoryCache) Close() error {
	c.janitorCancel()

	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true

	for _, subscribers := range c.subscribers {
		for _, subscriber := range subscribers {
			close(subscriber)
		}
	}

	c.subscribers = map[string][]chan []byte{}

	return nil
}

func (c *MemoryCache) removeSubscriber(channel string, subscriber chan []byte) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return
	}

	subscribers := c.subscribers[channel]
	for i, candidate := range subscribers {
		if candidate == subscriber {
			c.subscribers[channel] = append(subscribers[:i], subscribers[i+1:]...)

			close(subscriber)

			break
		}
	}
}

func (c *MemoryCache) runJanitor(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *MemoryCache) removeExpired() {
	now := time.Now()

	c.lock.Lock()
	defer c.lock.Unlock()

	for key, entry := range c.entries {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}
