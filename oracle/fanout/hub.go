package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Ethernal-Tech/fx-oracle/common"
	"github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/Ethernal-Tech/fx-oracle/telemetry"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

const subscribeRetryDelay = 5 * time.Second

// Listener is one registered consumer of rate broadcasts. Reads come from a
// bounded queue owned by the hub, a slow listener never blocks the others.
type Listener struct {
	ID    string
	queue *common.SafeCh[core.RateBroadcast]
}

func (l *Listener) ReadCh() <-chan core.RateBroadcast {
	return l.queue.ReadCh()
}

type listenerEntry struct {
	listener *Listener
	pairs    map[string]struct{}
}

// wants reports whether this listener should receive updates for a pair.
// An empty subscription means all pairs.
func (e *listenerEntry) wants(pair string) bool {
	if len(e.pairs) == 0 {
		return true
	}

	_, exists := e.pairs[pair]

	return exists
}

// HubSnapshot is the stats view served by the API.
type HubSnapshot struct {
	Listeners         int            `json:"listeners"`
	AllPairsListeners int            `json:"allPairsListeners"`
	PairSubscriptions map[string]int `json:"pairSubscriptions"`
}

// Hub fans broadcast channel messages out to the registered listeners.
type Hub struct {
	ctx              context.Context
	config           core.FanoutConfig
	cache            core.Cache
	broadcastChannel string
	logger           hclog.Logger

	lock      sync.RWMutex
	listeners map[string]*listenerEntry
}

func NewHub(
	ctx context.Context,
	config core.FanoutConfig,
	cache core.Cache,
	broadcastChannel string,
	logger hclog.Logger,
) *Hub {
	return &Hub{
		ctx:              ctx,
		config:           config,
		cache:            cache,
		broadcastChannel: broadcastChannel,
		logger:           logger.Named("fanout_hub"),
		listeners:        map[string]*listenerEntry{},
	}
}

func (h *Hub) Start() {
	h.logger.Debug("Starting fan-out hub", "channel", h.broadcastChannel)

	go h.run()
}

// run keeps a broadcast subscription alive for the lifetime of the hub. A lost
// subscription, for example while redis is down, is re-established after a
// short delay.
func (h *Hub) run() {
	_ = common.RetryForever(h.ctx, subscribeRetryDelay, func(ctx context.Context) error {
		messages, err := h.cache.Subscribe(ctx, h.broadcastChannel)
		if err != nil {
			h.logger.Warn("failed to subscribe to broadcast channel", "err", err)

			return err
		}

		h.logger.Debug("subscribed to broadcast channel", "channel", h.broadcastChannel)

		for {
			select {
			case <-ctx.Done():
				return nil
			case payload, ok := <-messages:
				if !ok {
					return errors.New("broadcast subscription closed")
				}

				h.dispatch(payload)
			}
		}
	})
}

func (h *Hub) Register(pairs []string) (*Listener, error) {
	select {
	case <-h.ctx.Done():
		return nil, errors.New("fan-out hub stopped")
	default:
	}

	listener := &Listener{
		ID:    uuid.NewString(),
		queue: common.MakeSafeCh[core.RateBroadcast](h.config.ListenerQueueSize),
	}

	h.lock.Lock()
	h.listeners[listener.ID] = &listenerEntry{listener: listener, pairs: normalizePairs(pairs)}
	count := len(h.listeners)
	h.lock.Unlock()

	telemetry.UpdateFanoutListenersGauge(count)

	h.logger.Debug("listener registered", "id", listener.ID)

	return listener, nil
}

func (h *Hub) Unregister(id string) {
	h.lock.Lock()

	entry, exists := h.listeners[id]
	if exists {
		delete(h.listeners, id)
	}

	count := len(h.listeners)

	h.lock.Unlock()

	if !exists {
		return
	}

	_ = entry.listener.queue.Close()

	telemetry.UpdateFanoutListenersGauge(count)

	h.logger.Debug("listener unregistered", "id", id)
}

// UpdateSubscription replaces the listener's pair set. An empty set subscribes
// the listener to every pair. The effective subscription is returned.
func (h *Hub) UpdateSubscription(id string, pairs []string) []string {
	normalized := normalizePairs(pairs)

	h.lock.Lock()

	if entry, exists := h.listeners[id]; exists {
		entry.pairs = normalized
	}

	h.lock.Unlock()

	return sortedPairs(normalized)
}

// Subscription returns the listener's current pair set, sorted.
func (h *Hub) Subscription(id string) []string {
	h.lock.RLock()
	defer h.lock.RUnlock()

	entry, exists := h.listeners[id]
	if !exists {
		return nil
	}

	return sortedPairs(entry.pairs)
}

func (h *Hub) Snapshot() HubSnapshot {
	h.lock.RLock()
	defer h.lock.RUnlock()

	snapshot := HubSnapshot{
		Listeners:         len(h.listeners),
		PairSubscriptions: map[string]int{},
	}

	for _, entry := range h.listeners {
		if len(entry.pairs) == 0 {
			snapshot.AllPairsListeners++

			continue
		}

		for pair := range entry.pairs {
			snapshot.PairSubscriptions[pair]++
		}
	}

	return snapshot
}

func (h *Hub) dispatch(payload []byte) {
	var broadcast core.RateBroadcast
	if err := json.Unmarshal(payload, &broadcast); err != nil {
		h.logger.Warn("failed to decode broadcast message", "err", err)

		return
	}

	h.lock.RLock()
	defer h.lock.RUnlock()

	for _, entry := range h.listeners {
		if entry.wants(broadcast.Pair) {
			h.deliver(entry.listener, broadcast)
		}
	}
}

// deliver enqueues the broadcast, evicting the oldest undelivered message
// when the listener's queue is full. The listener stays registered, it just
// loses stale updates.
func (h *Hub) deliver(listener *Listener, broadcast core.RateBroadcast) {
	for {
		written, err := listener.queue.TryWrite(broadcast)
		if err != nil {
			return
		}

		if written {
			telemetry.UpdateFanoutDeliveredCounter(1)

			return
		}

		if !listener.queue.DropOldest() {
			return
		}

		telemetry.UpdateFanoutDroppedCounter(1)
	}
}

func normalizePairs(pairs []string) map[string]struct{} {
	normalized := make(map[string]struct{}, len(pairs))

	for _, raw := range pairs {
		pair, err := core.ParseCurrencyPair(raw)
		if err != nil {
			continue
		}

		normalized[pair.String()] = struct{}{}
	}

	return normalized
}

func sortedPairs(pairs map[string]struct{}) []string {
	result := make([]string, 0, len(pairs))
	for pair := range pairs {
		result = append(result, pair)
	}

	sort.Strings(result)

	return result
}
