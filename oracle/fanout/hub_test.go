package fanout

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Ethernal-Tech/fx-oracle/oracle/cache"
	"github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/hashicorp/go-hclog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func broadcastPayload(t *testing.T, base, target, value string) []byte {
	t.Helper()

	pair, err := core.NewCurrencyPair(base, target)
	require.NoError(t, err)

	payload, err := json.Marshal(core.NewRateBroadcast(core.AggregatedRate{
		Pair:            pair,
		Rate:            decimal.RequireFromString(value),
		ConfidenceLevel: core.ConfidenceHigh,
		Providers:       []string{core.FetcherFixerIO},
		PrimaryUsed:     true,
		Timestamp:       time.Now().UTC(),
	}))
	require.NoError(t, err)

	return payload
}

func readBroadcast(t *testing.T, listener *Listener) core.RateBroadcast {
	t.Helper()

	select {
	case broadcast, ok := <-listener.ReadCh():
		require.True(t, ok)

		return broadcast
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for broadcast")

		return core.RateBroadcast{}
	}
}

func requireNoBroadcast(t *testing.T, listener *Listener) {
	t.Helper()

	select {
	case broadcast := <-listener.ReadCh():
		t.Fatalf("unexpected broadcast for %s", broadcast.Pair)
	default:
	}
}

func newTestHub(t *testing.T, queueSize int) (*Hub, *cache.MemoryCache, context.CancelFunc) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	memCache := cache.NewMemoryCache(ctx, hclog.NewNullLogger())

	hub := NewHub(ctx, core.FanoutConfig{ListenerQueueSize: queueSize},
		memCache, "rates:broadcast", hclog.NewNullLogger())

	return hub, memCache, cancel
}

func TestHubDispatch(t *testing.T) {
	t.Run("TestSubscriptionFiltering", func(t *testing.T) {
		hub, memCache, cancel := newTestHub(t, 4)
		defer cancel()
		defer memCache.Close()

		usdListener, err := hub.Register([]string{"USD/EUR"})
		require.NoError(t, err)

		allListener, err := hub.Register(nil)
		require.NoError(t, err)

		gbpListener, err := hub.Register([]string{"GBP/JPY"})
		require.NoError(t, err)

		hub.dispatch(broadcastPayload(t, "USD", "EUR", "0.85"))

		require.Equal(t, "USD/EUR", readBroadcast(t, usdListener).Pair)
		require.Equal(t, "USD/EUR", readBroadcast(t, allListener).Pair)
		requireNoBroadcast(t, gbpListener)
	})

	t.Run("TestFullQueueDropsOldest", func(t *testing.T) {
		hub, memCache, cancel := newTestHub(t, 2)
		defer cancel()
		defer memCache.Close()

		listener, err := hub.Register([]string{"USD/EUR"})
		require.NoError(t, err)

		for _, value := range []string{"1.1", "1.2", "1.3", "1.4"} {
			hub.dispatch(broadcastPayload(t, "USD", "EUR", value))
		}

		// the two oldest updates were evicted, the freshest survive
		require.Equal(t, "1.3", readBroadcast(t, listener).Rate.String())
		require.Equal(t, "1.4", readBroadcast(t, listener).Rate.String())
		requireNoBroadcast(t, listener)
	})

	t.Run("TestUndecodablePayloadIgnored", func(t *testing.T) {
		hub, memCache, cancel := newTestHub(t, 4)
		defer cancel()
		defer memCache.Close()

		listener, err := hub.Register(nil)
		require.NoError(t, err)

		hub.dispatch([]byte("not json"))
		requireNoBroadcast(t, listener)
	})
}

func TestHubRegistration(t *testing.T) {
	t.Run("TestUnregisterClosesListener", func(t *testing.T) {
		hub, memCache, cancel := newTestHub(t, 4)
		defer cancel()
		defer memCache.Close()

		first, err := hub.Register([]string{"USD/EUR"})
		require.NoError(t, err)

		second, err := hub.Register([]string{"USD/EUR"})
		require.NoError(t, err)

		hub.Unregister(first.ID)

		_, open := <-first.ReadCh()
		require.False(t, open)

		// the surviving listener and the dispatcher are unaffected
		hub.dispatch(broadcastPayload(t, "USD", "EUR", "0.85"))
		require.Equal(t, "USD/EUR", readBroadcast(t, second).Pair)

		require.Equal(t, 1, hub.Snapshot().Listeners)

		hub.Unregister("unknown-id")
	})

	t.Run("TestRegisterNormalizesPairs", func(t *testing.T) {
		hub, memCache, cancel := newTestHub(t, 4)
		defer cancel()
		defer memCache.Close()

		listener, err := hub.Register([]string{"usd/eur", "bogus", "GBP/JPY"})
		require.NoError(t, err)

		require.Equal(t, []string{"GBP/JPY", "USD/EUR"}, hub.Subscription(listener.ID))
	})

	t.Run("TestUpdateSubscription", func(t *testing.T) {
		hub, memCache, cancel := newTestHub(t, 4)
		defer cancel()
		defer memCache.Close()

		listener, err := hub.Register([]string{"USD/EUR"})
		require.NoError(t, err)

		hub.dispatch(broadcastPayload(t, "USD", "EUR", "0.85"))
		require.Equal(t, "USD/EUR", readBroadcast(t, listener).Pair)

		effective := hub.UpdateSubscription(listener.ID, []string{"GBP/JPY"})
		require.Equal(t, []string{"GBP/JPY"}, effective)

		hub.dispatch(broadcastPayload(t, "USD", "EUR", "0.86"))
		requireNoBroadcast(t, listener)

		hub.dispatch(broadcastPayload(t, "GBP", "JPY", "190.5"))
		require.Equal(t, "GBP/JPY", readBroadcast(t, listener).Pair)
	})

	t.Run("TestSnapshot", func(t *testing.T) {
		hub, memCache, cancel := newTestHub(t, 4)
		defer cancel()
		defer memCache.Close()

		_, err := hub.Register(nil)
		require.NoError(t, err)

		_, err = hub.Register([]string{"USD/EUR"})
		require.NoError(t, err)

		_, err = hub.Register([]string{"USD/EUR", "GBP/JPY"})
		require.NoError(t, err)

		snapshot := hub.Snapshot()
		require.Equal(t, 3, snapshot.Listeners)
		require.Equal(t, 1, snapshot.AllPairsListeners)
		require.Equal(t, 2, snapshot.PairSubscriptions["USD/EUR"])
		require.Equal(t, 1, snapshot.PairSubscriptions["GBP/JPY"])
	})

	t.Run("TestRegisterAfterStop", func(t *testing.T) {
		hub, memCache, cancel := newTestHub(t, 4)
		defer memCache.Close()

		cancel()

		_, err := hub.Register(nil)
		require.Error(t, err)
	})
}

func TestHubEndToEnd(t *testing.T) {
	hub, memCache, cancel := newTestHub(t, 4)
	defer cancel()
	defer memCache.Close()

	listener, err := hub.Register([]string{"USD/EUR"})
	require.NoError(t, err)

	hub.Start()

	// give the hub a moment to establish the broadcast subscription
	time.Sleep(50 * time.Millisecond)

	ctx := context.Background()
	require.NoError(t, memCache.Publish(ctx, "rates:broadcast", broadcastPayload(t, "USD", "EUR", "0.85")))

	broadcast := readBroadcast(t, listener)
	require.Equal(t, core.RateBroadcastType, broadcast.Type)
	require.Equal(t, "USD/EUR", broadcast.Pair)
	require.Equal(t, "0.85", broadcast.Rate.String())
}
