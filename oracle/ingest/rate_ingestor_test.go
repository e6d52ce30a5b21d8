package ingest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Ethernal-Tech/fx-oracle/oracle/cache"
	"github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/hashicorp/go-hclog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newAggregatedRate(t *testing.T, base, target, value string) core.AggregatedRate {
	t.Helper()

	pair, err := core.NewCurrencyPair(base, target)
	require.NoError(t, err)

	return core.AggregatedRate{
		Pair:            pair,
		Rate:            decimal.RequireFromString(value),
		ConfidenceLevel: core.ConfidenceHigh,
		Providers:       []string{core.FetcherFixerIO},
		PrimaryUsed:     true,
		Timestamp:       time.Now().UTC(),
	}
}

func receiveBroadcast(t *testing.T, messages <-chan []byte) core.RateBroadcast {
	t.Helper()

	select {
	case payload := <-messages:
		var broadcast core.RateBroadcast
		require.NoError(t, json.Unmarshal(payload, &broadcast))

		return broadcast
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for broadcast")

		return core.RateBroadcast{}
	}
}

func TestRateIngestor(t *testing.T) {
	t.Run("TestFirstPassRunsImmediately", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		memCache := cache.NewMemoryCache(ctx, hclog.NewNullLogger())
		defer memCache.Close()

		config := core.IngestConfig{
			BaseCurrencies:       []string{"USD"},
			TargetCurrencies:     []string{"EUR", "GBP"},
			UpdateIntervalMillis: 60_000,
			BroadcastChannel:     "rates:broadcast",
		}

		usdEur := newAggregatedRate(t, "USD", "EUR", "0.85")
		usdGbp := newAggregatedRate(t, "USD", "GBP", "0.79")

		aggregatorMock := &core.RateAggregatorMock{}
		aggregatorMock.On("Resolve", mock.Anything, usdEur.Pair).Return(usdEur, nil)
		aggregatorMock.On("Resolve", mock.Anything, usdGbp.Pair).Return(usdGbp, nil)

		messages, err := memCache.Subscribe(ctx, config.BroadcastChannel)
		require.NoError(t, err)

		ingestor, err := NewRateIngestor(ctx, config, aggregatorMock, memCache, hclog.NewNullLogger())
		require.NoError(t, err)

		ingestor.Start()

		received := map[string]core.RateBroadcast{}
		for i := 0; i < 2; i++ {
			broadcast := receiveBroadcast(t, messages)
			received[broadcast.Pair] = broadcast
		}

		require.Len(t, received, 2)
		require.Equal(t, core.RateBroadcastType, received["USD/EUR"].Type)
		require.Equal(t, "0.85", received["USD/EUR"].Rate.String())
		require.Equal(t, "0.79", received["USD/GBP"].Rate.String())

		// latest keys are written without expiry
		value, found, err := memCache.Get(ctx, usdEur.Pair.LatestCacheKey())
		require.NoError(t, err)
		require.True(t, found)

		var latest core.RateBroadcast
		require.NoError(t, json.Unmarshal(value, &latest))
		require.Equal(t, "USD/EUR", latest.Pair)
	})

	t.Run("TestFailingPairDoesNotStopPass", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		memCache := cache.NewMemoryCache(ctx, hclog.NewNullLogger())
		defer memCache.Close()

		config := core.IngestConfig{
			BaseCurrencies:       []string{"USD"},
			TargetCurrencies:     []string{"EUR", "GBP"},
			UpdateIntervalMillis: 60_000,
			BroadcastChannel:     "rates:broadcast",
		}

		usdEur, err := core.NewCurrencyPair("USD", "EUR")
		require.NoError(t, err)

		usdGbp := newAggregatedRate(t, "USD", "GBP", "0.79")

		aggregatorMock := &core.RateAggregatorMock{}
		aggregatorMock.On("Resolve", mock.Anything, usdEur).
			Return(core.AggregatedRate{}, core.ErrAllProvidersUnavailable)
		aggregatorMock.On("Resolve", mock.Anything, usdGbp.Pair).Return(usdGbp, nil)

		messages, err := memCache.Subscribe(ctx, config.BroadcastChannel)
		require.NoError(t, err)

		ingestor, err := NewRateIngestor(ctx, config, aggregatorMock, memCache, hclog.NewNullLogger())
		require.NoError(t, err)

		ingestor.Start()

		broadcast := receiveBroadcast(t, messages)
		require.Equal(t, "USD/GBP", broadcast.Pair)

		_, found, err := memCache.Get(ctx, usdEur.LatestCacheKey())
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("TestPeriodicTicks", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		memCache := cache.NewMemoryCache(ctx, hclog.NewNullLogger())
		defer memCache.Close()

		config := core.IngestConfig{
			BaseCurrencies:       []string{"USD"},
			TargetCurrencies:     []string{"EUR"},
			UpdateIntervalMillis: 30,
			BroadcastChannel:     "rates:broadcast",
		}

		usdEur := newAggregatedRate(t, "USD", "EUR", "0.85")

		aggregatorMock := &core.RateAggregatorMock{}
		aggregatorMock.On("Resolve", mock.Anything, usdEur.Pair).Return(usdEur, nil)

		messages, err := memCache.Subscribe(ctx, config.BroadcastChannel)
		require.NoError(t, err)

		ingestor, err := NewRateIngestor(ctx, config, aggregatorMock, memCache, hclog.NewNullLogger())
		require.NoError(t, err)

		ingestor.Start()

		// first pass plus at least one tick
		receiveBroadcast(t, messages)
		receiveBroadcast(t, messages)
	})

	t.Run("TestInvalidTrackedCurrency", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		memCache := cache.NewMemoryCache(ctx, hclog.NewNullLogger())
		defer memCache.Close()

		_, err := NewRateIngestor(ctx, core.IngestConfig{
			BaseCurrencies:   []string{"U"},
			TargetCurrencies: []string{"EUR"},
		}, &core.RateAggregatorMock{}, memCache, hclog.NewNullLogger())
		require.Error(t, err)
	})
}
