package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCurrencyPair(t *testing.T) {
	t.Run("TestNewCurrencyPairNormalization", func(t *testing.T) {
		pair, err := NewCurrencyPair(" usd ", "eur")
		require.NoError(t, err)
		require.Equal(t, "USD", pair.Base)
		require.Equal(t, "EUR", pair.Target)
		require.Equal(t, "USD/EUR", pair.String())
	})

	t.Run("TestNewCurrencyPairInvalid", func(t *testing.T) {
		_, err := NewCurrencyPair("US", "EUR")
		require.Error(t, err)

		_, err = NewCurrencyPair("USD", "E1R")
		require.Error(t, err)

		_, err = NewCurrencyPair("", "EUR")
		require.Error(t, err)
	})

	t.Run("TestPairAndInverseAreDistinct", func(t *testing.T) {
		pair, err := NewCurrencyPair("USD", "EUR")
		require.NoError(t, err)

		inverse, err := NewCurrencyPair("EUR", "USD")
		require.NoError(t, err)

		require.NotEqual(t, pair, inverse)
		require.NotEqual(t, pair.CacheKey(), inverse.CacheKey())
	})

	t.Run("TestParseCurrencyPair", func(t *testing.T) {
		pair, err := ParseCurrencyPair("usd/EUR")
		require.NoError(t, err)
		require.Equal(t, CurrencyPair{Base: "USD", Target: "EUR"}, pair)

		_, err = ParseCurrencyPair("USDEUR")
		require.Error(t, err)

		_, err = ParseCurrencyPair("USD/EUR/GBP")
		require.Error(t, err)
	})

	t.Run("TestCacheKeys", func(t *testing.T) {
		pair, err := NewCurrencyPair("GBP", "JPY")
		require.NoError(t, err)

		require.Equal(t, "rates:GBP:JPY", pair.CacheKey())
		require.Equal(t, "rates:GBP:JPY:latest", pair.LatestCacheKey())
	})
}

func TestIngestConfigTrackedPairs(t *testing.T) {
	t.Run("TestIdentityPairsExcluded", func(t *testing.T) {
		config := IngestConfig{
			BaseCurrencies:   []string{"USD", "EUR"},
			TargetCurrencies: []string{"USD", "EUR", "GBP"},
		}

		pairs, err := config.TrackedPairs()
		require.NoError(t, err)
		require.Len(t, pairs, 4)

		for _, pair := range pairs {
			require.NotEqual(t, pair.Base, pair.Target)
		}
	})

	t.Run("TestInvalidCurrency", func(t *testing.T) {
		config := IngestConfig{
			BaseCurrencies:   []string{"U"},
			TargetCurrencies: []string{"EUR"},
		}

		_, err := config.TrackedPairs()
		require.Error(t, err)
	})
}

func TestNewRateBroadcast(t *testing.T) {
	pair, err := NewCurrencyPair("USD", "EUR")
	require.NoError(t, err)

	now := time.Now().UTC()

	broadcast := NewRateBroadcast(AggregatedRate{
		Pair:            pair,
		Rate:            decimal.RequireFromString("1.2510"),
		ConfidenceLevel: ConfidenceHigh,
		Providers:       []string{"fixerio", "openexchange"},
		PrimaryUsed:     true,
		Timestamp:       now,
		Cached:          false,
	})

	require.Equal(t, RateBroadcastType, broadcast.Type)
	require.Equal(t, "USD/EUR", broadcast.Pair)
	require.Equal(t, "USD", broadcast.Base)
	require.Equal(t, "EUR", broadcast.Target)
	require.Equal(t, "1.251", broadcast.Rate.String())
	require.Equal(t, ConfidenceHigh, broadcast.ConfidenceLevel)
	require.Equal(t, []string{"fixerio", "openexchange"}, broadcast.ContributingProviders)
	require.True(t, broadcast.PrimaryUsed)
	require.Equal(t, now, broadcast.Timestamp)
	require.False(t, broadcast.Cached)
}

func TestAppConfigFillOut(t *testing.T) {
	appConfig := &AppConfig{
		Fetchers: map[string]*FetcherConfig{
			FetcherFixerIO: {URL: "http://data.fixer.io/api"},
		},
	}

	appConfig.FillOut()

	require.Equal(t, FetcherFixerIO, appConfig.Fetchers[FetcherFixerIO].Name)
	require.Equal(t, 3*time.Second, appConfig.Fetchers[FetcherFixerIO].Timeout())
	require.Equal(t, 5, appConfig.Breaker.FailureThreshold)
	require.Equal(t, time.Hour, appConfig.Breaker.RecoveryTimeout())
	require.Equal(t, 2, appConfig.Breaker.SuccessThreshold)
	require.Equal(t, 5*time.Minute, appConfig.Aggregator.CacheTTL())
	require.Equal(t, 2*time.Minute, appConfig.Ingest.UpdateInterval())
	require.NotEmpty(t, appConfig.Ingest.BaseCurrencies)
	require.NotEmpty(t, appConfig.Currencies.Fallback)
	require.Equal(t, "fx.rates", appConfig.History.KafkaTopic)
}
