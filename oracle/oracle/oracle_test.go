package oracle

import (
	"context"
	"testing"

	"github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

func newTestAppConfig() *core.AppConfig {
	appConfig := &core.AppConfig{
		Fetchers: map[string]*core.FetcherConfig{
			core.FetcherDummy: {},
		},
	}
	appConfig.FillOut()

	return appConfig
}

func TestOracle(t *testing.T) {
	t.Run("TestNoFetchersEnabled", func(t *testing.T) {
		appConfig := newTestAppConfig()
		appConfig.Fetchers[core.FetcherDummy].Disabled = true

		_, err := NewOracle(context.Background(), appConfig, nil, hclog.NewNullLogger())
		require.ErrorContains(t, err, "no rate fetchers enabled")
	})

	t.Run("TestWiresEnabledFetchers", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		oracle, err := NewOracle(ctx, newTestAppConfig(), nil, hclog.NewNullLogger())
		require.NoError(t, err)

		snapshot := oracle.Aggregator().HealthSnapshot()
		require.Len(t, snapshot, 1)
		require.Equal(t, core.BreakerClosed, snapshot[core.FetcherDummy].State)

		require.NotNil(t, oracle.FanoutHub())
		require.NotNil(t, oracle.CurrencyValidator())
		require.NotNil(t, oracle.Cache())
	})

	t.Run("TestResolveThroughWiredEngine", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		oracle, err := NewOracle(ctx, newTestAppConfig(), nil, hclog.NewNullLogger())
		require.NoError(t, err)

		pair, err := core.NewCurrencyPair("USD", "EUR")
		require.NoError(t, err)

		rate, err := oracle.Aggregator().Resolve(ctx, pair)
		require.NoError(t, err)
		require.Equal(t, []string{core.FetcherDummy}, rate.Providers)
		require.Equal(t, core.ConfidenceMedium, rate.ConfidenceLevel)
		require.True(t, rate.Rate.IsPositive())
	})

	t.Run("TestStartDispose", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		oracle, err := NewOracle(ctx, newTestAppConfig(), nil, hclog.NewNullLogger())
		require.NoError(t, err)

		require.NoError(t, oracle.Start())

		cancel()
		require.NoError(t, oracle.Dispose())

		_, open := <-oracle.ErrorCh()
		require.False(t, open)
	})
}
