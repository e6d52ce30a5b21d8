package databaseaccess

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	oracleCore "github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestBoltDatabase(t *testing.T) {
	testDir, err := os.MkdirTemp("", "rates-history-test")
	require.NoError(t, err)

	defer func() {
		os.RemoveAll(testDir)
		os.Remove(testDir)
	}()

	filePath := filepath.Join(testDir, "temp_test.db")

	dbCleanup := func() {
		if _, err := os.Stat(filePath); err == nil {
			os.Remove(filePath)
		}
	}

	newRate := func(t *testing.T, base, target, value string, timestamp time.Time) oracleCore.AggregatedRate {
		t.Helper()

		pair, err := oracleCore.NewCurrencyPair(base, target)
		require.NoError(t, err)

		return oracleCore.AggregatedRate{
			Pair:            pair,
			Rate:            decimal.RequireFromString(value),
			ConfidenceLevel: oracleCore.ConfidenceHigh,
			Providers:       []string{oracleCore.FetcherFixerIO},
			PrimaryUsed:     true,
			Timestamp:       timestamp,
		}
	}

	t.Run("Init", func(t *testing.T) {
		t.Cleanup(dbCleanup)

		db := &BBoltDatabase{}
		require.NoError(t, db.Init(filePath))
		require.NoError(t, db.Close())
	})

	t.Run("Init should fail", func(t *testing.T) {
		t.Cleanup(dbCleanup)

		db := &BBoltDatabase{}
		require.Error(t, db.Init(""))
	})

	t.Run("GetRatesForPair newest first", func(t *testing.T) {
		t.Cleanup(dbCleanup)

		db, err := NewDatabase(filePath)
		require.NoError(t, err)

		defer db.Close()

		start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

		require.NoError(t, db.AddRate(newRate(t, "USD", "EUR", "1.1", start)))
		require.NoError(t, db.AddRate(newRate(t, "USD", "EUR", "1.2", start.Add(time.Second))))
		require.NoError(t, db.AddRate(newRate(t, "USD", "EUR", "1.3", start.Add(2*time.Second))))
		require.NoError(t, db.AddRate(newRate(t, "GBP", "JPY", "190.5", start)))

		pair, err := oracleCore.NewCurrencyPair("USD", "EUR")
		require.NoError(t, err)

		rates, err := db.GetRatesForPair(pair, 0)
		require.NoError(t, err)
		require.Len(t, rates, 3)
		require.Equal(t, "1.3", rates[0].Rate.String())
		require.Equal(t, "1.2", rates[1].Rate.String())
		require.Equal(t, "1.1", rates[2].Rate.String())
		require.True(t, rates[0].Timestamp.Equal(start.Add(2*time.Second)))
		require.Equal(t, []string{oracleCore.FetcherFixerIO}, rates[0].Providers)
	})

	t.Run("GetRatesForPair honors limit", func(t *testing.T) {
		t.Cleanup(dbCleanup)

		db, err := NewDatabase(filePath)
		require.NoError(t, err)

		defer db.Close()

		start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

		for i, value := range []string{"1.1", "1.2", "1.3", "1.4"} {
			require.NoError(t, db.AddRate(newRate(t, "USD", "EUR", value, start.Add(time.Duration(i)*time.Second))))
		}

		pair, err := oracleCore.NewCurrencyPair("USD", "EUR")
		require.NoError(t, err)

		rates, err := db.GetRatesForPair(pair, 2)
		require.NoError(t, err)
		require.Len(t, rates, 2)
		require.Equal(t, "1.4", rates[0].Rate.String())
		require.Equal(t, "1.3", rates[1].Rate.String())
	})

	t.Run("GetRatesForPair unknown pair", func(t *testing.T) {
		t.Cleanup(dbCleanup)

		db, err := NewDatabase(filePath)
		require.NoError(t, err)

		defer db.Close()

		pair, err := oracleCore.NewCurrencyPair("AUD", "NZD")
		require.NoError(t, err)

		rates, err := db.GetRatesForPair(pair, 10)
		require.NoError(t, err)
		require.Empty(t, rates)
	})

	t.Run("Sub second timestamps keep order", func(t *testing.T) {
		t.Cleanup(dbCleanup)

		db, err := NewDatabase(filePath)
		require.NoError(t, err)

		defer db.Close()

		start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

		require.NoError(t, db.AddRate(newRate(t, "USD", "EUR", "1.5", start.Add(500*time.Millisecond))))
		require.NoError(t, db.AddRate(newRate(t, "USD", "EUR", "1.05", start.Add(50*time.Millisecond))))
		require.NoError(t, db.AddRate(newRate(t, "USD", "EUR", "2", start.Add(time.Second))))

		pair, err := oracleCore.NewCurrencyPair("USD", "EUR")
		require.NoError(t, err)

		rates, err := db.GetRatesForPair(pair, 0)
		require.NoError(t, err)
		require.Len(t, rates, 3)
		require.Equal(t, "2", rates[0].Rate.String())
		require.Equal(t, "1.5", rates[1].Rate.String())
		require.Equal(t, "1.05", rates[2].Rate.String())
	})

	t.Run("SubmitRate persists like AddRate", func(t *testing.T) {
		t.Cleanup(dbCleanup)

		db, err := NewDatabase(filePath)
		require.NoError(t, err)

		defer db.Close()

		rate := newRate(t, "EUR", "GBP", "0.85", time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC))
		require.NoError(t, db.SubmitRate(context.Background(), rate))

		rates, err := db.GetRatesForPair(rate.Pair, 0)
		require.NoError(t, err)
		require.Len(t, rates, 1)
		require.Equal(t, "0.85", rates[0].Rate.String())
	})
}
