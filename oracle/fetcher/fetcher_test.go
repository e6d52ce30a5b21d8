package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/hashicorp/go-hclog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestFetcherConfig(name, serverURL string) *core.FetcherConfig {
	return &core.FetcherConfig{
		Name:               name,
		URL:                serverURL,
		APIKey:             "test-key",
		TimeoutMillis:      2000,
		RequestsPerMinute:  600,
		RetryBackoffMillis: 10,
	}
}

func TestFixerIOFetcher(t *testing.T) {
	pair, err := core.NewCurrencyPair("USD", "EUR")
	require.NoError(t, err)

	t.Run("TestFetchRate", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/latest", r.URL.Path)
			require.Equal(t, "test-key", r.URL.Query().Get("access_key"))
			require.Equal(t, "USD", r.URL.Query().Get("base"))
			require.Equal(t, "EUR", r.URL.Query().Get("symbols"))

			fmt.Fprint(w, `{"success": true, "timestamp": 1700000000, "base": "USD", "rates": {"EUR": 0.85}}`)
		}))
		defer server.Close()

		fetcher := NewFixerIOFetcher(newTestFetcherConfig(core.FetcherFixerIO, server.URL), hclog.NewNullLogger())

		quote, err := fetcher.FetchRate(context.Background(), pair)
		require.NoError(t, err)
		require.Equal(t, core.FetcherFixerIO, quote.Provider)
		require.Equal(t, pair, quote.Pair)
		require.Equal(t, "0.85", quote.Rate.String())
		require.Equal(t, time.Unix(1700000000, 0).UTC(), quote.Timestamp)
		require.Greater(t, quote.Latency, time.Duration(0))
	})

	t.Run("TestFetchRateRejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"success": false, "error": {"code": 101, "info": "invalid access key"}}`)
		}))
		defer server.Close()

		fetcher := NewFixerIOFetcher(newTestFetcherConfig(core.FetcherFixerIO, server.URL), hclog.NewNullLogger())

		_, err := fetcher.FetchRate(context.Background(), pair)
		require.ErrorIs(t, err, core.ErrFetchInvalidResponse)
	})

	t.Run("TestFetchRateUsageLimit", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"success": false, "error": {"code": 104, "info": "monthly usage limit reached"}}`)
		}))
		defer server.Close()

		fetcher := NewFixerIOFetcher(newTestFetcherConfig(core.FetcherFixerIO, server.URL), hclog.NewNullLogger())

		_, err := fetcher.FetchRate(context.Background(), pair)
		require.ErrorIs(t, err, core.ErrFetchRateLimited)
	})

	t.Run("TestFetchRateMissingSymbol", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"success": true, "timestamp": 1700000000, "rates": {"GBP": 0.79}}`)
		}))
		defer server.Close()

		fetcher := NewFixerIOFetcher(newTestFetcherConfig(core.FetcherFixerIO, server.URL), hclog.NewNullLogger())

		_, err := fetcher.FetchRate(context.Background(), pair)
		require.ErrorIs(t, err, core.ErrFetchInvalidResponse)
	})

	t.Run("TestFetchSupportedCurrencies", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/symbols", r.URL.Path)

			fmt.Fprint(w, `{"success": true, "symbols": {"USD": "United States Dollar", "EUR": "Euro"}}`)
		}))
		defer server.Close()

		fetcher := NewFixerIOFetcher(newTestFetcherConfig(core.FetcherFixerIO, server.URL), hclog.NewNullLogger())

		currencies, err := fetcher.FetchSupportedCurrencies(context.Background())
		require.NoError(t, err)
		require.Equal(t, []string{"EUR", "USD"}, currencies)
	})
}

func TestOpenExchangeFetcher(t *testing.T) {
	pair, err := core.NewCurrencyPair("USD", "JPY")
	require.NoError(t, err)

	t.Run("TestFetchRate", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/latest.json", r.URL.Path)
			require.Equal(t, "test-key", r.URL.Query().Get("app_id"))
			require.Equal(t, "USD", r.URL.Query().Get("base"))
			require.Equal(t, "JPY", r.URL.Query().Get("symbols"))

			fmt.Fprint(w, `{"base": "USD", "timestamp": 1700000100, "rates": {"JPY": 151.42}}`)
		}))
		defer server.Close()

		fetcher := NewOpenExchangeFetcher(
			newTestFetcherConfig(core.FetcherOpenExchange, server.URL), hclog.NewNullLogger())

		quote, err := fetcher.FetchRate(context.Background(), pair)
		require.NoError(t, err)
		require.Equal(t, core.FetcherOpenExchange, quote.Provider)
		require.Equal(t, "151.42", quote.Rate.String())
		require.Equal(t, time.Unix(1700000100, 0).UTC(), quote.Timestamp)
	})

	t.Run("TestFetchSupportedCurrencies", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/currencies.json", r.URL.Path)

			fmt.Fprint(w, `{"JPY": "Japanese Yen", "USD": "United States Dollar", "AUD": "Australian Dollar"}`)
		}))
		defer server.Close()

		fetcher := NewOpenExchangeFetcher(
			newTestFetcherConfig(core.FetcherOpenExchange, server.URL), hclog.NewNullLogger())

		currencies, err := fetcher.FetchSupportedCurrencies(context.Background())
		require.NoError(t, err)
		require.Equal(t, []string{"AUD", "JPY", "USD"}, currencies)
	})
}

func TestCurrencyAPIFetcher(t *testing.T) {
	pair, err := core.NewCurrencyPair("EUR", "GBP")
	require.NoError(t, err)

	t.Run("TestFetchRate", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/latest", r.URL.Path)
			require.Equal(t, "test-key", r.Header.Get("apikey"))
			require.Equal(t, "EUR", r.URL.Query().Get("base_currency"))
			require.Equal(t, "GBP", r.URL.Query().Get("currencies"))

			fmt.Fprint(w, `{"meta": {"last_updated_at": "2024-02-15T23:59:59Z"},
				"data": {"GBP": {"code": "GBP", "value": 0.8542}}}`)
		}))
		defer server.Close()

		fetcher := NewCurrencyAPIFetcher(
			newTestFetcherConfig(core.FetcherCurrencyAPI, server.URL), hclog.NewNullLogger())

		quote, err := fetcher.FetchRate(context.Background(), pair)
		require.NoError(t, err)
		require.Equal(t, core.FetcherCurrencyAPI, quote.Provider)
		require.Equal(t, "0.8542", quote.Rate.String())
		require.Equal(t, time.Date(2024, 2, 15, 23, 59, 59, 0, time.UTC), quote.Timestamp)
	})

	t.Run("TestFetchSupportedCurrencies", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/currencies", r.URL.Path)
			require.Equal(t, "test-key", r.Header.Get("apikey"))

			fmt.Fprint(w, `{"data": {"GBP": {"code": "GBP", "name": "British Pound"},
				"EUR": {"code": "EUR", "name": "Euro"}}}`)
		}))
		defer server.Close()

		fetcher := NewCurrencyAPIFetcher(
			newTestFetcherConfig(core.FetcherCurrencyAPI, server.URL), hclog.NewNullLogger())

		currencies, err := fetcher.FetchSupportedCurrencies(context.Background())
		require.NoError(t, err)
		require.Equal(t, []string{"EUR", "GBP"}, currencies)
	})
}

func TestFetcherErrorNormalization(t *testing.T) {
	pair, err := core.NewCurrencyPair("USD", "EUR")
	require.NoError(t, err)

	fetchWithResponse := func(t *testing.T, statusCode int, body string) error {
		t.Helper()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(statusCode)
			fmt.Fprint(w, body)
		}))
		defer server.Close()

		fetcher := NewFixerIOFetcher(newTestFetcherConfig(core.FetcherFixerIO, server.URL), hclog.NewNullLogger())

		_, err := fetcher.FetchRate(context.Background(), pair)

		return err
	}

	t.Run("TestRequestTimeoutStatus", func(t *testing.T) {
		require.ErrorIs(t, fetchWithResponse(t, http.StatusRequestTimeout, ""), core.ErrFetchTimeout)
	})

	t.Run("TestTooManyRequestsStatus", func(t *testing.T) {
		require.ErrorIs(t, fetchWithResponse(t, http.StatusTooManyRequests, ""), core.ErrFetchRateLimited)
	})

	t.Run("TestServerErrorStatus", func(t *testing.T) {
		require.ErrorIs(t, fetchWithResponse(t, http.StatusBadGateway, ""), core.ErrFetchUnavailable)
	})

	t.Run("TestClientErrorStatus", func(t *testing.T) {
		require.ErrorIs(t, fetchWithResponse(t, http.StatusNotFound, ""), core.ErrFetchInvalidResponse)
	})

	t.Run("TestUndecodableBody", func(t *testing.T) {
		require.ErrorIs(t, fetchWithResponse(t, http.StatusOK, "<html>not json</html>"), core.ErrFetchInvalidResponse)
	})

	t.Run("TestSlowProvider", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
			fmt.Fprint(w, `{"success": true, "rates": {"EUR": 0.85}}`)
		}))
		defer server.Close()

		config := newTestFetcherConfig(core.FetcherFixerIO, server.URL)
		config.TimeoutMillis = 50

		fetcher := NewFixerIOFetcher(config, hclog.NewNullLogger())

		_, err := fetcher.FetchRate(context.Background(), pair)
		require.ErrorIs(t, err, core.ErrFetchTimeout)
	})

	t.Run("TestUnreachableProvider", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		fetcher := NewFixerIOFetcher(newTestFetcherConfig(core.FetcherFixerIO, server.URL), hclog.NewNullLogger())

		_, err := fetcher.FetchRate(context.Background(), pair)
		require.ErrorIs(t, err, core.ErrFetchUnavailable)
	})
}

func TestFetcherRateLimiter(t *testing.T) {
	pair, err := core.NewCurrencyPair("USD", "EUR")
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success": true, "timestamp": 1700000000, "rates": {"EUR": 0.85}}`)
	}))
	defer server.Close()

	config := newTestFetcherConfig(core.FetcherFixerIO, server.URL)
	config.RequestsPerMinute = 1

	fetcher := NewFixerIOFetcher(config, hclog.NewNullLogger())

	_, err = fetcher.FetchRate(context.Background(), pair)
	require.NoError(t, err)

	_, err = fetcher.FetchRate(context.Background(), pair)
	require.ErrorIs(t, err, core.ErrFetchRateLimited)
}

func TestFetcherRetriesTransientFailures(t *testing.T) {
	pair, err := core.NewCurrencyPair("USD", "EUR")
	require.NoError(t, err)

	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		fmt.Fprint(w, `{"success": true, "timestamp": 1700000000, "rates": {"EUR": 0.85}}`)
	}))
	defer server.Close()

	config := newTestFetcherConfig(core.FetcherFixerIO, server.URL)
	config.MaxRetries = 2
	config.RetryBackoffMillis = 10

	fetcher := NewFixerIOFetcher(config, hclog.NewNullLogger())

	quote, err := fetcher.FetchRate(context.Background(), pair)
	require.NoError(t, err)
	require.Equal(t, "0.85", quote.Rate.String())
	require.Equal(t, 2, attempts)
}

func TestDummyFetcher(t *testing.T) {
	pair, err := core.NewCurrencyPair("USD", "EUR")
	require.NoError(t, err)

	fetcher := NewDummyFetcher(&core.FetcherConfig{Name: core.FetcherDummy})

	first, err := fetcher.FetchRate(context.Background(), pair)
	require.NoError(t, err)

	second, err := fetcher.FetchRate(context.Background(), pair)
	require.NoError(t, err)

	require.True(t, first.Rate.Equal(second.Rate))
	require.True(t, first.Rate.GreaterThanOrEqual(decimal.RequireFromString("0.5")))
	require.True(t, first.Rate.LessThan(decimal.RequireFromString("1.5")))

	currencies, err := fetcher.FetchSupportedCurrencies(context.Background())
	require.NoError(t, err)
	require.Contains(t, currencies, "USD")
	require.Contains(t, currencies, "EUR")
}

func TestNewRateFetcher(t *testing.T) {
	t.Run("TestKnownProviders", func(t *testing.T) {
		for _, name := range []string{
			core.FetcherFixerIO, core.FetcherOpenExchange, core.FetcherCurrencyAPI, core.FetcherDummy,
		} {
			fetcher, err := NewRateFetcher(&core.FetcherConfig{Name: name}, hclog.NewNullLogger())
			require.NoError(t, err)
			require.Equal(t, name, fetcher.Name())
		}
	})

	t.Run("TestUnknownProvider", func(t *testing.T) {
		_, err := NewRateFetcher(&core.FetcherConfig{Name: "unknown"}, hclog.NewNullLogger())
		require.Error(t, err)
	})
}
