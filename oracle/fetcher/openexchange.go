package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/hashicorp/go-hclog"
	"github.com/shopspring/decimal"
)

type openExchangeLatestResponse struct {
	Base      string                     `json:"base"`
	Timestamp int64                      `json:"timestamp"`
	Rates     map[string]decimal.Decimal `json:"rates"`
}

type OpenExchangeFetcher struct {
	httpFetcher
}

var _ core.RateFetcher = (*OpenExchangeFetcher)(nil)

func NewOpenExchangeFetcher(config *core.FetcherConfig, logger hclog.Logger) *OpenExchangeFetcher {
	return &OpenExchangeFetcher{httpFetcher: newHTTPFetcher(config, logger)}
}

func (f *OpenExchangeFetcher) Name() string {
	return core.FetcherOpenExchange
}

func (f *OpenExchangeFetcher) FetchRate(ctx context.Context, pair core.CurrencyPair) (core.ProviderQuote, error) {
	start := time.Now()

	quote, err := f.fetchRate(ctx, pair)
	quote.Latency = observeFetch(f.Name(), start, err)

	return quote, err
}

func (f *OpenExchangeFetcher) fetchRate(ctx context.Context, pair core.CurrencyPair) (core.ProviderQuote, error) {
	requestURL := fmt.Sprintf("%s/latest.json?app_id=%s&base=%s&symbols=%s",
		f.config.URL, url.QueryEscape(f.config.APIKey), pair.Base, pair.Target)

	response, err := fetchJSON[openExchangeLatestResponse](ctx, &f.httpFetcher, requestURL, nil)
	if err != nil {
		return core.ProviderQuote{}, err
	}

	value, exists := response.Rates[pair.Target]
	if !exists {
		return core.ProviderQuote{}, fmt.Errorf("%w: openexchange response has no rate for %s",
			core.ErrFetchInvalidResponse, pair)
	}

	timestamp := time.Now().UTC()
	if response.Timestamp > 0 {
		timestamp = time.Unix(response.Timestamp, 0).UTC()
	}

	return core.ProviderQuote{
		Provider:  f.Name(),
		Pair:      pair,
		Rate:      value,
		Timestamp: timestamp,
	}, nil
}

func (f *OpenExchangeFetcher) FetchSupportedCurrencies(ctx context.Context) ([]string, error) {
	requestURL := fmt.Sprintf("%s/currencies.json?app_id=%s", f.config.URL, url.QueryEscape(f.config.APIKey))

	currencies, err := fetchJSON[map[string]string](ctx, &f.httpFetcher, requestURL, nil)
	if err != nil {
		return nil, err
	}

	return sortedCodes(currencies), nil
}
