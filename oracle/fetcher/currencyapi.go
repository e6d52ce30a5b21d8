package fetcher

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/hashicorp/go-hclog"
	"github.com/shopspring/decimal"
)

const currencyAPIKeyHeader = "apikey"

type currencyAPIMeta struct {
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

type currencyAPIRate struct {
	Code  string          `json:"code"`
	Value decimal.Decimal `json:"value"`
}

type currencyAPILatestResponse struct {
	Meta currencyAPIMeta            `json:"meta"`
	Data map[string]currencyAPIRate `json:"data"`
}

type currencyAPICurrency struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Code   string `json:"code"`
}

type currencyAPICurrenciesResponse struct {
	Data map[string]currencyAPICurrency `json:"data"`
}

type CurrencyAPIFetcher struct {
	httpFetcher
}

var _ core.RateFetcher = (*CurrencyAPIFetcher)(nil)

func NewCurrencyAPIFetcher(config *core.FetcherConfig, logger hclog.Logger) *CurrencyAPIFetcher {
	return &CurrencyAPIFetcher{httpFetcher: newHTTPFetcher(config, logger)}
}

func (f *CurrencyAPIFetcher) Name() string {
	return core.FetcherCurrencyAPI
}

func (f *CurrencyAPIFetcher) FetchRate(ctx context.Context, pair core.CurrencyPair) (core.ProviderQuote, error) {
	start := time.Now()

	quote, err := f.fetchRate(ctx, pair)
	quote.Latency = observeFetch(f.Name(), start, err)

	return quote, err
}

func (f *CurrencyAPIFetcher) fetchRate(ctx context.Context, pair core.CurrencyPair) (core.ProviderQuote, error) {
	requestURL := fmt.Sprintf("%s/latest?base_currency=%s&currencies=%s",
		f.config.URL, pair.Base, pair.Target)

	response, err := fetchJSON[currencyAPILatestResponse](
		ctx, &f.httpFetcher, requestURL, map[string]string{currencyAPIKeyHeader: f.config.APIKey})
	if err != nil {
		return core.ProviderQuote{}, err
	}

	item, exists := response.Data[pair.Target]
	if !exists {
		return core.ProviderQuote{}, fmt.Errorf("%w: currencyapi response has no rate for %s",
			core.ErrFetchInvalidResponse, pair)
	}

	timestamp := response.Meta.LastUpdatedAt.UTC()
	if response.Meta.LastUpdatedAt.IsZero() {
		timestamp = time.Now().UTC()
	}

	return core.ProviderQuote{
		Provider:  f.Name(),
		Pair:      pair,
		Rate:      item.Value,
		Timestamp: timestamp,
	}, nil
}

func (f *CurrencyAPIFetcher) FetchSupportedCurrencies(ctx context.Context) ([]string, error) {
	requestURL := fmt.Sprintf("%s/currencies", f.config.URL)

	response, err := fetchJSON[currencyAPICurrenciesResponse](
		ctx, &f.httpFetcher, requestURL, map[string]string{currencyAPIKeyHeader: f.config.APIKey})
	if err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(response.Data))
	for code := range response.Data {
		codes = append(codes, code)
	}

	sort.Strings(codes)

	return codes, nil
}
