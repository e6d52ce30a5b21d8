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

// fixer.io reports usage limit violations inside a 200 response
const fixerIORateLimitErrorCode = 104

type fixerIOErrorInfo struct {
	Code int    `json:"code"`
	Info string `json:"info"`
}

type fixerIOLatestResponse struct {
	Success   bool                       `json:"success"`
	Timestamp int64                      `json:"timestamp"`
	Base      string                     `json:"base"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	Error     *fixerIOErrorInfo          `json:"error,omitempty"`
}

type fixerIOSymbolsResponse struct {
	Success bool              `json:"success"`
	Symbols map[string]string `json:"symbols"`
	Error   *fixerIOErrorInfo `json:"error,omitempty"`
}

type FixerIOFetcher struct {
	httpFetcher
}

var _ core.RateFetcher = (*FixerIOFetcher)(nil)

func NewFixerIOFetcher(config *core.FetcherConfig, logger hclog.Logger) *FixerIOFetcher {
	return &FixerIOFetcher{httpFetcher: newHTTPFetcher(config, logger)}
}

func (f *FixerIOFetcher) Name() string {
	return core.FetcherFixerIO
}

func (f *FixerIOFetcher) FetchRate(ctx context.Context, pair core.CurrencyPair) (core.ProviderQuote, error) {
	start := time.Now()

	quote, err := f.fetchRate(ctx, pair)
	quote.Latency = observeFetch(f.Name(), start, err)

	return quote, err
}

func (f *FixerIOFetcher) fetchRate(ctx context.Context, pair core.CurrencyPair) (core.ProviderQuote, error) {
	requestURL := fmt.Sprintf("%s/latest?access_key=%s&base=%s&symbols=%s",
		f.config.URL, url.QueryEscape(f.config.APIKey), pair.Base, pair.Target)

	response, err := fetchJSON[fixerIOLatestResponse](ctx, &f.httpFetcher, requestURL, nil)
	if err != nil {
		return core.ProviderQuote{}, err
	}

	if !response.Success {
		if response.Error != nil && response.Error.Code == fixerIORateLimitErrorCode {
			return core.ProviderQuote{}, fmt.Errorf("%w: fixerio usage limit reached: %s",
				core.ErrFetchRateLimited, response.Error.Info)
		}

		return core.ProviderQuote{}, fmt.Errorf("%w: fixerio rejected the request: %v",
			core.ErrFetchInvalidResponse, response.Error)
	}

	value, exists := response.Rates[pair.Target]
	if !exists {
		return core.ProviderQuote{}, fmt.Errorf("%w: fixerio response has no rate for %s",
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

func (f *FixerIOFetcher) FetchSupportedCurrencies(ctx context.Context) ([]string, error) {
	requestURL := fmt.Sprintf("%s/symbols?access_key=%s", f.config.URL, url.QueryEscape(f.config.APIKey))

	response, err := fetchJSON[fixerIOSymbolsResponse](ctx, &f.httpFetcher, requestURL, nil)
	if err != nil {
		return nil, err
	}

	if !response.Success {
		return nil, fmt.Errorf("%w: fixerio rejected the symbols request: %v",
			core.ErrFetchInvalidResponse, response.Error)
	}

	return sortedCodes(response.Symbols), nil
}
