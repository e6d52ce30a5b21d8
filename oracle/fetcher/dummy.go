package fetcher

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/shopspring/decimal"
)

// DummyFetcher serves deterministic pseudo rates so the rest of the pipeline
// can run without any provider credentials.
type DummyFetcher struct {
	config *core.FetcherConfig
}

var _ core.RateFetcher = (*DummyFetcher)(nil)

func NewDummyFetcher(config *core.FetcherConfig) *DummyFetcher {
	return &DummyFetcher{config: config}
}

func (d *DummyFetcher) Name() string {
	return core.FetcherDummy
}

func (d *DummyFetcher) FetchRate(_ context.Context, pair core.CurrencyPair) (core.ProviderQuote, error) {
	start := time.Now()

	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(pair.String()))

	// stable value in [0.5000, 1.4999] derived from the pair itself
	value := decimal.NewFromInt(5000 + int64(hasher.Sum32()%10000)).Div(decimal.NewFromInt(10000))

	return core.ProviderQuote{
		Provider:  d.Name(),
		Pair:      pair,
		Rate:      value,
		Timestamp: time.Now().UTC(),
		Latency:   time.Since(start),
	}, nil
}

func (d *DummyFetcher) FetchSupportedCurrencies(_ context.Context) ([]string, error) {
	return []string{"USD", "EUR", "GBP", "NGN", "JPY", "CAD", "AUD", "CHF", "CNY", "INR"}, nil
}
