package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RateFetcher is the provider adapter capability. Implementations normalize
// every failure into the fetch error taxonomy and honor ctx cancellation, so
// a call never outlives the caller's deadline.
type RateFetcher interface {
	Name() string
	FetchRate(ctx context.Context, pair CurrencyPair) (ProviderQuote, error)
	FetchSupportedCurrencies(ctx context.Context) ([]string, error)
}

// CircuitBreaker gates calls towards a single provider. Allow reports whether
// the caller may perform exactly one guarded operation; the outcome has to be
// reported back through RecordSuccess or RecordFailure.
type CircuitBreaker interface {
	Allow() bool
	RecordSuccess()
	RecordFailure()
	CurrentState() BreakerSnapshot
}

// Cache is the TTL key value store plus publish/subscribe channel the oracle
// consumes. A ttl of zero means the entry never expires. Implementations
// degrade to always-miss while the backend is unreachable instead of failing.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	IsAvailable() bool
	Close() error
}

// RateSink receives every freshly aggregated rate, fire and forget. A sink
// error never fails the Resolve call that produced the rate.
type RateSink interface {
	SubmitRate(ctx context.Context, rate AggregatedRate) error
}

type RateAggregator interface {
	Resolve(ctx context.Context, pair CurrencyPair) (AggregatedRate, error)
	Convert(ctx context.Context, pair CurrencyPair, amount decimal.Decimal) (decimal.Decimal, AggregatedRate, error)
	HealthSnapshot() map[string]BreakerSnapshot
}

type RateIngestor interface {
	Start()
}

// CurrencyValidator guards the aggregator's entry points. Validation happens
// before Resolve is ever invoked.
type CurrencyValidator interface {
	ValidatePair(ctx context.Context, pair CurrencyPair) error
	SupportedCurrencies(ctx context.Context) []string
}

type Oracle interface {
	Start() error
	Dispose() error
	ErrorCh() <-chan error
}
