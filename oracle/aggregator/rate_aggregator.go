package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/Ethernal-Tech/fx-oracle/common"
	"github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/Ethernal-Tech/fx-oracle/telemetry"
	"github.com/hashicorp/go-hclog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const (
	convertPrecision  = 6
	sinkSubmitTimeout = 10 * time.Second
)

// AggregatorImpl resolves currency rates by combining the cache, the breaker
// guarded provider fleet and the persistence sinks. It is the single writer of
// aggregated rates, everyone else only reads them.
type AggregatorImpl struct {
	config   core.AggregatorConfig
	fetchers map[string]core.RateFetcher
	breakers map[string]core.CircuitBreaker
	cache    core.Cache
	sinks    []core.RateSink
	logger   hclog.Logger

	resolveGroup singleflight.Group
}

var _ core.RateAggregator = (*AggregatorImpl)(nil)

func NewRateAggregator(
	config core.AggregatorConfig,
	fetchers map[string]core.RateFetcher,
	breakers map[string]core.CircuitBreaker,
	cache core.Cache,
	sinks []core.RateSink,
	logger hclog.Logger,
) *AggregatorImpl {
	return &AggregatorImpl{
		config:   config,
		fetchers: fetchers,
		breakers: breakers,
		cache:    cache,
		sinks:    sinks,
		logger:   logger.Named("rate_aggregator"),
	}
}

func (a *AggregatorImpl) Resolve(ctx context.Context, pair core.CurrencyPair) (core.AggregatedRate, error) {
	if cached, found := a.lookupCache(ctx, pair); found {
		telemetry.UpdateResolveCounter(true)

		return cached, nil
	}

	if !a.config.DedupeResolve {
		return a.resolveFromProviders(ctx, pair)
	}

	result, err, _ := a.resolveGroup.Do(pair.String(), func() (interface{}, error) {
		rate, err := a.resolveFromProviders(ctx, pair)
		if err != nil {
			return nil, err
		}

		return rate, nil
	})
	if err != nil {
		return core.AggregatedRate{}, err
	}

	return result.(core.AggregatedRate), nil
}

// Convert is a pure layer over Resolve.
func (a *AggregatorImpl) Convert(
	ctx context.Context, pair core.CurrencyPair, amount decimal.Decimal,
) (decimal.Decimal, core.AggregatedRate, error) {
	rate, err := a.Resolve(ctx, pair)
	if err != nil {
		return decimal.Decimal{}, core.AggregatedRate{}, err
	}

	return amount.Mul(rate.Rate).Round(convertPrecision), rate, nil
}

func (a *AggregatorImpl) HealthSnapshot() map[string]core.BreakerSnapshot {
	snapshot := make(map[string]core.BreakerSnapshot, len(a.breakers))
	for name, breaker := range a.breakers {
		snapshot[name] = breaker.CurrentState()
	}

	return snapshot
}

type fetchOutcome struct {
	provider string
	quote    core.ProviderQuote
	err      error
}

func (a *AggregatorImpl) resolveFromProviders(
	ctx context.Context, pair core.CurrencyPair,
) (core.AggregatedRate, error) {
	outcomeCh := make(chan fetchOutcome, len(a.fetchers))
	attempted := 0

	for name, fetcher := range a.fetchers {
		breaker := a.breakers[name]
		if breaker != nil && !breaker.Allow() {
			a.logger.Debug("provider skipped, breaker open", "provider", name, "pair", pair)

			continue
		}

		attempted++

		go func(name string, fetcher core.RateFetcher, breaker core.CircuitBreaker) {
			quote, err := fetcher.FetchRate(ctx, pair)

			if breaker != nil {
				switch {
				case err == nil:
					breaker.RecordSuccess()
				case common.IsContextDoneErr(err):
					// caller went away, not the provider's fault
				default:
					breaker.RecordFailure()
				}
			}

			outcomeCh <- fetchOutcome{provider: name, quote: quote, err: err}
		}(name, fetcher, breaker)
	}

	quotes := make([]core.ProviderQuote, 0, attempted)
	contributors := make([]string, 0, attempted)

	for i := 0; i < attempted; i++ {
		outcome := <-outcomeCh
		if outcome.err != nil {
			a.logger.Debug("provider fetch failed",
				"provider", outcome.provider, "pair", pair, "err", outcome.err)

			continue
		}

		quotes = append(quotes, outcome.quote)
		contributors = append(contributors, outcome.provider)
	}

	if len(quotes) == 0 {
		telemetry.UpdateResolveFailedCounter(1)

		return core.AggregatedRate{}, fmt.Errorf("%w for %s", core.ErrAllProvidersUnavailable, pair)
	}

	sort.Strings(contributors)

	rates := make([]decimal.Decimal, len(quotes))
	for i, quote := range quotes {
		rates[i] = quote.Rate
	}

	primaryUsed := false

	for _, name := range contributors {
		if name == a.config.PrimaryProvider {
			primaryUsed = true

			break
		}
	}

	rate := core.AggregatedRate{
		Pair:            pair,
		Rate:            decimal.Avg(rates[0], rates[1:]...),
		ConfidenceLevel: a.confidenceFor(contributors, attempted, primaryUsed),
		Providers:       contributors,
		PrimaryUsed:     primaryUsed,
		Timestamp:       time.Now().UTC(),
	}

	a.saveToCache(ctx, rate)
	a.submitToSinks(rate)

	telemetry.UpdateResolveCounter(false)

	return rate, nil
}

// confidenceFor grades how trustworthy the aggregate is. Two independent
// contributors make it high, a lone primary with every other provider skipped
// by its breaker still counts as high, any other single source is medium.
// A failure streak on the contributing breakers degrades the grade to low.
func (a *AggregatorImpl) confidenceFor(contributors []string, attempted int, primaryUsed bool) string {
	confidence := core.ConfidenceMedium
	if len(contributors) >= 2 || (primaryUsed && attempted == 1) {
		confidence = core.ConfidenceHigh
	}

	combinedFailures := 0

	for _, name := range contributors {
		if breaker := a.breakers[name]; breaker != nil {
			combinedFailures += breaker.CurrentState().FailureCount
		}
	}

	if combinedFailures > a.config.LowConfidenceFailureThreshold {
		confidence = core.ConfidenceLow
	}

	return confidence
}

func (a *AggregatorImpl) lookupCache(ctx context.Context, pair core.CurrencyPair) (core.AggregatedRate, bool) {
	value, found, err := a.cache.Get(ctx, pair.CacheKey())
	if err != nil || !found {
		if err != nil {
			a.logger.Debug("cache read failed", "pair", pair, "err", err)
		}

		telemetry.UpdateCacheMissCounter(1)

		return core.AggregatedRate{}, false
	}

	var rate core.AggregatedRate
	if err := json.Unmarshal(value, &rate); err != nil {
		a.logger.Warn("failed to decode cached rate", "pair", pair, "err", err)

		telemetry.UpdateCacheMissCounter(1)

		return core.AggregatedRate{}, false
	}

	telemetry.UpdateCacheHitCounter(1)

	rate.Cached = true

	return rate, true
}

func (a *AggregatorImpl) saveToCache(ctx context.Context, rate core.AggregatedRate) {
	value, err := json.Marshal(rate)
	if err != nil {
		a.logger.Error("failed to marshal aggregated rate", "pair", rate.Pair, "err", err)

		return
	}

	if err := a.cache.Set(ctx, rate.Pair.CacheKey(), value, a.config.CacheTTL()); err != nil {
		a.logger.Warn("failed to cache aggregated rate", "pair", rate.Pair, "err", err)
	}
}

// submitToSinks hands the rate to every persistence sink without blocking the
// resolve path. Sink failures are logged and swallowed.
func (a *AggregatorImpl) submitToSinks(rate core.AggregatedRate) {
	for _, sink := range a.sinks {
		go func(sink core.RateSink) {
			ctx, cancel := context.WithTimeout(context.Background(), sinkSubmitTimeout)
			defer cancel()

			if err := sink.SubmitRate(ctx, rate); err != nil {
				a.logger.Warn("failed to submit rate to sink", "pair", rate.Pair, "err", err)
			}
		}(sink)
	}
}
