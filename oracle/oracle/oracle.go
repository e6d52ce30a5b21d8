package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ethernal-Tech/fx-oracle/oracle/aggregator"
	"github.com/Ethernal-Tech/fx-oracle/oracle/breaker"
	"github.com/Ethernal-Tech/fx-oracle/oracle/cache"
	"github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/Ethernal-Tech/fx-oracle/oracle/currency"
	"github.com/Ethernal-Tech/fx-oracle/oracle/fanout"
	"github.com/Ethernal-Tech/fx-oracle/oracle/fetcher"
	"github.com/Ethernal-Tech/fx-oracle/oracle/ingest"
	"github.com/Ethernal-Tech/fx-oracle/oracle/sink"
	"github.com/hashicorp/go-hclog"
)

var errNoFetchersEnabled = errors.New("no rate fetchers enabled")

type OracleImpl struct {
	appConfig       *core.AppConfig
	cacheStore      core.Cache
	aggregator      core.RateAggregator
	ingestor        core.RateIngestor
	hub             *fanout.Hub
	currencyManager core.CurrencyValidator
	ratePublisher   *sink.KafkaRatePublisher
	logger          hclog.Logger

	errorCh chan error
}

var _ core.Oracle = (*OracleImpl)(nil)

// NewOracle wires the rate resolution engine: one breaker guarded fetcher per
// enabled provider, the shared cache, the aggregator with its sinks, the
// ingestion worker and the fan-out hub. extraSinks lets the caller register
// additional rate consumers, for example the rates history database.
func NewOracle(
	ctx context.Context,
	appConfig *core.AppConfig,
	extraSinks []core.RateSink,
	logger hclog.Logger,
) (*OracleImpl, error) {
	enabledFetchers := appConfig.EnabledFetchers()
	if len(enabledFetchers) == 0 {
		return nil, errNoFetchersEnabled
	}

	cacheStore, err := cache.NewCache(ctx, appConfig.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache. err: %w", err)
	}

	rateFetchers := make(map[string]core.RateFetcher, len(enabledFetchers))
	circuitBreakers := make(map[string]core.CircuitBreaker, len(enabledFetchers))

	for name, fetcherConfig := range enabledFetchers {
		rateFetcher, err := fetcher.NewRateFetcher(fetcherConfig, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create fetcher %s. err: %w", name, err)
		}

		rateFetchers[name] = rateFetcher
		circuitBreakers[name] = breaker.NewCircuitBreaker(name, appConfig.Breaker, logger)
	}

	rateSinks := make([]core.RateSink, 0, len(extraSinks)+1)
	rateSinks = append(rateSinks, extraSinks...)

	var ratePublisher *sink.KafkaRatePublisher

	if len(appConfig.History.KafkaBrokers) > 0 {
		ratePublisher = sink.NewKafkaRatePublisher(appConfig.History, logger)
		rateSinks = append(rateSinks, ratePublisher)
	}

	rateAggregator := aggregator.NewRateAggregator(
		appConfig.Aggregator, rateFetchers, circuitBreakers, cacheStore, rateSinks, logger)

	rateIngestor, err := ingest.NewRateIngestor(ctx, appConfig.Ingest, rateAggregator, cacheStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate ingestor. err: %w", err)
	}

	fanoutHub := fanout.NewHub(ctx, appConfig.Fanout, cacheStore, appConfig.Ingest.BroadcastChannel, logger)

	currencyManager := currency.NewCurrencyManager(
		appConfig.Currencies, rateFetchers, circuitBreakers, cacheStore, logger)

	return &OracleImpl{
		appConfig:       appConfig,
		cacheStore:      cacheStore,
		aggregator:      rateAggregator,
		ingestor:        rateIngestor,
		hub:             fanoutHub,
		currencyManager: currencyManager,
		ratePublisher:   ratePublisher,
		logger:          logger,
		errorCh:         make(chan error, 1),
	}, nil
}

func (o *OracleImpl) Start() error {
	o.logger.Debug("Starting Oracle")

	o.ingestor.Start()
	o.hub.Start()

	o.logger.Debug("Started Oracle")

	return nil
}

func (o *OracleImpl) Dispose() error {
	errs := make([]error, 0)

	if o.ratePublisher != nil {
		if err := o.ratePublisher.Close(); err != nil {
			o.logger.Error("error while closing rate publisher", "err", err)
			errs = append(errs, fmt.Errorf("error while closing rate publisher. err: %w", err))
		}
	}

	if err := o.cacheStore.Close(); err != nil {
		o.logger.Error("error while closing cache", "err", err)
		errs = append(errs, fmt.Errorf("error while closing cache. err: %w", err))
	}

	close(o.errorCh)

	if len(errs) > 0 {
		return fmt.Errorf("errors while disposing oracle. errors: %w", errors.Join(errs...))
	}

	return nil
}

// ErrorCh carries fatal engine faults. Components that can degrade, an open
// breaker or an unreachable cache, recover on their own and never report here.
func (o *OracleImpl) ErrorCh() <-chan error {
	return o.errorCh
}

func (o *OracleImpl) Aggregator() core.RateAggregator {
	return o.aggregator
}

func (o *OracleImpl) CurrencyValidator() core.CurrencyValidator {
	return o.currencyManager
}

func (o *OracleImpl) FanoutHub() *fanout.Hub {
	return o.hub
}

func (o *OracleImpl) Cache() core.Cache {
	return o.cacheStore
}
