package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/Ethernal-Tech/fx-oracle/telemetry"
	"github.com/hashicorp/go-hclog"
)

// RateIngestorImpl keeps the tracked pairs warm. Every tick it resolves each
// pair, publishes the update on the broadcast channel and overwrites the
// latest rate key so instant lookups never touch the aggregator.
type RateIngestorImpl struct {
	ctx        context.Context
	config     core.IngestConfig
	aggregator core.RateAggregator
	cache      core.Cache
	logger     hclog.Logger

	trackedPairs []core.CurrencyPair
}

var _ core.RateIngestor = (*RateIngestorImpl)(nil)

func NewRateIngestor(
	ctx context.Context,
	config core.IngestConfig,
	aggregator core.RateAggregator,
	cache core.Cache,
	logger hclog.Logger,
) (*RateIngestorImpl, error) {
	trackedPairs, err := config.TrackedPairs()
	if err != nil {
		return nil, fmt.Errorf("failed to build tracked pairs. err: %w", err)
	}

	return &RateIngestorImpl{
		ctx:          ctx,
		config:       config,
		aggregator:   aggregator,
		cache:        cache,
		logger:       logger.Named("rate_ingestor"),
		trackedPairs: trackedPairs,
	}, nil
}

func (i *RateIngestorImpl) Start() {
	i.logger.Debug("Starting RateIngestorImpl",
		"pairs", len(i.trackedPairs), "interval", i.config.UpdateInterval())

	go i.execute()
}

func (i *RateIngestorImpl) execute() {
	i.refreshAll()

	for {
		select {
		case <-i.ctx.Done():
			i.logger.Debug("RateIngestorImpl stopped")

			return
		case <-time.After(i.config.UpdateInterval()):
		}

		i.refreshAll()
	}
}

// refreshAll runs one ingestion pass. A failing pair is logged and skipped,
// it never stops the pass or the loop. The next tick is the retry.
func (i *RateIngestorImpl) refreshAll() {
	telemetry.UpdateIngestTickCounter(1)

	for _, pair := range i.trackedPairs {
		select {
		case <-i.ctx.Done():
			return
		default:
		}

		if err := i.refreshPair(pair); err != nil {
			i.logger.Warn("failed to refresh tracked pair", "pair", pair, "err", err)
			telemetry.UpdateIngestPairCounter(false)

			continue
		}

		telemetry.UpdateIngestPairCounter(true)
	}
}

func (i *RateIngestorImpl) refreshPair(pair core.CurrencyPair) error {
	rate, err := i.aggregator.Resolve(i.ctx, pair)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(core.NewRateBroadcast(rate))
	if err != nil {
		return fmt.Errorf("failed to marshal rate broadcast. err: %w", err)
	}

	if err := i.cache.Publish(i.ctx, i.config.BroadcastChannel, payload); err != nil {
		i.logger.Debug("failed to publish rate broadcast", "pair", pair, "err", err)
	}

	// no TTL on the latest key, it is always the most recent ingested value
	if err := i.cache.Set(i.ctx, pair.LatestCacheKey(), payload, 0); err != nil {
		i.logger.Debug("failed to write latest rate", "pair", pair, "err", err)
	}

	return nil
}
