package telemetry

import (
	"time"

	"github.com/armon/go-metrics"
)

const (
	aggregatorMetricsPrefix = "aggregator"
	fetcherMetricsPrefix    = "fetchers"
	breakerMetricsPrefix    = "breaker"
	cacheMetricsPrefix      = "cache"
	ingestMetricsPrefix     = "ingest"
	fanoutMetricsPrefix     = "fanout"
)

func UpdateFetcherCallCounter(provider string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}

	metrics.IncrCounter([]string{fetcherMetricsPrefix, "call_counter", provider, outcome}, 1)
}

func UpdateFetcherLatency(provider string, latency time.Duration) {
	metrics.SetGauge([]string{fetcherMetricsPrefix, "latency_millis", provider}, float32(latency.Milliseconds()))
}

func UpdateBreakerStateGauge(provider string, state int) {
	metrics.SetGauge([]string{breakerMetricsPrefix, "state", provider}, float32(state))
}

func UpdateBreakerTransitionCounter(provider string, to string) {
	metrics.IncrCounter([]string{breakerMetricsPrefix, "transition_counter", provider, to}, 1)
}

func UpdateCacheHitCounter(cnt int) {
	metrics.IncrCounter([]string{cacheMetricsPrefix, "hit_counter"}, float32(cnt))
}

func UpdateCacheMissCounter(cnt int) {
	metrics.IncrCounter([]string{cacheMetricsPrefix, "miss_counter"}, float32(cnt))
}

func UpdateResolveCounter(cached bool) {
	origin := "providers"
	if cached {
		origin = "cache"
	}

	metrics.IncrCounter([]string{aggregatorMetricsPrefix, "resolve_counter", origin}, 1)
}

func UpdateResolveFailedCounter(cnt int) {
	metrics.IncrCounter([]string{aggregatorMetricsPrefix, "resolve_failed_counter"}, float32(cnt))
}

func UpdateIngestPairCounter(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}

	metrics.IncrCounter([]string{ingestMetricsPrefix, "pair_counter", outcome}, 1)
}

func UpdateIngestTickCounter(cnt int) {
	metrics.IncrCounter([]string{ingestMetricsPrefix, "tick_counter"}, float32(cnt))
}

func UpdateFanoutListenersGauge(cnt int) {
	metrics.SetGauge([]string{fanoutMetricsPrefix, "listeners"}, float32(cnt))
}

func UpdateFanoutDroppedCounter(cnt int) {
	metrics.IncrCounter([]string{fanoutMetricsPrefix, "dropped_counter"}, float32(cnt))
}

func UpdateFanoutDeliveredCounter(cnt int) {
	metrics.IncrCounter([]string{fanoutMetricsPrefix, "delivered_counter"}, float32(cnt))
}
